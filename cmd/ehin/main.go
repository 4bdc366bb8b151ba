package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	_ "time/tzdata"

	"github.com/ehin/ehin/pkg/freshness"
	"github.com/ehin/ehin/pkg/ingest"
	"github.com/ehin/ehin/pkg/log"
	"github.com/ehin/ehin/pkg/nordpool"
	"github.com/ehin/ehin/pkg/pricecache"
	"github.com/ehin/ehin/pkg/server"
	"github.com/ehin/ehin/pkg/storage"

	"github.com/levenlabs/go-lflag"
	"github.com/levenlabs/go-llog"
)

func main() {
	// init packages
	s := storage.Configured()
	np := nordpool.Configured()
	u := ingest.Configured(np, s)
	policy := freshness.Configured()
	pc := pricecache.Configured()

	// init server
	srv := server.Configured(s, u, policy, pc)

	// parse flags
	lflag.Configure()

	// lflag automatically sets llog's level, but we need to set the slog level
	level, err := log.LevelFromLLog(llog.GetLevel())
	if err != nil {
		panic(err)
	}
	log.SetDefaultLogLevel(level)

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)
	slog.Debug("logger configured", slog.String("level", level.String()))

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// If initialization inside lflag.Do failed, we wouldn't be here (panic).
	defer func() {
		if err := pc.Close(); err != nil {
			log.Ctx(ctx).ErrorContext(ctx, "failed to close price cache", "error", err)
		}
		if err := s.Close(); err != nil {
			log.Ctx(ctx).ErrorContext(ctx, "failed to close storage", "error", err)
		}
	}()

	// Run will block until context is canceled or error happens
	if err := srv.Run(ctx); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "server failed", "error", err)
		os.Exit(1)
	}
	log.Ctx(ctx).InfoContext(ctx, "server exited cleanly")
}
