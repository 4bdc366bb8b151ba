package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/ehin/ehin/pkg/ingest"
	"github.com/ehin/ehin/pkg/log"
	"github.com/ehin/ehin/pkg/nordpool"
	"github.com/ehin/ehin/pkg/storage"
	"github.com/ehin/ehin/pkg/types"

	"github.com/levenlabs/go-lflag"
	"github.com/levenlabs/go-llog"
)

// backfill ingests every delivery day between --start and --end inclusive.
func main() {
	s := storage.Configured()
	np := nordpool.Configured()
	u := ingest.Configured(np, s)

	start := lflag.RequiredString("start", "first delivery day to ingest, YYYY-MM-DD")
	end := lflag.String("end", "", "last delivery day to ingest, YYYY-MM-DD (defaults to --start)")
	delay := lflag.Duration("backfill-delay", time.Second, "pause between days to stay gentle on the upstream api")

	lflag.Configure()

	level, err := log.LevelFromLLog(llog.GetLevel())
	if err != nil {
		panic(err)
	}
	log.SetDefaultLogLevel(level)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err = run(ctx, u, *start, *end, *delay)
	cancel()
	if cerr := s.Close(); cerr != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to close storage", "error", cerr)
	}
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "backfill failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, u *ingest.Updater, start, end string, delay time.Duration) error {
	first, err := types.ParseDay(start, types.HelsinkiLocation)
	if err != nil {
		return fmt.Errorf("invalid start: %w", err)
	}
	last := first
	if end != "" {
		last, err = types.ParseDay(end, types.HelsinkiLocation)
		if err != nil {
			return fmt.Errorf("invalid end: %w", err)
		}
	}
	if last.Before(first) {
		return errors.New("end is before start")
	}

	var done, pending int
	var total types.IngestionReport
	for day := first; !day.After(last); day = day.AddDate(0, 0, 1) {
		if day != first && delay > 0 {
			select {
			case <-ctx.Done():
				return fmt.Errorf("interrupted before %s: %w", day.Format(types.DateLayout), ctx.Err())
			case <-time.After(delay):
			}
		}

		res, err := u.Update(ctx, day)
		if err != nil {
			return err
		}
		if !res.Done {
			pending++
			continue
		}
		done++
		total.Add(res.Report)
	}

	log.Ctx(ctx).InfoContext(
		ctx,
		"backfill finished",
		slog.Int("daysDone", done),
		slog.Int("daysPending", pending),
		slog.Int("inserted", total.Inserted),
		slog.Int("matched", total.Matched),
		slog.Int("conflicts", len(total.Conflicts)),
	)
	return nil
}
