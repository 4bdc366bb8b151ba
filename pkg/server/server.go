package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/NYTimes/gziphandler"
	"github.com/ehin/ehin/pkg/freshness"
	"github.com/ehin/ehin/pkg/ingest"
	"github.com/ehin/ehin/pkg/log"
	"github.com/ehin/ehin/pkg/pricecache"
	"github.com/ehin/ehin/pkg/storage"
	"github.com/levenlabs/go-lflag"
)

// Server serves day windows of stored prices and the triggers that ingest new
// ones.
type Server struct {
	storage    storage.Database
	updater    *ingest.Updater
	classifier *freshness.Classifier
	cache      pricecache.Cache
	now        func() time.Time

	listenAddr string
	httpServer *http.Server

	updatePassword string
	corsOrigins    []string
	serverName     string
}

// Configured initializes the Server with dependencies.
// It uses lflag to register command-line flags for configuration.
func Configured(s storage.Database, u *ingest.Updater, policy *freshness.Policy, c pricecache.Cache) *Server {
	srv := &Server{
		storage:    s,
		updater:    u,
		cache:      c,
		now:        time.Now,
		serverName: "ehin",
	}
	revision := os.Getenv("K_REVISION")
	if revision != "" {
		srv.serverName = revision
	}

	// get the port from PORT when running in cloud run
	port := os.Getenv("PORT")
	if port == "" {
		// otherwise default to 8080
		port = "8080"
	}

	listenAddr := lflag.String("http-listen", ":"+port, "HTTP server listen address")
	updatePassword := lflag.String("update-prices-password", "", "Shared secret for the update-prices endpoints, they are disabled when empty")
	corsOrigins := lflag.String("cors-allowed-origins", "http://127.0.0.1:5173,https://ehin.fi,https://www.ehin.fi", "comma-delimited list of origins allowed to read prices")

	lflag.Do(func() {
		srv.listenAddr = *listenAddr
		srv.updatePassword = *updatePassword
		if *corsOrigins != "" {
			srv.corsOrigins = strings.Split(*corsOrigins, ",")
			for i, origin := range srv.corsOrigins {
				srv.corsOrigins[i] = strings.TrimSpace(origin)
			}
		}
		srv.classifier = freshness.NewClassifier(*policy)
		if srv.updatePassword == "" {
			log.Ctx(context.Background()).Warn("update-prices-password is empty, update endpoints are disabled")
		}
	})

	return srv
}

func (s *Server) setupHandler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/prices/{date}", s.handleGetPrices)
	mux.HandleFunc("GET /api/update-prices", s.handleUpdatePrices)
	mux.HandleFunc("GET /api/update-prices/{date}", s.handleUpdatePricesForDate)
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.HandleFunc("GET /{$}", s.handleRoot)
	return s.revisionMiddleware(
		s.requestLoggerMiddleware(
			s.corsMiddleware(
				gziphandler.GzipHandler(s.securityHeadersMiddleware(mux)),
			),
		),
	)
}

// Run starts the HTTP server and blocks until the context is canceled or an error occurs.
// It also handles graceful shutdown when the context is done.
func (s *Server) Run(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:         s.listenAddr,
		Handler:      s.setupHandler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  15 * time.Second,
	}

	// use a channel to capturing server errors
	errChan := make(chan error, 1)
	go func() {
		defer close(errChan)
		log.Ctx(ctx).InfoContext(ctx, "starting server", slog.String("addr", s.listenAddr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		// Context canceled, shut down gracefully
		log.Ctx(ctx).InfoContext(ctx, "shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		return nil
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		panic(http.ErrAbortHandler)
	}
}

func writeJSONError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(struct {
		Error string `json:"error"`
	}{Error: msg}); err != nil {
		slog.Warn("failed to write error response", slog.Any("error", err))
		panic(http.ErrAbortHandler)
	}
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := s.storage.Ping(ctx); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "storage ping failed", slog.Any("error", err))
		writeJSONError(w, "storage unavailable", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("ok")); err != nil {
		panic(http.ErrAbortHandler)
	}
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if _, err := w.Write([]byte("EHIN API")); err != nil {
		panic(http.ErrAbortHandler)
	}
}

func (s *Server) revisionMiddleware(next http.Handler) http.Handler {
	if s.serverName == "" {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Server", s.serverName)
		next.ServeHTTP(w, r)
	})
}
