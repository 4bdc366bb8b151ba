package server

import (
	"log/slog"
	"net/http"

	"github.com/ehin/ehin/pkg/log"
	"github.com/google/uuid"
	"github.com/rs/cors"
)

// requestLoggerMiddleware attaches a logger carrying a request id to the
// request context.
func (s *Server) requestLoggerMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := log.WithAttrs(
			r.Context(),
			slog.String("requestID", uuid.NewString()),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
		)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins:   s.corsOrigins,
		AllowedMethods:   []string{http.MethodGet},
		ExposedHeaders:   []string{"Cache-Control", "Content-Type", "Expires"},
		MaxAge:           86400,
		AllowCredentials: true,
	})
	return c.Handler(next)
}
