package server

import (
	"log/slog"
	"net/http"

	"github.com/ehin/ehin/pkg/log"
	"github.com/ehin/ehin/pkg/types"
)

// handleGetPrices serves the stored window [date-1d, date+2d) around the
// requested delivery day with caching headers from the classifier.
func (s *Server) handleGetPrices(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	dateStr := r.PathValue("date")
	day, err := types.ParseDay(dateStr, types.HelsinkiLocation)
	if err != nil {
		writeJSONError(w, "invalid date format, use YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	entries, cached, err := s.cache.Get(ctx, dateStr)
	if err != nil {
		log.Ctx(ctx).WarnContext(ctx, "failed to read price cache", slog.String("date", dateStr), slog.Any("error", err))
	}
	if !cached {
		from := day.AddDate(0, 0, -1)
		to := day.AddDate(0, 0, 2)
		entries, err = s.storage.GetPrices(ctx, from, to)
		if err != nil {
			log.Ctx(ctx).ErrorContext(ctx, "failed to get prices", slog.String("date", dateStr), slog.Any("error", err))
			writeJSONError(w, "failed to get prices", http.StatusInternalServerError)
			return
		}
	}

	directive := s.classifier.Classify(day, entries, s.now())
	if directive.Immutable && !cached {
		if err := s.cache.Set(ctx, dateStr, entries, directive.MaxAge); err != nil {
			log.Ctx(ctx).WarnContext(ctx, "failed to write price cache", slog.String("date", dateStr), slog.Any("error", err))
		}
	}

	log.Ctx(ctx).DebugContext(
		ctx,
		"serving prices",
		slog.String("date", dateStr),
		slog.Int("count", len(entries)),
		slog.Bool("cached", cached),
		slog.String("cacheControl", directive.CacheControl()),
	)

	if entries == nil {
		entries = []types.PriceEntry{}
	}
	directive.Apply(w.Header())
	writeJSON(w, entries)
}
