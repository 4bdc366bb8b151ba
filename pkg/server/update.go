package server

import (
	"crypto/subtle"
	"log/slog"
	"net/http"

	"github.com/ehin/ehin/pkg/ingest"
	"github.com/ehin/ehin/pkg/log"
	"github.com/ehin/ehin/pkg/types"
)

type updatePricesResponse struct {
	Done bool `json:"done"`
}

// authorizedUpdate reports whether r carries the update password. Callers
// without it get a 404 so the endpoint stays hidden.
func (s *Server) authorizedUpdate(w http.ResponseWriter, r *http.Request) bool {
	password := r.URL.Query().Get("p")
	if s.updatePassword == "" || subtle.ConstantTimeCompare([]byte(password), []byte(s.updatePassword)) != 1 {
		http.NotFound(w, r)
		return false
	}
	return true
}

func (s *Server) handleUpdatePrices(w http.ResponseWriter, r *http.Request) {
	if !s.authorizedUpdate(w, r) {
		return
	}
	ctx := r.Context()
	log.Ctx(ctx).InfoContext(ctx, "updating tomorrow's prices")

	res, err := s.updater.UpdateTomorrow(ctx)
	s.writeUpdateResult(w, r, res, err)
}

func (s *Server) handleUpdatePricesForDate(w http.ResponseWriter, r *http.Request) {
	if !s.authorizedUpdate(w, r) {
		return
	}
	ctx := r.Context()
	dateStr := r.PathValue("date")
	date, err := types.ParseDay(dateStr, types.HelsinkiLocation)
	if err != nil {
		writeJSONError(w, "invalid date format, use YYYY-MM-DD", http.StatusBadRequest)
		return
	}
	log.Ctx(ctx).InfoContext(ctx, "updating prices", slog.String("date", dateStr))

	res, err := s.updater.Update(ctx, date)
	s.writeUpdateResult(w, r, res, err)
}

func (s *Server) writeUpdateResult(w http.ResponseWriter, r *http.Request, res ingest.UpdateResult, err error) {
	ctx := r.Context()
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to update prices", slog.Any("error", err))
		writeJSONError(w, "failed to update prices", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, updatePricesResponse{Done: res.Done})
}
