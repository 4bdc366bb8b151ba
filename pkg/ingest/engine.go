package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/ehin/ehin/pkg/log"
	"github.com/ehin/ehin/pkg/storage"
	"github.com/ehin/ehin/pkg/types"
)

// Engine merges validated entries into storage without ever overwriting an
// hour that is already stored.
type Engine struct {
	db storage.Database
}

// NewEngine returns an Engine writing to db.
func NewEngine(db storage.Database) *Engine {
	return &Engine{db: db}
}

// Ingest stores every new hour in entries and reports the hours that already
// existed as matched or conflicting. Conflicts are logged but do not fail the
// call, only storage errors do.
func (e *Engine) Ingest(ctx context.Context, entries []types.PriceEntry) (types.IngestionReport, error) {
	sorted := make([]types.PriceEntry, len(entries))
	for i, p := range entries {
		sorted[i] = p.UTC()
	}
	slices.SortFunc(sorted, func(a, b types.PriceEntry) int {
		return a.DeliveryStart.Compare(b.DeliveryStart)
	})

	report, err := e.db.UpsertPrices(ctx, sorted)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to store prices", slog.Int("count", len(sorted)), slog.Any("error", err))
		return types.IngestionReport{}, fmt.Errorf("failed to store prices: %w", err)
	}

	for _, c := range report.Conflicts {
		log.Ctx(ctx).ErrorContext(
			ctx,
			"stored price differs from fetched price",
			slog.Time("deliveryStart", c.DeliveryStart),
			slog.String("stored", c.Stored.String()),
			slog.String("incoming", c.Incoming.String()),
		)
	}
	log.Ctx(ctx).InfoContext(
		ctx,
		"ingested prices",
		slog.Int("inserted", report.Inserted),
		slog.Int("matched", report.Matched),
		slog.Int("conflicts", len(report.Conflicts)),
	)
	return report, nil
}
