package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ehin/ehin/pkg/log"
	"github.com/ehin/ehin/pkg/nordpool"
	"github.com/ehin/ehin/pkg/storage"
	"github.com/ehin/ehin/pkg/types"
	"github.com/levenlabs/go-lflag"
)

// Fetcher fetches the provider document for one delivery day. A nil document
// with a nil error means the day is not published yet.
type Fetcher interface {
	GetDayAheadPrices(ctx context.Context, date time.Time) (*nordpool.PriceDataResponse, error)
}

// UpdateResult is the outcome of one Update.
type UpdateResult struct {
	// Done is true when a valid batch was fetched and stored.
	Done   bool
	Report types.IngestionReport
}

// Updater fetches a delivery day, validates it and ingests it.
type Updater struct {
	fetcher Fetcher
	area    string
	engine  *Engine
	now     func() time.Time
}

// NewUpdater returns an Updater ingesting area's prices from fetcher.
func NewUpdater(fetcher Fetcher, area string, engine *Engine) *Updater {
	return &Updater{
		fetcher: fetcher,
		area:    area,
		engine:  engine,
		now:     time.Now,
	}
}

// Configured returns an Updater fetching from c and storing into db. The area
// is taken from c once flags are parsed.
func Configured(c *nordpool.Client, db storage.Database) *Updater {
	u := NewUpdater(c, "", NewEngine(db))
	lflag.Do(func() {
		u.area = c.Area()
	})
	return u
}

// SetNow overrides the clock used by UpdateTomorrow.
func (u *Updater) SetNow(now func() time.Time) {
	u.now = now
}

// Update ingests the prices for the delivery day of date. A missing or
// rejected batch is not an error, it leaves Done false so the caller can try
// again later. Only storage failures are returned.
func (u *Updater) Update(ctx context.Context, date time.Time) (UpdateResult, error) {
	day := date.Format(types.DateLayout)
	ctx = log.WithAttrs(ctx, slog.String("date", day))

	batch, err := u.fetcher.GetDayAheadPrices(ctx, date)
	if err != nil {
		log.Ctx(ctx).WarnContext(ctx, "failed to fetch prices", slog.Any("error", err))
		return UpdateResult{}, nil
	}
	if batch == nil {
		log.Ctx(ctx).WarnContext(ctx, "prices not published yet")
		return UpdateResult{}, nil
	}

	entries, err := Validate(batch, u.area)
	if err != nil {
		if errors.Is(err, ErrRejected) {
			log.Ctx(ctx).WarnContext(ctx, "rejected fetched prices", slog.Any("reason", err))
			return UpdateResult{}, nil
		}
		return UpdateResult{}, err
	}

	report, err := u.engine.Ingest(ctx, entries)
	if err != nil {
		return UpdateResult{}, fmt.Errorf("failed to ingest prices for %s: %w", day, err)
	}
	return UpdateResult{Done: true, Report: report}, nil
}

// UpdateTomorrow ingests the prices for the next delivery day in the market
// time zone.
func (u *Updater) UpdateTomorrow(ctx context.Context) (UpdateResult, error) {
	tomorrow := types.TruncateDay(u.now().In(types.HelsinkiLocation)).AddDate(0, 0, 1)
	return u.Update(ctx, tomorrow)
}
