package server

import (
	"context"
	"time"

	"github.com/ehin/ehin/pkg/freshness"
	"github.com/ehin/ehin/pkg/ingest"
	"github.com/ehin/ehin/pkg/nordpool"
	"github.com/ehin/ehin/pkg/pricecache"
	"github.com/ehin/ehin/pkg/storage"
	"github.com/ehin/ehin/pkg/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

type mockFetcher struct {
	mock.Mock
}

func (m *mockFetcher) GetDayAheadPrices(ctx context.Context, date time.Time) (*nordpool.PriceDataResponse, error) {
	args := m.Called(ctx, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*nordpool.PriceDataResponse), args.Error(1)
}

func newTestServer(db storage.Database, f ingest.Fetcher, now time.Time) *Server {
	u := ingest.NewUpdater(f, types.AreaFinland, ingest.NewEngine(db))
	u.SetNow(func() time.Time { return now })
	return &Server{
		storage:        db,
		updater:        u,
		classifier:     freshness.NewClassifier(freshness.DefaultPolicy()),
		cache:          pricecache.Nop{},
		now:            func() time.Time { return now },
		updatePassword: "secret",
		corsOrigins:    []string{"https://ehin.fi"},
		serverName:     "ehin",
	}
}

// hourlyEntries returns one entry per hour with starts from first onwards.
func hourlyEntries(first time.Time, prices ...string) []types.PriceEntry {
	entries := make([]types.PriceEntry, len(prices))
	for i, p := range prices {
		start := first.Add(time.Duration(i) * time.Hour)
		entries[i] = types.PriceEntry{
			Price:         decimal.RequireFromString(p),
			DeliveryStart: start,
			DeliveryEnd:   start.Add(time.Hour),
		}
	}
	return entries
}

var windowStart = time.Date(2025, 3, 27, 22, 0, 0, 0, time.UTC)

// entriesWithoutTomorrow ends with the hour starting 2025-03-29T22:00Z.
func entriesWithoutTomorrow() []types.PriceEntry {
	return hourlyEntries(windowStart,
		"3.4", "2.99", "2.23", "1.29", "1.28", "4.87", "9.31", "11.17", "12.14", "12.65", "11.41", "6.89",
		"1.3", "-0.01", "-0.02", "-0.01", "0.01", "0.66", "1.23", "1.25", "0.41", "0.0", "0.01", "0.0",
		"-0.01", "0.0", "0.0", "0.0", "0.0", "-0.01", "0.01", "0.91", "1.26", "1.91", "1.24", "0.01",
		"0.0", "0.0", "-0.02", "0.73", "2.59", "3.03", "3.39", "3.9", "3.82", "3.84", "4.0", "4.2",
		"4.79",
	)
}

// entriesWithTomorrow ends with the hour starting 2025-03-30T21:00Z.
func entriesWithTomorrow() []types.PriceEntry {
	tomorrow := hourlyEntries(windowStart.Add(49*time.Hour),
		"5.96", "6.92", "4.79", "3.9", "3.9", "3.84", "3.93", "10.17", "35.0", "61.37", "59.69", "43.3",
		"55.16", "99.96", "87.03", "106.75", "129.77", "167.96", "158.12", "86.42", "91.66", "71.04", "34.99",
	)
	return append(entriesWithoutTomorrow(), tomorrow...)
}

func finalBatch(entries []types.PriceEntry) *nordpool.PriceDataResponse {
	b := &nordpool.PriceDataResponse{
		DeliveryDateCET: "2025-03-30",
		Version:         1,
		DeliveryAreas:   []string{"FI"},
		Market:          "DayAhead",
		Currency:        "EUR",
		AreaStates:      []nordpool.AreaState{{State: "Final", Areas: []string{"FI"}}},
	}
	for _, e := range entries {
		b.MultiAreaEntries = append(b.MultiAreaEntries, nordpool.MultiAreaEntry{
			DeliveryStart: e.DeliveryStart,
			DeliveryEnd:   e.DeliveryEnd,
			EntryPerArea:  map[string]decimal.Decimal{"FI": e.Price},
		})
	}
	return b
}
