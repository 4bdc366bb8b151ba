package storage

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/ehin/ehin/pkg/types"
)

// MemoryProvider keeps prices in process memory. It is used for local runs and
// tests, everything is lost on restart.
type MemoryProvider struct {
	mu     sync.Mutex
	prices map[time.Time]types.PriceEntry
}

// NewMemory returns an empty MemoryProvider.
func NewMemory() *MemoryProvider {
	return &MemoryProvider{
		prices: make(map[time.Time]types.PriceEntry),
	}
}

// GetPrices implements Database.
func (m *MemoryProvider) GetPrices(ctx context.Context, from, to time.Time) ([]types.PriceEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []types.PriceEntry
	for start, p := range m.prices {
		if start.Before(from) || !start.Before(to) {
			continue
		}
		out = append(out, p)
	}
	slices.SortFunc(out, func(a, b types.PriceEntry) int {
		return a.DeliveryStart.Compare(b.DeliveryStart)
	})
	return out, nil
}

// UpsertPrices implements Database.
func (m *MemoryProvider) UpsertPrices(ctx context.Context, entries []types.PriceEntry) (types.IngestionReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var report types.IngestionReport
	for _, e := range entries {
		e = e.UTC()
		if stored, ok := m.prices[e.DeliveryStart]; ok {
			report.Compare(stored.Price, e)
			continue
		}
		m.prices[e.DeliveryStart] = e
		report.Inserted++
	}
	return report, nil
}

// Ping implements Database.
func (m *MemoryProvider) Ping(ctx context.Context) error {
	return nil
}

// Close implements Database.
func (m *MemoryProvider) Close() error {
	return nil
}
