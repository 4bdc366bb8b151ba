package storage

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ehin/ehin/pkg/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hourEntry(start time.Time, price string) types.PriceEntry {
	return types.PriceEntry{
		Price:         decimal.RequireFromString(price),
		DeliveryStart: start,
		DeliveryEnd:   start.Add(time.Hour),
	}
}

// testDatabase runs the behaviour every provider must share. base should be a
// time no other test writes to.
func testDatabase(t *testing.T, db Database, base time.Time) {
	ctx := context.Background()

	t.Run("Ping", func(t *testing.T) {
		require.NoError(t, db.Ping(ctx))
	})

	t.Run("Insert", func(t *testing.T) {
		entries := []types.PriceEntry{
			hourEntry(base, "1.24"),
			hourEntry(base.Add(time.Hour), "-0.01"),
			hourEntry(base.Add(2*time.Hour), "4.79"),
		}
		report, err := db.UpsertPrices(ctx, entries)
		require.NoError(t, err)
		assert.Equal(t, 3, report.Inserted)
		assert.Equal(t, 0, report.Matched)
		assert.Empty(t, report.Conflicts)

		got, err := db.GetPrices(ctx, base, base.Add(3*time.Hour))
		require.NoError(t, err)
		require.Len(t, got, 3)
		for i := range entries {
			assert.True(t, got[i].DeliveryStart.Equal(entries[i].DeliveryStart))
			assert.True(t, got[i].DeliveryEnd.Equal(entries[i].DeliveryEnd))
			assert.True(t, got[i].Price.Equal(entries[i].Price), "got %s want %s", got[i].Price, entries[i].Price)
		}
	})

	t.Run("Idempotent", func(t *testing.T) {
		entries := []types.PriceEntry{
			hourEntry(base, "1.240"),
			hourEntry(base.Add(time.Hour), "-0.01"),
			hourEntry(base.Add(2*time.Hour), "4.79"),
		}
		report, err := db.UpsertPrices(ctx, entries)
		require.NoError(t, err)
		assert.Equal(t, 0, report.Inserted)
		assert.Equal(t, 3, report.Matched)
		assert.Empty(t, report.Conflicts)

		got, err := db.GetPrices(ctx, base, base.Add(3*time.Hour))
		require.NoError(t, err)
		assert.Len(t, got, 3)
	})

	t.Run("Conflict", func(t *testing.T) {
		entries := []types.PriceEntry{
			hourEntry(base, "9.99"),
			hourEntry(base.Add(3*time.Hour), "2.00"),
		}
		report, err := db.UpsertPrices(ctx, entries)
		require.NoError(t, err)
		assert.Equal(t, 1, report.Inserted)
		assert.Equal(t, 0, report.Matched)
		require.Len(t, report.Conflicts, 1)
		c := report.Conflicts[0]
		assert.True(t, c.DeliveryStart.Equal(base))
		assert.True(t, c.Stored.Equal(decimal.RequireFromString("1.24")))
		assert.True(t, c.Incoming.Equal(decimal.RequireFromString("9.99")))

		// the stored price is left untouched
		got, err := db.GetPrices(ctx, base, base.Add(time.Hour))
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.True(t, got[0].Price.Equal(decimal.RequireFromString("1.24")))
	})

	t.Run("Range", func(t *testing.T) {
		got, err := db.GetPrices(ctx, base.Add(time.Hour), base.Add(3*time.Hour))
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.True(t, got[0].DeliveryStart.Equal(base.Add(time.Hour)))
		assert.True(t, got[1].DeliveryStart.Equal(base.Add(2*time.Hour)))

		got, err = db.GetPrices(ctx, base.Add(-48*time.Hour), base.Add(-24*time.Hour))
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("Empty", func(t *testing.T) {
		report, err := db.UpsertPrices(ctx, nil)
		require.NoError(t, err)
		assert.Equal(t, 0, report.Total())
	})

	t.Run("Concurrent", func(t *testing.T) {
		start := base.Add(24 * time.Hour)
		var wg sync.WaitGroup
		reports := make([]types.IngestionReport, 8)
		errs := make([]error, len(reports))
		for i := range reports {
			wg.Add(1)
			go func() {
				defer wg.Done()
				reports[i], errs[i] = db.UpsertPrices(ctx, []types.PriceEntry{hourEntry(start, "3.33")})
			}()
		}
		wg.Wait()

		var total types.IngestionReport
		for i := range reports {
			require.NoError(t, errs[i])
			total.Add(reports[i])
		}
		assert.Equal(t, 1, total.Inserted)
		assert.Equal(t, len(reports)-1, total.Matched)
		assert.Empty(t, total.Conflicts)

		got, err := db.GetPrices(ctx, start, start.Add(time.Hour))
		require.NoError(t, err)
		assert.Len(t, got, 1)
	})
}

func TestMemoryProvider(t *testing.T) {
	testDatabase(t, NewMemory(), time.Date(2025, 3, 29, 0, 0, 0, 0, time.UTC))
}

func TestMemoryProviderNormalizesZones(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	local := time.Date(2025, 3, 29, 2, 0, 0, 0, types.HelsinkiLocation)
	report, err := m.UpsertPrices(ctx, []types.PriceEntry{hourEntry(local, "5")})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Inserted)

	// same instant expressed in UTC
	report, err = m.UpsertPrices(ctx, []types.PriceEntry{hourEntry(local.UTC(), "5.00")})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Matched)

	got, err := m.GetPrices(ctx, local, local.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, time.UTC, got[0].DeliveryStart.Location())
}
