package types

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIngestionReportCompare(t *testing.T) {
	start := time.Date(2025, 3, 29, 0, 0, 0, 0, time.UTC)
	incoming := PriceEntry{
		Price:         decimal.RequireFromString("5.00"),
		DeliveryStart: start,
		DeliveryEnd:   start.Add(time.Hour),
	}

	var r IngestionReport
	r.Compare(decimal.RequireFromString("5"), incoming)
	assert.Equal(t, 1, r.Matched, "5 and 5.00 are the same price")
	assert.Empty(t, r.Conflicts)

	r.Compare(decimal.RequireFromString("6.00"), incoming)
	require.Len(t, r.Conflicts, 1)
	assert.True(t, r.Conflicts[0].Stored.Equal(decimal.RequireFromString("6")))
	assert.True(t, r.Conflicts[0].Incoming.Equal(decimal.RequireFromString("5")))
	assert.Equal(t, start, r.Conflicts[0].DeliveryStart)
	assert.Equal(t, 2, r.Total())
}

func TestIngestionReportAdd(t *testing.T) {
	r := IngestionReport{Inserted: 2}
	r.Add(IngestionReport{Inserted: 1, Matched: 3, Conflicts: []Conflict{{}}})
	assert.Equal(t, 3, r.Inserted)
	assert.Equal(t, 3, r.Matched)
	assert.Len(t, r.Conflicts, 1)
	assert.Equal(t, 7, r.Total())
}
