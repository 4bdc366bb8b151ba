package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// Conflict records an hour where the stored price differs from a freshly
// fetched one. The stored price is never overwritten.
type Conflict struct {
	DeliveryStart time.Time       `json:"deliveryStart"`
	Stored        decimal.Decimal `json:"stored"`
	Incoming      decimal.Decimal `json:"incoming"`
}

// IngestionReport summarizes one merge of fetched entries into storage.
type IngestionReport struct {
	Inserted  int        `json:"inserted"`
	Matched   int        `json:"matched"`
	Conflicts []Conflict `json:"conflicts,omitempty"`
}

// Total returns how many entries the report accounts for.
func (r IngestionReport) Total() int {
	return r.Inserted + r.Matched + len(r.Conflicts)
}

// Add merges other into r.
func (r *IngestionReport) Add(other IngestionReport) {
	r.Inserted += other.Inserted
	r.Matched += other.Matched
	r.Conflicts = append(r.Conflicts, other.Conflicts...)
}

// Compare classifies an incoming entry against the stored price for the same
// hour and records the outcome.
func (r *IngestionReport) Compare(stored decimal.Decimal, incoming PriceEntry) {
	if stored.Equal(incoming.Price) {
		r.Matched++
		return
	}
	r.Conflicts = append(r.Conflicts, Conflict{
		DeliveryStart: incoming.DeliveryStart,
		Stored:        stored,
		Incoming:      incoming.Price,
	})
}
