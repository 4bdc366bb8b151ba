package types

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// PriceEntry is the day-ahead price of electricity for one delivery hour.
type PriceEntry struct {
	// Price is kept as an exact decimal so stored and fetched values compare
	// without rounding surprises.
	Price decimal.Decimal `json:"p"`

	// DeliveryStart is the inclusive start of the hour and the natural key.
	DeliveryStart time.Time `json:"s"`
	// DeliveryEnd is the exclusive end of the hour.
	DeliveryEnd time.Time `json:"e"`
}

// Validate checks that the entry covers exactly one hour.
func (p PriceEntry) Validate() error {
	if p.DeliveryStart.IsZero() {
		return fmt.Errorf("price entry missing deliveryStart")
	}
	if !p.DeliveryEnd.Equal(p.DeliveryStart.Add(time.Hour)) {
		return fmt.Errorf(
			"price entry %s must span one hour, ends at %s",
			p.DeliveryStart.UTC().Format(time.RFC3339),
			p.DeliveryEnd.UTC().Format(time.RFC3339),
		)
	}
	return nil
}

// Key returns the storage key of the entry, the RFC3339 UTC start instant.
func (p PriceEntry) Key() string {
	return p.DeliveryStart.UTC().Format(time.RFC3339)
}

// UTC returns a copy of the entry with both instants in UTC.
func (p PriceEntry) UTC() PriceEntry {
	p.DeliveryStart = p.DeliveryStart.UTC()
	p.DeliveryEnd = p.DeliveryEnd.UTC()
	return p
}
