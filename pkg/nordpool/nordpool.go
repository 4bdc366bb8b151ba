package nordpool

import (
	"time"

	"github.com/shopspring/decimal"
)

// MultiAreaEntry is one delivery period with a price per delivery area.
type MultiAreaEntry struct {
	DeliveryStart time.Time                  `json:"deliveryStart"`
	DeliveryEnd   time.Time                  `json:"deliveryEnd"`
	EntryPerArea  map[string]decimal.Decimal `json:"entryPerArea"`
}

// AreaState is the publication state shared by a group of delivery areas.
type AreaState struct {
	State string   `json:"state"`
	Areas []string `json:"areas"`
}

// PriceDataResponse is the document returned by the day-ahead prices endpoint.
type PriceDataResponse struct {
	DeliveryDateCET  string           `json:"deliveryDateCET"`
	Version          int              `json:"version"`
	DeliveryAreas    []string         `json:"deliveryAreas"`
	UpdatedAt        time.Time        `json:"updatedAt"`
	Market           string           `json:"market"`
	Currency         string           `json:"currency"`
	MultiAreaEntries []MultiAreaEntry `json:"multiAreaEntries"`
	AreaStates       []AreaState      `json:"areaStates"`
}
