package ingest

import (
	"errors"
	"fmt"
	"slices"

	"github.com/ehin/ehin/pkg/nordpool"
	"github.com/ehin/ehin/pkg/types"
)

var (
	// ErrRejected is wrapped by every reason a fetched batch is refused.
	ErrRejected = errors.New("price batch rejected")

	ErrMissingBatch   = errors.New("batch missing")
	ErrWrongMarket    = errors.New("unexpected market")
	ErrWrongCurrency  = errors.New("unexpected currency")
	ErrNoAreaStates   = errors.New("no area states")
	ErrAreaNotFound   = errors.New("area not found in area states")
	ErrNotFinal       = errors.New("area prices not final")
	ErrMalformedEntry = errors.New("malformed price entry")
)

// Validate checks that batch holds final day-ahead EUR prices for area and
// returns that area's hourly entries. The returned error wraps ErrRejected and
// the specific reason.
func Validate(batch *nordpool.PriceDataResponse, area string) ([]types.PriceEntry, error) {
	if batch == nil {
		return nil, fmt.Errorf("%w: %w", ErrRejected, ErrMissingBatch)
	}
	if batch.Market != types.MarketDayAhead {
		return nil, fmt.Errorf("%w: %w: got %q", ErrRejected, ErrWrongMarket, batch.Market)
	}
	if batch.Currency != types.CurrencyEUR {
		return nil, fmt.Errorf("%w: %w: got %q", ErrRejected, ErrWrongCurrency, batch.Currency)
	}
	if len(batch.AreaStates) == 0 {
		return nil, fmt.Errorf("%w: %w", ErrRejected, ErrNoAreaStates)
	}

	var state *nordpool.AreaState
	var matches int
	for i := range batch.AreaStates {
		if slices.Contains(batch.AreaStates[i].Areas, area) {
			state = &batch.AreaStates[i]
			matches++
		}
	}
	if matches != 1 {
		return nil, fmt.Errorf("%w: %w: %q listed %d times", ErrRejected, ErrAreaNotFound, area, matches)
	}
	if state.State != types.AreaStateFinal {
		return nil, fmt.Errorf("%w: %w: %q is %q", ErrRejected, ErrNotFinal, area, state.State)
	}

	entries := make([]types.PriceEntry, 0, len(batch.MultiAreaEntries))
	for _, e := range batch.MultiAreaEntries {
		price, ok := e.EntryPerArea[area]
		if !ok {
			continue
		}
		p := types.PriceEntry{
			Price:         price,
			DeliveryStart: e.DeliveryStart,
			DeliveryEnd:   e.DeliveryEnd,
		}
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %w: %w", ErrRejected, ErrMalformedEntry, err)
		}
		entries = append(entries, p.UTC())
	}
	return entries, nil
}
