package types

import (
	"fmt"
	"time"
)

// The single market this service follows.
const (
	MarketDayAhead = "DayAhead"
	CurrencyEUR    = "EUR"
	AreaFinland    = "FI"

	// AreaStateFinal marks an area whose prices will no longer be revised.
	AreaStateFinal = "Final"
)

// DateLayout is the layout of delivery days in URLs and upstream requests.
const DateLayout = "2006-01-02"

// HelsinkiLocation is the time zone delivery days are expressed in.
var HelsinkiLocation = func() *time.Location {
	loc, err := time.LoadLocation("Europe/Helsinki")
	if err != nil {
		panic(fmt.Errorf("failed to load helsinki time location: %w", err))
	}
	return loc
}()

// TruncateDay returns midnight of t's calendar day in t's location.
func TruncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// ParseDay parses a YYYY-MM-DD delivery day as midnight in loc.
func ParseDay(s string, loc *time.Location) (time.Time, error) {
	d, err := time.ParseInLocation(DateLayout, s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid day %q, use YYYY-MM-DD: %w", s, err)
	}
	return d, nil
}
