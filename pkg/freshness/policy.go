package freshness

import (
	"fmt"
	"time"

	"github.com/levenlabs/go-lflag"
)

// The two ways an until-publish directive can be expressed.
const (
	ExpiryMaxAge  = "max-age"
	ExpiryExpires = "expires"
)

// CompleteAfterDays is how many days past the requested day the newest stored
// entry has to reach before the window is considered complete.
const CompleteAfterDays = 1

// Policy holds the tunable values the Classifier decides with.
type Policy struct {
	// PublishTime is the offset from UTC midnight at which the provider
	// publishes the next day's prices.
	PublishTime time.Duration
	// PublishMargin is subtracted from an until-publish max-age so caches
	// expire just before the data appears.
	PublishMargin time.Duration
	// ShortThreshold is the distance to PublishTime under which ShortTTL is
	// used instead.
	ShortThreshold time.Duration
	ShortTTL       time.Duration
	CompleteTTL    time.Duration
	HistoricalTTL  time.Duration

	// Expiry is ExpiryMaxAge or ExpiryExpires.
	Expiry string
	// ExpiresJitter bounds the random delay added to an Expires header so
	// clients don't all refetch in the same second.
	ExpiresJitter time.Duration

	// DateLocation is the zone the newest entry's date is taken in.
	DateLocation *time.Location
}

// DefaultPolicy returns the policy matching the provider's usual schedule.
func DefaultPolicy() Policy {
	return Policy{
		PublishTime:    11*time.Hour + 57*time.Minute,
		PublishMargin:  10 * time.Second,
		ShortThreshold: 60 * time.Second,
		ShortTTL:       60 * time.Second,
		CompleteTTL:    10 * time.Hour,
		HistoricalTTL:  7 * 24 * time.Hour,
		Expiry:         ExpiryMaxAge,
		ExpiresJitter:  59 * time.Second,
		DateLocation:   time.UTC,
	}
}

// Validate checks that the policy can produce sensible directives.
func (p Policy) Validate() error {
	if p.PublishTime < 0 || p.PublishTime >= 24*time.Hour {
		return fmt.Errorf("publish time must be within a day: %s", p.PublishTime)
	}
	if p.ShortTTL <= 0 || p.CompleteTTL <= 0 || p.HistoricalTTL <= 0 {
		return fmt.Errorf("ttls must be positive")
	}
	if p.PublishMargin < 0 || p.ShortThreshold < 0 || p.ExpiresJitter < 0 {
		return fmt.Errorf("margin, threshold and jitter cannot be negative")
	}
	switch p.Expiry {
	case ExpiryMaxAge, ExpiryExpires:
	default:
		return fmt.Errorf("unknown expiry form: %q", p.Expiry)
	}
	if p.DateLocation == nil {
		return fmt.Errorf("date location is required")
	}
	return nil
}

// policyFlags are the raw flag values a Policy is built from.
type policyFlags struct {
	publishTime    string
	publishMargin  time.Duration
	shortThreshold time.Duration
	shortTTL       time.Duration
	completeTTL    time.Duration
	historicalTTL  time.Duration
	expiry         string
	expiresJitter  time.Duration
}

// policy parses the flag values on top of DefaultPolicy and validates the
// result.
func (f policyFlags) policy() (Policy, error) {
	p := DefaultPolicy()
	pt, err := time.Parse("15:04:05", f.publishTime)
	if err != nil {
		return Policy{}, fmt.Errorf("invalid freshness-publish-time %q: %w", f.publishTime, err)
	}
	p.PublishTime = time.Duration(pt.Hour())*time.Hour + time.Duration(pt.Minute())*time.Minute + time.Duration(pt.Second())*time.Second
	p.PublishMargin = f.publishMargin
	p.ShortThreshold = f.shortThreshold
	p.ShortTTL = f.shortTTL
	p.CompleteTTL = f.completeTTL
	p.HistoricalTTL = f.historicalTTL
	p.Expiry = f.expiry
	p.ExpiresJitter = f.expiresJitter
	if err := p.Validate(); err != nil {
		return Policy{}, err
	}
	return p, nil
}

// Configured registers the freshness flags and returns the policy they
// describe once flags are parsed.
func Configured() *Policy {
	def := DefaultPolicy()
	publishTime := lflag.String("freshness-publish-time", "11:57:00", "UTC time of day the next day's prices are published (HH:MM:SS)")
	margin := lflag.Duration("freshness-publish-margin", def.PublishMargin, "Subtracted from the max-age that lasts until publish time")
	shortThreshold := lflag.Duration("freshness-short-threshold", def.ShortThreshold, "Below this time left until publish the short max-age is used")
	shortTTL := lflag.Duration("freshness-short-ttl", def.ShortTTL, "Max-age used close to or after publish time while prices are missing")
	completeTTL := lflag.Duration("freshness-complete-ttl", def.CompleteTTL, "Max-age of complete windows that are still recent")
	historicalTTL := lflag.Duration("freshness-historical-ttl", def.HistoricalTTL, "Max-age of windows entirely in the past")
	expiry := lflag.String("freshness-expiry", def.Expiry, "How to express the until-publish lifetime (max-age or expires)")
	jitter := lflag.Duration("freshness-expires-jitter", def.ExpiresJitter, "Upper bound of the random delay added to Expires")

	p := &def
	lflag.Do(func() {
		parsed, err := policyFlags{
			publishTime:    *publishTime,
			publishMargin:  *margin,
			shortThreshold: *shortThreshold,
			shortTTL:       *shortTTL,
			completeTTL:    *completeTTL,
			historicalTTL:  *historicalTTL,
			expiry:         *expiry,
			expiresJitter:  *jitter,
		}.policy()
		if err != nil {
			panic(fmt.Sprintf("freshness validation failed: %v", err))
		}
		*p = parsed
	})
	return p
}
