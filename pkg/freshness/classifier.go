package freshness

import (
	"math/rand/v2"
	"time"

	"github.com/ehin/ehin/pkg/types"
)

// Classifier decides how long a day's price window may be cached.
type Classifier struct {
	policy Policy
	jitter func(limit time.Duration) time.Duration
}

// NewClassifier returns a Classifier using policy.
func NewClassifier(policy Policy) *Classifier {
	return &Classifier{
		policy: policy,
		jitter: randomJitter,
	}
}

// SetJitter replaces the random source used for Expires jitter.
func (c *Classifier) SetJitter(f func(limit time.Duration) time.Duration) {
	c.jitter = f
}

// randomJitter returns whole seconds in [0, limit].
func randomJitter(limit time.Duration) time.Duration {
	if limit < time.Second {
		return 0
	}
	return time.Duration(rand.Int64N(int64(limit/time.Second)+1)) * time.Second
}

// civilDay returns midnight UTC of t's calendar date in t's location so dates
// from different zones compare as plain dates.
func civilDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Classify returns the directive for the window of entries served for day.
// The calendar date of day is read in day's own location. window must be
// ordered by delivery start.
func (c *Classifier) Classify(day time.Time, window []types.PriceEntry, now time.Time) Directive {
	p := c.policy
	d := civilDay(day)
	now = now.UTC()

	if len(window) > 0 {
		newest := civilDay(window[len(window)-1].DeliveryStart.In(p.DateLocation))
		if !newest.Before(d.AddDate(0, 0, CompleteAfterDays)) {
			today := civilDay(now.In(p.DateLocation))
			ttl := p.CompleteTTL
			if !d.AddDate(0, 0, CompleteAfterDays+1).After(today) {
				ttl = p.HistoricalTTL
			}
			return Directive{Immutable: true, MaxAge: ttl}
		}
	}

	short := Directive{Revalidate: true, MaxAge: p.ShortTTL}

	publishAt := d.Add(p.PublishTime)
	if !now.Before(publishAt) {
		// publication is late
		return short
	}

	// the first publication after now, never later than the day's own
	target := civilDay(now).Add(p.PublishTime)
	if !target.After(now) {
		target = target.AddDate(0, 0, 1)
	}
	if target.After(publishAt) {
		target = publishAt
	}

	until := target.Sub(now)
	if until < p.ShortThreshold {
		return short
	}

	if p.Expiry == ExpiryExpires {
		return Directive{Revalidate: true, Expires: target.Add(c.jitter(p.ExpiresJitter))}
	}
	maxAge := (until - p.PublishMargin).Truncate(time.Second)
	if maxAge <= 0 {
		return short
	}
	return Directive{Revalidate: true, MaxAge: maxAge}
}
