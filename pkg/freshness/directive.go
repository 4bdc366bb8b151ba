package freshness

import (
	"fmt"
	"net/http"
	"time"
)

// Directive tells HTTP caches how long a price window may be reused.
type Directive struct {
	// Immutable windows will never change again.
	Immutable bool
	// Revalidate windows may still gain entries.
	Revalidate bool
	// MaxAge is the lifetime when Expires is zero.
	MaxAge time.Duration
	// Expires is an absolute expiry used instead of MaxAge.
	Expires time.Time
}

// CacheControl renders the Cache-Control header value.
func (d Directive) CacheControl() string {
	if !d.Expires.IsZero() {
		return "public, must-revalidate"
	}
	secs := int64(d.MaxAge / time.Second)
	if d.Immutable {
		return fmt.Sprintf("public, max-age=%d, immutable", secs)
	}
	return fmt.Sprintf("public, max-age=%d, must-revalidate", secs)
}

// Apply sets the caching headers on h.
func (d Directive) Apply(h http.Header) {
	h.Set("Cache-Control", d.CacheControl())
	if !d.Expires.IsZero() {
		h.Set("Expires", d.Expires.UTC().Format(http.TimeFormat))
	} else {
		h.Del("Expires")
	}
}
