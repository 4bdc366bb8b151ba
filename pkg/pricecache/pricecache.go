package pricecache

import (
	"context"
	"fmt"
	"time"

	"github.com/ehin/ehin/pkg/types"
	"github.com/levenlabs/go-lflag"
)

// Cache holds finalized day windows so they don't have to be read from
// storage on every request. It is never the source of truth: a miss or an
// error just means storage is read instead.
type Cache interface {
	// Get returns the window cached for day and whether there was one.
	Get(ctx context.Context, day string) ([]types.PriceEntry, bool, error)
	// Set caches the window for day for ttl.
	Set(ctx context.Context, day string, entries []types.PriceEntry, ttl time.Duration) error
	Close() error
}

// Configured sets up the cache provider based on flags.
func Configured() Cache {
	provider := lflag.String("price-cache", "none", "Cache for finalized price windows (available: none, memory, redis)")

	var c struct{ Cache }

	r := configuredRedis()

	lflag.Do(func() {
		switch *provider {
		case "none", "":
			c.Cache = Nop{}
		case "memory":
			c.Cache = NewMemory()
		case "redis":
			if err := r.Init(context.Background()); err != nil {
				panic(fmt.Sprintf("redis init failed: %v", err))
			}
			c.Cache = r
		default:
			panic(fmt.Sprintf("unknown price cache: %s", *provider))
		}
	})

	return &c
}

// Nop is a Cache that never stores anything.
type Nop struct{}

func (Nop) Get(ctx context.Context, day string) ([]types.PriceEntry, bool, error) {
	return nil, false, nil
}

func (Nop) Set(ctx context.Context, day string, entries []types.PriceEntry, ttl time.Duration) error {
	return nil
}

func (Nop) Close() error {
	return nil
}
