package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ehin/ehin/pkg/types"
	"github.com/levenlabs/go-lflag"
)

var (
	// ErrNotInitialized is returned when a provider is used before Init.
	ErrNotInitialized = errors.New("storage not initialized")
)

// Database defines the interface for persisting hourly prices.
type Database interface {
	// GetPrices returns the entries with from <= deliveryStart < to ordered by
	// deliveryStart.
	GetPrices(ctx context.Context, from, to time.Time) ([]types.PriceEntry, error)

	// UpsertPrices inserts every entry whose hour is not stored yet. Hours that
	// are already stored are never modified, they are compared against the
	// incoming price and counted as matched or reported as a conflict. Each
	// entry is decided atomically so concurrent callers never store the same
	// hour twice.
	UpsertPrices(ctx context.Context, entries []types.PriceEntry) (types.IngestionReport, error)

	// Ping checks that the backing store is reachable.
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// Configured sets up the Storage provider based on flags.
func Configured() Database {
	provider := lflag.String("storage-provider", "postgres", "Storage provider to use (available: postgres, firestore, memory)")

	var p struct{ Database }

	pg := configuredPostgres()
	fs := configuredFirestore()

	lflag.Do(func() {
		switch *provider {
		case "postgres":
			if err := pg.Validate(); err != nil {
				panic(fmt.Sprintf("postgres validation failed: %v", err))
			}
			p.Database = pg
			if err := pg.Init(context.Background()); err != nil {
				panic(fmt.Sprintf("postgres init failed: %v", err))
			}
		case "firestore":
			if err := fs.Validate(); err != nil {
				panic(fmt.Sprintf("firestore validation failed: %v", err))
			}
			p.Database = fs
			if err := fs.Init(context.Background()); err != nil {
				panic(fmt.Sprintf("firestore init failed: %v", err))
			}
		case "memory":
			p.Database = NewMemory()
		default:
			panic(fmt.Sprintf("unknown storage provider: %s", *provider))
		}
	})

	return &p
}
