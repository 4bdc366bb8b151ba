package storage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ehin/ehin/pkg/log"
	"github.com/ehin/ehin/pkg/types"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/levenlabs/go-lflag"
	"github.com/shopspring/decimal"
)

const createPriceHistory = `
CREATE TABLE IF NOT EXISTS price_history (
	delivery_start TIMESTAMPTZ PRIMARY KEY,
	delivery_end   TIMESTAMPTZ NOT NULL,
	price          NUMERIC NOT NULL
)`

const insertPrice = `
INSERT INTO price_history (delivery_start, delivery_end, price)
VALUES ($1, $2, $3)
ON CONFLICT (delivery_start) DO NOTHING`

const selectPricesByStart = `
SELECT delivery_start, price
FROM price_history
WHERE delivery_start = ANY($1)`

const selectPriceRange = `
SELECT price, delivery_start, delivery_end
FROM price_history
WHERE delivery_start >= $1 AND delivery_start < $2
ORDER BY delivery_start`

// PostgresDB is the subset of *pgxpool.Pool the provider uses.
type PostgresDB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// PostgresProvider implements the Database interface on a single
// price_history table whose primary key is the delivery start.
type PostgresProvider struct {
	url  string
	pool *pgxpool.Pool
	db   PostgresDB
}

// configuredPostgres sets up the Postgres provider.
// It registers flags for configuration.
func configuredPostgres() *PostgresProvider {
	url := lflag.String("postgres-url", "", "Postgres connection string, pool settings such as pool_max_conns may be passed as parameters")

	p := &PostgresProvider{}

	lflag.Do(func() {
		p.url = *url
	})

	return p
}

// NewPostgres returns a provider that runs its queries on db. Init still needs
// to be called to create the table.
func NewPostgres(db PostgresDB) *PostgresProvider {
	return &PostgresProvider{db: db}
}

// Validate checks if the provider is properly configured.
func (p *PostgresProvider) Validate() error {
	if p.url == "" && p.db == nil {
		return fmt.Errorf("postgres-url is required")
	}
	return nil
}

// Init connects the pool, when one isn't set yet, and creates the
// price_history table.
func (p *PostgresProvider) Init(ctx context.Context) error {
	if p.db == nil {
		cfg, err := pgxpool.ParseConfig(p.url)
		if err != nil {
			return fmt.Errorf("failed to parse postgres url: %w", err)
		}
		pool, err := pgxpool.NewWithConfig(ctx, cfg)
		if err != nil {
			return fmt.Errorf("failed to create postgres pool: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return fmt.Errorf("failed to ping postgres: %w", err)
		}
		p.pool = pool
		p.db = pool
	}
	if _, err := p.db.Exec(ctx, createPriceHistory); err != nil {
		return fmt.Errorf("failed to create price_history table: %w", err)
	}
	return nil
}

// Close closes the pool if the provider opened it.
func (p *PostgresProvider) Close() error {
	if p.pool != nil {
		p.pool.Close()
	}
	return nil
}

// Ping runs a trivial query against the database.
func (p *PostgresProvider) Ping(ctx context.Context) error {
	if p.db == nil {
		return ErrNotInitialized
	}
	var n int
	if err := p.db.QueryRow(ctx, "SELECT 1").Scan(&n); err != nil {
		return fmt.Errorf("failed to ping postgres: %w", err)
	}
	return nil
}

// GetPrices implements Database.
func (p *PostgresProvider) GetPrices(ctx context.Context, from, to time.Time) ([]types.PriceEntry, error) {
	if p.db == nil {
		return nil, ErrNotInitialized
	}
	rows, err := p.db.Query(ctx, selectPriceRange, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query prices: %w", err)
	}
	defer rows.Close()

	var entries []types.PriceEntry
	for rows.Next() {
		var e types.PriceEntry
		if err := rows.Scan(&e.Price, &e.DeliveryStart, &e.DeliveryEnd); err != nil {
			return nil, fmt.Errorf("failed to scan price entry: %w", err)
		}
		entries = append(entries, e.UTC())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read prices: %w", err)
	}
	return entries, nil
}

// UpsertPrices implements Database. All inserts and the reread of the hours
// that already existed are sent as one batch. Entries are expected in
// deliveryStart order so concurrent batches take row locks in the same order.
func (p *PostgresProvider) UpsertPrices(ctx context.Context, entries []types.PriceEntry) (types.IngestionReport, error) {
	var report types.IngestionReport
	if len(entries) == 0 {
		return report, nil
	}
	if p.db == nil {
		return report, ErrNotInitialized
	}

	batch := &pgx.Batch{}
	starts := make([]time.Time, len(entries))
	for i, e := range entries {
		e = e.UTC()
		starts[i] = e.DeliveryStart
		batch.Queue(insertPrice, e.DeliveryStart, e.DeliveryEnd, e.Price)
	}
	batch.Queue(selectPricesByStart, starts)

	br := p.db.SendBatch(ctx, batch)
	defer br.Close()

	existing := make([]types.PriceEntry, 0, len(entries))
	for _, e := range entries {
		tag, err := br.Exec()
		if err != nil {
			return types.IngestionReport{}, fmt.Errorf("failed to insert price %s: %w", e.Key(), err)
		}
		if tag.RowsAffected() == 1 {
			report.Inserted++
			continue
		}
		existing = append(existing, e)
	}

	rows, err := br.Query()
	if err != nil {
		return types.IngestionReport{}, fmt.Errorf("failed to reread stored prices: %w", err)
	}
	stored := make(map[time.Time]decimal.Decimal, len(existing))
	for rows.Next() {
		var start time.Time
		var price decimal.Decimal
		if err := rows.Scan(&start, &price); err != nil {
			rows.Close()
			return types.IngestionReport{}, fmt.Errorf("failed to scan stored price: %w", err)
		}
		stored[start.UTC()] = price
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return types.IngestionReport{}, fmt.Errorf("failed to reread stored prices: %w", err)
	}

	for _, e := range existing {
		e = e.UTC()
		price, ok := stored[e.DeliveryStart]
		if !ok {
			// the insert was skipped so the row must exist
			log.Ctx(ctx).ErrorContext(ctx, "stored price vanished during upsert", slog.String("deliveryStart", e.Key()))
			return types.IngestionReport{}, fmt.Errorf("stored price %s not found after conflicting insert", e.Key())
		}
		report.Compare(price, e)
	}
	return report, nil
}
