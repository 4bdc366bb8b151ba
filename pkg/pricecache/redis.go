package pricecache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ehin/ehin/pkg/types"
	"github.com/levenlabs/go-lflag"
	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "ehin:prices:"

// Redis caches windows as JSON strings in Redis.
type Redis struct {
	addr     string
	password string
	client   redis.UniversalClient
}

func configuredRedis() *Redis {
	addr := lflag.String("redis-addr", "127.0.0.1:6379", "Redis address used by the redis price cache")
	password := lflag.String("redis-password", "", "Redis password used by the redis price cache")

	r := &Redis{}
	lflag.Do(func() {
		r.addr = *addr
		r.password = *password
	})
	return r
}

// NewRedis returns a cache using an existing client.
func NewRedis(client redis.UniversalClient) *Redis {
	return &Redis{client: client}
}

// Init connects to Redis and checks that it answers.
func (r *Redis) Init(ctx context.Context) error {
	client := redis.NewClient(&redis.Options{
		Addr:     r.addr,
		Password: r.password,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return fmt.Errorf("redis ping (addr=%s): %w", r.addr, err)
	}
	r.client = client
	return nil
}

// Get implements Cache.
func (r *Redis) Get(ctx context.Context, day string) ([]types.PriceEntry, bool, error) {
	data, err := r.client.Get(ctx, redisKeyPrefix+day).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to get prices from redis: %w", err)
	}
	var entries []types.PriceEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal cached prices for %s: %w", day, err)
	}
	return entries, true, nil
}

// Set implements Cache.
func (r *Redis) Set(ctx context.Context, day string, entries []types.PriceEntry, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("failed to marshal prices: %w", err)
	}
	if err := r.client.Set(ctx, redisKeyPrefix+day, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set prices in redis: %w", err)
	}
	return nil
}

// Close implements Cache.
func (r *Redis) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}
