package pricecache

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/ehin/ehin/pkg/types"
)

type memoryItem struct {
	entries []types.PriceEntry
	expires time.Time
}

// Memory caches windows in process memory.
type Memory struct {
	mu    sync.Mutex
	items map[string]memoryItem
	now   func() time.Time
}

// NewMemory returns an empty Memory cache.
func NewMemory() *Memory {
	return &Memory{
		items: make(map[string]memoryItem),
		now:   time.Now,
	}
}

// Get implements Cache.
func (m *Memory) Get(ctx context.Context, day string) ([]types.PriceEntry, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	item, ok := m.items[day]
	if !ok {
		return nil, false, nil
	}
	if !m.now().Before(item.expires) {
		delete(m.items, day)
		return nil, false, nil
	}
	return slices.Clone(item.entries), true, nil
}

// Set implements Cache. Expired windows are dropped while the lock is held.
func (m *Memory) Set(ctx context.Context, day string, entries []types.PriceEntry, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for k, item := range m.items {
		if !now.Before(item.expires) {
			delete(m.items, k)
		}
	}
	m.items[day] = memoryItem{
		entries: slices.Clone(entries),
		expires: now.Add(ttl),
	}
	return nil
}

// Close implements Cache.
func (m *Memory) Close() error {
	return nil
}
