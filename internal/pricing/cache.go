package pricing

import (
	"context"
	"sync"
	"time"
)

// Cache is a short-lived price cache keyed by contract. It keeps one ledger
// pass from asking the market provider for the same token repeatedly.
type Cache interface {
	Get(ctx context.Context, contract string) (float64, bool)
	Set(ctx context.Context, contract string, price float64)
}

// MemoryCache is the in-process Cache used when Redis is not configured.
type MemoryCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]memoryEntry
}

type memoryEntry struct {
	price    float64
	expireAt time.Time
}

// NewMemoryCache creates a memory cache with the given TTL.
func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{
		ttl:     ttl,
		entries: make(map[string]memoryEntry),
	}
}

var _ Cache = (*MemoryCache)(nil)

func (c *MemoryCache) Get(_ context.Context, contract string) (float64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[contract]
	if !ok {
		return 0, false
	}
	if time.Now().After(entry.expireAt) {
		delete(c.entries, contract)
		return 0, false
	}
	return entry.price, true
}

func (c *MemoryCache) Set(_ context.Context, contract string, price float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[contract] = memoryEntry{
		price:    price,
		expireAt: time.Now().Add(c.ttl),
	}
}
