package price

import (
	"context"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// DefaultCacheTTL is how long a resolved price stays valid.
const DefaultCacheTTL = 5 * time.Minute

type cacheEntry struct {
	price    float64
	storedAt time.Time
}

// MemoryCache is an in-process PriceCache with per-entry TTL expiration.
// Safe for concurrent use; last write wins.
type MemoryCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[common.Address]cacheEntry
	nowFn   func() time.Time
}

func NewMemoryCache(ttl time.Duration) *MemoryCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &MemoryCache{
		ttl:     ttl,
		entries: make(map[common.Address]cacheEntry),
		nowFn:   time.Now,
	}
}

func (c *MemoryCache) Get(_ context.Context, token common.Address) (float64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[token]
	if !ok {
		return 0, false
	}
	if c.nowFn().Sub(e.storedAt) >= c.ttl {
		delete(c.entries, token)
		return 0, false
	}
	return e.price, true
}

func (c *MemoryCache) Set(_ context.Context, token common.Address, price float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[token] = cacheEntry{price: price, storedAt: c.nowFn()}
}

// Purge drops every cached price. Mainly useful in tests.
func (c *MemoryCache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[common.Address]cacheEntry)
}
