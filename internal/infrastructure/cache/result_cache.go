package cache

import (
	"sort"
	"sync"
	"time"

	"github.com/advogai/juris-rag/internal/core/domain"
)

type entry struct {
	value      domain.RetrievalResult
	insertedAt time.Time
}

// ResultCache is the process-local TTL cache for retrieval results. It is
// an explicitly constructed, injectable service: the process owns exactly
// one, built at bootstrap and reset freely in tests.
//
// Eviction is amortized bulk removal of the oldest ~10% once max size is
// exceeded, which keeps the critical section O(1) amortized under load.
// Tenant/case invalidation clears the whole cache: correctness over
// precision after a write.
type ResultCache struct {
	mu      sync.Mutex
	entries map[string]entry
	ttl     time.Duration
	maxSize int
	now     func() time.Time
}

func NewResultCache(ttl time.Duration, maxSize int) *ResultCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if maxSize <= 0 {
		maxSize = 1000
	}
	return &ResultCache{
		entries: make(map[string]entry),
		ttl:     ttl,
		maxSize: maxSize,
		now:     time.Now,
	}
}

// Get returns a copy of the cached result, or miss on absence and on TTL
// expiry. Expired entries are deleted on sight.
func (c *ResultCache) Get(key string) (*domain.RetrievalResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if c.now().Sub(e.insertedAt) > c.ttl {
		delete(c.entries, key)
		return nil, false
	}
	value := e.value
	return &value, true
}

func (c *ResultCache) Set(key string, value domain.RetrievalResult) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = entry{value: value, insertedAt: c.now()}
	if len(c.entries) > c.maxSize {
		c.evictOldestLocked()
	}
}

// evictOldestLocked removes the oldest ~10% of entries in one pass.
func (c *ResultCache) evictOldestLocked() {
	count := len(c.entries) / 10
	if count < 1 {
		count = 1
	}

	type aged struct {
		key        string
		insertedAt time.Time
	}
	all := make([]aged, 0, len(c.entries))
	for key, e := range c.entries {
		all = append(all, aged{key: key, insertedAt: e.insertedAt})
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].insertedAt.Equal(all[j].insertedAt) {
			return all[i].insertedAt.Before(all[j].insertedAt)
		}
		return all[i].key < all[j].key
	})
	for _, a := range all[:count] {
		delete(c.entries, a.key)
	}
}

// InvalidateTenant conservatively drops everything: cache keys are opaque
// hashes, so per-tenant selection is not possible and staleness after a
// tenant write is worse than a cold cache.
func (c *ResultCache) InvalidateTenant(string) {
	c.clear()
}

// InvalidateCase behaves like InvalidateTenant, by design.
func (c *ResultCache) InvalidateCase(string, string) {
	c.clear()
}

func (c *ResultCache) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]entry)
}

// Len reports the current entry count. Intended for tests and diagnostics.
func (c *ResultCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
