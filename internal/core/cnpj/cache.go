package cnpj

import (
	"sync"
	"time"

	"github.com/triagemhq/triagemd/internal/core"
)

// DefaultCacheTTL bounds how long a resolved record may be served from
// memory before a fresh provider lookup is required.
const DefaultCacheTTL = 24 * time.Hour

type cacheEntry struct {
	record   core.CompanyRecord
	cachedAt time.Time
}

// Cache is a TTL-bounded in-memory store of resolved company records keyed
// by normalized CNPJ. Stale entries are evicted lazily on lookup; there is
// no background sweep.
type Cache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
	ttl     time.Duration
	clock   func() time.Time
}

// NewCache builds a cache with the given TTL. A non-positive TTL falls back
// to DefaultCacheTTL.
func NewCache(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Cache{
		entries: make(map[string]cacheEntry),
		ttl:     ttl,
		clock:   func() time.Time { return time.Now().UTC() },
	}
}

// Get returns a copy of the cached record for the CNPJ, or nil on a miss.
// An entry older than the TTL is deleted and reported as a miss.
func (c *Cache) Get(cnpjValue string) *core.CompanyRecord {
	key := Clean(cnpjValue)

	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return nil
	}
	if c.clock().Sub(entry.cachedAt) > c.ttl {
		delete(c.entries, key)
		return nil
	}

	record := entry.record
	cachedAt := entry.cachedAt
	record.CachedAt = &cachedAt
	return &record
}

// Put stores a record under its normalized CNPJ, stamping CachedAt and
// overwriting any prior entry. Last write wins for concurrent resolutions
// of the same identifier.
func (c *Cache) Put(record *core.CompanyRecord) {
	if record == nil {
		return
	}
	key := Clean(record.CNPJ)
	if key == "" {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cacheEntry{record: *record, cachedAt: c.clock()}
}

// Clear drops all entries and returns how many were removed.
func (c *Cache) Clear() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := len(c.entries)
	c.entries = make(map[string]cacheEntry)
	return removed
}

// Len reports the current number of entries, stale ones included.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
