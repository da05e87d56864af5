// Package cache provides the time-boxed memoization layer shared by all
// lookup strategies. Entries are keyed by (normalized name, vintage,
// currency) and evicted lazily on read after the TTL.
package cache

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/seb1936247/wine-value-finder/internal/model"
	"github.com/seb1936247/wine-value-finder/internal/normalize"
)

// DefaultTTL is how long a cached enrichment payload stays valid.
const DefaultTTL = 24 * time.Hour

type entry struct {
	payload    model.EnrichmentPayload
	insertedAt time.Time
}

// Cache is a process-local, in-memory result cache. It is unbounded by
// count; workloads are session-scoped and entries expire after the TTL.
type Cache struct {
	mu      sync.Mutex
	entries map[string]entry
	ttl     time.Duration
	now     func() time.Time
}

// New creates a result cache with the given TTL. A non-positive TTL
// falls back to DefaultTTL.
func New(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{
		entries: make(map[string]entry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// WithNow sets a fixed clock for testing.
func (c *Cache) WithNow(now func() time.Time) *Cache {
	c.now = now
	return c
}

// Key builds the cache key for a wine in a currency. Vintage-less wines
// share the "nv" slot; the whole key is case-folded.
func Key(wine model.WineRecord, currency string) string {
	vintage := "nv"
	if wine.Vintage != nil {
		vintage = fmt.Sprintf("%d", *wine.Vintage)
	}
	name := normalize.SearchName(wine.Producer, wine.Name)
	return strings.ToLower(fmt.Sprintf("%s|%s|%s", name, vintage, currency))
}

// Get returns the cached payload for the wine, if present and fresh.
// Expired entries are evicted on the spot.
func (c *Cache) Get(wine model.WineRecord, currency string) (model.EnrichmentPayload, bool) {
	k := Key(wine, currency)

	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[k]
	if !ok {
		return model.EnrichmentPayload{}, false
	}
	if c.now().Sub(e.insertedAt) > c.ttl {
		delete(c.entries, k)
		return model.EnrichmentPayload{}, false
	}
	return e.payload, true
}

// Set stores a payload for the wine.
func (c *Cache) Set(wine model.WineRecord, currency string, payload model.EnrichmentPayload) {
	k := Key(wine, currency)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[k] = entry{payload: payload, insertedAt: c.now()}
}

// Invalidate removes the entry for the wine, if any. Used when a wine is
// re-queued for a retry pass or edited.
func (c *Cache) Invalidate(wine model.WineRecord, currency string) {
	k := Key(wine, currency)

	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, k)
}

// Len reports the number of entries currently held, expired or not.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
