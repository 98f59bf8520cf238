package wordstat

import (
	"sync"
	"time"
)

// responseCache keeps successful responses keyed by (endpoint, canonical
// payload). Entries expire after the TTL but are never evicted early; a
// stale entry simply stops being returned and is overwritten by the next
// successful fetch.
type responseCache struct {
	ttl     time.Duration
	mu      sync.Mutex
	entries map[string]cacheEntry
}

type cacheEntry struct {
	resp       *Response
	insertedAt time.Time
}

func newResponseCache(ttl time.Duration) *responseCache {
	return &responseCache{
		ttl:     ttl,
		entries: make(map[string]cacheEntry),
	}
}

// get returns the cached response if one exists and is still fresh.
func (c *responseCache) get(key string) (*Response, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[key]
	if !ok || time.Since(entry.insertedAt) >= c.ttl {
		return nil, false
	}
	return entry.resp, true
}

func (c *responseCache) set(key string, resp *Response) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cacheEntry{resp: resp, insertedAt: time.Now()}
}

func (c *responseCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
