// Package cache provides a short-TTL in-memory memoization of recently
// served tile bytes. It is purely a performance layer over the tile store:
// a nil *Cache degrades to always-miss without breaking correctness.
package cache

import (
	"fmt"
	"sync"
	"time"
)

// DefaultTTL is the freshness window for cached tile bytes.
const DefaultTTL = time.Hour

type entry struct {
	data      []byte
	expiresAt time.Time
}

// Cache is a mutex-guarded byte cache with passive TTL expiry. Entries are
// never proactively invalidated; they fall out when read after expiry.
type Cache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]entry
}

// New creates a cache with the given TTL. A non-positive TTL falls back to
// DefaultTTL.
func New(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{ttl: ttl, entries: make(map[string]entry)}
}

// Key builds the cache key for a tile request. The provider component uses
// the literal request value, or "default" when the caller did not pick one.
func Key(world string, x, y int, provider string) string {
	if provider == "" {
		provider = "default"
	}
	return fmt.Sprintf("background_%s_%d_%d_%s", world, x, y, provider)
}

// Get returns the cached bytes if present and fresh.
func (c *Cache) Get(key string) ([]byte, bool) {
	if c == nil {
		return nil, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if time.Now().After(e.expiresAt) {
		delete(c.entries, key)
		return nil, false
	}
	return e.data, true
}

// Set stores bytes under key for the cache TTL.
func (c *Cache) Set(key string, data []byte) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry{data: data, expiresAt: time.Now().Add(c.ttl)}
}

// Len returns the number of entries currently held, including expired ones
// that have not been touched since expiry.
func (c *Cache) Len() int {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
