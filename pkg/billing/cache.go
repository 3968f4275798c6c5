package billing

import (
	"sync"
	"time"
)

// CacheKey identifies one cached report
type CacheKey struct {
	Kind         string
	Month        int
	Year         int
	IncludeRates bool
}

type cacheEntry struct {
	at    time.Time
	value any
}

// Cache is a process-local report cache with a fixed TTL. A zero TTL
// disables it. The owner invalidates it after writing overrides.
type Cache struct {
	TTL time.Duration
	Now func() time.Time

	mu      sync.Mutex
	entries map[CacheKey]cacheEntry
}

// NewCache creates a cache with ttl
func NewCache(ttl time.Duration) *Cache {
	return &Cache{TTL: ttl, Now: time.Now, entries: make(map[CacheKey]cacheEntry)}
}

// Get returns the cached value of key if it has not expired
func (c *Cache) Get(key CacheKey) (any, bool) {
	if c == nil || c.TTL <= 0 {
		return nil, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if c.now().Sub(e.at) >= c.TTL {
		delete(c.entries, key)
		return nil, false
	}
	return e.value, true
}

// Put stores value under key
func (c *Cache) Put(key CacheKey, value any) {
	if c == nil || c.TTL <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.entries == nil {
		c.entries = make(map[CacheKey]cacheEntry)
	}
	c.entries[key] = cacheEntry{at: c.now(), value: value}
}

// Invalidate drops every entry of the given month and year
func (c *Cache) Invalidate(month, year int) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range c.entries {
		if k.Month == month && k.Year == year {
			delete(c.entries, k)
		}
	}
}

// Clear drops every entry
func (c *Cache) Clear() {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[CacheKey]cacheEntry)
}

func (c *Cache) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}
