package cache

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryCache keeps entries in process memory
type MemoryCache struct {
	cache *gocache.Cache
}

// NewMemoryCache creates a new memory cache
func NewMemoryCache(defaultTTL time.Duration, cleanupInterval time.Duration) *MemoryCache {
	return &MemoryCache{
		cache: gocache.New(defaultTTL, cleanupInterval),
	}
}

// Get retrieves an entry from the cache
func (c *MemoryCache) Get(key string) (Entry, bool) {
	if val, found := c.cache.Get(key); found {
		return val.(Entry), true
	}
	return Entry{}, false
}

// Set stores an entry with the given TTL. Zero means the default TTL.
func (c *MemoryCache) Set(key string, entry Entry, ttl time.Duration) error {
	if ttl == 0 {
		ttl = gocache.DefaultExpiration
	}
	c.cache.Set(key, entry, ttl)
	return nil
}

// Delete removes an entry from the cache
func (c *MemoryCache) Delete(key string) error {
	c.cache.Delete(key)
	return nil
}

// Clear removes all entries from the cache
func (c *MemoryCache) Clear() error {
	c.cache.Flush()
	return nil
}
