package cache

import (
	"sync"
	"time"
)

// MemoryCache implements CacheProvider using in-memory storage
type MemoryCache struct {
	mu       sync.RWMutex
	data     map[string][]byte
	ttl      time.Duration
	expiries map[string]time.Time
}

// NewMemoryCache creates a new in-memory cache provider
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		ttl:      defaultTTL,
		data:     make(map[string][]byte),
		expiries: make(map[string]time.Time),
	}
}

// Initialize performs any necessary setup for the cache provider
func (c *MemoryCache) Initialize() error {
	return nil
}

// Get retrieves a payload from cache if available
func (c *MemoryCache) Get(key string) ([]byte, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	expiry, exists := c.expiries[key]
	if !exists || time.Now().After(expiry) {
		return nil, false
	}

	payload, ok := c.data[key]
	return payload, ok
}

// Set stores a payload in cache
func (c *MemoryCache) Set(key string, payload []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.data[key] = payload
	c.expiries[key] = time.Now().Add(c.ttl)
}

// InvalidateCache removes all cached data
func (c *MemoryCache) InvalidateCache() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.data = make(map[string][]byte)
	c.expiries = make(map[string]time.Time)
}

// SetCacheTTL sets the cache time-to-live duration
func (c *MemoryCache) SetCacheTTL(ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.ttl = ttl
	// Update all existing expiries
	now := time.Now()
	for key := range c.data {
		c.expiries[key] = now.Add(ttl)
	}
}
