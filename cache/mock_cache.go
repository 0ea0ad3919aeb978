package cache

import (
	"errors"
	"sync"
	"time"
)

// MockCache is a cache provider that can be used for testing
type MockCache struct {
	mu              sync.RWMutex
	data            map[string][]byte
	ttl             time.Duration
	GetCalls        int
	SetCalls        int
	InvalidateCalls int
	SetTTLCalls     int
	InitCalls       int
	CloseCalls      int
	ShouldFail      bool
}

// NewMockCache creates a new mock cache provider
func NewMockCache() *MockCache {
	return &MockCache{
		data: make(map[string][]byte),
		ttl:  defaultTTL,
	}
}

// Initialize performs any necessary setup for the cache provider
func (c *MockCache) Initialize() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.InitCalls++
	if c.ShouldFail {
		return ErrCacheInitialization
	}
	return nil
}

// Get retrieves a payload from cache if available
func (c *MockCache) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.GetCalls++

	if c.ShouldFail {
		return nil, false
	}
	payload, ok := c.data[key]
	return payload, ok
}

// Set stores a payload in cache
func (c *MockCache) Set(key string, payload []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.SetCalls++

	if !c.ShouldFail {
		c.data[key] = payload
	}
}

// InvalidateCache removes all payloads from cache
func (c *MockCache) InvalidateCache() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.InvalidateCalls++

	if !c.ShouldFail {
		c.data = make(map[string][]byte)
	}
}

// SetCacheTTL sets the cache time-to-live duration
func (c *MockCache) SetCacheTTL(ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.SetTTLCalls++

	if !c.ShouldFail {
		c.ttl = ttl
	}
}

// Close records the call; the mock holds no connections
func (c *MockCache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.CloseCalls++
	return nil
}

// Keys returns the number of stored payloads
func (c *MockCache) Keys() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.data)
}

// Reset resets all counters and state
func (c *MockCache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.GetCalls = 0
	c.SetCalls = 0
	c.InvalidateCalls = 0
	c.SetTTLCalls = 0
	c.InitCalls = 0
	c.CloseCalls = 0
	c.ShouldFail = false
	c.data = make(map[string][]byte)
}

// GetCallCounts returns the number of times each method was called
func (c *MockCache) GetCallCounts() (get, set, invalidate, setTTL, init int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.GetCalls, c.SetCalls, c.InvalidateCalls, c.SetTTLCalls, c.InitCalls
}

// SetShouldFail makes the mock cache fail all operations
func (c *MockCache) SetShouldFail(shouldFail bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ShouldFail = shouldFail
}

// ErrCacheInitialization is returned when the mock cache is configured to fail
var ErrCacheInitialization = errors.New("mock cache initialization failed")
