// Package cache stores rendered taxonomy payloads keyed by request shape.
package cache

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

const (
	defaultTTL = 5 * time.Minute
	keyPrefix  = "taxonomy:"
)

var (
	provider CacheProvider
	once     sync.Once
	mu       sync.RWMutex
	logger   atomic.Pointer[zap.Logger]
)

// CacheProvider defines the interface for cache implementations.
// Values are opaque JSON payloads; keys come from the *Key helpers.
type CacheProvider interface {
	// Get retrieves a payload from cache if available and not expired.
	// Returns the payload and a boolean indicating whether it was found.
	Get(key string) ([]byte, bool)

	// Set stores a payload in cache under key.
	Set(key string, payload []byte)

	// InvalidateCache removes all cached payloads.
	// This is called whenever the taxonomy changes.
	InvalidateCache()

	// SetCacheTTL sets the cache time-to-live duration.
	SetCacheTTL(ttl time.Duration)

	// Initialize performs any necessary setup for the cache provider, such
	// as establishing connections or creating tables.
	// Returns an error if initialization fails.
	Initialize() error
}

// SetLogger sets the logger used by backends to report swallowed errors
func SetLogger(l *zap.Logger) {
	logger.Store(l)
}

func log() *zap.Logger {
	if l := logger.Load(); l != nil {
		return l
	}
	return zap.NewNop()
}

// Initialize sets up the cache provider. CACHE_BACKEND=dynamodb selects
// DynamoDB; otherwise Redis is used when REDIS_HOST is set and memory when
// it is not.
func Initialize() error {
	var err error
	once.Do(func() {
		var p CacheProvider
		switch {
		case os.Getenv("CACHE_BACKEND") == "dynamodb":
			p, err = NewDynamoDBCache()
			if err != nil {
				return
			}
		case os.Getenv("REDIS_HOST") != "":
			p = NewRedisCache()
		default:
			p = NewMemoryCache()
		}
		err = install(p)
	})
	return err
}

// install initializes p and makes it the active provider
func install(p CacheProvider) error {
	if err := p.Initialize(); err != nil {
		return err
	}
	mu.Lock()
	defer mu.Unlock()
	provider = p
	return nil
}

// Current returns the active provider, or nil before Initialize
func Current() CacheProvider {
	mu.RLock()
	defer mu.RUnlock()
	return provider
}

// InvalidateCache removes all cached data
func InvalidateCache() {
	mu.RLock()
	defer mu.RUnlock()
	if provider != nil {
		provider.InvalidateCache()
	}
}

// SetCacheTTL sets the cache time-to-live duration
func SetCacheTTL(ttl time.Duration) {
	mu.RLock()
	defer mu.RUnlock()
	if provider != nil {
		provider.SetCacheTTL(ttl)
	}
}

// Close releases the active provider's connections, if it holds any, and
// clears it so a later Initialize starts over
func Close() error {
	mu.Lock()
	defer mu.Unlock()

	var err error
	if c, ok := provider.(io.Closer); ok {
		err = c.Close()
	}
	provider = nil
	once = sync.Once{}
	return err
}

// Keys carry the version of the snapshot a payload was built from, so a
// payload rendered from an older taxonomy is never served for a newer one.

// TaxonomyKey is the key of the nested taxonomy payload
func TaxonomyKey(version uint64, includeInactive bool) string {
	return fmt.Sprintf("%016x:tree:%t", version, includeInactive)
}

// FlatKey is the key of the flat category list payload
func FlatKey(version uint64, includeInactive bool) string {
	return fmt.Sprintf("%016x:flat:%t", version, includeInactive)
}

// NodeKey is the key of a single subtree payload
func NodeKey(version uint64, id int64, includeInactive bool) string {
	return fmt.Sprintf("%016x:node:%d:%t", version, id, includeInactive)
}

// GraphKey is the key of a graph payload; a nil genreID means the whole forest
func GraphKey(version uint64, genreID *int64, includeInactive bool) string {
	scope := "all"
	if genreID != nil {
		scope = strconv.FormatInt(*genreID, 10)
	}
	return fmt.Sprintf("%016x:graph:%s:%t", version, scope, includeInactive)
}
