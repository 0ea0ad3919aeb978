package cache

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisCache implements CacheProvider using Redis
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache creates a new Redis cache provider
func NewRedisCache() *RedisCache {
	redisHost := os.Getenv("REDIS_HOST")
	if redisHost == "" {
		redisHost = "localhost"
	}
	redisPort := os.Getenv("REDIS_PORT")
	if redisPort == "" {
		redisPort = "6379"
	}

	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", redisHost, redisPort),
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       0, // use default DB
	})

	return NewRedisCacheWithClient(client)
}

// NewRedisCacheWithClient creates a Redis cache provider around client
func NewRedisCacheWithClient(client *redis.Client) *RedisCache {
	return &RedisCache{
		client: client,
		ttl:    defaultTTL,
	}
}

// Initialize performs any necessary setup for the cache provider
func (c *RedisCache) Initialize() error {
	ctx := context.Background()
	_, err := c.client.Ping(ctx).Result()
	return err
}

// Get retrieves a payload from cache if available
func (c *RedisCache) Get(key string) ([]byte, bool) {
	ctx := context.Background()
	data, err := c.client.Get(ctx, keyPrefix+key).Bytes()
	if err != nil {
		if err != redis.Nil {
			log().Warn("redis get failed", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}
	return data, true
}

// Set stores a payload in cache
func (c *RedisCache) Set(key string, payload []byte) {
	ctx := context.Background()
	if err := c.client.Set(ctx, keyPrefix+key, payload, c.ttl).Err(); err != nil {
		log().Warn("redis set failed", zap.String("key", key), zap.Error(err))
	}
}

// InvalidateCache removes every taxonomy payload from Redis
func (c *RedisCache) InvalidateCache() {
	ctx := context.Background()
	iter := c.client.Scan(ctx, 0, keyPrefix+"*", 100).Iterator()

	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		log().Warn("redis scan failed", zap.Error(err))
		return
	}
	if len(keys) == 0 {
		return
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		log().Warn("redis invalidate failed", zap.Int("keys", len(keys)), zap.Error(err))
	}
}

// SetCacheTTL sets the cache time-to-live duration
func (c *RedisCache) SetCacheTTL(ttl time.Duration) {
	c.ttl = ttl
}

// Close closes the Redis connection
func (c *RedisCache) Close() error {
	return c.client.Close()
}
