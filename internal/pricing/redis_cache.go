package pricing

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCache is the shared Cache used when Redis is configured, so repeated
// passes and parallel deployments reuse the same quotes.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache creates a Redis-backed price cache.
func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

var _ Cache = (*RedisCache)(nil)

func cacheKey(contract string) string {
	return "price:" + contract
}

// Get returns the cached price. Redis errors degrade to a cache miss.
func (c *RedisCache) Get(ctx context.Context, contract string) (float64, bool) {
	val, err := c.client.Get(ctx, cacheKey(contract)).Result()
	if err != nil {
		return 0, false
	}
	price, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return 0, false
	}
	return price, true
}

// Set stores the price. Redis errors are ignored; the cache is advisory.
func (c *RedisCache) Set(ctx context.Context, contract string, price float64) {
	c.client.Set(ctx, cacheKey(contract), strconv.FormatFloat(price, 'f', -1, 64), c.ttl)
}
