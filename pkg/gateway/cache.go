package gateway

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"orderhub/pkg/order"
)

// Cache is the small key/value surface the price cache needs.
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

// RedisCache adapts a redis client to the Cache interface. A missing key is
// returned as an empty value, not an error.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache wraps an existing redis client.
func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

// Get returns the cached value, or empty when the key does not exist.
func (c *RedisCache) Get(ctx context.Context, key string) (string, error) {
	v, err := c.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return v, nil
}

// Set stores the value with the given TTL.
func (c *RedisCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return c.client.Set(ctx, key, value, ttl).Err()
}

// CachedPriceGateway caches resolved unit prices for a short TTL. Cache
// errors never fail a lookup; the call falls through to the upstream.
type CachedPriceGateway struct {
	next  order.PriceGateway
	cache Cache
	ttl   time.Duration
}

// NewCachedPriceGateway decorates a price gateway with a TTL cache.
func NewCachedPriceGateway(next order.PriceGateway, cache Cache, ttl time.Duration) *CachedPriceGateway {
	return &CachedPriceGateway{next: next, cache: cache, ttl: ttl}
}

var _ order.PriceGateway = (*CachedPriceGateway)(nil)

// UnitPrice returns the cached price when fresh, otherwise resolves it
// upstream and stores the result.
func (g *CachedPriceGateway) UnitPrice(ctx context.Context, productID, token string) (float64, error) {
	key := "price:" + productID
	if v, err := g.cache.Get(ctx, key); err == nil && v != "" {
		if price, perr := strconv.ParseFloat(v, 64); perr == nil {
			return price, nil
		}
	}

	price, err := g.next.UnitPrice(ctx, productID, token)
	if err != nil {
		return 0, err
	}
	_ = g.cache.Set(ctx, key, strconv.FormatFloat(price, 'f', -1, 64), g.ttl)
	return price, nil
}
