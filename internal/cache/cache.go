// Package cache is a Redis-backed read-through cache for availability
// responses. A nil *Cache is a valid no-op, so callers never branch on
// whether Redis is configured.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/datafirstseo/booking-backend/internal/observability/metrics"
	"github.com/datafirstseo/booking-backend/pkg/logging"
)

// Cache wraps a Redis client with read-through and prefix invalidation.
type Cache struct {
	client  *redis.Client
	logger  *logging.Logger
	metrics *metrics.BookingMetrics
}

// New creates a cache. Returns nil when the client is nil; every method
// degrades to computing fresh in that case.
func New(client *redis.Client, logger *logging.Logger, m *metrics.BookingMetrics) *Cache {
	if client == nil {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Cache{client: client, logger: logger, metrics: m}
}

// GetOrCompute returns the cached value for key, or computes, stores and
// returns it. Redis errors are logged and treated as misses; the caller
// always gets the computed value in that case.
func (c *Cache) GetOrCompute(ctx context.Context, key string, ttl time.Duration, compute func(ctx context.Context) ([]byte, error)) ([]byte, error) {
	if c == nil {
		return compute(ctx)
	}

	cached, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		c.metrics.ObserveCache("hit")
		return cached, nil
	}
	if err != redis.Nil {
		c.logger.Warn("cache read failed", "key", key, "error", err)
	}
	c.metrics.ObserveCache("miss")

	value, err := compute(ctx)
	if err != nil {
		return nil, err
	}
	if err := c.client.Set(ctx, key, value, ttl).Err(); err != nil {
		c.logger.Warn("cache write failed", "key", key, "error", err)
	}
	return value, nil
}

// Invalidate removes every key under the prefix. Called after any write
// that changes slot availability.
func (c *Cache) Invalidate(ctx context.Context, prefix string) {
	if c == nil {
		return
	}
	iter := c.client.Scan(ctx, 0, prefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		c.logger.Warn("cache scan failed", "prefix", prefix, "error", err)
		return
	}
	if len(keys) == 0 {
		return
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		c.logger.Warn("cache invalidation failed", "prefix", prefix, "error", err)
	}
}

// AvailabilityKey is the cache key for one day's availability response.
func AvailabilityKey(day string) string {
	return fmt.Sprintf("availability:%s", day)
}

// NextAvailableKey is the cache key for the next-available-date response.
const NextAvailableKey = "availability:next"
