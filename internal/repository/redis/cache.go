package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"redirect-server/internal/domain"
	"redirect-server/internal/metrics"

	"github.com/redis/go-redis/v9"
)

// Cache provides redirect target caching using Redis.
// This implements the CACHE-ASIDE PATTERN:
// 1. Check cache first
// 2. If miss, get from database
// 3. Store in cache for next time
//
// Only found, active targets are cached. Not-found and store-error
// outcomes always hit the database so a newly provisioned identifier
// becomes live without an explicit invalidation.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache creates a new Redis cache.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{
		client: client,
		ttl:    ttl,
	}
}

// GetTarget retrieves a redirect target from cache.
// Returns (nil, nil) on a cache miss - a miss is not an error.
func (c *Cache) GetTarget(ctx context.Context, identifier string) (*domain.RedirectTarget, error) {
	start := time.Now()
	defer func() {
		metrics.CacheOperationDuration.WithLabelValues("get").Observe(time.Since(start).Seconds())
	}()

	// Key naming convention: "target:{identifier}"
	key := fmt.Sprintf("target:%s", identifier)

	data, err := c.client.Get(ctx, key).Result()
	if err == redis.Nil {
		metrics.RecordCacheMiss()
		return nil, nil
	}
	if err != nil {
		// Actual error (connection issue, etc.)
		return nil, fmt.Errorf("redis get error: %w", err)
	}

	metrics.RecordCacheHit()

	var target domain.RedirectTarget
	if err := json.Unmarshal([]byte(data), &target); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached target: %w", err)
	}

	return &target, nil
}

// SetTarget stores a redirect target in cache.
func (c *Cache) SetTarget(ctx context.Context, identifier string, target *domain.RedirectTarget) error {
	key := fmt.Sprintf("target:%s", identifier)

	data, err := json.Marshal(target)
	if err != nil {
		return fmt.Errorf("failed to marshal target: %w", err)
	}

	// TTL keeps the cache bounded and stale destinations short-lived
	err = c.client.Set(ctx, key, data, c.ttl).Err()
	if err != nil {
		return fmt.Errorf("redis set error: %w", err)
	}

	return nil
}

// DeleteTarget removes a redirect target from cache. Called when the
// store reports the identifier deactivated or gone, so the entry does
// not keep serving until its TTL runs out.
func (c *Cache) DeleteTarget(ctx context.Context, identifier string) error {
	key := fmt.Sprintf("target:%s", identifier)

	err := c.client.Del(ctx, key).Err()
	if err != nil {
		return fmt.Errorf("redis delete error: %w", err)
	}

	return nil
}

// InitRedis creates a new Redis client and verifies the connection.
func InitRedis(addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,

		PoolSize:     10,
		MinIdleConns: 2,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return client, nil
}
