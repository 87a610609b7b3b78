// Package cache is a typed Redis cache used by the ingest pipeline to
// deduplicate collector work. It degrades to a no-op when Redis is disabled;
// the simulation core never touches it.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tianji-quant/tianji/pkg/config"
)

// Cache provides JSON get/set helpers over Redis.
type Cache struct {
	rdb     *redis.Client
	prefix  string
	enabled bool
}

// New creates a cache from config. With Redis disabled every operation is a
// cache miss.
func New(cfg *config.Config, prefix string) *Cache {
	c := &Cache{prefix: prefix, enabled: cfg.Redis.Enabled}
	if !c.enabled {
		return c
	}
	c.rdb = redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	return c
}

// Ping verifies connectivity when enabled.
func (c *Cache) Ping(ctx context.Context) error {
	if !c.enabled {
		return nil
	}
	return c.rdb.Ping(ctx).Err()
}

// Get retrieves a cached value into dest. A missing key is not an error.
func (c *Cache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	if !c.enabled {
		return false, nil
	}
	data, err := c.rdb.Get(ctx, c.key(key)).Bytes()
	if err != nil {
		return false, nil
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("cache unmarshal failed: %w", err)
	}
	return true, nil
}

// Set stores a value with a TTL.
func (c *Cache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if !c.enabled {
		return nil
	}
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache marshal failed: %w", err)
	}
	return c.rdb.Set(ctx, c.key(key), data, ttl).Err()
}

// Delete removes a key.
func (c *Cache) Delete(ctx context.Context, key string) error {
	if !c.enabled {
		return nil
	}
	return c.rdb.Del(ctx, c.key(key)).Err()
}

// Close releases the client.
func (c *Cache) Close() error {
	if c.rdb != nil {
		return c.rdb.Close()
	}
	return nil
}

func (c *Cache) key(key string) string {
	return fmt.Sprintf("%s:cache:%s", c.prefix, key)
}
