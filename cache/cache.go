// Package cache is a thin TTL'd key-value layer over Redis, injected into
// the components that need it rather than held as a package singleton so
// tests can run with a nil cache or a dedicated test instance.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// New wraps a redis client. A nil client yields a cache that always misses,
// which is how the service degrades when redis is unreachable.
func New(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

func (c *Cache) enabled() bool {
	return c != nil && c.client != nil
}

// GetJSON reads and decodes a cached value. Returns false on miss or any
// redis error; cache failures are never surfaced as operation failures.
func (c *Cache) GetJSON(ctx context.Context, key string, dest any) bool {
	if !c.enabled() {
		return false
	}
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		return false
	}
	return json.Unmarshal(data, dest) == nil
}

func (c *Cache) SetJSON(ctx context.Context, key string, v any) error {
	if !c.enabled() {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, data, c.ttl).Err()
}

func (c *Cache) Delete(ctx context.Context, keys ...string) error {
	if !c.enabled() || len(keys) == 0 {
		return nil
	}
	return c.client.Del(ctx, keys...).Err()
}

func StaffProfileKey(staffID int64) string {
	return fmt.Sprintf("opscore:staff:%d:profile", staffID)
}

func StoreRollupKey(storeID int64, day string) string {
	return fmt.Sprintf("opscore:store:%d:rollup:%s", storeID, day)
}
