package cache

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache is a short-TTL Redis cache with fail-open semantics: the cache is an
// optimization, never a dependency. Every Redis error degrades to a miss (Get)
// or false (Set/Delete) and is logged, not propagated.
type Cache struct {
	rdb    *redis.Client
	logger *log.Logger
}

func New(rdb *redis.Client, logger *log.Logger) *Cache {
	return &Cache{rdb: rdb, logger: logger}
}

// Get unmarshals the cached value for key into dest. Returns false on miss,
// expired entry, connectivity failure, or undecodable payload.
func (c *Cache) Get(ctx context.Context, key string, dest interface{}) bool {
	if c == nil || c.rdb == nil {
		return false
	}

	raw, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Printf("[CACHE] Get %s degraded to miss: %v", key, err)
		}
		return false
	}

	if err := json.Unmarshal(raw, dest); err != nil {
		c.logger.Printf("[CACHE] Get %s: undecodable payload, treating as miss: %v", key, err)
		return false
	}
	return true
}

// Set stores value under key with the given TTL. Empty values (nil, empty
// string, empty slice/map) are refused so a transient empty result can never
// hide behind a TTL. Returns true only when the write actually happened.
func (c *Cache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) bool {
	if c == nil || c.rdb == nil {
		return false
	}
	if IsEmptyValue(value) {
		return false
	}

	raw, err := json.Marshal(value)
	if err != nil {
		c.logger.Printf("[CACHE] Set %s: marshal failed, skipping write: %v", key, err)
		return false
	}

	if err := c.rdb.Set(ctx, key, raw, ttl).Err(); err != nil {
		c.logger.Printf("[CACHE] Set %s failed open: %v", key, err)
		return false
	}
	return true
}

// Delete removes key, used to invalidate entries when the underlying resource
// changes (e.g. a profile update).
func (c *Cache) Delete(ctx context.Context, key string) bool {
	if c == nil || c.rdb == nil {
		return false
	}
	if err := c.rdb.Del(ctx, key).Err(); err != nil {
		c.logger.Printf("[CACHE] Delete %s failed open: %v", key, err)
		return false
	}
	return true
}

// IsEmptyValue reports whether value must never be cached.
func IsEmptyValue(value interface{}) bool {
	if value == nil {
		return true
	}
	switch v := value.(type) {
	case string:
		return v == ""
	case []byte:
		return len(v) == 0
	}

	// Marshal once to catch typed empty slices/maps generically.
	raw, err := json.Marshal(value)
	if err != nil {
		return true
	}
	switch string(raw) {
	case "null", `""`, "[]", "{}":
		return true
	}
	return false
}
