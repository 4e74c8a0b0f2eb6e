package cache

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	CatalogKeyPrefix  = "catalog:v"
	CatalogVersionKey = "catalog:version"

	DefaultTTL = 5 * time.Minute
)

// CatalogCache memoises catalog reads in Redis. Every product write bumps a
// version counter, which retires all earlier keys at once; stale entries
// simply expire. A nil *CatalogCache is a valid, disabled cache.
type CatalogCache struct {
	redis  *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func NewCatalogCache(client *redis.Client, ttl time.Duration, logger *zap.Logger) *CatalogCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &CatalogCache{redis: client, ttl: ttl, logger: logger}
}

// Key names a cached read from its operation and arguments
func Key(operation string, args ...interface{}) string {
	if len(args) == 0 {
		return operation
	}
	raw, err := json.Marshal(args)
	if err != nil {
		raw = []byte(fmt.Sprint(args...))
	}
	sum := sha1.Sum(raw)
	return operation + ":" + hex.EncodeToString(sum[:])
}

func (c *CatalogCache) version(ctx context.Context) (int64, error) {
	v, err := c.redis.Get(ctx, CatalogVersionKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return v, err
}

func (c *CatalogCache) versionedKey(ctx context.Context, key string) (string, error) {
	v, err := c.version(ctx)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s%d:%s", CatalogKeyPrefix, v, key), nil
}

// Entry is a cache slot pinned to the catalog version Get observed. A write
// that lands while the caller loads from the store bumps the version, so the
// loaded value goes under the retired version and is never served.
type Entry struct {
	key string
}

// Get decodes the cached value for key into dst and reports whether it was found.
// Redis failures count as misses. The returned Entry is where Set stores a
// freshly loaded value.
func (c *CatalogCache) Get(ctx context.Context, key string, dst interface{}) (Entry, bool) {
	if c == nil {
		return Entry{}, false
	}

	k, err := c.versionedKey(ctx, key)
	if err != nil {
		c.logger.Warn("Failed to read catalog cache version", zap.Error(err))
		return Entry{}, false
	}
	entry := Entry{key: k}

	raw, err := c.redis.Get(ctx, k).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("Failed to read catalog cache", zap.Error(err), zap.String("key", k))
		}
		return entry, false
	}

	if err := json.Unmarshal(raw, dst); err != nil {
		c.logger.Warn("Failed to decode cached catalog entry", zap.Error(err), zap.String("key", k))
		return entry, false
	}
	return entry, true
}

// Set stores v in the slot returned by Get for the cache TTL
func (c *CatalogCache) Set(ctx context.Context, entry Entry, v interface{}) {
	if c == nil || entry.key == "" {
		return
	}

	raw, err := json.Marshal(v)
	if err != nil {
		c.logger.Warn("Failed to encode catalog entry for cache", zap.Error(err))
		return
	}

	if err := c.redis.Set(ctx, entry.key, raw, c.ttl).Err(); err != nil {
		c.logger.Warn("Failed to write catalog cache", zap.Error(err), zap.String("key", entry.key))
	}
}

// Invalidate retires every cached catalog read
func (c *CatalogCache) Invalidate(ctx context.Context) {
	if c == nil {
		return
	}

	v, err := c.redis.Incr(ctx, CatalogVersionKey).Result()
	if err != nil {
		c.logger.Error("Failed to invalidate catalog cache", zap.Error(err))
		return
	}
	c.logger.Debug("Catalog cache invalidated", zap.Int64("version", v))
}
