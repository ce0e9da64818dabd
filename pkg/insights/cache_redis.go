package insights

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
)

// RedisConfig configures the Redis cache backend.
type RedisConfig struct {
	// Addr is the Redis server address (host:port).
	Addr string

	// Password is the optional server password.
	Password string

	// DB is the logical database number.
	DB int

	// KeyPrefix namespaces the client's keys. Defaults to "insights:cache:".
	KeyPrefix string
}

// RedisCache stores entries in Redis with a server-side TTL matching the
// writing policy's staleness bound.
type RedisCache struct {
	client *redis.Client
	prefix string
}

// NewRedisCache creates a Redis-backed cache.
func NewRedisCache(config *RedisConfig) *RedisCache {
	prefix := config.KeyPrefix
	if prefix == "" {
		prefix = "insights:cache:"
	}

	return &RedisCache{
		client: redis.NewClient(&redis.Options{
			Addr:     config.Addr,
			Password: config.Password,
			DB:       config.DB,
		}),
		prefix: prefix,
	}
}

// Get implements Cache.Get.
func (c *RedisCache) Get(ctx context.Context, key string) (*CacheEntry, error) {
	data, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}

	if err != nil {
		return nil, fmt.Errorf("reading cache entry: %w", err)
	}

	var entry CacheEntry

	err = json.Unmarshal(data, &entry)
	if err != nil {
		return nil, fmt.Errorf("decoding cache entry: %w", err)
	}

	return &entry, nil
}

// Set implements Cache.Set. Entries written with a TTL expire server-side;
// entries without one persist until explicitly invalidated.
func (c *RedisCache) Set(ctx context.Context, key string, entry *CacheEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encoding cache entry: %w", err)
	}

	err = c.client.Set(ctx, c.prefix+key, data, entry.TTL).Err()
	if err != nil {
		return fmt.Errorf("writing cache entry: %w", err)
	}

	return nil
}

// Delete implements Cache.Delete.
func (c *RedisCache) Delete(ctx context.Context, key string) error {
	err := c.client.Del(ctx, c.prefix+key).Err()
	if err != nil {
		return fmt.Errorf("deleting cache entry: %w", err)
	}

	return nil
}

// DeleteByPrefix implements Cache.DeleteByPrefix.
func (c *RedisCache) DeleteByPrefix(ctx context.Context, endpointPrefix string) error {
	return c.scanDelete(ctx, func(key string) bool {
		return strings.HasPrefix(endpointOfKey(key), endpointPrefix)
	})
}

// Clear implements Cache.Clear. Only keys under this client's prefix are
// removed.
func (c *RedisCache) Clear(ctx context.Context) error {
	return c.scanDelete(ctx, func(string) bool { return true })
}

func (c *RedisCache) scanDelete(ctx context.Context, match func(key string) bool) error {
	iter := c.client.Scan(ctx, 0, c.prefix+"*", 0).Iterator()

	for iter.Next(ctx) {
		stored := iter.Val()
		if match(strings.TrimPrefix(stored, c.prefix)) {
			err := c.client.Del(ctx, stored).Err()
			if err != nil {
				return fmt.Errorf("deleting cache entry: %w", err)
			}
		}
	}

	err := iter.Err()
	if err != nil {
		return fmt.Errorf("scanning cache keys: %w", err)
	}

	return nil
}

// Close releases the Redis connection.
func (c *RedisCache) Close() error {
	return c.client.Close()
}

var _ Cache = (*RedisCache)(nil)
