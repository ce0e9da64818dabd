package insights

import (
	"context"
	"fmt"
	"time"

	"github.com/introspect-io/insights-client/internal/constants"
)

// CacheType represents the type of cache backend.
type CacheType string

const (
	// CacheTypeMemory represents the in-memory cache.
	CacheTypeMemory CacheType = "memory"

	// CacheTypeNATS represents the NATS JetStream KV cache.
	CacheTypeNATS CacheType = "nats"

	// CacheTypeRedis represents the Redis cache.
	CacheTypeRedis CacheType = "redis"

	// CacheTypeNone represents no caching.
	CacheTypeNone CacheType = "none"
)

// CacheConfig selects and configures the cache backend. Exactly one backend
// is constructed per process lifetime, synchronously, before the client
// serves its first request.
type CacheConfig struct {
	// Type is the cache backend type.
	Type CacheType

	// Memory configures the in-memory backend.
	Memory *MemoryCacheConfig

	// NATS configures the NATS KV backend.
	NATS *NATSKVConfig

	// Redis configures the Redis backend.
	Redis *RedisConfig
}

// MemoryCacheConfig configures the in-memory backend.
type MemoryCacheConfig struct {
	// MaxSize is the maximum number of entries. Zero means the default.
	MaxSize int

	// CleanupInterval is how often expired entries are evicted. Zero means
	// the default.
	CleanupInterval time.Duration
}

// DefaultCacheConfig returns the default cache configuration: a bounded
// in-memory cache with a periodic janitor.
func DefaultCacheConfig() *CacheConfig {
	return &CacheConfig{
		Type: CacheTypeMemory,
		Memory: &MemoryCacheConfig{
			MaxSize:         constants.DefaultCacheSize,
			CleanupInterval: constants.DefaultCleanupInterval,
		},
	}
}

// NewCacheFromConfig creates a cache backend from configuration.
func NewCacheFromConfig(config *CacheConfig) (Cache, error) {
	if config == nil {
		config = DefaultCacheConfig()
	}

	switch config.Type {
	case CacheTypeMemory, "":
		return NewMemoryCacheFromConfig(config.Memory), nil

	case CacheTypeNATS:
		if config.NATS == nil {
			return nil, ErrNATSConfigRequired
		}

		return NewNATSKVCache(config.NATS)

	case CacheTypeRedis:
		if config.Redis == nil {
			return nil, ErrRedisConfigRequired
		}

		return NewRedisCache(config.Redis), nil

	case CacheTypeNone:
		return NewNoOpCache(), nil

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedCacheType, config.Type)
	}
}

// NewMemoryCacheFromConfig creates a memory cache from configuration and
// starts its janitor.
func NewMemoryCacheFromConfig(config *MemoryCacheConfig) *MemoryCache {
	if config == nil {
		config = &MemoryCacheConfig{}
	}

	maxSize := config.MaxSize
	if maxSize <= 0 {
		maxSize = constants.DefaultCacheSize
	}

	interval := config.CleanupInterval
	if interval <= 0 {
		interval = constants.DefaultCleanupInterval
	}

	cache := NewMemoryCache(maxSize)
	cache.StartJanitor(interval)

	return cache
}

// NoOpCache is a cache that stores nothing (caching disabled).
type NoOpCache struct{}

// NewNoOpCache creates a new no-op cache.
func NewNoOpCache() *NoOpCache {
	return &NoOpCache{}
}

// Get always misses.
func (c *NoOpCache) Get(ctx context.Context, key string) (*CacheEntry, error) {
	return nil, ErrCacheMiss
}

// Set does nothing.
func (c *NoOpCache) Set(ctx context.Context, key string, entry *CacheEntry) error {
	return nil
}

// Delete does nothing.
func (c *NoOpCache) Delete(ctx context.Context, key string) error {
	return nil
}

// DeleteByPrefix does nothing.
func (c *NoOpCache) DeleteByPrefix(ctx context.Context, endpointPrefix string) error {
	return nil
}

// Clear does nothing.
func (c *NoOpCache) Clear(ctx context.Context) error {
	return nil
}

var _ Cache = (*NoOpCache)(nil)
