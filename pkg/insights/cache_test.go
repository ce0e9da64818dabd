package insights_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/introspect-io/insights-client/pkg/insights"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEntry(key string, priority insights.Priority, storedAt time.Time) *insights.CacheEntry {
	return &insights.CacheEntry{
		Key:        key,
		Body:       []byte(`{"ok":true}`),
		StatusCode: 200,
		StoredAt:   storedAt,
		Priority:   priority,
	}
}

func TestMemoryCache_GetSet(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	cache := insights.NewMemoryCache(10)

	_, err := cache.Get(ctx, "GET|/v1/insights|")
	require.ErrorIs(t, err, insights.ErrCacheMiss)

	entry := newEntry("GET|/v1/insights|", insights.PriorityNormal, time.Now())
	require.NoError(t, cache.Set(ctx, entry.Key, entry))

	got, err := cache.Get(ctx, entry.Key)
	require.NoError(t, err)
	assert.Equal(t, entry.Body, got.Body)
	assert.Equal(t, 200, got.StatusCode)

	require.NoError(t, cache.Delete(ctx, entry.Key))
	_, err = cache.Get(ctx, entry.Key)
	require.ErrorIs(t, err, insights.ErrCacheMiss)

	// Deleting again is not an error.
	require.NoError(t, cache.Delete(ctx, entry.Key))
}

func TestMemoryCache_EntriesAreIsolated(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	cache := insights.NewMemoryCache(10)

	entry := newEntry("GET|/v1/insights|", insights.PriorityNormal, time.Now())
	entry.ETag = `"v1"`
	require.NoError(t, cache.Set(ctx, entry.Key, entry))

	// Mutating the entry after Set must not touch the stored copy.
	entry.ETag = `"mutated"`
	entry.Body[0] = 'X'

	got, err := cache.Get(ctx, entry.Key)
	require.NoError(t, err)
	assert.Equal(t, `"v1"`, got.ETag)
	assert.NotEqual(t, byte('X'), got.Body[0])

	// Mutating a Get result must not leak into later reads.
	got.ETag = `"re-stamped"`
	got.StoredAt = got.StoredAt.Add(time.Hour)

	again, err := cache.Get(ctx, entry.Key)
	require.NoError(t, err)
	assert.Equal(t, `"v1"`, again.ETag)
	assert.True(t, again.StoredAt.Before(got.StoredAt))
}

func TestMemoryCache_ConcurrentSameKey(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	cache := insights.NewMemoryCache(10)

	entry := newEntry("GET|/v1/insights|", insights.PriorityNormal, time.Now())
	require.NoError(t, cache.Set(ctx, entry.Key, entry))

	var wg sync.WaitGroup

	for i := 0; i < 8; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for j := 0; j < 50; j++ {
				got, err := cache.Get(ctx, entry.Key)
				if assert.NoError(t, err) {
					got.StoredAt = time.Now()
					assert.NoError(t, cache.Set(ctx, entry.Key, got))
				}
			}
		}()
	}

	wg.Wait()

	got, err := cache.Get(ctx, entry.Key)
	require.NoError(t, err)
	assert.Equal(t, entry.Body, got.Body)
}

func TestMemoryCache_EvictsLowestPriorityFirst(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	cache := insights.NewMemoryCache(2)
	now := time.Now()

	high := newEntry("GET|/v1/insights/a|", insights.PriorityHigh, now.Add(-time.Hour))
	low := newEntry("GET|/v1/insights/b|", insights.PriorityLow, now)

	require.NoError(t, cache.Set(ctx, high.Key, high))
	require.NoError(t, cache.Set(ctx, low.Key, low))

	extra := newEntry("GET|/v1/insights/c|", insights.PriorityNormal, now)
	require.NoError(t, cache.Set(ctx, extra.Key, extra))

	assert.Equal(t, 2, cache.Len())
	assert.True(t, cache.Has(ctx, high.Key), "high priority entry survives even though it is oldest")
	assert.False(t, cache.Has(ctx, low.Key))
	assert.True(t, cache.Has(ctx, extra.Key))
}

func TestMemoryCache_EvictsOldestOnPriorityTie(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	cache := insights.NewMemoryCache(2)
	now := time.Now()

	older := newEntry("GET|/v1/insights/a|", insights.PriorityNormal, now.Add(-time.Hour))
	newer := newEntry("GET|/v1/insights/b|", insights.PriorityNormal, now)

	require.NoError(t, cache.Set(ctx, older.Key, older))
	require.NoError(t, cache.Set(ctx, newer.Key, newer))

	extra := newEntry("GET|/v1/insights/c|", insights.PriorityNormal, now)
	require.NoError(t, cache.Set(ctx, extra.Key, extra))

	assert.False(t, cache.Has(ctx, older.Key))
	assert.True(t, cache.Has(ctx, newer.Key))
}

func TestMemoryCache_DeleteByPrefix(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	cache := insights.NewMemoryCache(10)
	now := time.Now()

	keys := []string{
		"GET|/v1/insights|",
		"GET|/v1/insights|tag=go",
		"GET|/v1/insights/42|",
		"GET|/v1/relationships|",
	}
	for _, key := range keys {
		require.NoError(t, cache.Set(ctx, key, newEntry(key, insights.PriorityNormal, now)))
	}

	require.NoError(t, cache.DeleteByPrefix(ctx, "/v1/insights"))

	assert.False(t, cache.Has(ctx, "GET|/v1/insights|"))
	assert.False(t, cache.Has(ctx, "GET|/v1/insights|tag=go"), "query variants are removed too")
	assert.False(t, cache.Has(ctx, "GET|/v1/insights/42|"))
	assert.True(t, cache.Has(ctx, "GET|/v1/relationships|"), "other endpoints are untouched")

	// A prefix with no matching entries is fine.
	require.NoError(t, cache.DeleteByPrefix(ctx, "/v1/nothing"))
}

func TestMemoryCache_Clear(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	cache := insights.NewMemoryCache(10)

	for _, key := range []string{"GET|/a|", "GET|/b|"} {
		require.NoError(t, cache.Set(ctx, key, newEntry(key, insights.PriorityNormal, time.Now())))
	}

	require.NoError(t, cache.Clear(ctx))
	assert.Equal(t, 0, cache.Len())
}

func TestMemoryCache_Cleanup(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	cache := insights.NewMemoryCache(10)

	expired := newEntry("GET|/a|", insights.PriorityNormal, time.Now().Add(-time.Hour))
	expired.TTL = time.Minute
	fresh := newEntry("GET|/b|", insights.PriorityNormal, time.Now())
	fresh.TTL = time.Hour
	forever := newEntry("GET|/c|", insights.PriorityNormal, time.Now().Add(-24*time.Hour))

	require.NoError(t, cache.Set(ctx, expired.Key, expired))
	require.NoError(t, cache.Set(ctx, fresh.Key, fresh))
	require.NoError(t, cache.Set(ctx, forever.Key, forever))

	cache.Cleanup()

	assert.False(t, cache.Has(ctx, expired.Key))
	assert.True(t, cache.Has(ctx, fresh.Key))
	assert.True(t, cache.Has(ctx, forever.Key), "zero TTL entries are never expired")
}

func TestNoOpCache(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	cache := insights.NewNoOpCache()

	require.NoError(t, cache.Set(ctx, "GET|/a|", newEntry("GET|/a|", insights.PriorityNormal, time.Now())))

	_, err := cache.Get(ctx, "GET|/a|")
	assert.ErrorIs(t, err, insights.ErrCacheMiss)

	require.NoError(t, cache.Delete(ctx, "GET|/a|"))
	require.NoError(t, cache.DeleteByPrefix(ctx, "/a"))
	require.NoError(t, cache.Clear(ctx))
}

func TestNewCacheFromConfig(t *testing.T) {
	t.Parallel()

	t.Run("defaults to memory", func(t *testing.T) {
		t.Parallel()

		cache, err := insights.NewCacheFromConfig(&insights.CacheConfig{})
		require.NoError(t, err)
		assert.IsType(t, &insights.MemoryCache{}, cache)
	})

	t.Run("none", func(t *testing.T) {
		t.Parallel()

		cache, err := insights.NewCacheFromConfig(&insights.CacheConfig{Type: insights.CacheTypeNone})
		require.NoError(t, err)
		assert.IsType(t, &insights.NoOpCache{}, cache)
	})

	t.Run("unsupported type", func(t *testing.T) {
		t.Parallel()

		_, err := insights.NewCacheFromConfig(&insights.CacheConfig{Type: "bogus"})
		assert.ErrorIs(t, err, insights.ErrUnsupportedCacheType)
	})

	t.Run("nats requires config", func(t *testing.T) {
		t.Parallel()

		_, err := insights.NewCacheFromConfig(&insights.CacheConfig{Type: insights.CacheTypeNATS})
		assert.ErrorIs(t, err, insights.ErrNATSConfigRequired)
	})
}
