package insights

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"
)

// CacheEntry is one stored response plus the metadata needed for staleness
// and eviction decisions.
type CacheEntry struct {
	// Key is the structured cache key the entry was stored under.
	Key string `json:"key"`

	// Body is the stored response payload.
	Body []byte `json:"body"`

	// StatusCode is the stored response status.
	StatusCode int `json:"status_code"`

	// Header is the stored response header set.
	Header http.Header `json:"header,omitempty"`

	// ETag is the entity tag of the stored response, used for conditional
	// revalidation.
	ETag string `json:"etag,omitempty"`

	// StoredAt is when the entry was written.
	StoredAt time.Time `json:"stored_at"`

	// Priority orders entries for size-bound eviction.
	Priority Priority `json:"priority"`

	// TTL records the writing policy's staleness bound; backends use it for
	// expiry-driven eviction. Zero means the entry is never evicted by age.
	TTL time.Duration `json:"ttl"`
}

// IsStale reports whether the entry is older than the given staleness
// bound. A non-positive bound means never stale.
func (e *CacheEntry) IsStale(maxStale time.Duration) bool {
	return maxStale > 0 && time.Since(e.StoredAt) > maxStale
}

// expired reports whether the entry outlived the TTL it was written with.
func (e *CacheEntry) expired(now time.Time) bool {
	return e.TTL > 0 && now.Sub(e.StoredAt) > e.TTL
}

// clone returns an independent copy of the entry so callers can read and
// re-stamp entries without sharing memory with the store.
func (e *CacheEntry) clone() *CacheEntry {
	copied := *e
	copied.Header = e.Header.Clone()

	if e.Body != nil {
		copied.Body = make([]byte, len(e.Body))
		copy(copied.Body, e.Body)
	}

	return &copied
}

// Cache is the pluggable response store.
//
// Contract:
//   - Implementations must be safe for concurrent use.
//   - Get returns ErrCacheMiss on a missing key and does not itself decide
//     staleness; the pipeline judges staleness against the call's policy.
//   - Entries returned by Get and accepted by Set are owned by the caller;
//     implementations never hand out memory shared with the store.
//   - Delete and DeleteByPrefix are idempotent.
type Cache interface {
	// Get retrieves an entry. Returns ErrCacheMiss on a miss.
	Get(ctx context.Context, key string) (*CacheEntry, error)

	// Set stores an entry, overwriting any existing entry for the key.
	Set(ctx context.Context, key string, entry *CacheEntry) error

	// Delete removes a single entry.
	Delete(ctx context.Context, key string) error

	// DeleteByPrefix removes every entry whose key was built from an
	// endpoint path starting with the prefix, regardless of method and
	// query parameters.
	DeleteByPrefix(ctx context.Context, endpointPrefix string) error

	// Clear wipes all entries.
	Clear(ctx context.Context) error
}

// MemoryCache is an in-memory Cache bounded by entry count. When full, the
// lowest-priority entry is evicted first, then the oldest.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]*CacheEntry
	maxSize int

	janitorOnce sync.Once
	stop        chan struct{}
}

// NewMemoryCache creates a memory cache holding at most maxSize entries.
// maxSize <= 0 means unbounded.
func NewMemoryCache(maxSize int) *MemoryCache {
	return &MemoryCache{
		entries: make(map[string]*CacheEntry),
		maxSize: maxSize,
		stop:    make(chan struct{}),
	}
}

// Get implements Cache.Get.
func (c *MemoryCache) Get(_ context.Context, key string) (*CacheEntry, error) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok {
		return nil, ErrCacheMiss
	}

	return entry.clone(), nil
}

// Set implements Cache.Set.
func (c *MemoryCache) Set(_ context.Context, key string, entry *CacheEntry) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists && c.maxSize > 0 && len(c.entries) >= c.maxSize {
		c.evictLocked()
	}

	c.entries[key] = entry.clone()

	return nil
}

// evictLocked frees one slot: expired entries first, then the entry with
// the lowest priority, oldest StoredAt breaking ties.
func (c *MemoryCache) evictLocked() {
	now := time.Now()
	for key, entry := range c.entries {
		if entry.expired(now) {
			delete(c.entries, key)

			return
		}
	}

	var victim string

	for key, entry := range c.entries {
		if victim == "" {
			victim = key

			continue
		}

		current := c.entries[victim]
		if entry.Priority < current.Priority ||
			(entry.Priority == current.Priority && entry.StoredAt.Before(current.StoredAt)) {
			victim = key
		}
	}

	if victim != "" {
		delete(c.entries, victim)
	}
}

// Delete implements Cache.Delete.
func (c *MemoryCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()

	return nil
}

// DeleteByPrefix implements Cache.DeleteByPrefix.
func (c *MemoryCache) DeleteByPrefix(_ context.Context, endpointPrefix string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key := range c.entries {
		if strings.HasPrefix(endpointOfKey(key), endpointPrefix) {
			delete(c.entries, key)
		}
	}

	return nil
}

// Clear implements Cache.Clear.
func (c *MemoryCache) Clear(_ context.Context) error {
	c.mu.Lock()
	c.entries = make(map[string]*CacheEntry)
	c.mu.Unlock()

	return nil
}

// Has reports whether a key is present, regardless of staleness.
func (c *MemoryCache) Has(_ context.Context, key string) bool {
	c.mu.RLock()
	_, ok := c.entries[key]
	c.mu.RUnlock()

	return ok
}

// Len returns the number of stored entries.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.entries)
}

// Cleanup removes entries that outlived the TTL they were written with.
func (c *MemoryCache) Cleanup() {
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	for key, entry := range c.entries {
		if entry.expired(now) {
			delete(c.entries, key)
		}
	}
}

// StartJanitor runs Cleanup on the given interval until Close is called.
func (c *MemoryCache) StartJanitor(interval time.Duration) {
	c.janitorOnce.Do(func() {
		go func() {
			ticker := time.NewTicker(interval)
			defer ticker.Stop()

			for {
				select {
				case <-ticker.C:
					c.Cleanup()
				case <-c.stop:
					return
				}
			}
		}()
	})
}

// Close stops the janitor, if one was started.
func (c *MemoryCache) Close() error {
	select {
	case <-c.stop:
	default:
		close(c.stop)
	}

	return nil
}

var _ Cache = (*MemoryCache)(nil)
