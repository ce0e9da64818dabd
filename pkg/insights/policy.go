package insights

import (
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/introspect-io/insights-client/internal/constants"
)

// CacheMode decides whether and how a call reads from and writes to the
// response cache.
type CacheMode int

const (
	// ModeRequest serves fresh cache hits and dispatches otherwise.
	ModeRequest CacheMode = iota

	// ModeNoCache never reads or writes the cache.
	ModeNoCache

	// ModeForceCache serves cache hits even when stale.
	ModeForceCache

	// ModeRefresh bypasses the cache on read but stores the fresh response.
	ModeRefresh

	// ModeRefreshForceCache serves stale hits immediately and triggers a
	// non-blocking background refresh.
	ModeRefreshForceCache
)

// String returns the mode name.
func (m CacheMode) String() string {
	switch m {
	case ModeRequest:
		return "request"
	case ModeNoCache:
		return "no-cache"
	case ModeForceCache:
		return "force-cache"
	case ModeRefresh:
		return "refresh"
	case ModeRefreshForceCache:
		return "refresh-force-cache"
	default:
		return "unknown"
	}
}

// ParseCacheMode parses a mode name as used in configuration files and CLI
// flags. Unrecognized names fall back to ModeRequest.
func ParseCacheMode(name string) CacheMode {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "no-cache", "nocache", "none":
		return ModeNoCache
	case "force-cache", "forcecache":
		return ModeForceCache
	case "refresh":
		return ModeRefresh
	case "refresh-force-cache", "refreshforcecache":
		return ModeRefreshForceCache
	default:
		return ModeRequest
	}
}

// ReadsCache reports whether the mode consults the cache before dispatch.
func (m CacheMode) ReadsCache() bool {
	switch m {
	case ModeRequest, ModeForceCache, ModeRefreshForceCache:
		return true
	default:
		return false
	}
}

// WritesCache reports whether a successful response is stored.
func (m CacheMode) WritesCache() bool {
	return m != ModeNoCache
}

// ServesStale reports whether a stale hit may be served instead of
// dispatching.
func (m CacheMode) ServesStale() bool {
	return m == ModeForceCache || m == ModeRefreshForceCache
}

// Priority orders cache entries for size-bound eviction: lowest priority is
// evicted first.
type Priority int

const (
	PriorityLow Priority = iota
	PriorityNormal
	PriorityHigh
)

// String returns the priority name.
func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "low"
	case PriorityHigh:
		return "high"
	default:
		return "normal"
	}
}

// KeyBuilder computes the cache key for a request. Implementations must be
// deterministic for identical inputs.
type KeyBuilder func(method, path string, query url.Values) string

// CachePolicy is the per-call configuration deciding whether and how a
// response is read from or written to the cache.
type CachePolicy struct {
	// Mode selects the read/write behavior.
	Mode CacheMode

	// MaxStale is the duration after which a stored entry is considered
	// stale. Zero or negative means entries never go stale.
	MaxStale time.Duration

	// Priority is attached to entries written under this policy.
	Priority Priority

	// KeyBuilder overrides the default cache key construction.
	KeyBuilder KeyBuilder
}

// DefaultCachePolicy returns the policy applied when a call does not carry
// one: Request mode with the default staleness bound.
func DefaultCachePolicy() CachePolicy {
	return CachePolicy{
		Mode:     ModeRequest,
		MaxStale: constants.DefaultMaxStale,
		Priority: PriorityNormal,
	}
}

// NoCachePolicy returns a policy that never touches the cache.
func NoCachePolicy() CachePolicy {
	return CachePolicy{Mode: ModeNoCache}
}

// Key computes the cache key for a request under this policy. Mutating
// methods never produce a key: POST, PUT, and DELETE responses are neither
// stored nor read from the cache.
func (p CachePolicy) Key(method, path string, query url.Values) string {
	if !IdempotentMethod(method) {
		return ""
	}

	builder := p.KeyBuilder
	if builder == nil {
		builder = DefaultKeyBuilder
	}

	return builder(method, path, query)
}

// DefaultKeyBuilder builds keys as method + "|" + path + "|" + sorted query
// parameters, so identical requests map to one entry regardless of query
// ordering.
func DefaultKeyBuilder(method, path string, query url.Values) string {
	var builder strings.Builder

	builder.WriteString(method)
	builder.WriteByte('|')
	builder.WriteString(path)
	builder.WriteByte('|')
	builder.WriteString(sortedQuery(query))

	return builder.String()
}

func sortedQuery(query url.Values) string {
	if len(query) == 0 {
		return ""
	}

	keys := make([]string, 0, len(query))
	for key := range query {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))

	for _, key := range keys {
		values := append([]string(nil), query[key]...)
		sort.Strings(values)

		for _, value := range values {
			pairs = append(pairs, key+"="+value)
		}
	}

	return strings.Join(pairs, "&")
}

// endpointOfKey extracts the path segment from a structured cache key so
// prefix invalidation can match entries regardless of method and query.
func endpointOfKey(key string) string {
	first := strings.IndexByte(key, '|')
	if first < 0 {
		return key
	}

	rest := key[first+1:]

	second := strings.IndexByte(rest, '|')
	if second < 0 {
		return rest
	}

	return rest[:second]
}
