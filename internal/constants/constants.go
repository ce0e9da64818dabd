package constants

import "time"

// HTTP and network timeouts.
const (
	// DefaultConnectTimeout is the default timeout for establishing a connection.
	DefaultConnectTimeout = 5 * time.Second

	// DefaultReceiveTimeout is the default per-attempt timeout for receiving a response.
	DefaultReceiveTimeout = 10 * time.Second

	// ProbeTimeout is the timeout for a single connectivity probe.
	ProbeTimeout = 3 * time.Second
)

// Retry limits and delays.
const (
	// DefaultMaxRetries is the default maximum number of retries per request.
	DefaultMaxRetries = 3

	// DefaultRetryBaseDelay is the base delay for linear retry backoff.
	DefaultRetryBaseDelay = 2 * time.Second

	// RateLimitWaitMax caps the backoff for rate-limited requests.
	RateLimitWaitMax = 30 * time.Second

	// BackgroundRefreshTimeout bounds a non-blocking cache refresh dispatch.
	BackgroundRefreshTimeout = 30 * time.Second
)

// Cache defaults.
const (
	// DefaultCacheSize is the default maximum number of entries in the memory cache.
	DefaultCacheSize = 512

	// DefaultCleanupInterval is the default interval for evicting expired entries.
	DefaultCleanupInterval = time.Minute

	// DefaultMaxStale is the default staleness bound for cached responses.
	DefaultMaxStale = 5 * time.Minute
)

// Connectivity defaults.
const (
	// DefaultProbeInterval is the default interval between connectivity probes.
	DefaultProbeInterval = 30 * time.Second
)

// DefaultUserAgent identifies the client on outgoing requests.
const DefaultUserAgent = "insights-client/1.0"
