package insights

import (
	"context"
	"time"
)

// Logger is the structured logging interface used throughout the client.
type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
}

// NopLogger discards all log output. It is the default when no Logger is
// configured.
type NopLogger struct{}

func (NopLogger) Debug(string, map[string]interface{}) {}
func (NopLogger) Info(string, map[string]interface{})  {}
func (NopLogger) Warn(string, map[string]interface{})  {}
func (NopLogger) Error(string, map[string]interface{}) {}

// TokenSource supplies the current auth token before each dispatch. The
// client never caches tokens: the source is consulted fresh on every
// attempt, including retries.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// TokenSourceFunc adapts a function to the TokenSource interface.
type TokenSourceFunc func(ctx context.Context) (string, error)

// Token implements TokenSource.
func (f TokenSourceFunc) Token(ctx context.Context) (string, error) {
	return f(ctx)
}

// StaticTokenSource returns a TokenSource that always yields the given
// token. An empty token means unauthenticated requests.
func StaticTokenSource(token string) TokenSource {
	return TokenSourceFunc(func(context.Context) (string, error) {
		return token, nil
	})
}

// Config represents client configuration for building an insights.Client.
//
// Timeouts apply per attempt, not cumulatively across retries. The cache
// store and connectivity monitor are process-wide: pass the same Cache and
// Monitor to every client instance that should share them, or leave them
// nil to let the composition root construct owned instances.
type Config struct {
	// BaseURL is the API endpoint (e.g. "https://api.example.com").
	// insightsclient.New normalizes it by trimming a trailing slash and
	// adding "https://" when no scheme is present.
	BaseURL string

	// TokenSource supplies auth tokens; nil means unauthenticated requests.
	TokenSource TokenSource

	// ConnectTimeout bounds connection establishment per attempt.
	// Default 5s.
	ConnectTimeout time.Duration

	// ReceiveTimeout bounds a full attempt from dispatch to last body byte.
	// Default 10s.
	ReceiveTimeout time.Duration

	// MaxRetries is the maximum number of retries per request. Default 3.
	MaxRetries int

	// RetryBaseDelay is the base delay for linear backoff: the n-th retry
	// waits n times this value. Default 2s.
	RetryBaseDelay time.Duration

	// DefaultCachePolicy applies to calls without an explicit policy.
	// Default: Request mode, 5m staleness bound, normal priority.
	DefaultCachePolicy *CachePolicy

	// Cache overrides CacheConfig with a pre-built store shared across
	// clients.
	Cache Cache

	// CacheConfig selects the cache backend when Cache is nil.
	CacheConfig *CacheConfig

	// Monitor is a shared connectivity monitor. When nil, the client builds
	// one probing BaseURL and owns its lifecycle.
	Monitor ConnectivityMonitor

	// ProbeInterval is how often the owned monitor probes. Default 30s.
	ProbeInterval time.Duration

	// OnSessionInvalidated is invoked at most once per failing session when
	// the server answers 401, so the auth layer can react. Re-armed via
	// Client.ResetSession.
	OnSessionInvalidated func()

	// UserAgent overrides the default User-Agent header.
	UserAgent string

	// Logger is the optional structured logger.
	Logger Logger
}
