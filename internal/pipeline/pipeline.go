// Package pipeline owns the request lifecycle: cache lookup, dispatch
// through the interceptor chain, error classification, retry scheduling,
// and cache population. The retry loop lives here, in one place, rather
// than being spread across transport wrappers.
package pipeline

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/introspect-io/insights-client/internal/constants"
	"github.com/introspect-io/insights-client/pkg/insights"
)

// Transport performs a single network attempt.
type Transport interface {
	Do(ctx context.Context, req *insights.Request) (*insights.Response, error)
}

// Pipeline executes requests according to their cache policy and the
// configured retry budget.
type Pipeline struct {
	transport        Transport
	cache            insights.Cache
	monitor          insights.ConnectivityMonitor
	chain            *insights.InterceptorChain
	logger           insights.Logger
	maxRetries       int
	retryBaseDelay   time.Duration
	rateLimitWaitMin time.Duration
	rateLimitWaitMax time.Duration
	refreshTimeout   time.Duration
	session          *sessionLatch
}

// Options configures a Pipeline.
type Options struct {
	Transport      Transport
	Cache          insights.Cache
	Monitor        insights.ConnectivityMonitor
	Chain          *insights.InterceptorChain
	Logger         insights.Logger
	MaxRetries     int
	RetryBaseDelay time.Duration

	// OnSessionInvalidated fires at most once per session when the server
	// answers 401.
	OnSessionInvalidated func()
}

// New creates a pipeline. Zero-valued options fall back to package
// defaults; a nil cache becomes a no-op store and a nil monitor reports
// always connected.
func New(opts Options) *Pipeline {
	pipeline := &Pipeline{
		transport:        opts.Transport,
		cache:            opts.Cache,
		monitor:          opts.Monitor,
		chain:            opts.Chain,
		logger:           opts.Logger,
		maxRetries:       opts.MaxRetries,
		retryBaseDelay:   opts.RetryBaseDelay,
		rateLimitWaitMin: time.Second,
		rateLimitWaitMax: constants.RateLimitWaitMax,
		refreshTimeout:   constants.BackgroundRefreshTimeout,
		session:          newSessionLatch(opts.OnSessionInvalidated),
	}

	if pipeline.cache == nil {
		pipeline.cache = insights.NewNoOpCache()
	}

	if pipeline.monitor == nil {
		pipeline.monitor = alwaysConnected{}
	}

	if pipeline.chain == nil {
		pipeline.chain = insights.NewInterceptorChain()
	}

	if pipeline.logger == nil {
		pipeline.logger = insights.NopLogger{}
	}

	if pipeline.maxRetries == 0 {
		pipeline.maxRetries = constants.DefaultMaxRetries
	}

	if pipeline.retryBaseDelay == 0 {
		pipeline.retryBaseDelay = constants.DefaultRetryBaseDelay
	}

	return pipeline
}

// ResetSession re-arms the one-shot session invalidation signal.
func (p *Pipeline) ResetSession() {
	p.session.reset()
}

// Execute runs a request to completion: serve from cache when the policy
// allows it, otherwise dispatch with retries and store a successful result
// back into the cache.
func (p *Pipeline) Execute(ctx context.Context, req *insights.Request) (*insights.Response, error) {
	key := req.Policy.Key(req.Method, req.Path, req.Query)

	if key != "" && req.Policy.Mode.ReadsCache() {
		resp, served := p.serveFromCache(ctx, req, key)
		if served {
			return resp, nil
		}
	}

	resp, err := p.run(ctx, req)
	if err != nil {
		// A cancelled call resolves as cancelled; a stale entry is not an
		// answer the caller is still waiting for.
		if key != "" && req.Policy.Mode.ServesStale() && !insights.IsCancelled(err) {
			if stale, ok := p.staleEntry(ctx, key); ok {
				p.logger.Debug("serving stale cache entry after failure", map[string]interface{}{
					"key": key,
				})

				return cachedResponse(stale), nil
			}
		}

		return nil, err
	}

	p.store(ctx, req, key, resp)

	return resp, nil
}

// serveFromCache reports whether the cached entry satisfies the request
// under its policy. A stale hit under RefreshForceCache is served
// immediately and refreshed in the background.
func (p *Pipeline) serveFromCache(ctx context.Context, req *insights.Request, key string) (*insights.Response, bool) {
	entry, err := p.cache.Get(ctx, key)
	if err != nil {
		return nil, false
	}

	if !entry.IsStale(req.Policy.MaxStale) {
		return cachedResponse(entry), true
	}

	if req.Policy.Mode == insights.ModeRefreshForceCache {
		p.refreshInBackground(ctx, req, key)

		return cachedResponse(entry), true
	}

	if req.Policy.Mode == insights.ModeForceCache {
		// Stale under ForceCache still goes to the network first; the
		// entry is the fallback when that fails.
		return nil, false
	}

	return nil, false
}

// refreshInBackground dispatches a single revalidation attempt detached
// from the caller's deadline.
func (p *Pipeline) refreshInBackground(ctx context.Context, req *insights.Request, key string) {
	refreshReq := req.Clone()
	refreshReq.RetryCount = 0

	go func() {
		refreshCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.refreshTimeout)
		defer cancel()

		resp, err := p.dispatch(refreshCtx, refreshReq)
		if err != nil || resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
			p.logger.Debug("background cache refresh failed", map[string]interface{}{
				"key": key,
			})

			return
		}

		p.store(refreshCtx, refreshReq, key, resp)
	}()
}

// run is the retry loop. Each iteration performs one attempt; the
// classification of the outcome decides whether another is scheduled.
func (p *Pipeline) run(ctx context.Context, req *insights.Request) (*insights.Response, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, insights.Classify(req.Method, req.HasIdempotencyKey(), 0, err)
		}

		resp, err := p.dispatch(ctx, req)
		if err == nil && resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices {
			return resp, nil
		}

		if err == nil && resp.StatusCode == http.StatusNotModified {
			if revalidated, ok := p.revalidate(ctx, req, resp); ok {
				return revalidated, nil
			}
		}

		var statusCode int
		if err == nil {
			statusCode = resp.StatusCode
		}

		classified := insights.Classify(req.Method, req.HasIdempotencyKey(), statusCode, err)

		if classified.Kind == insights.KindUnauthorized {
			p.session.fire()
		}

		if !p.shouldRetry(classified, req.RetryCount) {
			return nil, classified
		}

		req.RetryCount++

		delay := p.backoffDelay(classified, resp, req.RetryCount)

		p.logger.Debug("retrying request", map[string]interface{}{
			"method":  req.Method,
			"path":    req.Path,
			"attempt": req.RetryCount,
			"kind":    string(classified.Kind),
			"delay":   delay.String(),
		})

		select {
		case <-ctx.Done():
			return nil, insights.Classify(req.Method, req.HasIdempotencyKey(), 0, ctx.Err())
		case <-time.After(delay):
		}
	}
}

// dispatch runs one attempt through the interceptor chain. Each attempt
// works on a clone so interceptor mutations never accumulate across
// retries.
func (p *Pipeline) dispatch(ctx context.Context, req *insights.Request) (*insights.Response, error) {
	attempt := req.Clone()

	if err := p.chain.ExecuteRequestInterceptors(ctx, attempt); err != nil {
		return nil, err
	}

	resp, err := p.transport.Do(ctx, attempt)
	if err != nil {
		return nil, err
	}

	if err := p.chain.ExecuteResponseInterceptors(ctx, attempt, resp); err != nil {
		return nil, err
	}

	return resp, nil
}

// revalidate handles a 304 by re-stamping and serving the cached entry.
func (p *Pipeline) revalidate(ctx context.Context, req *insights.Request, resp *insights.Response) (*insights.Response, bool) {
	key := req.Policy.Key(req.Method, req.Path, req.Query)
	if key == "" {
		return nil, false
	}

	entry, err := p.cache.Get(ctx, key)
	if err != nil {
		return nil, false
	}

	entry.StoredAt = time.Now()
	if etag := resp.Header.Get("ETag"); etag != "" {
		entry.ETag = etag
	}

	if err := p.cache.Set(ctx, key, entry); err != nil {
		p.logger.Warn("failed to re-stamp cache entry", map[string]interface{}{
			"key": key,
		})
	}

	return cachedResponse(entry), true
}

func (p *Pipeline) shouldRetry(classified *insights.ClassifiedError, retryCount int) bool {
	if !classified.Retryable || retryCount >= p.maxRetries {
		return false
	}

	if !p.monitor.IsConnected() {
		p.logger.Debug("skipping retry while offline", nil)

		return false
	}

	return true
}

// backoffDelay computes the wait before the given attempt. Rate-limited
// responses honor Retry-After via retryablehttp's backoff; everything else
// backs off linearly.
func (p *Pipeline) backoffDelay(classified *insights.ClassifiedError, resp *insights.Response, attempt int) time.Duration {
	if classified.Kind == insights.KindRateLimited && resp != nil {
		httpResp := &http.Response{
			StatusCode: resp.StatusCode,
			Header:     resp.Header,
		}

		return retryablehttp.DefaultBackoff(p.rateLimitWaitMin, p.rateLimitWaitMax, attempt-1, httpResp)
	}

	return p.retryBaseDelay * time.Duration(attempt)
}

// store writes a successful response into the cache when the policy and
// method allow it.
func (p *Pipeline) store(ctx context.Context, req *insights.Request, key string, resp *insights.Response) {
	if key == "" || !req.Policy.Mode.WritesCache() || resp.FromCache {
		return
	}

	entry := &insights.CacheEntry{
		Key:        key,
		Body:       resp.Body,
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		ETag:       resp.Header.Get("ETag"),
		StoredAt:   time.Now(),
		Priority:   req.Policy.Priority,
		TTL:        req.Policy.MaxStale,
	}

	if err := p.cache.Set(ctx, key, entry); err != nil {
		p.logger.Warn("failed to store cache entry", map[string]interface{}{
			"key": key,
		})
	}
}

// staleEntry fetches whatever the cache holds for the key, regardless of
// age.
func (p *Pipeline) staleEntry(ctx context.Context, key string) (*insights.CacheEntry, bool) {
	entry, err := p.cache.Get(ctx, key)
	if err != nil {
		return nil, false
	}

	return entry, true
}

func cachedResponse(entry *insights.CacheEntry) *insights.Response {
	return &insights.Response{
		StatusCode: entry.StatusCode,
		Header:     entry.Header,
		Body:       entry.Body,
		FromCache:  true,
	}
}

// sessionLatch fires its callback at most once until reset.
type sessionLatch struct {
	fired    atomic.Bool
	callback func()
}

func newSessionLatch(callback func()) *sessionLatch {
	return &sessionLatch{callback: callback}
}

func (l *sessionLatch) fire() {
	if l.callback == nil {
		return
	}

	if l.fired.CompareAndSwap(false, true) {
		l.callback()
	}
}

func (l *sessionLatch) reset() {
	l.fired.Store(false)
}

// alwaysConnected is the monitor used when none is configured.
type alwaysConnected struct{}

func (alwaysConnected) IsConnected() bool    { return true }
func (alwaysConnected) Changes() <-chan bool { return nil }
func (alwaysConnected) Close() error         { return nil }
