package insights

import (
	"context"
	"net/url"
)

// Client is the main interface for interacting with the Insights API.
type Client interface {
	// Get performs a GET request. Caching and retries follow the call's
	// cache policy and the client's retry configuration.
	Get(ctx context.Context, path string, opts ...RequestOption) (*Response, error)

	// Post performs a POST request. body may be nil, a []byte, an
	// io.Reader, or any JSON-marshalable value.
	Post(ctx context.Context, path string, body any, opts ...RequestOption) (*Response, error)

	// Put performs a PUT request.
	Put(ctx context.Context, path string, body any, opts ...RequestOption) (*Response, error)

	// Delete performs a DELETE request.
	Delete(ctx context.Context, path string, opts ...RequestOption) (*Response, error)

	// Invalidate removes all cached responses for the given path prefix.
	// Invalidating a prefix with no entries is not an error.
	Invalidate(ctx context.Context, prefix string) error

	// ClearAll empties the cache store.
	ClearAll(ctx context.Context) error

	// ResetSession re-arms the one-shot session invalidation signal after
	// the auth layer has obtained fresh credentials.
	ResetSession()

	// Insights returns the typed client for insight resources.
	Insights() InsightsClient

	// Relationships returns the typed client for relationship resources.
	Relationships() RelationshipsClient

	// Close releases resources owned by the client, such as the
	// connectivity monitor it constructed.
	Close() error
}

// InsightsClient provides operations on insight resources.
type InsightsClient interface {
	List(ctx context.Context, query url.Values) (*InsightList, error)
	Get(ctx context.Context, id string) (*Insight, error)
	Create(ctx context.Context, request *InsightCreateRequest) (*Insight, error)
	Update(ctx context.Context, id string, request *InsightUpdateRequest) (*Insight, error)
	Delete(ctx context.Context, id string) error
}

// RelationshipsClient provides operations on relationship resources.
type RelationshipsClient interface {
	List(ctx context.Context, query url.Values) (*RelationshipList, error)
	Get(ctx context.Context, id string) (*Relationship, error)
	Create(ctx context.Context, request *RelationshipCreateRequest) (*Relationship, error)
	Delete(ctx context.Context, id string) error
}

// RequestOptions collects per-call settings.
type RequestOptions struct {
	Query  url.Values
	Header map[string]string
	Policy *CachePolicy
}

// RequestOption configures a single request.
type RequestOption func(*RequestOptions)

// NewRequestOptions applies the given options to a fresh RequestOptions.
func NewRequestOptions(opts ...RequestOption) *RequestOptions {
	options := &RequestOptions{}
	for _, opt := range opts {
		opt(options)
	}

	return options
}

// WithQuery sets the full query string for the request.
func WithQuery(query url.Values) RequestOption {
	return func(o *RequestOptions) {
		o.Query = query
	}
}

// WithQueryParam adds a single query parameter.
func WithQueryParam(key, value string) RequestOption {
	return func(o *RequestOptions) {
		if o.Query == nil {
			o.Query = url.Values{}
		}

		o.Query.Add(key, value)
	}
}

// WithHeader adds a header to the request.
func WithHeader(key, value string) RequestOption {
	return func(o *RequestOptions) {
		if o.Header == nil {
			o.Header = make(map[string]string)
		}

		o.Header[key] = value
	}
}

// WithCachePolicy overrides the client's default cache policy for this call.
func WithCachePolicy(policy CachePolicy) RequestOption {
	return func(o *RequestOptions) {
		o.Policy = &policy
	}
}

// WithCacheMode overrides only the cache mode, keeping the client's default
// staleness bound and priority.
func WithCacheMode(mode CacheMode) RequestOption {
	return func(o *RequestOptions) {
		if o.Policy == nil {
			policy := DefaultCachePolicy()
			o.Policy = &policy
		}

		o.Policy.Mode = mode
	}
}

// WithIdempotencyKey marks an unsafe request as safely retryable by
// attaching an Idempotency-Key header.
func WithIdempotencyKey(key string) RequestOption {
	return WithHeader("Idempotency-Key", key)
}
