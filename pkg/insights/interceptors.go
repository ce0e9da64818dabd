package insights

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
)

// Request represents an API request flowing through the pipeline. It is
// transport-agnostic: interceptors and the dispatcher see this shape rather
// than *http.Request.
type Request struct {
	Method     string
	Path       string
	Query      url.Values
	Header     http.Header
	Body       []byte
	Policy     CachePolicy
	RetryCount int
}

// Clone returns a deep copy of the request. The pipeline clones before each
// dispatch so interceptors on one attempt never leak into the next.
func (r *Request) Clone() *Request {
	clone := *r

	if r.Query != nil {
		clone.Query = make(url.Values, len(r.Query))
		for key, values := range r.Query {
			clone.Query[key] = append([]string(nil), values...)
		}
	}

	if r.Header != nil {
		clone.Header = r.Header.Clone()
	}

	if r.Body != nil {
		clone.Body = append([]byte(nil), r.Body...)
	}

	return &clone
}

// HasIdempotencyKey reports whether the caller supplied an Idempotency-Key
// header, which makes otherwise unsafe methods eligible for retry.
func (r *Request) HasIdempotencyKey() bool {
	return r.Header.Get("Idempotency-Key") != ""
}

// Response represents an API response. FromCache marks responses served
// from the cache store rather than the network.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	FromCache  bool
}

// JSON unmarshals the response body into v.
func (r *Response) JSON(v any) error {
	if len(r.Body) == 0 {
		return errors.New("empty response body")
	}

	err := json.Unmarshal(r.Body, v)
	if err != nil {
		return fmt.Errorf("failed to decode response body: %w", err)
	}

	return nil
}

// RequestInterceptor is called before a request is dispatched.
type RequestInterceptor func(ctx context.Context, req *Request) error

// ResponseInterceptor is called after a response is received.
type ResponseInterceptor func(ctx context.Context, req *Request, resp *Response) error

// InterceptorChain manages a chain of interceptors.
type InterceptorChain struct {
	requestInterceptors  []RequestInterceptor
	responseInterceptors []ResponseInterceptor
}

// NewInterceptorChain creates a new interceptor chain.
func NewInterceptorChain() *InterceptorChain {
	return &InterceptorChain{
		requestInterceptors:  make([]RequestInterceptor, 0),
		responseInterceptors: make([]ResponseInterceptor, 0),
	}
}

// AddRequestInterceptor adds a request interceptor to the chain.
func (c *InterceptorChain) AddRequestInterceptor(interceptor RequestInterceptor) {
	c.requestInterceptors = append(c.requestInterceptors, interceptor)
}

// AddResponseInterceptor adds a response interceptor to the chain.
func (c *InterceptorChain) AddResponseInterceptor(interceptor ResponseInterceptor) {
	c.responseInterceptors = append(c.responseInterceptors, interceptor)
}

// ExecuteRequestInterceptors runs all request interceptors.
func (c *InterceptorChain) ExecuteRequestInterceptors(ctx context.Context, req *Request) error {
	for _, interceptor := range c.requestInterceptors {
		err := interceptor(ctx, req)
		if err != nil {
			return fmt.Errorf("request interceptor failed: %w", err)
		}
	}

	return nil
}

// ExecuteResponseInterceptors runs all response interceptors.
func (c *InterceptorChain) ExecuteResponseInterceptors(ctx context.Context, req *Request, resp *Response) error {
	for _, interceptor := range c.responseInterceptors {
		err := interceptor(ctx, req, resp)
		if err != nil {
			return fmt.Errorf("response interceptor failed: %w", err)
		}
	}

	return nil
}

// Common Interceptors

// AuthInterceptor attaches a Bearer token from the source. The source is
// consulted on every attempt so refreshed tokens take effect on retries.
// An empty token leaves the request unauthenticated.
func AuthInterceptor(source TokenSource) RequestInterceptor {
	return func(ctx context.Context, req *Request) error {
		token, err := source.Token(ctx)
		if err != nil {
			return fmt.Errorf("failed to get authentication token: %w", err)
		}

		if token == "" {
			return nil
		}

		if req.Header == nil {
			req.Header = make(http.Header)
		}

		req.Header.Set("Authorization", "Bearer "+token)

		return nil
	}
}

// LoggingInterceptor logs outgoing requests.
func LoggingInterceptor(logger Logger) RequestInterceptor {
	return func(ctx context.Context, req *Request) error {
		logger.Debug("API Request", map[string]interface{}{
			"method":  req.Method,
			"path":    req.Path,
			"attempt": req.RetryCount + 1,
		})

		return nil
	}
}

// LoggingResponseInterceptor logs responses.
func LoggingResponseInterceptor(logger Logger) ResponseInterceptor {
	return func(ctx context.Context, req *Request, resp *Response) error {
		fields := map[string]interface{}{
			"method":      req.Method,
			"path":        req.Path,
			"status_code": resp.StatusCode,
		}

		if resp.StatusCode >= http.StatusBadRequest {
			logger.Warn("API Response Error", fields)
		} else {
			logger.Debug("API Response", fields)
		}

		return nil
	}
}

// HeaderInterceptor adds custom headers to requests.
func HeaderInterceptor(headers map[string]string) RequestInterceptor {
	return func(ctx context.Context, req *Request) error {
		if req.Header == nil {
			req.Header = make(http.Header)
		}

		for key, value := range headers {
			req.Header.Set(key, value)
		}

		return nil
	}
}

// ConditionalRequestInterceptor turns cacheable GETs into conditional
// requests: when the store holds an entry with an ETag for the request's
// key, an If-None-Match header is attached so the server can answer 304.
func ConditionalRequestInterceptor(cache Cache) RequestInterceptor {
	return func(ctx context.Context, req *Request) error {
		if req.Method != http.MethodGet || !req.Policy.Mode.WritesCache() {
			return nil
		}

		key := req.Policy.Key(req.Method, req.Path, req.Query)
		if key == "" {
			return nil
		}

		entry, err := cache.Get(ctx, key)
		if err != nil || entry.ETag == "" {
			return nil
		}

		if req.Header == nil {
			req.Header = make(http.Header)
		}

		req.Header.Set("If-None-Match", entry.ETag)

		return nil
	}
}
