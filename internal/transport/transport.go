// Package transport performs single HTTP attempts for the request
// pipeline. It does no caching, no retries, and no error classification:
// it turns one insights.Request into one raw insights.Response, returning
// transport failures unclassified so the pipeline can decide what they
// mean.
package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/introspect-io/insights-client/internal/constants"
	"github.com/introspect-io/insights-client/pkg/insights"
)

// Client dispatches single attempts against the API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	userAgent  string
	logger     insights.Logger
	debug      bool
}

// Option configures the transport client.
type Option func(*Client)

// WithLogger sets the logger.
func WithLogger(logger insights.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithDebug enables per-attempt request and response logging.
func WithDebug(debug bool) Option {
	return func(c *Client) {
		c.debug = debug
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(userAgent string) Option {
	return func(c *Client) {
		c.userAgent = userAgent
	}
}

// WithTimeouts sets the connection establishment timeout and the overall
// per-attempt timeout.
func WithTimeouts(connect, receive time.Duration) Option {
	return func(c *Client) {
		dialer := &net.Dialer{Timeout: connect}
		c.httpClient.Transport = &http.Transport{
			DialContext:         dialer.DialContext,
			TLSHandshakeTimeout: connect,
		}
		c.httpClient.Timeout = receive
	}
}

// WithHTTPClient replaces the underlying *http.Client entirely.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// New creates a transport client for the given base URL.
func New(baseURL string, opts ...Option) *Client {
	client := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: constants.DefaultReceiveTimeout,
		},
		userAgent: constants.DefaultUserAgent,
		logger:    insights.NopLogger{},
	}

	for _, opt := range opts {
		opt(client)
	}

	return client
}

// Do performs one attempt. Network and timeout failures come back as the
// raw error from net/http; any status code, including 4xx and 5xx, comes
// back as a Response with a nil error.
func (c *Client) Do(ctx context.Context, req *insights.Request) (*insights.Response, error) {
	fullURL := c.baseURL + req.Path
	if len(req.Query) > 0 {
		fullURL += "?" + req.Query.Encode()
	}

	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, fullURL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", c.userAgent)

	if len(req.Body) > 0 {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	for key, values := range req.Header {
		for _, value := range values {
			httpReq.Header.Add(key, value)
		}
	}

	if c.debug {
		c.logger.Debug("HTTP Request", map[string]interface{}{
			"method": req.Method,
			"url":    fullURL,
		})
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer func() { _ = httpResp.Body.Close() }()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if c.debug {
		c.logger.Debug("HTTP Response", map[string]interface{}{
			"method":      req.Method,
			"url":         fullURL,
			"status_code": httpResp.StatusCode,
			"body_size":   len(respBody),
		})
	}

	return &insights.Response{
		StatusCode: httpResp.StatusCode,
		Header:     httpResp.Header,
		Body:       respBody,
	}, nil
}
