// Package client implements the insights.Client interface on top of the
// request pipeline. It owns request assembly, cache invalidation on
// mutations, and the typed resource clients.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/introspect-io/insights-client/internal/pipeline"
	"github.com/introspect-io/insights-client/pkg/insights"
)

// Client implements insights.Client.
type Client struct {
	pipeline      *pipeline.Pipeline
	cache         insights.Cache
	monitor       insights.ConnectivityMonitor
	ownsMonitor   bool
	defaultPolicy insights.CachePolicy
	logger        insights.Logger

	insightsClient      insights.InsightsClient
	relationshipsClient insights.RelationshipsClient
}

// Options configures a Client.
type Options struct {
	Pipeline      *pipeline.Pipeline
	Cache         insights.Cache
	Monitor       insights.ConnectivityMonitor
	OwnsMonitor   bool
	DefaultPolicy insights.CachePolicy
	Logger        insights.Logger
}

// New creates a client over an already-assembled pipeline.
func New(opts Options) *Client {
	client := &Client{
		pipeline:      opts.Pipeline,
		cache:         opts.Cache,
		monitor:       opts.Monitor,
		ownsMonitor:   opts.OwnsMonitor,
		defaultPolicy: opts.DefaultPolicy,
		logger:        opts.Logger,
	}

	if client.cache == nil {
		client.cache = insights.NewNoOpCache()
	}

	if client.logger == nil {
		client.logger = insights.NopLogger{}
	}

	client.insightsClient = NewInsightsClient(client)
	client.relationshipsClient = NewRelationshipsClient(client)

	return client
}

// Get implements insights.Client.Get.
func (c *Client) Get(ctx context.Context, path string, opts ...insights.RequestOption) (*insights.Response, error) {
	return c.do(ctx, http.MethodGet, path, nil, opts)
}

// Post implements insights.Client.Post.
func (c *Client) Post(ctx context.Context, path string, body any, opts ...insights.RequestOption) (*insights.Response, error) {
	return c.do(ctx, http.MethodPost, path, body, opts)
}

// Put implements insights.Client.Put.
func (c *Client) Put(ctx context.Context, path string, body any, opts ...insights.RequestOption) (*insights.Response, error) {
	return c.do(ctx, http.MethodPut, path, body, opts)
}

// Delete implements insights.Client.Delete.
func (c *Client) Delete(ctx context.Context, path string, opts ...insights.RequestOption) (*insights.Response, error) {
	return c.do(ctx, http.MethodDelete, path, nil, opts)
}

// Invalidate implements insights.Client.Invalidate. Removing a prefix with
// no cached entries is not an error.
func (c *Client) Invalidate(ctx context.Context, prefix string) error {
	err := c.cache.DeleteByPrefix(ctx, prefix)
	if err != nil {
		return fmt.Errorf("invalidating cache prefix %q: %w", prefix, err)
	}

	return nil
}

// ClearAll implements insights.Client.ClearAll.
func (c *Client) ClearAll(ctx context.Context) error {
	err := c.cache.Clear(ctx)
	if err != nil {
		return fmt.Errorf("clearing cache: %w", err)
	}

	return nil
}

// ResetSession implements insights.Client.ResetSession.
func (c *Client) ResetSession() {
	c.pipeline.ResetSession()
}

// Insights implements insights.Client.Insights.
func (c *Client) Insights() insights.InsightsClient {
	return c.insightsClient
}

// Relationships implements insights.Client.Relationships.
func (c *Client) Relationships() insights.RelationshipsClient {
	return c.relationshipsClient
}

// Close implements insights.Client.Close.
func (c *Client) Close() error {
	if c.ownsMonitor && c.monitor != nil {
		return c.monitor.Close()
	}

	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body any, opts []insights.RequestOption) (*insights.Response, error) {
	options := insights.NewRequestOptions(opts...)

	encoded, err := encodeBody(body)
	if err != nil {
		return nil, err
	}

	policy := c.defaultPolicy
	if options.Policy != nil {
		policy = *options.Policy
	}

	req := &insights.Request{
		Method: method,
		Path:   path,
		Query:  options.Query,
		Header: make(http.Header),
		Body:   encoded,
		Policy: policy,
	}

	for key, value := range options.Header {
		req.Header.Set(key, value)
	}

	resp, err := c.pipeline.Execute(ctx, req)
	if err != nil {
		return nil, err
	}

	if method != http.MethodGet {
		c.invalidateAfterMutation(ctx, method, path)
	}

	return resp, nil
}

// invalidateAfterMutation drops cached reads made stale by a successful
// write. The mutated path itself is always invalidated; PUT and DELETE
// additionally invalidate the parent collection, since POST already targets
// the collection path.
func (c *Client) invalidateAfterMutation(ctx context.Context, method, path string) {
	prefixes := []string{path}

	if method == http.MethodPut || method == http.MethodDelete {
		if parent := parentPath(path); parent != "" {
			prefixes = append(prefixes, parent)
		}
	}

	for _, prefix := range prefixes {
		err := c.cache.DeleteByPrefix(ctx, prefix)
		if err != nil {
			c.logger.Warn("failed to invalidate cache after mutation", map[string]interface{}{
				"method": method,
				"prefix": prefix,
			})
		}
	}
}

func parentPath(path string) string {
	trimmed := strings.TrimSuffix(path, "/")

	idx := strings.LastIndexByte(trimmed, '/')
	if idx <= 0 {
		return ""
	}

	return trimmed[:idx]
}

func encodeBody(body any) ([]byte, error) {
	switch value := body.(type) {
	case nil:
		return nil, nil
	case []byte:
		return value, nil
	case io.Reader:
		data, err := io.ReadAll(value)
		if err != nil {
			return nil, fmt.Errorf("failed to read request body: %w", err)
		}

		return data, nil
	default:
		data, err := json.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}

		return data, nil
	}
}
