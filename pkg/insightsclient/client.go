// Package insightsclient provides the main entry point for creating
// Insights API clients.
package insightsclient

import (
	"context"
	"fmt"
	"strings"

	"github.com/introspect-io/insights-client/internal/client"
	"github.com/introspect-io/insights-client/internal/connectivity"
	"github.com/introspect-io/insights-client/internal/constants"
	"github.com/introspect-io/insights-client/internal/pipeline"
	"github.com/introspect-io/insights-client/internal/transport"
	"github.com/introspect-io/insights-client/pkg/insights"
)

// New creates a new Insights API client from the given configuration. It
// wires the cache store, connectivity monitor, interceptor chain, and
// request pipeline together; the caller only has to fill in the parts it
// wants to override.
func New(ctx context.Context, config *insights.Config) (insights.Client, error) {
	if config == nil {
		return nil, insights.ErrConfigRequired
	}

	if config.BaseURL == "" {
		return nil, insights.ErrBaseURLRequired
	}

	baseURL := normalizeBaseURL(config.BaseURL)
	logger := config.Logger

	if logger == nil {
		logger = insights.NopLogger{}
	}

	cache, err := buildCache(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create cache: %w", err)
	}

	monitor, ownsMonitor := buildMonitor(ctx, config, baseURL, logger)

	chain := buildChain(config, cache, logger)

	httpTransport := transport.New(baseURL, transportOptions(config, logger)...)

	requestPipeline := pipeline.New(pipeline.Options{
		Transport:            httpTransport,
		Cache:                cache,
		Monitor:              monitor,
		Chain:                chain,
		Logger:               logger,
		MaxRetries:           config.MaxRetries,
		RetryBaseDelay:       config.RetryBaseDelay,
		OnSessionInvalidated: config.OnSessionInvalidated,
	})

	defaultPolicy := insights.DefaultCachePolicy()
	if config.DefaultCachePolicy != nil {
		defaultPolicy = *config.DefaultCachePolicy
	}

	return client.New(client.Options{
		Pipeline:      requestPipeline,
		Cache:         cache,
		Monitor:       monitor,
		OwnsMonitor:   ownsMonitor,
		DefaultPolicy: defaultPolicy,
		Logger:        logger,
	}), nil
}

// NewWithEndpoint creates a client for the given endpoint with default
// settings and no authentication.
func NewWithEndpoint(ctx context.Context, endpoint string) (insights.Client, error) {
	return New(ctx, &insights.Config{
		BaseURL: endpoint,
	})
}

// NewWithToken creates a client authenticating with a static token.
func NewWithToken(ctx context.Context, endpoint, token string) (insights.Client, error) {
	return New(ctx, &insights.Config{
		BaseURL:     endpoint,
		TokenSource: insights.StaticTokenSource(token),
	})
}

func normalizeBaseURL(baseURL string) string {
	normalized := strings.TrimSuffix(baseURL, "/")
	if !strings.HasPrefix(normalized, "http://") && !strings.HasPrefix(normalized, "https://") {
		normalized = "https://" + normalized
	}

	return normalized
}

func buildCache(config *insights.Config) (insights.Cache, error) {
	if config.Cache != nil {
		return config.Cache, nil
	}

	cacheConfig := config.CacheConfig
	if cacheConfig == nil {
		cacheConfig = insights.DefaultCacheConfig()
	}

	return insights.NewCacheFromConfig(cacheConfig)
}

func buildMonitor(ctx context.Context, config *insights.Config, baseURL string, logger insights.Logger) (insights.ConnectivityMonitor, bool) {
	if config.Monitor != nil {
		return config.Monitor, false
	}

	interval := config.ProbeInterval
	if interval == 0 {
		interval = constants.DefaultProbeInterval
	}

	monitor := connectivity.New(
		connectivity.HTTPProber(baseURL),
		connectivity.WithInterval(interval),
		connectivity.WithLogger(logger),
	)
	monitor.Start(ctx)

	return monitor, true
}

func buildChain(config *insights.Config, cache insights.Cache, logger insights.Logger) *insights.InterceptorChain {
	chain := insights.NewInterceptorChain()

	if config.TokenSource != nil {
		chain.AddRequestInterceptor(insights.AuthInterceptor(config.TokenSource))
	}

	chain.AddRequestInterceptor(insights.ConditionalRequestInterceptor(cache))
	chain.AddRequestInterceptor(insights.LoggingInterceptor(logger))
	chain.AddResponseInterceptor(insights.LoggingResponseInterceptor(logger))

	return chain
}

func transportOptions(config *insights.Config, logger insights.Logger) []transport.Option {
	connectTimeout := config.ConnectTimeout
	if connectTimeout == 0 {
		connectTimeout = constants.DefaultConnectTimeout
	}

	receiveTimeout := config.ReceiveTimeout
	if receiveTimeout == 0 {
		receiveTimeout = constants.DefaultReceiveTimeout
	}

	opts := []transport.Option{
		transport.WithLogger(logger),
		transport.WithTimeouts(connectTimeout, receiveTimeout),
	}

	if config.UserAgent != "" {
		opts = append(opts, transport.WithUserAgent(config.UserAgent))
	}

	return opts
}
