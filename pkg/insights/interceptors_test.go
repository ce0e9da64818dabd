package insights_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/introspect-io/insights-client/pkg/insights"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInterceptorChain_Order(t *testing.T) {
	t.Parallel()

	chain := insights.NewInterceptorChain()

	var order []string

	chain.AddRequestInterceptor(func(ctx context.Context, req *insights.Request) error {
		order = append(order, "first")

		return nil
	})
	chain.AddRequestInterceptor(func(ctx context.Context, req *insights.Request) error {
		order = append(order, "second")

		return nil
	})

	req := &insights.Request{Method: http.MethodGet, Path: "/v1/insights"}
	require.NoError(t, chain.ExecuteRequestInterceptors(context.Background(), req))
	assert.Equal(t, []string{"first", "second"}, order)
}

func TestInterceptorChain_StopsOnError(t *testing.T) {
	t.Parallel()

	chain := insights.NewInterceptorChain()
	chain.AddRequestInterceptor(func(ctx context.Context, req *insights.Request) error {
		return errors.New("boom")
	})

	var reached bool

	chain.AddRequestInterceptor(func(ctx context.Context, req *insights.Request) error {
		reached = true

		return nil
	})

	err := chain.ExecuteRequestInterceptors(context.Background(), &insights.Request{})
	require.Error(t, err)
	assert.False(t, reached)
}

func TestAuthInterceptor(t *testing.T) {
	t.Parallel()

	t.Run("sets bearer header", func(t *testing.T) {
		t.Parallel()

		interceptor := insights.AuthInterceptor(insights.StaticTokenSource("secret"))
		req := &insights.Request{Method: http.MethodGet, Path: "/v1/insights"}

		require.NoError(t, interceptor(context.Background(), req))
		assert.Equal(t, "Bearer secret", req.Header.Get("Authorization"))
	})

	t.Run("empty token leaves request unauthenticated", func(t *testing.T) {
		t.Parallel()

		interceptor := insights.AuthInterceptor(insights.StaticTokenSource(""))
		req := &insights.Request{Method: http.MethodGet, Path: "/v1/insights"}

		require.NoError(t, interceptor(context.Background(), req))
		assert.Empty(t, req.Header.Get("Authorization"))
	})

	t.Run("source consulted per call", func(t *testing.T) {
		t.Parallel()

		tokens := []string{"one", "two"}
		calls := 0
		source := insights.TokenSourceFunc(func(ctx context.Context) (string, error) {
			token := tokens[calls]
			calls++

			return token, nil
		})

		interceptor := insights.AuthInterceptor(source)

		first := &insights.Request{Method: http.MethodGet}
		second := &insights.Request{Method: http.MethodGet}
		require.NoError(t, interceptor(context.Background(), first))
		require.NoError(t, interceptor(context.Background(), second))

		assert.Equal(t, "Bearer one", first.Header.Get("Authorization"))
		assert.Equal(t, "Bearer two", second.Header.Get("Authorization"))
	})

	t.Run("source error aborts request", func(t *testing.T) {
		t.Parallel()

		source := insights.TokenSourceFunc(func(ctx context.Context) (string, error) {
			return "", errors.New("token endpoint down")
		})

		err := insights.AuthInterceptor(source)(context.Background(), &insights.Request{})
		assert.Error(t, err)
	})
}

func TestHeaderInterceptor(t *testing.T) {
	t.Parallel()

	interceptor := insights.HeaderInterceptor(map[string]string{"X-Request-Source": "cli"})
	req := &insights.Request{Method: http.MethodGet}

	require.NoError(t, interceptor(context.Background(), req))
	assert.Equal(t, "cli", req.Header.Get("X-Request-Source"))
}

func TestConditionalRequestInterceptor(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("attaches if-none-match for cached etag", func(t *testing.T) {
		t.Parallel()

		cache := insights.NewMemoryCache(10)
		policy := insights.DefaultCachePolicy()
		key := policy.Key(http.MethodGet, "/v1/insights/42", nil)

		require.NoError(t, cache.Set(ctx, key, &insights.CacheEntry{
			Key:      key,
			ETag:     `"abc123"`,
			StoredAt: time.Now(),
		}))

		req := &insights.Request{Method: http.MethodGet, Path: "/v1/insights/42", Policy: policy}
		require.NoError(t, insights.ConditionalRequestInterceptor(cache)(ctx, req))
		assert.Equal(t, `"abc123"`, req.Header.Get("If-None-Match"))
	})

	t.Run("no header without cached entry", func(t *testing.T) {
		t.Parallel()

		cache := insights.NewMemoryCache(10)
		req := &insights.Request{Method: http.MethodGet, Path: "/v1/insights/42", Policy: insights.DefaultCachePolicy()}

		require.NoError(t, insights.ConditionalRequestInterceptor(cache)(ctx, req))
		assert.Empty(t, req.Header.Get("If-None-Match"))
	})

	t.Run("skips non-GET requests", func(t *testing.T) {
		t.Parallel()

		cache := insights.NewMemoryCache(10)
		req := &insights.Request{Method: http.MethodPost, Path: "/v1/insights", Policy: insights.DefaultCachePolicy()}

		require.NoError(t, insights.ConditionalRequestInterceptor(cache)(ctx, req))
		assert.Empty(t, req.Header.Get("If-None-Match"))
	})
}

func TestRequest_Clone(t *testing.T) {
	t.Parallel()

	original := &insights.Request{
		Method: http.MethodGet,
		Path:   "/v1/insights",
		Header: http.Header{"X-Test": []string{"a"}},
		Body:   []byte("payload"),
	}

	clone := original.Clone()
	clone.Header.Set("X-Test", "b")
	clone.Body[0] = 'P'

	assert.Equal(t, "a", original.Header.Get("X-Test"))
	assert.Equal(t, byte('p'), original.Body[0])
}
