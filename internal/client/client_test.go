package client_test

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/introspect-io/insights-client/internal/client"
	"github.com/introspect-io/insights-client/internal/pipeline"
	"github.com/introspect-io/insights-client/pkg/insights"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingTransport replays canned responses and records every dispatched
// request.
type recordingTransport struct {
	mu       sync.Mutex
	requests []*insights.Request
	handler  func(req *insights.Request) (*insights.Response, error)
}

func (t *recordingTransport) Do(_ context.Context, req *insights.Request) (*insights.Response, error) {
	t.mu.Lock()
	t.requests = append(t.requests, req.Clone())
	t.mu.Unlock()

	return t.handler(req)
}

func (t *recordingTransport) count() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return len(t.requests)
}

func (t *recordingTransport) last() *insights.Request {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.requests[len(t.requests)-1]
}

func jsonResponse(statusCode int, v any) (*insights.Response, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}

	return &insights.Response{
		StatusCode: statusCode,
		Header:     http.Header{},
		Body:       body,
	}, nil
}

func newTestClient(t *testing.T, handler func(req *insights.Request) (*insights.Response, error)) (insights.Client, *recordingTransport, *insights.MemoryCache) {
	t.Helper()

	transport := &recordingTransport{handler: handler}
	cache := insights.NewMemoryCache(64)

	requestPipeline := pipeline.New(pipeline.Options{
		Transport:      transport,
		Cache:          cache,
		RetryBaseDelay: time.Millisecond,
	})

	apiClient := client.New(client.Options{
		Pipeline:      requestPipeline,
		Cache:         cache,
		DefaultPolicy: insights.DefaultCachePolicy(),
	})

	return apiClient, transport, cache
}

func TestClient_GetUsesCacheOnRepeat(t *testing.T) {
	t.Parallel()

	apiClient, transport, _ := newTestClient(t, func(req *insights.Request) (*insights.Response, error) {
		return jsonResponse(http.StatusOK, map[string]string{"id": "42"})
	})

	ctx := context.Background()

	first, err := apiClient.Get(ctx, "/v1/insights/42")
	require.NoError(t, err)
	assert.False(t, first.FromCache)

	second, err := apiClient.Get(ctx, "/v1/insights/42")
	require.NoError(t, err)
	assert.True(t, second.FromCache)
	assert.Equal(t, 1, transport.count())
}

func TestClient_MutationInvalidatesCachedReads(t *testing.T) {
	t.Parallel()

	apiClient, transport, _ := newTestClient(t, func(req *insights.Request) (*insights.Response, error) {
		return jsonResponse(http.StatusOK, map[string]string{"id": "42"})
	})

	ctx := context.Background()

	_, err := apiClient.Get(ctx, "/v1/insights")
	require.NoError(t, err)
	_, err = apiClient.Get(ctx, "/v1/insights/42")
	require.NoError(t, err)

	// Updating one insight invalidates both the item and its collection.
	_, err = apiClient.Put(ctx, "/v1/insights/42", map[string]string{"title": "new"})
	require.NoError(t, err)

	_, err = apiClient.Get(ctx, "/v1/insights")
	require.NoError(t, err)
	_, err = apiClient.Get(ctx, "/v1/insights/42")
	require.NoError(t, err)

	assert.Equal(t, 5, transport.count(), "both reads dispatch again after the mutation")
}

func TestClient_PostInvalidatesCollection(t *testing.T) {
	t.Parallel()

	apiClient, transport, _ := newTestClient(t, func(req *insights.Request) (*insights.Response, error) {
		return jsonResponse(http.StatusCreated, map[string]string{"id": "43"})
	})

	ctx := context.Background()

	_, err := apiClient.Get(ctx, "/v1/insights")
	require.NoError(t, err)

	_, err = apiClient.Post(ctx, "/v1/insights", map[string]string{"title": "t"})
	require.NoError(t, err)

	_, err = apiClient.Get(ctx, "/v1/insights")
	require.NoError(t, err)

	assert.Equal(t, 3, transport.count(), "collection read dispatches again after create")
}

func TestClient_FailedMutationKeepsCache(t *testing.T) {
	t.Parallel()

	var mutated bool

	apiClient, transport, _ := newTestClient(t, func(req *insights.Request) (*insights.Response, error) {
		if req.Method == http.MethodPut {
			mutated = true

			return &insights.Response{StatusCode: http.StatusConflict, Header: http.Header{}}, nil
		}

		return jsonResponse(http.StatusOK, map[string]string{"id": "42"})
	})

	ctx := context.Background()

	_, err := apiClient.Get(ctx, "/v1/insights/42")
	require.NoError(t, err)

	_, err = apiClient.Put(ctx, "/v1/insights/42", map[string]string{"title": "x"})
	require.Error(t, err)
	require.True(t, mutated)

	resp, err := apiClient.Get(ctx, "/v1/insights/42")
	require.NoError(t, err)
	assert.True(t, resp.FromCache, "failed mutations leave cached reads alone")
	assert.Equal(t, 2, transport.count())
}

func TestClient_RequestOptions(t *testing.T) {
	t.Parallel()

	apiClient, transport, _ := newTestClient(t, func(req *insights.Request) (*insights.Response, error) {
		return jsonResponse(http.StatusOK, map[string]string{})
	})

	ctx := context.Background()

	_, err := apiClient.Get(ctx, "/v1/insights",
		insights.WithQueryParam("tag", "go"),
		insights.WithHeader("X-Request-Source", "test"),
		insights.WithCachePolicy(insights.NoCachePolicy()),
	)
	require.NoError(t, err)

	dispatched := transport.last()
	assert.Equal(t, "go", dispatched.Query.Get("tag"))
	assert.Equal(t, "test", dispatched.Header.Get("X-Request-Source"))

	_, err = apiClient.Post(ctx, "/v1/insights", nil, insights.WithIdempotencyKey("key-9"))
	require.NoError(t, err)
	assert.Equal(t, "key-9", transport.last().Header.Get("Idempotency-Key"))
}

func TestClient_BodyEncoding(t *testing.T) {
	t.Parallel()

	apiClient, transport, _ := newTestClient(t, func(req *insights.Request) (*insights.Response, error) {
		return jsonResponse(http.StatusCreated, map[string]string{})
	})

	ctx := context.Background()

	t.Run("struct is marshaled", func(t *testing.T) {
		_, err := apiClient.Post(ctx, "/v1/insights", &insights.InsightCreateRequest{Title: "t"})
		require.NoError(t, err)
		assert.JSONEq(t, `{"title":"t","body":""}`, string(transport.last().Body))
	})

	t.Run("raw bytes pass through", func(t *testing.T) {
		_, err := apiClient.Post(ctx, "/v1/insights", []byte(`{"raw":true}`))
		require.NoError(t, err)
		assert.Equal(t, `{"raw":true}`, string(transport.last().Body))
	})
}

func TestClient_InvalidateAndClear(t *testing.T) {
	t.Parallel()

	apiClient, _, cache := newTestClient(t, func(req *insights.Request) (*insights.Response, error) {
		return jsonResponse(http.StatusOK, map[string]string{})
	})

	ctx := context.Background()

	_, err := apiClient.Get(ctx, "/v1/insights")
	require.NoError(t, err)
	_, err = apiClient.Get(ctx, "/v1/relationships")
	require.NoError(t, err)
	require.Equal(t, 2, cache.Len())

	require.NoError(t, apiClient.Invalidate(ctx, "/v1/insights"))
	assert.Equal(t, 1, cache.Len())

	// Invalidating an empty prefix again is idempotent.
	require.NoError(t, apiClient.Invalidate(ctx, "/v1/insights"))

	require.NoError(t, apiClient.ClearAll(ctx))
	assert.Equal(t, 0, cache.Len())
}

func TestInsightsClient_CRUD(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC().Truncate(time.Second)

	apiClient, transport, _ := newTestClient(t, func(req *insights.Request) (*insights.Response, error) {
		switch {
		case req.Method == http.MethodGet && req.Path == "/v1/insights":
			return jsonResponse(http.StatusOK, insights.InsightList{
				TotalResults: 1,
				Resources:    []insights.Insight{{ID: "42", Title: "t", CreatedAt: now}},
			})
		case req.Method == http.MethodPost && req.Path == "/v1/insights":
			return jsonResponse(http.StatusCreated, insights.Insight{ID: "43", Title: "created"})
		case req.Method == http.MethodGet && req.Path == "/v1/insights/42":
			return jsonResponse(http.StatusOK, insights.Insight{ID: "42", Title: "t"})
		case req.Method == http.MethodDelete:
			return &insights.Response{StatusCode: http.StatusNoContent, Header: http.Header{}}, nil
		default:
			return &insights.Response{StatusCode: http.StatusNotFound, Header: http.Header{}}, nil
		}
	})

	ctx := context.Background()

	list, err := apiClient.Insights().List(ctx, nil)
	require.NoError(t, err)
	require.Len(t, list.Resources, 1)
	assert.Equal(t, "42", list.Resources[0].ID)

	created, err := apiClient.Insights().Create(ctx, &insights.InsightCreateRequest{Title: "created"})
	require.NoError(t, err)
	assert.Equal(t, "43", created.ID)

	got, err := apiClient.Insights().Get(ctx, "42")
	require.NoError(t, err)
	assert.Equal(t, "t", got.Title)

	require.NoError(t, apiClient.Insights().Delete(ctx, "42"))
	assert.Equal(t, http.MethodDelete, transport.last().Method)
	assert.Equal(t, "/v1/insights/42", transport.last().Path)
}

func TestInsightsClient_NotFound(t *testing.T) {
	t.Parallel()

	apiClient, _, _ := newTestClient(t, func(req *insights.Request) (*insights.Response, error) {
		return &insights.Response{StatusCode: http.StatusNotFound, Header: http.Header{}}, nil
	})

	_, err := apiClient.Insights().Get(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, insights.IsNotFound(err))
}

func TestRelationshipsClient(t *testing.T) {
	t.Parallel()

	apiClient, transport, _ := newTestClient(t, func(req *insights.Request) (*insights.Response, error) {
		switch req.Method {
		case http.MethodPost:
			return jsonResponse(http.StatusCreated, insights.Relationship{ID: "r1", SourceID: "a", TargetID: "b", Kind: "supports"})
		case http.MethodGet:
			return jsonResponse(http.StatusOK, insights.RelationshipList{
				TotalResults: 1,
				Resources:    []insights.Relationship{{ID: "r1"}},
			})
		default:
			return &insights.Response{StatusCode: http.StatusNoContent, Header: http.Header{}}, nil
		}
	})

	ctx := context.Background()

	created, err := apiClient.Relationships().Create(ctx, &insights.RelationshipCreateRequest{
		SourceID: "a",
		TargetID: "b",
		Kind:     "supports",
	})
	require.NoError(t, err)
	assert.Equal(t, "r1", created.ID)

	list, err := apiClient.Relationships().List(ctx, nil)
	require.NoError(t, err)
	require.Len(t, list.Resources, 1)

	require.NoError(t, apiClient.Relationships().Delete(ctx, "r1"))
	assert.Equal(t, "/v1/relationships/r1", transport.last().Path)
}
