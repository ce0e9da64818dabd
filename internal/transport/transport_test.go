package transport_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/introspect-io/insights-client/internal/transport"
	"github.com/introspect-io/insights-client/pkg/insights"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_Do(t *testing.T) {
	t.Parallel()

	t.Run("successful request", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			assert.Equal(t, "/v1/insights", request.URL.Path)
			assert.Equal(t, http.MethodGet, request.Method)
			assert.Equal(t, "application/json", request.Header.Get("Accept"))
			assert.Equal(t, "tag=go", request.URL.RawQuery)
			assert.NotEmpty(t, request.Header.Get("User-Agent"))

			writer.Header().Set("ETag", `"v1"`)
			_, _ = writer.Write([]byte(`{"total_results":0,"resources":[]}`))
		}))
		defer server.Close()

		client := transport.New(server.URL)

		resp, err := client.Do(context.Background(), &insights.Request{
			Method: http.MethodGet,
			Path:   "/v1/insights",
			Query:  url.Values{"tag": []string{"go"}},
		})
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, `"v1"`, resp.Header.Get("ETag"))
		assert.JSONEq(t, `{"total_results":0,"resources":[]}`, string(resp.Body))
		assert.False(t, resp.FromCache)
	})

	t.Run("request body sets content type", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			assert.Equal(t, "application/json", request.Header.Get("Content-Type"))
			writer.WriteHeader(http.StatusCreated)
		}))
		defer server.Close()

		client := transport.New(server.URL)

		resp, err := client.Do(context.Background(), &insights.Request{
			Method: http.MethodPost,
			Path:   "/v1/insights",
			Body:   []byte(`{"title":"t"}`),
		})
		require.NoError(t, err)
		assert.Equal(t, http.StatusCreated, resp.StatusCode)
	})

	t.Run("caller headers are forwarded", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			assert.Equal(t, "Bearer token", request.Header.Get("Authorization"))
			assert.Equal(t, "key-1", request.Header.Get("Idempotency-Key"))
		}))
		defer server.Close()

		client := transport.New(server.URL)

		header := http.Header{}
		header.Set("Authorization", "Bearer token")
		header.Set("Idempotency-Key", "key-1")

		_, err := client.Do(context.Background(), &insights.Request{
			Method: http.MethodPost,
			Path:   "/v1/insights",
			Header: header,
		})
		require.NoError(t, err)
	})

	t.Run("non-2xx status is not a transport error", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			writer.WriteHeader(http.StatusNotFound)
			_, _ = writer.Write([]byte(`{"error":"not found"}`))
		}))
		defer server.Close()

		client := transport.New(server.URL)

		resp, err := client.Do(context.Background(), &insights.Request{
			Method: http.MethodGet,
			Path:   "/v1/insights/missing",
		})
		require.NoError(t, err)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("connection failure returns raw error", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
		server.Close()

		client := transport.New(server.URL)

		_, err := client.Do(context.Background(), &insights.Request{
			Method: http.MethodGet,
			Path:   "/v1/insights",
		})
		require.Error(t, err)
	})

	t.Run("per-attempt timeout", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			time.Sleep(200 * time.Millisecond)
		}))
		defer server.Close()

		client := transport.New(server.URL, transport.WithTimeouts(time.Second, 20*time.Millisecond))

		_, err := client.Do(context.Background(), &insights.Request{
			Method: http.MethodGet,
			Path:   "/v1/insights",
		})
		require.Error(t, err)
	})

	t.Run("custom user agent", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			assert.Equal(t, "custom/2.0", request.Header.Get("User-Agent"))
		}))
		defer server.Close()

		client := transport.New(server.URL, transport.WithUserAgent("custom/2.0"))

		_, err := client.Do(context.Background(), &insights.Request{
			Method: http.MethodGet,
			Path:   "/v1/insights",
		})
		require.NoError(t, err)
	})
}
