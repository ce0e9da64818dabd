// Package insights provides types, interfaces, and helpers for working with
// the Insights HTTP API.
//
// # Overview
//
// The insights package defines the public surface of the resilient client:
// the Client interface with get/post/put/delete operations, the cache
// abstraction (Cache, CacheEntry, CachePolicy) with memory, NATS KV, and
// Redis backends, the error taxonomy (ClassifiedError, ErrorKind), the
// request/response interceptor primitives, and the ConnectivityMonitor
// interface. A concrete client is constructed by the insightsclient package,
// which wires configuration, transport, caching, connectivity monitoring,
// and the retry pipeline.
//
// Getting a client
//
//	import (
//	  "context"
//	  "log"
//
//	  "github.com/introspect-io/insights-client/pkg/insights"
//	  "github.com/introspect-io/insights-client/pkg/insightsclient"
//	)
//
//	func example() {
//	  ctx := context.Background()
//	  cli, err := insightsclient.New(ctx, &insights.Config{BaseURL: "https://api.example.com"})
//	  if err != nil { log.Fatal(err) }
//	  defer cli.Close()
//
//	  resp, err := cli.Get(ctx, "/v1/insights")
//	  if err != nil { log.Fatal(err) }
//	  _ = resp
//	}
//
// # Cache policies
//
// Every call carries a CachePolicy deciding whether the response cache is
// consulted and written. The Request mode serves fresh cache hits and
// dispatches otherwise; ForceCache also serves stale hits; RefreshForceCache
// serves stale hits while refreshing in the background; Refresh bypasses the
// cache on read but repopulates it; NoCache touches the cache not at all.
// Only GET, HEAD, and OPTIONS responses are ever cached.
//
// # Errors
//
// Every failure surfaced by the client is a *ClassifiedError carrying a
// stable ErrorKind, an optional status code, and the original cause.
// Helpers such as IsNotFound, IsUnauthorized, and IsRetryable make it easy
// to branch on common cases without inspecting transport details.
//
// # Interceptors
//
// Requests pass through an ordered chain of request and response
// interceptors (auth header injection, logging, conditional requests).
// Applications with advanced needs can register their own.
package insights
