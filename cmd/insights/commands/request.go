package commands

import (
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/introspect-io/insights-client/pkg/insights"
	"github.com/spf13/cobra"
)

// NewRequestCommand creates the raw request command group.
func NewRequestCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "request",
		Short: "Issue raw API requests",
		Long:  "Issue raw HTTP requests against the API, with caching and retries applied.",
	}

	cmd.AddCommand(newRequestSubcommand("get", "Issue a GET request"))
	cmd.AddCommand(newRequestSubcommand("post", "Issue a POST request"))
	cmd.AddCommand(newRequestSubcommand("put", "Issue a PUT request"))
	cmd.AddCommand(newRequestSubcommand("delete", "Issue a DELETE request"))

	return cmd
}

func newRequestSubcommand(method, short string) *cobra.Command {
	var (
		queryParams    []string
		body           string
		cacheMode      string
		maxStale       time.Duration
		idempotencyKey string
	)

	cmd := &cobra.Command{
		Use:   method + " PATH",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := createClient(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = client.Close() }()

			opts, err := requestOptions(queryParams, cacheMode, maxStale, idempotencyKey)
			if err != nil {
				return err
			}

			var resp *insights.Response

			path := args[0]

			switch method {
			case "get":
				resp, err = client.Get(cmd.Context(), path, opts...)
			case "post":
				resp, err = client.Post(cmd.Context(), path, []byte(body), opts...)
			case "put":
				resp, err = client.Put(cmd.Context(), path, []byte(body), opts...)
			case "delete":
				resp, err = client.Delete(cmd.Context(), path, opts...)
			}

			if err != nil {
				return err
			}

			if resp.FromCache {
				fmt.Fprintln(os.Stderr, "(served from cache)")
			}

			fmt.Println(string(resp.Body))

			return nil
		},
	}

	cmd.Flags().StringArrayVarP(&queryParams, "query", "q", nil, "query parameter (key=value, repeatable)")
	cmd.Flags().StringVar(&cacheMode, "cache-mode", "", "cache mode (request, no-cache, force-cache, refresh, refresh-force-cache)")
	cmd.Flags().DurationVar(&maxStale, "max-stale", 0, "staleness bound for cached responses")
	cmd.Flags().StringVar(&idempotencyKey, "idempotency-key", "", "idempotency key making unsafe methods retryable")

	if method == "post" || method == "put" {
		cmd.Flags().StringVarP(&body, "body", "b", "", "request body (JSON)")
	}

	return cmd
}

func requestOptions(queryParams []string, cacheMode string, maxStale time.Duration, idempotencyKey string) ([]insights.RequestOption, error) {
	var opts []insights.RequestOption

	if len(queryParams) > 0 {
		query := url.Values{}

		for _, param := range queryParams {
			key, value, found := cutParam(param)
			if !found {
				return nil, fmt.Errorf("invalid query parameter %q, expected key=value", param)
			}

			query.Add(key, value)
		}

		opts = append(opts, insights.WithQuery(query))
	}

	if cacheMode != "" || maxStale > 0 {
		policy := insights.DefaultCachePolicy()

		if cacheMode != "" {
			policy.Mode = insights.ParseCacheMode(cacheMode)
		}

		if maxStale > 0 {
			policy.MaxStale = maxStale
		}

		opts = append(opts, insights.WithCachePolicy(policy))
	}

	if idempotencyKey != "" {
		opts = append(opts, insights.WithIdempotencyKey(idempotencyKey))
	}

	return opts, nil
}

func cutParam(param string) (string, string, bool) {
	for i := range len(param) {
		if param[i] == '=' {
			return param[:i], param[i+1:], true
		}
	}

	return "", "", false
}
