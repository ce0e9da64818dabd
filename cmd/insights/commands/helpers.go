package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/introspect-io/insights-client/pkg/insights"
	"github.com/introspect-io/insights-client/pkg/insightsclient"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Output formats.
const (
	OutputFormatJSON = "json"
	OutputFormatYAML = "yaml"
)

// Common static errors used throughout the commands package.
var (
	ErrAPIEndpointRequired = errors.New("API endpoint is required (use --api or run 'insights login')")
	ErrNotAuthenticated    = errors.New("not authenticated (run 'insights login')")
)

// createClient builds an API client from the resolved configuration.
func createClient(ctx context.Context) (insights.Client, error) {
	endpoint := viper.GetString("api")
	if endpoint == "" {
		return nil, ErrAPIEndpointRequired
	}

	config := &insights.Config{
		BaseURL: endpoint,
		Logger:  newCLILogger(viper.GetBool("verbose")),
		CacheConfig: &insights.CacheConfig{
			Type: insights.CacheType(viper.GetString("cache")),
			NATS: &insights.NATSKVConfig{
				URL:    viper.GetString("nats_url"),
				Bucket: viper.GetString("nats_bucket"),
			},
			Redis: &insights.RedisConfig{
				Addr:     viper.GetString("redis_addr"),
				Password: viper.GetString("redis_password"),
				DB:       viper.GetInt("redis_db"),
			},
		},
	}

	if token := viper.GetString("token"); token != "" {
		config.TokenSource = insights.StaticTokenSource(token)
	}

	client, err := insightsclient.New(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}

	return client, nil
}

// renderStructured prints v as JSON or YAML when the output flag asks for
// it, reporting whether it handled the output.
func renderStructured(v any) (bool, error) {
	switch viper.GetString("output") {
	case OutputFormatJSON:
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")

		return true, encoder.Encode(v)
	case OutputFormatYAML:
		encoder := yaml.NewEncoder(os.Stdout)

		return true, encoder.Encode(v)
	default:
		return false, nil
	}
}
