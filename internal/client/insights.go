package client

import (
	"context"
	"fmt"
	"net/url"

	"github.com/introspect-io/insights-client/pkg/insights"
)

const insightsBasePath = "/v1/insights"

// InsightsClient implements insights.InsightsClient.
type InsightsClient struct {
	client *Client
}

// NewInsightsClient creates a typed client for insight resources.
func NewInsightsClient(client *Client) *InsightsClient {
	return &InsightsClient{client: client}
}

// List implements insights.InsightsClient.List.
func (c *InsightsClient) List(ctx context.Context, query url.Values) (*insights.InsightList, error) {
	resp, err := c.client.Get(ctx, insightsBasePath, insights.WithQuery(query))
	if err != nil {
		return nil, fmt.Errorf("listing insights: %w", err)
	}

	var list insights.InsightList

	err = resp.JSON(&list)
	if err != nil {
		return nil, fmt.Errorf("parsing insights list response: %w", err)
	}

	return &list, nil
}

// Get implements insights.InsightsClient.Get.
func (c *InsightsClient) Get(ctx context.Context, id string) (*insights.Insight, error) {
	resp, err := c.client.Get(ctx, insightsBasePath+"/"+id)
	if err != nil {
		return nil, fmt.Errorf("getting insight %s: %w", id, err)
	}

	var insight insights.Insight

	err = resp.JSON(&insight)
	if err != nil {
		return nil, fmt.Errorf("parsing insight response: %w", err)
	}

	return &insight, nil
}

// Create implements insights.InsightsClient.Create.
func (c *InsightsClient) Create(ctx context.Context, request *insights.InsightCreateRequest) (*insights.Insight, error) {
	resp, err := c.client.Post(ctx, insightsBasePath, request)
	if err != nil {
		return nil, fmt.Errorf("creating insight: %w", err)
	}

	var insight insights.Insight

	err = resp.JSON(&insight)
	if err != nil {
		return nil, fmt.Errorf("parsing insight response: %w", err)
	}

	return &insight, nil
}

// Update implements insights.InsightsClient.Update.
func (c *InsightsClient) Update(ctx context.Context, id string, request *insights.InsightUpdateRequest) (*insights.Insight, error) {
	resp, err := c.client.Put(ctx, insightsBasePath+"/"+id, request)
	if err != nil {
		return nil, fmt.Errorf("updating insight %s: %w", id, err)
	}

	var insight insights.Insight

	err = resp.JSON(&insight)
	if err != nil {
		return nil, fmt.Errorf("parsing insight response: %w", err)
	}

	return &insight, nil
}

// Delete implements insights.InsightsClient.Delete.
func (c *InsightsClient) Delete(ctx context.Context, id string) error {
	_, err := c.client.Delete(ctx, insightsBasePath+"/"+id)
	if err != nil {
		return fmt.Errorf("deleting insight %s: %w", id, err)
	}

	return nil
}
