package client

import (
	"context"
	"fmt"
	"net/url"

	"github.com/introspect-io/insights-client/pkg/insights"
)

const relationshipsBasePath = "/v1/relationships"

// RelationshipsClient implements insights.RelationshipsClient.
type RelationshipsClient struct {
	client *Client
}

// NewRelationshipsClient creates a typed client for relationship resources.
func NewRelationshipsClient(client *Client) *RelationshipsClient {
	return &RelationshipsClient{client: client}
}

// List implements insights.RelationshipsClient.List.
func (c *RelationshipsClient) List(ctx context.Context, query url.Values) (*insights.RelationshipList, error) {
	resp, err := c.client.Get(ctx, relationshipsBasePath, insights.WithQuery(query))
	if err != nil {
		return nil, fmt.Errorf("listing relationships: %w", err)
	}

	var list insights.RelationshipList

	err = resp.JSON(&list)
	if err != nil {
		return nil, fmt.Errorf("parsing relationships list response: %w", err)
	}

	return &list, nil
}

// Get implements insights.RelationshipsClient.Get.
func (c *RelationshipsClient) Get(ctx context.Context, id string) (*insights.Relationship, error) {
	resp, err := c.client.Get(ctx, relationshipsBasePath+"/"+id)
	if err != nil {
		return nil, fmt.Errorf("getting relationship %s: %w", id, err)
	}

	var relationship insights.Relationship

	err = resp.JSON(&relationship)
	if err != nil {
		return nil, fmt.Errorf("parsing relationship response: %w", err)
	}

	return &relationship, nil
}

// Create implements insights.RelationshipsClient.Create.
func (c *RelationshipsClient) Create(ctx context.Context, request *insights.RelationshipCreateRequest) (*insights.Relationship, error) {
	resp, err := c.client.Post(ctx, relationshipsBasePath, request)
	if err != nil {
		return nil, fmt.Errorf("creating relationship: %w", err)
	}

	var relationship insights.Relationship

	err = resp.JSON(&relationship)
	if err != nil {
		return nil, fmt.Errorf("parsing relationship response: %w", err)
	}

	return &relationship, nil
}

// Delete implements insights.RelationshipsClient.Delete.
func (c *RelationshipsClient) Delete(ctx context.Context, id string) error {
	_, err := c.client.Delete(ctx, relationshipsBasePath+"/"+id)
	if err != nil {
		return fmt.Errorf("deleting relationship %s: %w", id, err)
	}

	return nil
}
