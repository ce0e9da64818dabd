package insights

import "time"

// Insight represents a single insight note.
type Insight struct {
	ID        string    `json:"id" yaml:"id"`
	Title     string    `json:"title" yaml:"title"`
	Body      string    `json:"body" yaml:"body"`
	Tags      []string  `json:"tags,omitempty" yaml:"tags,omitempty"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at"`
}

// InsightCreateRequest is the payload for creating an insight.
type InsightCreateRequest struct {
	Title string   `json:"title" yaml:"title"`
	Body  string   `json:"body" yaml:"body"`
	Tags  []string `json:"tags,omitempty" yaml:"tags,omitempty"`
}

// InsightUpdateRequest is the payload for updating an insight. Nil fields
// are left unchanged by the server.
type InsightUpdateRequest struct {
	Title *string  `json:"title,omitempty" yaml:"title,omitempty"`
	Body  *string  `json:"body,omitempty" yaml:"body,omitempty"`
	Tags  []string `json:"tags,omitempty" yaml:"tags,omitempty"`
}

// Relationship links two insights with a typed edge.
type Relationship struct {
	ID        string    `json:"id" yaml:"id"`
	SourceID  string    `json:"source_id" yaml:"source_id"`
	TargetID  string    `json:"target_id" yaml:"target_id"`
	Kind      string    `json:"kind" yaml:"kind"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}

// RelationshipCreateRequest is the payload for creating a relationship.
type RelationshipCreateRequest struct {
	SourceID string `json:"source_id" yaml:"source_id"`
	TargetID string `json:"target_id" yaml:"target_id"`
	Kind     string `json:"kind" yaml:"kind"`
}

// ListResponse is the envelope the API uses for collection endpoints.
type ListResponse[T any] struct {
	TotalResults int `json:"total_results" yaml:"total_results"`
	Resources    []T `json:"resources" yaml:"resources"`
}

// InsightList is a paginated list of insights.
type InsightList = ListResponse[Insight]

// RelationshipList is a paginated list of relationships.
type RelationshipList = ListResponse[Relationship]
