package utils

import "encoding/json"

// Search statuses reported by Exa.
const (
	SearchCreated   = "created"
	SearchRunning   = "running"
	SearchCompleted = "completed"
	SearchCanceled  = "canceled"
)

type CreateWebsetInput struct {
	Title string `json:"title" validate:"required"`
}

type SearchEntity struct {
	Type        string `json:"type" validate:"oneof=company person article"`
	Description string `json:"description,omitempty"`
}

type SearchCriterion struct {
	Description string `json:"description" validate:"required"`
}

type SearchExclusion struct {
	Source string `json:"source" validate:"oneof=import webset"`
	ID     string `json:"id" validate:"required"`
}

type CreateSearchInput struct {
	Query    string            `json:"query" validate:"required"`
	Count    int               `json:"count,omitempty" validate:"omitempty,min=1"`
	Entity   *SearchEntity     `json:"entity,omitempty"`
	Criteria []SearchCriterion `json:"criteria,omitempty" validate:"dive"`
	Recall   bool              `json:"recall,omitempty"`
	Behavior string            `json:"behavior,omitempty" validate:"omitempty,oneof=override append"`
	Exclude  []SearchExclusion `json:"exclude,omitempty" validate:"dive"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

type EnrichmentOption struct {
	Label string `json:"label"`
}

type CreateEnrichmentInput struct {
	Description  string             `json:"description" validate:"required"`
	Format       string             `json:"format,omitempty" validate:"omitempty,oneof=text date number options email phone"`
	Options      []EnrichmentOption `json:"options,omitempty"`
	Instructions string             `json:"instructions,omitempty"`
	Metadata     map[string]string  `json:"metadata,omitempty"`
}

type SearchProgress struct {
	Found      int     `json:"found"`
	Analyzed   int     `json:"analyzed"`
	Completion float64 `json:"completion"`
	TimeLeft   *int    `json:"timeLeft"`
}

type ExaSearch struct {
	ID       string          `json:"id"`
	Object   string          `json:"object"`
	Status   string          `json:"status"`
	Query    string          `json:"query"`
	Progress *SearchProgress `json:"progress,omitempty"`
}

// Pending reports whether the search may still produce results.
func (s ExaSearch) Pending() bool {
	return s.Status == SearchCreated || s.Status == SearchRunning
}

type ExaWebset struct {
	ID          string            `json:"id"`
	Object      string            `json:"object"`
	Status      string            `json:"status"`
	Title       string            `json:"title,omitempty"`
	Name        string            `json:"name,omitempty"`
	Searches    []ExaSearch       `json:"searches"`
	Enrichments []json.RawMessage `json:"enrichments"`
	Metadata    map[string]string `json:"metadata"`
	CreatedAt   string            `json:"createdAt"`
	UpdatedAt   string            `json:"updatedAt"`
}

type ItemCompany struct {
	Name      string `json:"name"`
	Location  string `json:"location,omitempty"`
	Employees int    `json:"employees,omitempty"`
	Industry  string `json:"industry,omitempty"`
	About     string `json:"about,omitempty"`
	LogoURL   string `json:"logoUrl,omitempty"`
}

type ItemPersonCompany struct {
	Name     string `json:"name"`
	Location string `json:"location,omitempty"`
}

type ItemPerson struct {
	Name       string             `json:"name"`
	Location   string             `json:"location,omitempty"`
	Position   string             `json:"position,omitempty"`
	Company    *ItemPersonCompany `json:"company,omitempty"`
	PictureURL string             `json:"pictureUrl,omitempty"`
}

type ItemProperties struct {
	Type        string       `json:"type"`
	URL         string       `json:"url"`
	Description string       `json:"description"`
	Content     string       `json:"content,omitempty"`
	Company     *ItemCompany `json:"company,omitempty"`
	Person      *ItemPerson  `json:"person,omitempty"`
}

type ItemEvaluation struct {
	Criterion string `json:"criterion"`
	Reasoning string `json:"reasoning"`
	Satisfied string `json:"satisfied"`
}

type EnrichmentResult struct {
	Object       string   `json:"object"`
	Status       string   `json:"status"`
	Format       string   `json:"format"`
	Result       []string `json:"result,omitempty"`
	Reasoning    string   `json:"reasoning,omitempty"`
	EnrichmentID string   `json:"enrichmentId"`
}

type ExaItem struct {
	ID          string             `json:"id"`
	Object      string             `json:"object"`
	Source      string             `json:"source"`
	SourceID    string             `json:"sourceId"`
	WebsetID    string             `json:"websetId"`
	Properties  ItemProperties     `json:"properties"`
	Evaluations []ItemEvaluation   `json:"evaluations,omitempty"`
	Enrichments []EnrichmentResult `json:"enrichments,omitempty"`
}

// Page is one page of a cursor paginated list.
type Page[T any] struct {
	Data       []T    `json:"data"`
	HasMore    bool   `json:"hasMore"`
	NextCursor string `json:"nextCursor,omitempty"`
}
