// Package search provides the retrieval adapters the agent tools call:
// a product vector index, a document index, a resolved-tickets index, an
// image embedder and an image analyzer. The HTTP implementations speak a
// plain JSON query protocol; queries are idempotent reads and are retried
// per the default policy.
package search

import (
	"context"
)

// ProductHit is one product candidate from the vector index. Score is the
// raw similarity in [0,100] as returned by the index.
type ProductHit struct {
	ID       string            `json:"id"`
	Model    string            `json:"model"`
	Name     string            `json:"name"`
	Category string            `json:"category"`
	Score    float64           `json:"score"`
	Exact    bool              `json:"exact,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// DocumentHit is one knowledge-base document snippet.
type DocumentHit struct {
	ID      string  `json:"id"`
	Title   string  `json:"title"`
	Snippet string  `json:"snippet"`
	Score   float64 `json:"score"`
}

// ProductIndex finds product candidates for a text query.
type ProductIndex interface {
	SearchProducts(ctx context.Context, query string, topK int) ([]ProductHit, error)
}

// DocumentIndex finds knowledge-base snippets for a text query.
type DocumentIndex interface {
	SearchDocuments(ctx context.Context, query string, topK int) ([]DocumentHit, error)
}

// TicketHit is one previously resolved ticket similar to the query.
type TicketHit struct {
	ID             string  `json:"id"`
	TicketID       int64   `json:"ticket_id"`
	Subject        string  `json:"subject"`
	Resolution     string  `json:"resolution"`
	ResolutionType string  `json:"resolution_type,omitempty"`
	Score          float64 `json:"score"`
}

// ImageAnalysis is what the analyzer service reads off an attached image:
// a classification of the image plus any text and identifiers on it. Model
// numbers come only from product labels, never from order or tracking
// numbers.
type ImageAnalysis struct {
	ImageType     string   `json:"image_type"`
	Confidence    float64  `json:"confidence"`
	Description   string   `json:"description"`
	VisibleText   string   `json:"visible_text,omitempty"`
	ModelNumbers  []string `json:"model_numbers,omitempty"`
	SerialNumbers []string `json:"serial_numbers,omitempty"`
	OrderNumbers  []string `json:"order_numbers,omitempty"`
}

// TicketIndex finds previously resolved tickets similar to a text query.
type TicketIndex interface {
	SearchPastTickets(ctx context.Context, query string, topK int) ([]TicketHit, error)
}

// Embedder turns an image URL into an embedding vector.
type Embedder interface {
	EmbedImage(ctx context.Context, imageURL string) ([]float64, error)
}

// ImageAnalyzer classifies an attached image and extracts its text and
// identifiers.
type ImageAnalyzer interface {
	AnalyzeImage(ctx context.Context, imageURL string) (*ImageAnalysis, error)
}

// VisionIndex finds product candidates by image embedding.
type VisionIndex interface {
	QueryByVector(ctx context.Context, vector []float64, topK int) ([]ProductHit, error)
}
