package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/abhijyotiba/Flusso-Automation-sub000/internal/search"
)

// VisualSearchTool identifies products from customer photos: embed the image,
// then query the vision index with the vector.
type VisualSearchTool struct {
	embedder search.Embedder
	index    search.VisionIndex
	topK     int
}

// NewVisualSearchTool creates a visual search tool.
func NewVisualSearchTool(embedder search.Embedder, index search.VisionIndex) *VisualSearchTool {
	return &VisualSearchTool{embedder: embedder, index: index, topK: defaultTopK}
}

func (t *VisualSearchTool) Name() string { return "visual_search" }

func (t *VisualSearchTool) Description() string {
	return "Identify a product from an attached photo. Input: {\"image_url\": \"...\"} using one of the ticket's image URLs."
}

func (t *VisualSearchTool) InputSchema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"image_url": {"type": "string", "minLength": 1}
		},
		"required": ["image_url"],
		"additionalProperties": false
	}`)
}

type visualSearchArgs struct {
	ImageURL string `json:"image_url"`
}

func (t *VisualSearchTool) Execute(ctx context.Context, params json.RawMessage) (*Result, error) {
	var args visualSearchArgs
	if err := json.Unmarshal(params, &args); err != nil {
		return nil, fmt.Errorf("decoding visual_search arguments: %w", err)
	}
	vector, err := t.embedder.EmbedImage(ctx, args.ImageURL)
	if err != nil {
		return nil, err
	}
	hits, err := t.index.QueryByVector(ctx, vector, t.topK)
	if err != nil {
		return nil, err
	}
	return (&Result{Kind: KindVisionMatch, Products: hits}).seal(), nil
}
