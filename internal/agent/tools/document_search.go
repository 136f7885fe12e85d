package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/abhijyotiba/Flusso-Automation-sub000/internal/search"
)

// DocumentSearchTool queries the knowledge-base document index.
type DocumentSearchTool struct {
	index search.DocumentIndex
	topK  int
}

// NewDocumentSearchTool creates a document search tool over the given index.
func NewDocumentSearchTool(index search.DocumentIndex) *DocumentSearchTool {
	return &DocumentSearchTool{index: index, topK: defaultTopK}
}

func (t *DocumentSearchTool) Name() string { return "document_search" }

func (t *DocumentSearchTool) Description() string {
	return "Search manuals, installation guides and policy documents. Input: {\"query\": \"...\"}."
}

func (t *DocumentSearchTool) InputSchema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"query": {"type": "string", "minLength": 1}
		},
		"required": ["query"],
		"additionalProperties": false
	}`)
}

func (t *DocumentSearchTool) Execute(ctx context.Context, params json.RawMessage) (*Result, error) {
	var args textQueryArgs
	if err := json.Unmarshal(params, &args); err != nil {
		return nil, fmt.Errorf("decoding document_search arguments: %w", err)
	}
	hits, err := t.index.SearchDocuments(ctx, args.Query, t.topK)
	if err != nil {
		return nil, err
	}
	return (&Result{Kind: KindDocumentHit, Documents: hits}).seal(), nil
}
