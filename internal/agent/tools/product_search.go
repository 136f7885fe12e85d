package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/abhijyotiba/Flusso-Automation-sub000/internal/search"
)

const defaultTopK = 5

// ProductSearchTool queries the product vector index by text.
type ProductSearchTool struct {
	index search.ProductIndex
	topK  int
}

// NewProductSearchTool creates a product search tool over the given index.
func NewProductSearchTool(index search.ProductIndex) *ProductSearchTool {
	return &ProductSearchTool{index: index, topK: defaultTopK}
}

func (t *ProductSearchTool) Name() string { return "product_search" }

func (t *ProductSearchTool) Description() string {
	return "Search the product catalog by description, model number or symptoms. Input: {\"query\": \"...\"}."
}

func (t *ProductSearchTool) InputSchema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"query": {"type": "string", "minLength": 1}
		},
		"required": ["query"],
		"additionalProperties": false
	}`)
}

type textQueryArgs struct {
	Query string `json:"query"`
}

func (t *ProductSearchTool) Execute(ctx context.Context, params json.RawMessage) (*Result, error) {
	var args textQueryArgs
	if err := json.Unmarshal(params, &args); err != nil {
		return nil, fmt.Errorf("decoding product_search arguments: %w", err)
	}
	hits, err := t.index.SearchProducts(ctx, args.Query, t.topK)
	if err != nil {
		return nil, err
	}
	return (&Result{Kind: KindProductMatch, Products: hits}).seal(), nil
}
