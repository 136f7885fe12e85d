package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/abhijyotiba/Flusso-Automation-sub000/internal/search"
)

// AttachmentAnalysisTool classifies an attached image (receipt, product
// photo, serial label, damage) and extracts its text and identifiers. A
// model number read off a label is strong identification evidence.
type AttachmentAnalysisTool struct {
	analyzer search.ImageAnalyzer
}

// NewAttachmentAnalysisTool creates an attachment analysis tool.
func NewAttachmentAnalysisTool(analyzer search.ImageAnalyzer) *AttachmentAnalysisTool {
	return &AttachmentAnalysisTool{analyzer: analyzer}
}

func (t *AttachmentAnalysisTool) Name() string { return "attachment_analysis" }

func (t *AttachmentAnalysisTool) Description() string {
	return "Analyze an attached image: classify it (receipt, product photo, serial label, damage) and read any text, model or order numbers on it. Input: {\"image_url\": \"...\"} using one of the ticket's image URLs."
}

func (t *AttachmentAnalysisTool) InputSchema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"image_url": {"type": "string", "minLength": 1}
		},
		"required": ["image_url"],
		"additionalProperties": false
	}`)
}

func (t *AttachmentAnalysisTool) Execute(ctx context.Context, params json.RawMessage) (*Result, error) {
	var args visualSearchArgs
	if err := json.Unmarshal(params, &args); err != nil {
		return nil, fmt.Errorf("decoding attachment_analysis arguments: %w", err)
	}
	analysis, err := t.analyzer.AnalyzeImage(ctx, args.ImageURL)
	if err != nil {
		return nil, err
	}
	return (&Result{Kind: KindImageAnalysis, Analysis: analysis}).seal(), nil
}
