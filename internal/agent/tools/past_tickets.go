package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/abhijyotiba/Flusso-Automation-sub000/internal/search"
)

// PastTicketsTool searches the resolved-tickets index for similar cases and
// how they were closed.
type PastTicketsTool struct {
	index search.TicketIndex
	topK  int
}

// NewPastTicketsTool creates a past-tickets search tool over the given index.
func NewPastTicketsTool(index search.TicketIndex) *PastTicketsTool {
	return &PastTicketsTool{index: index, topK: defaultTopK}
}

func (t *PastTicketsTool) Name() string { return "past_tickets" }

func (t *PastTicketsTool) Description() string {
	return "Find previously resolved tickets similar to this one and how they were resolved. Input: {\"query\": \"...\"}."
}

func (t *PastTicketsTool) InputSchema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"query": {"type": "string", "minLength": 1}
		},
		"required": ["query"],
		"additionalProperties": false
	}`)
}

func (t *PastTicketsTool) Execute(ctx context.Context, params json.RawMessage) (*Result, error) {
	var args textQueryArgs
	if err := json.Unmarshal(params, &args); err != nil {
		return nil, fmt.Errorf("decoding past_tickets arguments: %w", err)
	}
	hits, err := t.index.SearchPastTickets(ctx, args.Query, t.topK)
	if err != nil {
		return nil, err
	}
	return (&Result{Kind: KindTicketMatch, Tickets: hits}).seal(), nil
}
