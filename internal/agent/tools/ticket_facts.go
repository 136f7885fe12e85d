package tools

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"

	"github.com/abhijyotiba/Flusso-Automation-sub000/internal/ticket"
)

// TicketFactsTool extracts structured facts from the ticket text locally,
// without network calls: model number candidates, order numbers, and
// receipt/address mentions. Constructed per run because it closes over the
// ticket.
type TicketFactsTool struct {
	tk *ticket.Ticket
}

// NewTicketFactsTool creates a facts tool bound to one ticket.
func NewTicketFactsTool(tk *ticket.Ticket) *TicketFactsTool {
	return &TicketFactsTool{tk: tk}
}

func (t *TicketFactsTool) Name() string { return "ticket_facts" }

func (t *TicketFactsTool) Description() string {
	return "Extract model numbers, order numbers and mentioned fields from the ticket text. Input: {}."
}

func (t *TicketFactsTool) InputSchema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"additionalProperties": false
	}`)
}

var (
	// Model numbers like FLX-100, AB_2204C, K.7500 — letters then digits
	// with a separator.
	modelNumberRe = regexp.MustCompile(`\b[A-Za-z]{1,5}[-_.]?\d{2,6}[A-Za-z]?\b`)
	orderNumberRe = regexp.MustCompile(`(?i)\border\s*(number|no\.?|#)?\s*:?\s*(\d{5,12})\b`)
)

// ModelCandidates extracts up to limit model-number-shaped tokens from text.
func ModelCandidates(text string, limit int) []string {
	return modelNumberRe.FindAllString(text, limit)
}

func (t *TicketFactsTool) Execute(_ context.Context, _ json.RawMessage) (*Result, error) {
	text := t.tk.Subject + "\n" + t.tk.Text
	facts := map[string]string{}

	if models := ModelCandidates(text, 3); len(models) > 0 {
		facts["model_candidates"] = strings.Join(models, ",")
	}
	if m := orderNumberRe.FindStringSubmatch(text); m != nil {
		facts["order_number"] = m[2]
	}
	lower := strings.ToLower(text)
	if strings.Contains(lower, "receipt") || strings.Contains(lower, "proof of purchase") {
		facts["mentions_receipt"] = "true"
	}
	if strings.Contains(lower, "address") || strings.Contains(lower, "ship to") {
		facts["mentions_address"] = "true"
	}
	return (&Result{Kind: KindFacts, Facts: facts}).seal(), nil
}
