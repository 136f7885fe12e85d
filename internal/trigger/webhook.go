package trigger

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/rs/zerolog/log"
	"github.com/xeipuuv/gojsonschema"

	"github.com/abhijyotiba/Flusso-Automation-sub000/internal/workflow"
)

const maxPayloadBytes = 1 << 20

// Processor runs one ticket through the pipeline.
type Processor interface {
	Process(ctx context.Context, ticketID int64, updatedAt string) workflow.Result
}

// deliverySchema accepts the payload shapes Freshdesk automations have
// shipped over the years: a flat ticket_id, a freshdesk_webhook envelope,
// or a nested ticket object.
var deliverySchema = mustSchema(`{
	"type": "object",
	"anyOf": [
		{"required": ["ticket_id"]},
		{"required": ["freshdesk_webhook"]},
		{"required": ["ticket"]}
	],
	"properties": {
		"ticket_id": {"type": ["integer", "string"]},
		"updated_at": {"type": "string"},
		"freshdesk_webhook": {
			"type": "object",
			"required": ["ticket_id"],
			"properties": {
				"ticket_id": {"type": ["integer", "string"]},
				"updated_at": {"type": "string"}
			}
		},
		"ticket": {
			"type": "object",
			"required": ["id"],
			"properties": {
				"id": {"type": ["integer", "string"]},
				"updated_at": {"type": "string"}
			}
		}
	}
}`)

func mustSchema(raw string) *gojsonschema.Schema {
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(raw))
	if err != nil {
		panic(err)
	}
	return s
}

type delivery struct {
	TicketID  json.Number `json:"ticket_id"`
	UpdatedAt string      `json:"updated_at"`
	Envelope  *struct {
		TicketID  json.Number `json:"ticket_id"`
		UpdatedAt string      `json:"updated_at"`
	} `json:"freshdesk_webhook"`
	Ticket *struct {
		ID        json.Number `json:"id"`
		UpdatedAt string      `json:"updated_at"`
	} `json:"ticket"`
}

func (d *delivery) ref() (int64, string, bool) {
	switch {
	case d.TicketID != "":
		id, err := d.TicketID.Int64()
		return id, d.UpdatedAt, err == nil && id > 0
	case d.Envelope != nil:
		id, err := d.Envelope.TicketID.Int64()
		return id, d.Envelope.UpdatedAt, err == nil && id > 0
	case d.Ticket != nil:
		id, err := d.Ticket.ID.Int64()
		return id, d.Ticket.UpdatedAt, err == nil && id > 0
	}
	return 0, "", false
}

// WebhookHandler serves POST /webhook/ticket.
type WebhookHandler struct {
	processor Processor
}

// NewWebhookHandler creates the handler.
func NewWebhookHandler(p Processor) *WebhookHandler {
	return &WebhookHandler{processor: p}
}

type errorResponse struct {
	Status string `json:"status"`
	Error  string `json:"error"`
}

// HandleTicket validates the payload, runs the pipeline synchronously, and
// echoes the result. The engine owns the processing deadline.
func (wh *WebhookHandler) HandleTicket(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	body, err := io.ReadAll(io.LimitReader(r.Body, maxPayloadBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "reading request body")
		return
	}

	result, err := deliverySchema.Validate(gojsonschema.NewBytesLoader(body))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if !result.Valid() {
		log.Warn().Str("detail", firstSchemaError(result)).Msg("webhook_payload_rejected")
		writeError(w, http.StatusBadRequest, "payload does not match any known webhook shape")
		return
	}

	var d delivery
	if err := json.Unmarshal(body, &d); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	ticketID, updatedAt, ok := d.ref()
	if !ok {
		writeError(w, http.StatusBadRequest, "missing or invalid ticket id")
		return
	}

	log.Info().Int64("ticket_id", ticketID).Msg("webhook_delivery_received")
	res := wh.processor.Process(r.Context(), ticketID, updatedAt)

	switch res.Status {
	case workflow.StatusProcessed, workflow.StatusDuplicate:
		w.WriteHeader(http.StatusOK)
	case workflow.StatusTimeout:
		w.WriteHeader(http.StatusGatewayTimeout)
	default:
		w.WriteHeader(http.StatusInternalServerError)
	}
	_ = json.NewEncoder(w).Encode(res)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(errorResponse{Status: "error", Error: msg})
}

func firstSchemaError(result *gojsonschema.Result) string {
	for _, e := range result.Errors() {
		return e.String()
	}
	return ""
}
