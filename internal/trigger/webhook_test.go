package trigger

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhijyotiba/Flusso-Automation-sub000/internal/ticket"
	"github.com/abhijyotiba/Flusso-Automation-sub000/internal/workflow"
)

type stubProcessor struct {
	result workflow.Result
	ids    []int64
	stamps []string
}

func (p *stubProcessor) Process(ctx context.Context, ticketID int64, updatedAt string) workflow.Result {
	p.ids = append(p.ids, ticketID)
	p.stamps = append(p.stamps, updatedAt)
	r := p.result
	r.TicketID = ticketID
	return r
}

func postTicket(t *testing.T, wh *WebhookHandler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/webhook/ticket", strings.NewReader(body))
	rec := httptest.NewRecorder()
	wh.HandleTicket(rec, req)
	return rec
}

func TestHandleTicketPayloadShapes(t *testing.T) {
	cases := []struct {
		name      string
		body      string
		ticketID  int64
		updatedAt string
	}{
		{
			name:      "flat",
			body:      `{"ticket_id": 42, "updated_at": "2026-08-30T10:00:00Z"}`,
			ticketID:  42,
			updatedAt: "2026-08-30T10:00:00Z",
		},
		{
			name:     "flat string id",
			body:     `{"ticket_id": "42"}`,
			ticketID: 42,
		},
		{
			name:      "freshdesk envelope",
			body:      `{"freshdesk_webhook": {"ticket_id": 7, "updated_at": "2026-08-30T11:00:00Z"}}`,
			ticketID:  7,
			updatedAt: "2026-08-30T11:00:00Z",
		},
		{
			name:     "nested ticket object",
			body:     `{"ticket": {"id": 9}}`,
			ticketID: 9,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := &stubProcessor{result: workflow.Result{Status: workflow.StatusProcessed, Outcome: ticket.OutcomeResolved}}
			rec := postTicket(t, NewWebhookHandler(p), tc.body)

			assert.Equal(t, http.StatusOK, rec.Code)
			require.Len(t, p.ids, 1)
			assert.Equal(t, tc.ticketID, p.ids[0])
			assert.Equal(t, tc.updatedAt, p.stamps[0])

			var res workflow.Result
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
			assert.Equal(t, workflow.StatusProcessed, res.Status)
			assert.Equal(t, tc.ticketID, res.TicketID)
		})
	}
}

func TestHandleTicketRejectsBadPayloads(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"not json", `not json`},
		{"empty object", `{}`},
		{"wrong field", `{"id": 42}`},
		{"zero id", `{"ticket_id": 0}`},
		{"non numeric id", `{"ticket_id": "abc"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := &stubProcessor{}
			rec := postTicket(t, NewWebhookHandler(p), tc.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Empty(t, p.ids)
		})
	}
}

func TestHandleTicketStatusMapping(t *testing.T) {
	cases := []struct {
		status workflow.Status
		code   int
	}{
		{workflow.StatusProcessed, http.StatusOK},
		{workflow.StatusDuplicate, http.StatusOK},
		{workflow.StatusTimeout, http.StatusGatewayTimeout},
		{workflow.StatusError, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(string(tc.status), func(t *testing.T) {
			p := &stubProcessor{result: workflow.Result{Status: tc.status}}
			rec := postTicket(t, NewWebhookHandler(p), `{"ticket_id": 1}`)
			assert.Equal(t, tc.code, rec.Code)
		})
	}
}
