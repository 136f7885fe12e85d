// Package freshdesk adapts the ticketing system API. Reads are retried;
// writes (notes, tag updates) are not, because a duplicated private note is a
// visible side effect on the ticket.
package freshdesk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/abhijyotiba/Flusso-Automation-sub000/internal/fault"
	flussootel "github.com/abhijyotiba/Flusso-Automation-sub000/internal/otel"
	"github.com/abhijyotiba/Flusso-Automation-sub000/internal/ticket"
)

var tracer = flussootel.Tracer("github.com/abhijyotiba/Flusso-Automation-sub000/internal/freshdesk")

// Client is the ticketing surface the workflow needs.
type Client interface {
	GetTicket(ctx context.Context, id int64) (*ticket.Ticket, error)
	AddPrivateNote(ctx context.Context, id int64, htmlBody string) error
	UpdateTags(ctx context.Context, id int64, tags []string) error
}

// HTTPClient talks to the Freshdesk v2 API with API-key basic auth.
type HTTPClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	retry      fault.RetryPolicy
}

// NewHTTPClient creates a client for the given account domain, e.g.
// "acme" for acme.freshdesk.com.
func NewHTTPClient(domain, apiKey string) *HTTPClient {
	return NewHTTPClientWithBaseURL("https://"+domain+".freshdesk.com/api/v2", apiKey)
}

// NewHTTPClientWithBaseURL creates a client against an explicit base URL.
func NewHTTPClientWithBaseURL(baseURL, apiKey string) *HTTPClient {
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		retry:      fault.DefaultRetryPolicy(),
	}
}

type apiAttachment struct {
	Name        string `json:"name"`
	ContentType string `json:"content_type"`
	URL         string `json:"attachment_url"`
	Size        int64  `json:"size"`
}

type apiConversation struct {
	ID          int64           `json:"id"`
	BodyText    string          `json:"body_text"`
	Incoming    bool            `json:"incoming"`
	Private     bool            `json:"private"`
	CreatedAt   time.Time       `json:"created_at"`
	Attachments []apiAttachment `json:"attachments"`
}

type apiTicket struct {
	ID              int64             `json:"id"`
	Subject         string            `json:"subject"`
	DescriptionText string            `json:"description_text"`
	Tags            []string          `json:"tags"`
	RequesterID     int64             `json:"requester_id"`
	UpdatedAt       time.Time         `json:"updated_at"`
	Attachments     []apiAttachment   `json:"attachments"`
	Conversations   []apiConversation `json:"conversations"`
}

// TicketRef is the slim listing entry returned by ListRecent.
type TicketRef struct {
	ID        int64     `json:"id"`
	UpdatedAt time.Time `json:"updated_at"`
	Tags      []string  `json:"tags"`
}

// ListRecent returns tickets updated within the lookback window, newest
// first. Used by the resweep scheduler to catch deliveries the webhook
// missed. Safe to retry.
func (c *HTTPClient) ListRecent(ctx context.Context, lookback time.Duration) ([]TicketRef, error) {
	ctx, span := tracer.Start(ctx, "freshdesk.list_recent")
	defer span.End()

	var raw []TicketRef
	url := c.baseURL + "/tickets?order_by=updated_at&order_type=desc&per_page=30"
	err := fault.Retry(ctx, c.retry, func(ctx context.Context) error {
		raw = raw[:0]
		return c.do(ctx, http.MethodGet, url, nil, &raw)
	})
	if err != nil {
		return nil, fmt.Errorf("listing recent tickets: %w", err)
	}

	cutoff := time.Now().UTC().Add(-lookback)
	recent := raw[:0]
	for _, ref := range raw {
		if ref.UpdatedAt.IsZero() || ref.UpdatedAt.After(cutoff) {
			recent = append(recent, ref)
		}
	}
	return recent, nil
}

// GetTicket fetches a ticket with its conversation thread. Safe to retry.
func (c *HTTPClient) GetTicket(ctx context.Context, id int64) (*ticket.Ticket, error) {
	ctx, span := tracer.Start(ctx, "freshdesk.get_ticket")
	defer span.End()

	var raw apiTicket
	url := fmt.Sprintf("%s/tickets/%d?include=conversations", c.baseURL, id)
	err := fault.Retry(ctx, c.retry, func(ctx context.Context) error {
		return c.do(ctx, http.MethodGet, url, nil, &raw)
	})
	if err != nil {
		return nil, fmt.Errorf("fetching ticket %d: %w", id, err)
	}
	return mapTicket(&raw), nil
}

// AddPrivateNote posts an internal note on the ticket. Not retried.
func (c *HTTPClient) AddPrivateNote(ctx context.Context, id int64, htmlBody string) error {
	ctx, span := tracer.Start(ctx, "freshdesk.add_note")
	defer span.End()

	payload := map[string]any{"body": htmlBody, "private": true}
	url := fmt.Sprintf("%s/tickets/%d/notes", c.baseURL, id)
	if err := c.do(ctx, http.MethodPost, url, payload, nil); err != nil {
		return fmt.Errorf("adding note to ticket %d: %w", id, err)
	}
	return nil
}

// UpdateTags replaces the ticket's tag set. Callers merge with the existing
// tags first. Not retried.
func (c *HTTPClient) UpdateTags(ctx context.Context, id int64, tags []string) error {
	ctx, span := tracer.Start(ctx, "freshdesk.update_tags")
	defer span.End()

	payload := map[string]any{"tags": tags}
	url := fmt.Sprintf("%s/tickets/%d", c.baseURL, id)
	if err := c.do(ctx, http.MethodPut, url, payload, nil); err != nil {
		return fmt.Errorf("updating tags on ticket %d: %w", id, err)
	}
	return nil
}

func (c *HTTPClient) do(ctx context.Context, method, url string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshalling request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.SetBasicAuth(c.apiKey, "X")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("freshdesk call: %v: %w", err, fault.ErrTransientIO)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
	case resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("freshdesk status 429: %w", &fault.RateLimitError{RetryAfter: retryAfter(resp)})
	case resp.StatusCode >= 500:
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("freshdesk status %d: %s: %w", resp.StatusCode, string(respBody), fault.ErrTransientIO)
	default:
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("freshdesk status %d: %s", resp.StatusCode, string(respBody))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding freshdesk response: %w", err)
	}
	return nil
}

func retryAfter(resp *http.Response) time.Duration {
	if s := resp.Header.Get("Retry-After"); s != "" {
		if secs, err := strconv.Atoi(s); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return 0
}

func mapTicket(raw *apiTicket) *ticket.Ticket {
	tk := &ticket.Ticket{
		ID:          raw.ID,
		Subject:     raw.Subject,
		Text:        raw.DescriptionText,
		Tags:        raw.Tags,
		RequesterID: raw.RequesterID,
		UpdatedAt:   raw.UpdatedAt,
	}
	for _, a := range raw.Attachments {
		tk.Attachments = append(tk.Attachments, mapAttachment(a))
	}
	for _, conv := range raw.Conversations {
		mc := ticket.Conversation{
			ID:        conv.ID,
			Body:      conv.BodyText,
			Incoming:  conv.Incoming,
			Private:   conv.Private,
			CreatedAt: conv.CreatedAt,
		}
		for _, a := range conv.Attachments {
			mc.Files = append(mc.Files, mapAttachment(a))
		}
		tk.Conversations = append(tk.Conversations, mc)
	}
	return tk
}

func mapAttachment(a apiAttachment) ticket.Attachment {
	return ticket.Attachment{
		Name:        a.Name,
		ContentType: a.ContentType,
		URL:         a.URL,
		Size:        a.Size,
	}
}
