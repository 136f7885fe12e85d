package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/abhijyotiba/Flusso-Automation-sub000/internal/fault"
	flussootel "github.com/abhijyotiba/Flusso-Automation-sub000/internal/otel"
)

var tracer = flussootel.Tracer("github.com/abhijyotiba/Flusso-Automation-sub000/internal/search")

// Client talks to the retrieval service over HTTP. One base URL serves the
// product index, document index and vision queries; the embedder may live on
// a separate host.
type Client struct {
	baseURL     string
	embedderURL string
	apiKey      string
	httpClient  *http.Client
	retry       fault.RetryPolicy
}

// NewClient creates a retrieval client. embedderURL falls back to baseURL
// when empty.
func NewClient(baseURL, embedderURL, apiKey string) *Client {
	if embedderURL == "" {
		embedderURL = baseURL
	}
	return &Client{
		baseURL:     baseURL,
		embedderURL: embedderURL,
		apiKey:      apiKey,
		httpClient:  &http.Client{},
		retry:       fault.DefaultRetryPolicy(),
	}
}

type queryRequest struct {
	Query  string    `json:"query,omitempty"`
	Vector []float64 `json:"vector,omitempty"`
	TopK   int       `json:"top_k"`
}

type productResponse struct {
	Matches []ProductHit `json:"matches"`
}

type documentResponse struct {
	Matches []DocumentHit `json:"matches"`
}

type ticketResponse struct {
	Matches []TicketHit `json:"matches"`
}

type embedRequest struct {
	ImageURL string `json:"image_url"`
}

type embedResponse struct {
	Vector []float64 `json:"vector"`
}

// SearchProducts queries the product index by text.
func (c *Client) SearchProducts(ctx context.Context, query string, topK int) ([]ProductHit, error) {
	ctx, span := tracer.Start(ctx, "search.products")
	defer span.End()

	var out productResponse
	err := c.postRetried(ctx, c.baseURL+"/v1/products/query", queryRequest{Query: query, TopK: topK}, &out)
	if err != nil {
		return nil, fmt.Errorf("product search: %w", err)
	}
	return out.Matches, nil
}

// SearchDocuments queries the document index by text.
func (c *Client) SearchDocuments(ctx context.Context, query string, topK int) ([]DocumentHit, error) {
	ctx, span := tracer.Start(ctx, "search.documents")
	defer span.End()

	var out documentResponse
	err := c.postRetried(ctx, c.baseURL+"/v1/documents/query", queryRequest{Query: query, TopK: topK}, &out)
	if err != nil {
		return nil, fmt.Errorf("document search: %w", err)
	}
	return out.Matches, nil
}

// SearchPastTickets queries the resolved-tickets index by text.
func (c *Client) SearchPastTickets(ctx context.Context, query string, topK int) ([]TicketHit, error) {
	ctx, span := tracer.Start(ctx, "search.past_tickets")
	defer span.End()

	var out ticketResponse
	err := c.postRetried(ctx, c.baseURL+"/v1/tickets/query", queryRequest{Query: query, TopK: topK}, &out)
	if err != nil {
		return nil, fmt.Errorf("past ticket search: %w", err)
	}
	return out.Matches, nil
}

// QueryByVector queries the vision index with an image embedding.
func (c *Client) QueryByVector(ctx context.Context, vector []float64, topK int) ([]ProductHit, error) {
	ctx, span := tracer.Start(ctx, "search.vision")
	defer span.End()

	var out productResponse
	err := c.postRetried(ctx, c.baseURL+"/v1/vision/query", queryRequest{Vector: vector, TopK: topK}, &out)
	if err != nil {
		return nil, fmt.Errorf("vision query: %w", err)
	}
	return out.Matches, nil
}

// EmbedImage fetches the embedding vector for an image URL.
func (c *Client) EmbedImage(ctx context.Context, imageURL string) ([]float64, error) {
	ctx, span := tracer.Start(ctx, "search.embed_image")
	defer span.End()

	var out embedResponse
	err := c.postRetried(ctx, c.embedderURL+"/v1/embed/image", embedRequest{ImageURL: imageURL}, &out)
	if err != nil {
		return nil, fmt.Errorf("embed image: %w", err)
	}
	return out.Vector, nil
}

// AnalyzeImage asks the analyzer service to classify an image and extract
// its text and identifiers.
func (c *Client) AnalyzeImage(ctx context.Context, imageURL string) (*ImageAnalysis, error) {
	ctx, span := tracer.Start(ctx, "search.analyze_image")
	defer span.End()

	var out ImageAnalysis
	err := c.postRetried(ctx, c.embedderURL+"/v1/analyze/image", embedRequest{ImageURL: imageURL}, &out)
	if err != nil {
		return nil, fmt.Errorf("analyze image: %w", err)
	}
	return &out, nil
}

// postRetried POSTs a JSON body and decodes the response, retrying on
// transient failures. All retrieval endpoints are idempotent reads.
func (c *Client) postRetried(ctx context.Context, url string, reqBody, out any) error {
	body, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("marshalling query: %w", err)
	}
	return fault.Retry(ctx, c.retry, func(ctx context.Context) error {
		return c.post(ctx, url, body, out)
	})
}

func (c *Client) post(ctx context.Context, url string, body []byte, out any) error {
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating query request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Api-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("retrieval call: %v: %w", err, fault.ErrTransientIO)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("retrieval status 429: %w", &fault.RateLimitError{})
	case resp.StatusCode >= 500:
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("retrieval status %d: %s: %w", resp.StatusCode, string(respBody), fault.ErrTransientIO)
	default:
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("retrieval status %d: %s", resp.StatusCode, string(respBody))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding retrieval response: %w", err)
	}
	return nil
}
