// Package llm provides oracle (LLM) access for classification and the agent
// loop. Providers share one interface; the Router picks the configured
// provider and model per task and records cost metrics after each call.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/abhijyotiba/Flusso-Automation-sub000/internal/fault"
)

// TimeoutOracleCall bounds every single oracle request regardless of the
// per-ticket deadline.
const TimeoutOracleCall = 60 * time.Second

// Domain errors for the llm package.
var (
	ErrProviderNotAvailable = errors.New("provider not available")
	ErrEmptyResponse        = errors.New("oracle returned no choices")
)

// Provider is the interface all oracle providers implement.
type Provider interface {
	// Name returns the provider identifier (e.g. "openai", "anthropic").
	Name() string
	// Generate sends a completion request and returns the response.
	Generate(ctx context.Context, req *Request) (*Response, error)
	// EstimateCost estimates the cost in EUR for the given model and token counts.
	EstimateCost(model string, inputTokens, outputTokens int) float64
}

// Request represents an oracle generation request.
type Request struct {
	Model       string
	Messages    []Message
	Temperature float64
	MaxTokens   int
}

// Message represents a chat message.
type Message struct {
	Role    string // "system", "user", "assistant"
	Content string
}

// Response represents an oracle generation response.
type Response struct {
	Content      string
	FinishReason string
	InputTokens  int
	OutputTokens int
	Model        string
}

// classifyHTTPStatus maps an upstream status code onto the fault taxonomy.
// 429 carries the Retry-After hint; 5xx and 408 are transient; everything
// else 4xx is permanent.
func classifyHTTPStatus(status int, retryAfter time.Duration, detail string) error {
	switch {
	case status == http.StatusTooManyRequests:
		return fmt.Errorf("oracle status %d: %s: %w", status, detail, &fault.RateLimitError{RetryAfter: retryAfter})
	case status >= 500 || status == http.StatusRequestTimeout:
		return fmt.Errorf("oracle status %d: %s: %w", status, detail, fault.ErrTransientIO)
	default:
		return fmt.Errorf("oracle status %d: %s", status, detail)
	}
}

// parseRetryAfter reads a Retry-After header value in seconds; 0 when absent
// or unparseable.
func parseRetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	if d, err := time.ParseDuration(v + "s"); err == nil {
		return d
	}
	return 0
}
