package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhijyotiba/Flusso-Automation-sub000/internal/fault"
)

func newChatServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestOpenAIGenerate(t *testing.T) {
	resp := map[string]any{
		"id":    "chatcmpl-test",
		"model": "gpt-4o-mini",
		"choices": []map[string]any{
			{"message": map[string]string{"role": "assistant", "content": `{"category":"warranty_claim"}`}, "finish_reason": "stop"},
		},
		"usage": map[string]int{"prompt_tokens": 42, "completion_tokens": 7, "total_tokens": 49},
	}
	body, err := json.Marshal(resp)
	require.NoError(t, err)
	srv := newChatServer(t, http.StatusOK, string(body))

	p := NewOpenAIProviderWithBaseURL("test-key", srv.URL)
	out, err := p.Generate(context.Background(), &Request{
		Model:       "gpt-4o-mini",
		Messages:    []Message{{Role: "user", Content: "classify this"}},
		Temperature: 0.1,
		MaxTokens:   200,
	})
	require.NoError(t, err)
	assert.Equal(t, `{"category":"warranty_claim"}`, out.Content)
	assert.Equal(t, 42, out.InputTokens)
	assert.Equal(t, "stop", out.FinishReason)
}

func TestOpenAIGenerateRateLimited(t *testing.T) {
	srv := newChatServer(t, http.StatusTooManyRequests, `{"error":{"message":"slow down","type":"rate_limit_error"}}`)

	p := NewOpenAIProviderWithBaseURL("test-key", srv.URL)
	_, err := p.Generate(context.Background(), &Request{Model: "gpt-4o-mini", Messages: []Message{{Role: "user", Content: "x"}}})
	require.Error(t, err)
	assert.ErrorIs(t, err, fault.ErrRateLimited)
	assert.True(t, fault.IsTransient(err))
}

func TestOpenAIGenerateServerError(t *testing.T) {
	srv := newChatServer(t, http.StatusBadGateway, `{"error":{"message":"upstream"}}`)

	p := NewOpenAIProviderWithBaseURL("test-key", srv.URL)
	_, err := p.Generate(context.Background(), &Request{Model: "gpt-4o-mini", Messages: []Message{{Role: "user", Content: "x"}}})
	require.Error(t, err)
	assert.ErrorIs(t, err, fault.ErrTransientIO)
}

func TestOpenAIGenerateConnectionRefused(t *testing.T) {
	p := NewOpenAIProviderWithBaseURL("test-key", "http://127.0.0.1:1")
	_, err := p.Generate(context.Background(), &Request{Model: "gpt-4o-mini", Messages: []Message{{Role: "user", Content: "x"}}})
	require.Error(t, err)
	assert.ErrorIs(t, err, fault.ErrTransientIO)
}

func TestOpenAIEstimateCost(t *testing.T) {
	p := NewOpenAIProvider("k")
	cost := p.EstimateCost("gpt-4o-mini", 1000, 1000)
	assert.InDelta(t, 0.00075, cost, 1e-9)
	// Unknown model falls back to gpt-4o pricing.
	assert.Greater(t, p.EstimateCost("gpt-9", 1000, 1000), cost)
}
