package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhijyotiba/Flusso-Automation-sub000/internal/config"
	"github.com/abhijyotiba/Flusso-Automation-sub000/internal/fault"
)

type stubProvider struct {
	lastReq *Request
	resp    *Response
	err     error
}

func (s *stubProvider) Name() string { return "stub" }

func (s *stubProvider) Generate(_ context.Context, req *Request) (*Response, error) {
	s.lastReq = req
	if s.err != nil {
		return nil, s.err
	}
	return s.resp, nil
}

func (s *stubProvider) EstimateCost(string, int, int) float64 { return 0 }

func TestRouterModelSelection(t *testing.T) {
	stub := &stubProvider{resp: &Response{Content: "ok"}}
	r := NewRouter(stub, "small-model", "big-model")

	_, err := r.Complete(context.Background(), TaskClassify, []Message{{Role: "user", Content: "x"}}, 0.1, 100)
	require.NoError(t, err)
	assert.Equal(t, "small-model", stub.lastReq.Model)

	_, err = r.Complete(context.Background(), TaskAgent, []Message{{Role: "user", Content: "x"}}, 0.2, 100)
	require.NoError(t, err)
	assert.Equal(t, "big-model", stub.lastReq.Model)
}

func TestRouterPropagatesError(t *testing.T) {
	stub := &stubProvider{err: ErrEmptyResponse}
	r := NewRouter(stub, "a", "b")
	_, err := r.Complete(context.Background(), TaskAgent, nil, 0, 0)
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestFromConfig(t *testing.T) {
	cfg := &config.Config{OracleProvider: "ollama", OllamaBaseURL: "http://localhost:11434", OracleClassifyModel: "llama3", OracleAgentModel: "llama3"}
	r, err := FromConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, "ollama", r.Provider().Name())

	_, err = FromConfig(&config.Config{OracleProvider: "openai"})
	require.Error(t, err)
	assert.ErrorIs(t, err, fault.ErrConfiguration)

	cfg = &config.Config{OracleProvider: "anthropic", AnthropicAPIKey: "k"}
	r, err = FromConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, "anthropic", r.Provider().Name())
}
