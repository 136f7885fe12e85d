package llm

import (
	"context"
	"fmt"

	"github.com/abhijyotiba/Flusso-Automation-sub000/internal/config"
	"github.com/abhijyotiba/Flusso-Automation-sub000/internal/fault"
)

// Task selects the model used for a call. Classification runs on a cheaper
// model than the agent loop.
type Task string

const (
	TaskClassify Task = "classify"
	TaskAgent    Task = "agent"
)

// Router wraps a single configured provider and picks the model per task.
type Router struct {
	provider      Provider
	classifyModel string
	agentModel    string
}

// NewRouter creates a router over an explicit provider. Used by tests and by
// callers that build providers themselves.
func NewRouter(p Provider, classifyModel, agentModel string) *Router {
	return &Router{provider: p, classifyModel: classifyModel, agentModel: agentModel}
}

// FromConfig builds the provider named in cfg and wraps it in a Router.
func FromConfig(cfg *config.Config) (*Router, error) {
	var p Provider
	switch cfg.OracleProvider {
	case "openai":
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("openai selected but openai_api_key unset: %w", fault.ErrConfiguration)
		}
		if cfg.OpenAIBaseURL != "" {
			p = NewOpenAIProviderWithBaseURL(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL)
		} else {
			p = NewOpenAIProvider(cfg.OpenAIAPIKey)
		}
	case "anthropic":
		if cfg.AnthropicAPIKey == "" {
			return nil, fmt.Errorf("anthropic selected but anthropic_api_key unset: %w", fault.ErrConfiguration)
		}
		p = NewAnthropicProvider(cfg.AnthropicAPIKey)
	case "ollama":
		p = NewOllamaProvider(cfg.OllamaBaseURL)
	default:
		return nil, fmt.Errorf("%w: %s", ErrProviderNotAvailable, cfg.OracleProvider)
	}
	return NewRouter(p, cfg.OracleClassifyModel, cfg.OracleAgentModel), nil
}

// Provider returns the underlying provider (for health checks).
func (r *Router) Provider() Provider { return r.provider }

// ModelFor returns the configured model for a task.
func (r *Router) ModelFor(task Task) string {
	if task == TaskClassify {
		return r.classifyModel
	}
	return r.agentModel
}

// Complete runs one oracle call for the given task, selecting the model and
// recording cost metrics. Oracle calls are not idempotent from a billing
// standpoint, so the router never retries; callers decide per the taxonomy.
func (r *Router) Complete(ctx context.Context, task Task, messages []Message, temperature float64, maxTokens int) (*Response, error) {
	model := r.ModelFor(task)
	resp, err := r.provider.Generate(ctx, &Request{
		Model:       model,
		Messages:    messages,
		Temperature: temperature,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		return nil, err
	}
	cost := r.provider.EstimateCost(model, resp.InputTokens, resp.OutputTokens)
	RecordCostMetrics(ctx, cost, string(task), model)
	return resp, nil
}
