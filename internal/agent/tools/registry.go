// Package tools provides the agent's tool surface: a thread-safe registry,
// JSON-schema argument validation, and the search/facts tools themselves.
// Tools are registered by name and dispatched at runtime when the agent's
// action names one.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

// Tool is the interface all agent tools implement.
type Tool interface {
	Name() string
	Description() string
	InputSchema() json.RawMessage
	Execute(ctx context.Context, params json.RawMessage) (*Result, error)
}

// ErrUnknownTool is returned by Dispatch for unregistered tool names.
var ErrUnknownTool = fmt.Errorf("unknown tool")

// Registry manages registered tools for agent execution.
// Thread-safe for concurrent access.
type Registry struct {
	tools map[string]Tool
	mu    sync.RWMutex
}

// NewRegistry creates an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{
		tools: make(map[string]Tool),
	}
}

// Register adds a tool to the registry.
func (r *Registry) Register(tool Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[tool.Name()] = tool
}

// Get returns a tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tool, exists := r.tools[name]
	return tool, exists
}

// List returns all registered tools.
func (r *Registry) List() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Tool, 0, len(r.tools))
	for _, t := range r.tools {
		result = append(result, t)
	}
	return result
}

// Dispatch validates params against the tool's input schema and executes it.
func (r *Registry) Dispatch(ctx context.Context, name string, params json.RawMessage) (*Result, error) {
	tool, ok := r.Get(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTool, name)
	}
	if schema := tool.InputSchema(); len(schema) > 0 {
		if err := validateArgs(schema, params); err != nil {
			return nil, fmt.Errorf("tool %s arguments: %w", name, err)
		}
	}
	return tool.Execute(ctx, params)
}

func validateArgs(schema, params json.RawMessage) error {
	if len(params) == 0 {
		params = json.RawMessage(`{}`)
	}
	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(schema),
		gojsonschema.NewBytesLoader(params),
	)
	if err != nil {
		return fmt.Errorf("validating arguments: %w", err)
	}
	if !result.Valid() {
		return fmt.Errorf("invalid arguments: %v", result.Errors())
	}
	return nil
}
