// Package requestctx provides request-scoped values (e.g. correlation_id) set by middleware.
package requestctx

import (
	"context"

	"github.com/google/uuid"
)

type contextKey struct{}

var correlationIDKey = &contextKey{}

// NewCorrelationID returns a short correlation id for one pipeline run.
func NewCorrelationID() string {
	return "corr_" + uuid.New().String()[:12]
}

// SetCorrelationID stores correlation_id in the context.
func SetCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationIDKey, id)
}

// CorrelationID returns the correlation_id from context, minting one when absent.
func CorrelationID(ctx context.Context) string {
	if v, ok := ctx.Value(correlationIDKey).(string); ok && v != "" {
		return v
	}
	return NewCorrelationID()
}
