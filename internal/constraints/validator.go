// Package constraints enforces per-category field requirements before the
// agent drafts anything. The requirements matrix says what a category needs
// (a warranty claim needs proof of purchase), fact extraction says what the
// ticket already carries, and the validator computes the difference: what to
// ask for, what never to ask for again, and which policy text any draft must
// cite. Only strictly defined categories are enforced; the rest pass through
// with Skipped set.
package constraints

import (
	"context"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"

	flussootel "github.com/abhijyotiba/Flusso-Automation-sub000/internal/otel"
	"github.com/abhijyotiba/Flusso-Automation-sub000/internal/requestctx"
	"github.com/abhijyotiba/Flusso-Automation-sub000/internal/ticket"
)

var tracer = flussootel.Tracer("github.com/abhijyotiba/Flusso-Automation-sub000/internal/constraints")

// Validator computes constraint results from the fixed requirements matrix.
type Validator struct{}

// NewValidator creates a Validator.
func NewValidator() *Validator { return &Validator{} }

// Validate checks tk against the requirements for category. Categories
// without strict requirements return a skipped result that downstream stages
// treat as "no constraints".
func (v *Validator) Validate(ctx context.Context, category ticket.Category, tk *ticket.Ticket) ticket.ConstraintResult {
	ctx, span := tracer.Start(ctx, "constraints.validate")
	defer span.End()

	req, strict := matrix[category]
	if !strict {
		span.SetAttributes(attribute.Bool("constraints.skipped", true))
		log.Debug().
			Str("correlation_id", requestctx.CorrelationID(ctx)).
			Int64("ticket_id", tk.ID).
			Str("category", string(category)).
			Msg("constraint_validation_skipped")
		return ticket.ConstraintResult{Skipped: true, CanProceed: true}
	}

	facts := extractFacts(tk)
	res := ticket.ConstraintResult{CanProceed: true}

	for _, f := range req.Required {
		if facts[f] {
			res.PresentFields = append(res.PresentFields, f)
			res.MustNotAsk = append(res.MustNotAsk, fieldNames[f])
		} else {
			res.MissingFields = append(res.MissingFields, f)
			res.RequiredAsks = append(res.RequiredAsks, askFor(f))
		}
	}

	for _, f := range req.Blocking {
		if !facts[f] {
			res.CanProceed = false
			break
		}
	}

	policies := applicablePolicies(req.Policies, tk.Subject+"\n"+tk.Text)
	res.Citations = citations(policies)

	span.SetAttributes(
		attribute.Bool("constraints.can_proceed", res.CanProceed),
		attribute.StringSlice("constraints.missing_fields", res.MissingFields),
	)
	log.Info().
		Str("correlation_id", requestctx.CorrelationID(ctx)).
		Int64("ticket_id", tk.ID).
		Str("category", string(category)).
		Strs("missing_fields", res.MissingFields).
		Strs("present_fields", res.PresentFields).
		Bool("can_proceed", res.CanProceed).
		Msg("constraints_validated")
	return res
}

func askFor(field string) string {
	if t, ok := askTemplates[field]; ok {
		return t
	}
	name := field
	if n, ok := fieldNames[field]; ok {
		name = n
	}
	return "Could you please provide the " + name + "?"
}
