// Package decision maps everything the pipeline learned about a ticket onto
// one final outcome and its tag set. The rules live in a priority table and
// the first match wins; the ordering is a correctness requirement, not a
// style choice. A system error beats any confidence score, and a request for
// customer input beats every quality signal below it.
package decision

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"

	"github.com/abhijyotiba/Flusso-Automation-sub000/internal/evidence"
	flussootel "github.com/abhijyotiba/Flusso-Automation-sub000/internal/otel"
	"github.com/abhijyotiba/Flusso-Automation-sub000/internal/requestctx"
	"github.com/abhijyotiba/Flusso-Automation-sub000/internal/ticket"
)

var tracer = flussootel.Tracer("github.com/abhijyotiba/Flusso-Automation-sub000/internal/decision")

// DefaultConfidenceFloor is the cutoff below which a match is flagged for
// human review.
const DefaultConfidenceFloor = 0.4

// input flattens the state fields the rules consult.
type input struct {
	systemErr   bool
	requestInfo bool
	escalate    bool
	enoughInfo  bool
	confidence  float64
}

type rule struct {
	name    string
	when    func(in input, floor float64) bool
	outcome ticket.Outcome
	tags    []string
}

// rules is evaluated top to bottom; first match wins.
var rules = []rule{
	{
		name:    "system_error",
		when:    func(in input, _ float64) bool { return in.systemErr },
		outcome: ticket.OutcomeSystemError,
		tags:    []string{"system-error", "needs-human-review"},
	},
	{
		name:    "needs_more_info",
		when:    func(in input, _ float64) bool { return in.requestInfo || in.escalate },
		outcome: ticket.OutcomeNeedsInfo,
		tags:    []string{"needs-more-info", "awaiting-reply"},
	},
	{
		name:    "insufficient_information",
		when:    func(in input, _ float64) bool { return !in.enoughInfo },
		outcome: ticket.OutcomeUnresolved,
		tags:    []string{"unresolved", "needs-human-review"},
	},
	{
		name:    "low_confidence",
		when:    func(in input, floor float64) bool { return in.confidence < floor },
		outcome: ticket.OutcomeLowConfidence,
		tags:    []string{"low-confidence", "needs-human-review"},
	},
	{
		name:    "resolved",
		when:    func(input, float64) bool { return true },
		outcome: ticket.OutcomeResolved,
		tags:    []string{"processed"},
	},
}

// Engine decides final outcomes.
type Engine struct {
	floor float64
}

// NewEngine creates an engine with the given confidence floor. floor <= 0
// defaults to DefaultConfidenceFloor.
func NewEngine(floor float64) *Engine {
	if floor <= 0 {
		floor = DefaultConfidenceFloor
	}
	return &Engine{floor: floor}
}

// Decide evaluates the rule table over st and returns the resolution.
func (e *Engine) Decide(ctx context.Context, st *ticket.State) ticket.Resolution {
	_, span := tracer.Start(ctx, "decision.decide")
	defer span.End()

	in := flatten(st)
	for _, r := range rules {
		if !r.when(in, e.floor) {
			continue
		}
		res := ticket.Resolution{
			Outcome: r.outcome,
			Tags:    append([]string(nil), r.tags...),
			Summary: summarize(r.outcome, st, in),
		}
		span.SetAttributes(
			attribute.String("decision.outcome", string(res.Outcome)),
			attribute.String("decision.rule", r.name),
			attribute.Float64("decision.confidence", in.confidence),
		)
		log.Info().
			Str("correlation_id", requestctx.CorrelationID(ctx)).
			Int64("ticket_id", st.Ticket.ID).
			Str("outcome", string(res.Outcome)).
			Str("rule", r.name).
			Float64("confidence", in.confidence).
			Msg("resolution_decided")
		return res
	}
	// The resolved rule always matches; this is unreachable.
	return ticket.Resolution{Outcome: ticket.OutcomeUnresolved}
}

func flatten(st *ticket.State) input {
	in := input{systemErr: st.HasSystemError()}
	if st.AgentResult != nil {
		in.requestInfo = st.AgentResult.RequestInfo
		in.escalate = st.AgentResult.Escalate
		in.enoughInfo = st.AgentResult.EnoughInfo
		in.confidence = st.AgentResult.Confidence
	}
	if st.ProductDecision != nil {
		if st.ProductDecision.Recommendation == evidence.RequestInfo {
			in.requestInfo = true
		}
		// The resolver's confidence supersedes the agent's self report.
		in.confidence = st.ProductDecision.FinalConfidence
	}
	if st.Constraints != nil && !st.Constraints.Skipped && !st.Constraints.CanProceed {
		in.requestInfo = true
	}
	return in
}

func summarize(outcome ticket.Outcome, st *ticket.State, in input) string {
	switch outcome {
	case ticket.OutcomeSystemError:
		return "processing failed with an internal error: " + st.SystemErr
	case ticket.OutcomeNeedsInfo:
		return "more information is needed from the customer"
	case ticket.OutcomeUnresolved:
		return "the agent could not gather enough information to resolve the ticket"
	case ticket.OutcomeLowConfidence:
		return fmt.Sprintf("product match confidence %.2f is below the review floor", in.confidence)
	default:
		return fmt.Sprintf("resolved with confidence %.2f", in.confidence)
	}
}
