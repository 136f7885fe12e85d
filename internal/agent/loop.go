// Package agent runs the bounded tool loop that investigates a ticket. Each
// iteration asks the oracle for one directive, dispatches the named tool,
// and feeds the observation back. The loop ends when the oracle finishes or
// the iteration budget runs out; either way it returns a usable outcome.
package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/abhijyotiba/Flusso-Automation-sub000/internal/agent/tools"
	"github.com/abhijyotiba/Flusso-Automation-sub000/internal/evidence"
	"github.com/abhijyotiba/Flusso-Automation-sub000/internal/fault"
	"github.com/abhijyotiba/Flusso-Automation-sub000/internal/llm"
	flussootel "github.com/abhijyotiba/Flusso-Automation-sub000/internal/otel"
	"github.com/abhijyotiba/Flusso-Automation-sub000/internal/requestctx"
	"github.com/abhijyotiba/Flusso-Automation-sub000/internal/ticket"
)

var tracer = flussootel.Tracer("github.com/abhijyotiba/Flusso-Automation-sub000/internal/agent")

// Oracle is the slice of llm.Router the loop needs.
type Oracle interface {
	Complete(ctx context.Context, task llm.Task, messages []llm.Message, temperature float64, maxTokens int) (*llm.Response, error)
}

const (
	// DefaultMaxIterations bounds the loop when config supplies nothing.
	DefaultMaxIterations = 15

	agentTemperature = 0.2
	agentMaxTokens   = 800

	// Product hits scoring below this never fill the identified-product
	// slot; the oracle can still reason about them from the observation.
	productClaimFloor = 40.0

	forcedFinishConfidence = 0.5
)

// Loop executes the investigation for one ticket.
type Loop struct {
	oracle        Oracle
	registry      *tools.Registry
	breaker       *Breaker
	maxIterations int
}

// NewLoop creates a loop. breaker may be nil when no oracle circuit breaking
// is wanted (tests).
func NewLoop(oracle Oracle, registry *tools.Registry, breaker *Breaker, maxIterations int) *Loop {
	if maxIterations <= 0 {
		maxIterations = DefaultMaxIterations
	}
	return &Loop{oracle: oracle, registry: registry, breaker: breaker, maxIterations: maxIterations}
}

// Run drives the loop over st, appending steps and evidence as it goes. It
// returns an error only for oracle failures the pipeline must surface as a
// system error; exhausting the iteration budget is a normal outcome.
func (l *Loop) Run(ctx context.Context, st *ticket.State) (*ticket.AgentOutcome, error) {
	ctx, span := tracer.Start(ctx, "agent.run")
	defer span.End()

	correlationID := requestctx.CorrelationID(ctx)
	log.Info().
		Str("correlation_id", correlationID).
		Int64("ticket_id", st.Ticket.ID).
		Int("max_iterations", l.maxIterations).
		Msg("agent_run_started")

	tracker := newFailureTracker(0, 0)
	seen := make(map[string]bool)

	for i := 0; i < l.maxIterations; i++ {
		forced := i == l.maxIterations-1
		started := time.Now()

		d, err := l.nextDirective(ctx, st, i)
		if err != nil {
			if errors.Is(err, fault.ErrMalformedOracleOutput) {
				if forced {
					return l.finishForced(span, correlationID, st, i+1), nil
				}
				st.RecordStep(ticket.AgentStep{
					Iteration:   i,
					Action:      "malformed_response",
					Observation: "response was not a valid directive; reply with exactly one JSON object",
					StartedAt:   started,
					Duration:    time.Since(started),
				})
				continue
			}
			span.RecordError(err)
			return nil, fmt.Errorf("agent oracle call: %w", err)
		}

		if d.isFinish() {
			out := &ticket.AgentOutcome{
				Status:      ticket.StatusFinished,
				FinalAnswer: d.FinalAnswer,
				Confidence:  d.Confidence,
				EnoughInfo:  d.EnoughInfo,
				RequestInfo: d.RequestInfo,
				Escalate:    d.Escalate,
				Iterations:  i + 1,
			}
			st.RecordStep(ticket.AgentStep{
				Iteration:   i,
				Thought:     d.Thought,
				Action:      actionFinish,
				Observation: "run finished",
				StartedAt:   started,
				Duration:    time.Since(started),
			})
			span.SetAttributes(
				attribute.Int("agent.iterations", out.Iterations),
				attribute.Float64("agent.confidence", out.Confidence),
			)
			log.Info().
				Str("correlation_id", correlationID).
				Int64("ticket_id", st.Ticket.ID).
				Int("iterations", out.Iterations).
				Float64("confidence", out.Confidence).
				Msg("agent_run_finished")
			return out, nil
		}

		if forced {
			// Told to finish, called a tool anyway. The budget is spent.
			return l.finishForced(span, correlationID, st, i+1), nil
		}

		observation, raw := l.dispatch(ctx, st, tracker, seen, correlationID, d)
		st.RecordStep(ticket.AgentStep{
			Iteration:   i,
			Thought:     d.Thought,
			Action:      d.Action,
			ActionInput: d.ActionInput,
			Observation: observation,
			ToolOutput:  raw,
			StartedAt:   started,
			Duration:    time.Since(started),
		})
	}

	return l.finishForced(span, correlationID, st, l.maxIterations), nil
}

// nextDirective calls the oracle and parses the reply. A malformed reply is
// re-prompted once with a corrective message before giving up on the turn.
func (l *Loop) nextDirective(ctx context.Context, st *ticket.State, iteration int) (*directive, error) {
	messages := buildMessages(st, l.registry, iteration, l.maxIterations)

	resp, err := l.complete(ctx, messages)
	if err != nil {
		return nil, err
	}
	d, perr := parseDirective(resp.Content)
	if perr == nil {
		return d, nil
	}

	log.Warn().
		Str("correlation_id", requestctx.CorrelationID(ctx)).
		Int64("ticket_id", st.Ticket.ID).
		Err(perr).
		Msg("agent_directive_malformed_reprompting")

	messages = append(messages,
		llm.Message{Role: "assistant", Content: resp.Content},
		llm.Message{Role: "user", Content: "That was not a valid directive: " + perr.Error() + ". Reply with exactly one JSON object and nothing else."},
	)
	resp, err = l.complete(ctx, messages)
	if err != nil {
		return nil, err
	}
	return parseDirective(resp.Content)
}

// complete wraps the oracle call in the circuit breaker.
func (l *Loop) complete(ctx context.Context, messages []llm.Message) (*llm.Response, error) {
	task := string(llm.TaskAgent)
	if l.breaker != nil {
		if err := l.breaker.Check(task); err != nil {
			return nil, fault.System(err)
		}
	}
	resp, err := l.oracle.Complete(ctx, llm.TaskAgent, messages, agentTemperature, agentMaxTokens)
	if l.breaker != nil {
		if err != nil && fault.IsTransient(err) {
			l.breaker.RecordFailure(task)
		} else if err == nil {
			l.breaker.RecordSuccess(task)
		}
	}
	return resp, err
}

// dispatch runs one tool directive and returns the observation for the
// transcript plus the raw tool output.
func (l *Loop) dispatch(ctx context.Context, st *ticket.State, tracker *failureTracker, seen map[string]bool, correlationID string, d *directive) (string, []byte) {
	key := dedupKey(d.Action, d.ActionInput)
	if seen[key] {
		return "this exact call was already attempted; try different arguments or finish", nil
	}
	seen[key] = true

	if tracker.isDegraded(d.Action) {
		return d.Action + " is unavailable for the rest of this run after repeated failures", nil
	}

	res, err := l.registry.Dispatch(ctx, d.Action, d.ActionInput)
	if err != nil {
		tracker.record(correlationID, d.Action, err)
		log.Warn().
			Str("correlation_id", correlationID).
			Int64("ticket_id", st.Ticket.ID).
			Str("tool", d.Action).
			Err(err).
			Msg("tool_dispatch_failed")
		if errors.Is(err, tools.ErrUnknownTool) {
			return "unknown tool " + d.Action + "; use one of the tools listed in the instructions", nil
		}
		return "tool error: " + err.Error(), nil
	}

	harvest(st, d.Action, res)
	return res.Summary(), res.Raw
}

func (l *Loop) finishForced(span trace.Span, correlationID string, st *ticket.State, iterations int) *ticket.AgentOutcome {
	out := &ticket.AgentOutcome{
		Status:     ticket.StatusMaxIterations,
		Confidence: forcedFinishConfidence,
		Iterations: iterations,
	}
	span.SetAttributes(attribute.Int("agent.iterations", iterations))
	log.Warn().
		Str("correlation_id", correlationID).
		Int64("ticket_id", st.Ticket.ID).
		Int("iterations", iterations).
		Msg("agent_run_hit_iteration_budget")
	return out
}

// harvest converts a tool result into evidence items and, for strong product
// hits, a claim on the identified-product slot.
func harvest(st *ticket.State, action string, res *tools.Result) {
	switch res.Kind {
	case tools.KindProductMatch:
		recordProductHit(st, action, res, evidence.SourceAgent)
	case tools.KindVisionMatch:
		recordProductHit(st, action, res, evidence.SourceVision)
	case tools.KindImageAnalysis:
		// A model number read off a label or receipt outranks visual
		// similarity in the resolver.
		a := res.Analysis
		if a == nil || len(a.ModelNumbers) == 0 {
			return
		}
		st.RecordEvidence(evidence.Item{
			Source:       evidence.SourceOCR,
			ProductModel: a.ModelNumbers[0],
			Confidence:   clamp01(a.Confidence),
			RawData:      res.Raw,
		})
	case tools.KindDocumentHit:
		if len(res.Documents) == 0 {
			return
		}
		top := res.Documents[0]
		if models := tools.ModelCandidates(top.Title+" "+top.Snippet, 1); len(models) > 0 {
			st.RecordEvidence(evidence.Item{
				Source:       evidence.SourceDocumentAnalysis,
				ProductModel: models[0],
				Confidence:   clamp01(top.Score),
				RawData:      res.Raw,
			})
		}
	case tools.KindFacts:
		models := res.Facts["model_candidates"]
		if models == "" {
			return
		}
		cands := splitCandidates(models)
		// One unambiguous model number in the ticket text is a strong
		// signal; several candidates are weak.
		conf := 0.55
		if len(cands) == 1 {
			conf = 0.80
		}
		st.RecordEvidence(evidence.Item{
			Source:       evidence.SourceTicketFacts,
			ProductModel: cands[0],
			Confidence:   conf,
			RawData:      res.Raw,
		})
	}
}

func recordProductHit(st *ticket.State, action string, res *tools.Result, src evidence.Source) {
	top, ok := res.TopProduct()
	if !ok {
		return
	}
	conf := clamp01(top.Score / 100)
	st.RecordEvidence(evidence.Item{
		Source:          src,
		ProductModel:    top.Model,
		ProductName:     top.Name,
		ProductCategory: top.Category,
		Confidence:      conf,
		IsExactMatch:    top.Exact,
		RawData:         res.Raw,
	})
	if top.Score >= productClaimFloor {
		st.ClaimProduct(ticket.IdentifiedProduct{
			Model:      top.Model,
			Name:       top.Name,
			Confidence: conf,
			Source:     action,
		})
	}
}

func splitCandidates(csv string) []string {
	var out []string
	for _, c := range strings.Split(csv, ",") {
		if c != "" {
			out = append(out, c)
		}
	}
	return out
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
