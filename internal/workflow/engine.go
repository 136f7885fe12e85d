// Package workflow orchestrates the ticket pipeline: dedup, classification,
// constraint validation, the agent run, evidence resolution, the final
// decision, and the write-back to the ticketing system. The dedup slot is
// the per-ticket write lock; everything between Acquire and MarkCompleted
// runs in a single goroutine.
package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"

	"github.com/abhijyotiba/Flusso-Automation-sub000/internal/audit"
	"github.com/abhijyotiba/Flusso-Automation-sub000/internal/classify"
	"github.com/abhijyotiba/Flusso-Automation-sub000/internal/constraints"
	"github.com/abhijyotiba/Flusso-Automation-sub000/internal/decision"
	"github.com/abhijyotiba/Flusso-Automation-sub000/internal/dedup"
	"github.com/abhijyotiba/Flusso-Automation-sub000/internal/evidence"
	"github.com/abhijyotiba/Flusso-Automation-sub000/internal/freshdesk"
	flussootel "github.com/abhijyotiba/Flusso-Automation-sub000/internal/otel"
	"github.com/abhijyotiba/Flusso-Automation-sub000/internal/requestctx"
	"github.com/abhijyotiba/Flusso-Automation-sub000/internal/ticket"
)

var tracer = flussootel.Tracer("github.com/abhijyotiba/Flusso-Automation-sub000/internal/workflow")

// DefaultTimeout bounds one end-to-end ticket run.
const DefaultTimeout = 25 * time.Minute

// Status is the short answer returned to the webhook caller.
type Status string

const (
	StatusProcessed Status = "processed"
	StatusDuplicate Status = "duplicate"
	StatusTimeout   Status = "timeout"
	StatusError     Status = "error"
)

// Result is what one Process call produced.
type Result struct {
	TicketID      int64          `json:"ticket_id"`
	Status        Status         `json:"status"`
	Outcome       ticket.Outcome `json:"outcome,omitempty"`
	CorrelationID string         `json:"correlation_id"`
	Err           string         `json:"error,omitempty"`
}

// AgentRunner runs the investigation loop for one ticket. The serve command
// wires a per-ticket tool registry behind this; tests plug a fixed loop in.
type AgentRunner interface {
	Run(ctx context.Context, st *ticket.State) (*ticket.AgentOutcome, error)
}

// AgentRunnerFunc adapts a function to AgentRunner.
type AgentRunnerFunc func(ctx context.Context, st *ticket.State) (*ticket.AgentOutcome, error)

// Run implements AgentRunner.
func (f AgentRunnerFunc) Run(ctx context.Context, st *ticket.State) (*ticket.AgentOutcome, error) {
	return f(ctx, st)
}

// Options wires the engine's collaborators.
type Options struct {
	Freshdesk  freshdesk.Client
	Dedup      *dedup.Cache
	Classifier *classify.Classifier
	Validator  *constraints.Validator
	Agent      AgentRunner
	Resolver   *evidence.Resolver
	Decider    *decision.Engine
	Audit      *audit.Store
	Ring       *audit.Ring
	Timeout    time.Duration
}

// Engine runs the pipeline.
type Engine struct {
	fd         freshdesk.Client
	dedup      *dedup.Cache
	classifier *classify.Classifier
	validator  *constraints.Validator
	agent      AgentRunner
	resolver   *evidence.Resolver
	decider    *decision.Engine
	audit      *audit.Store
	ring       *audit.Ring
	timeout    time.Duration
}

// New creates an engine. Timeout <= 0 defaults to DefaultTimeout; Ring and
// Audit may be nil for tests.
func New(opts Options) *Engine {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	return &Engine{
		fd:         opts.Freshdesk,
		dedup:      opts.Dedup,
		classifier: opts.Classifier,
		validator:  opts.Validator,
		agent:      opts.Agent,
		resolver:   opts.Resolver,
		decider:    opts.Decider,
		audit:      opts.Audit,
		ring:       opts.Ring,
		timeout:    opts.Timeout,
	}
}

// Process runs one ticket end to end. updatedAt is the raw timestamp string
// from the webhook payload and may be empty.
func (e *Engine) Process(ctx context.Context, ticketID int64, updatedAt string) Result {
	if requestctx.CorrelationID(ctx) == "" {
		ctx = requestctx.SetCorrelationID(ctx, requestctx.NewCorrelationID())
	}
	corr := requestctx.CorrelationID(ctx)

	ctx, span := tracer.Start(ctx, "workflow.process")
	defer span.End()
	span.SetAttributes(attribute.Int64("ticket_id", ticketID))

	fp := dedup.Fingerprint(ticketID, updatedAt)
	ok, err := e.dedup.Acquire(ctx, fp)
	if err != nil {
		log.Error().Err(err).Str("correlation_id", corr).Int64("ticket_id", ticketID).
			Msg("dedup_acquire_failed")
		return Result{TicketID: ticketID, Status: StatusError, CorrelationID: corr, Err: err.Error()}
	}
	if !ok {
		log.Info().Str("correlation_id", corr).Int64("ticket_id", ticketID).
			Msg("ticket_delivery_deduplicated")
		return Result{TicketID: ticketID, Status: StatusDuplicate, Outcome: ticket.OutcomeDuplicate, CorrelationID: corr}
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	st := &ticket.State{
		CorrelationID: corr,
		Phase:         ticket.PhaseDeduped,
		StartedAt:     time.Now().UTC(),
	}

	res := e.run(ctx, st, ticketID)
	st.EndedAt = time.Now().UTC()

	// Persistence context: the run may have burned the whole budget, but
	// the slot bookkeeping must still go through.
	bg := context.WithoutCancel(ctx)
	switch res.Status {
	case StatusProcessed:
		if err := e.dedup.MarkCompleted(bg, fp); err != nil {
			log.Warn().Err(err).Str("correlation_id", corr).Msg("dedup_mark_completed_failed")
		}
	default:
		if err := e.dedup.Release(bg, fp); err != nil {
			log.Warn().Err(err).Str("correlation_id", corr).Msg("dedup_release_failed")
		}
	}

	span.SetAttributes(
		attribute.String("workflow.status", string(res.Status)),
		attribute.String("workflow.outcome", string(res.Outcome)),
	)
	log.Info().
		Str("correlation_id", corr).
		Int64("ticket_id", ticketID).
		Str("status", string(res.Status)).
		Str("outcome", string(res.Outcome)).
		Dur("duration", st.EndedAt.Sub(st.StartedAt)).
		Msg("ticket_run_finished")
	return res
}

func (e *Engine) run(ctx context.Context, st *ticket.State, ticketID int64) Result {
	corr := st.CorrelationID

	tk, err := e.fd.GetTicket(ctx, ticketID)
	if err != nil {
		log.Error().Err(err).Str("correlation_id", corr).Int64("ticket_id", ticketID).
			Msg("ticket_fetch_failed")
		st.Phase = ticket.PhaseFailed
		return Result{TicketID: ticketID, Status: StatusError, CorrelationID: corr, Err: err.Error()}
	}
	st.Ticket = tk

	if freshdesk.HasProcessedTag(tk.Tags) {
		st.Phase = ticket.PhaseDone
		e.record(ctx, st, "already_processed", string(ticket.OutcomeSkipped), nil)
		log.Info().Str("correlation_id", corr).Int64("ticket_id", ticketID).
			Msg("ticket_already_processed")
		return Result{TicketID: ticketID, Status: StatusProcessed, Outcome: ticket.OutcomeSkipped, CorrelationID: corr}
	}

	cls := e.classifier.Classify(ctx, tk)
	st.Classification = &cls
	st.Phase = ticket.PhaseClassified
	e.record(ctx, st, "classified", string(cls.Category), cls)

	if ticket.GroupOf(cls.Category) == ticket.GroupSkip {
		return e.finalizeSkip(ctx, st)
	}

	st.Constraints = ptr(e.validator.Validate(ctx, cls.Category, tk))
	st.Phase = ticket.PhaseConstraints
	e.record(ctx, st, "constraints_validated", "", st.Constraints)

	st.Phase = ticket.PhaseAgentRunning
	outcome, err := e.agent.Run(ctx, st)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
			st.Phase = ticket.PhaseFailed
			e.record(ctx, st, "agent_run", "timeout", nil)
			return Result{TicketID: ticketID, Status: StatusTimeout, CorrelationID: corr, Err: "processing deadline exceeded"}
		}
		// Oracle or infrastructure failure: keep going so the ticket is
		// tagged for human review instead of silently dropped.
		st.SystemErr = err.Error()
		log.Error().Err(err).Str("correlation_id", corr).Int64("ticket_id", ticketID).
			Msg("agent_run_failed")
	} else {
		st.AgentResult = outcome
	}
	e.record(ctx, st, "agent_run", string(agentStatus(st)), st.AgentResult)

	if len(st.Evidence) > 0 {
		st.ProductDecision = ptr(e.resolver.Resolve(st.Evidence))
		st.Phase = ticket.PhaseEvidenceResolved
		e.record(ctx, st, "evidence_resolved", st.ProductDecision.Rule, st.ProductDecision)
	}

	resolution := e.decider.Decide(ctx, st)
	st.Resolution = &resolution
	st.Phase = ticket.PhaseDecided
	e.record(ctx, st, "resolution_decided", string(resolution.Outcome), resolution)

	if err := e.persist(ctx, st, resolution); err != nil {
		st.Phase = ticket.PhaseFailed
		e.record(ctx, st, "freshdesk_update", "error", nil)
		return Result{TicketID: ticketID, Status: StatusError, Outcome: resolution.Outcome, CorrelationID: corr, Err: err.Error()}
	}
	st.Phase = ticket.PhaseDone
	e.record(ctx, st, "freshdesk_update", string(resolution.Outcome), nil)

	return Result{TicketID: ticketID, Status: StatusProcessed, Outcome: resolution.Outcome, CorrelationID: corr}
}

// finalizeSkip handles skip-group tickets: one category tag and a short
// private note, no agent run and no public response.
func (e *Engine) finalizeSkip(ctx context.Context, st *ticket.State) Result {
	tk := st.Ticket
	cls := st.Classification
	resolution := ticket.Resolution{
		Outcome: ticket.OutcomeSkipped,
		Tags:    []string{string(cls.Category)},
		Summary: "skipped: " + cls.Reasoning,
	}
	st.Resolution = &resolution

	note := freshdesk.BuildSkipNote(cls.Category, cls.Reasoning)
	if err := e.fd.AddPrivateNote(ctx, tk.ID, note); err != nil {
		log.Warn().Err(err).Str("correlation_id", st.CorrelationID).Int64("ticket_id", tk.ID).
			Msg("skip_note_failed")
	}
	if err := e.fd.UpdateTags(ctx, tk.ID, freshdesk.MergeTags(tk.Tags, resolution.Tags)); err != nil {
		st.Phase = ticket.PhaseFailed
		e.record(ctx, st, "freshdesk_update", "error", nil)
		return Result{TicketID: tk.ID, Status: StatusError, Outcome: ticket.OutcomeSkipped, CorrelationID: st.CorrelationID, Err: err.Error()}
	}

	st.Phase = ticket.PhaseSkipFinalized
	e.record(ctx, st, "skip_finalized", string(cls.Category), resolution)
	return Result{TicketID: tk.ID, Status: StatusProcessed, Outcome: ticket.OutcomeSkipped, CorrelationID: st.CorrelationID}
}

func (e *Engine) persist(ctx context.Context, st *ticket.State, resolution ticket.Resolution) error {
	tk := st.Ticket
	note := freshdesk.BuildResolutionNote(st, resolution)
	if err := e.fd.AddPrivateNote(ctx, tk.ID, note); err != nil {
		return err
	}
	if err := e.fd.UpdateTags(ctx, tk.ID, freshdesk.MergeTags(tk.Tags, resolution.Tags)); err != nil {
		return err
	}
	st.Phase = ticket.PhasePersisted
	return nil
}

// record appends one audit event, best effort. A broken audit store must not
// take the pipeline down with it.
func (e *Engine) record(ctx context.Context, st *ticket.State, action, outcome string, detail any) {
	var ticketID int64
	if st.Ticket != nil {
		ticketID = st.Ticket.ID
	}
	ev := audit.Event{
		CorrelationID: st.CorrelationID,
		TicketID:      ticketID,
		Phase:         st.Phase,
		Action:        action,
		Outcome:       outcome,
		DurationMS:    time.Since(st.StartedAt).Milliseconds(),
	}
	if detail != nil {
		if raw, err := json.Marshal(detail); err == nil {
			ev.Record = raw
		}
	}
	if e.ring != nil {
		e.ring.Add(ev)
	}
	if e.audit == nil {
		return
	}
	if err := e.audit.Append(context.WithoutCancel(ctx), &ev); err != nil {
		log.Warn().Err(err).Str("correlation_id", st.CorrelationID).Str("action", action).
			Msg("audit_append_failed")
	}
}

func agentStatus(st *ticket.State) ticket.AgentStatus {
	if st.AgentResult == nil {
		return ""
	}
	return st.AgentResult.Status
}

func ptr[T any](v T) *T { return &v }
