package ticket

import (
	"encoding/json"
	"time"

	"github.com/abhijyotiba/Flusso-Automation-sub000/internal/evidence"
)

// ClassificationMethod records how the category was decided.
type ClassificationMethod string

const (
	MethodFastPath        ClassificationMethod = "fast_path"
	MethodOracle          ClassificationMethod = "oracle"
	MethodKeywordFallback ClassificationMethod = "keyword_fallback"
)

// Classification is the routing decision for a ticket.
type Classification struct {
	Category   Category             `json:"category"`
	Confidence float64              `json:"confidence"`
	Reasoning  string               `json:"reasoning"`
	Method     ClassificationMethod `json:"method"`
}

// AgentStep records one iteration of the agent loop.
type AgentStep struct {
	Iteration   int             `json:"iteration"`
	Thought     string          `json:"thought"`
	Action      string          `json:"action"`
	ActionInput json.RawMessage `json:"action_input,omitempty"`
	Observation string          `json:"observation"`
	ToolOutput  json.RawMessage `json:"tool_output,omitempty"`
	StartedAt   time.Time       `json:"started_at"`
	Duration    time.Duration   `json:"duration"`
}

// IdentifiedProduct is the first-writer-wins product slot filled by search
// or vision results during the agent run.
type IdentifiedProduct struct {
	Model      string  `json:"model"`
	Name       string  `json:"name"`
	Confidence float64 `json:"confidence"`
	Source     string  `json:"source"`
}

// ConstraintResult is the output of requirements-matrix validation.
type ConstraintResult struct {
	MissingFields []string `json:"missing_fields,omitempty"`
	RequiredAsks  []string `json:"required_asks,omitempty"`
	PresentFields []string `json:"present_fields,omitempty"`
	MustNotAsk    []string `json:"must_not_ask,omitempty"`
	Citations     []string `json:"citations,omitempty"`
	CanProceed    bool     `json:"can_proceed"`
	Skipped       bool     `json:"skipped"`
}

// AgentStatus is how the agent loop ended.
type AgentStatus string

const (
	StatusFinished      AgentStatus = "finished"
	StatusMaxIterations AgentStatus = "max_iterations"
)

// AgentOutcome is the loop's final product.
type AgentOutcome struct {
	Status      AgentStatus `json:"status"`
	FinalAnswer string      `json:"final_answer"`
	Confidence  float64     `json:"confidence"`
	EnoughInfo  bool        `json:"enough_info"`
	RequestInfo bool        `json:"request_info"`
	Escalate    bool        `json:"escalate"`
	Iterations  int         `json:"iterations"`
}

// Outcome is the final resolution class for a ticket.
type Outcome string

const (
	OutcomeResolved     Outcome = "RESOLVED"
	OutcomeNeedsInfo    Outcome = "NEEDS_MORE_INFO"
	OutcomeUnresolved   Outcome = "AI_UNRESOLVED"
	OutcomeLowConfidence Outcome = "LOW_CONFIDENCE_MATCH"
	OutcomeSystemError  Outcome = "SYSTEM_ERROR"
	OutcomeSkipped      Outcome = "SKIPPED"
	OutcomeDuplicate    Outcome = "DUPLICATE"
)

// Resolution is the decision engine's output: the outcome plus the tags to
// apply on the ticket.
type Resolution struct {
	Outcome Outcome  `json:"outcome"`
	Tags    []string `json:"tags"`
	Summary string   `json:"summary"`
}

// Phase is a workflow state machine position.
type Phase string

const (
	PhaseReceived         Phase = "received"
	PhaseDeduped          Phase = "deduped"
	PhaseClassified       Phase = "classified"
	PhaseSkipFinalized    Phase = "skip_finalized"
	PhaseConstraints      Phase = "constraints"
	PhaseAgentRunning     Phase = "agent_running"
	PhaseEvidenceResolved Phase = "evidence_resolved"
	PhaseDecided          Phase = "decided"
	PhasePersisted        Phase = "persisted"
	PhaseDone             Phase = "done"
	PhaseFailed           Phase = "failed"
)

// State is the per-ticket accumulator threaded through the pipeline. One
// goroutine owns a State at a time (the dedup slot is the write lock), so
// it carries no internal synchronization.
type State struct {
	CorrelationID string  `json:"correlation_id"`
	Ticket        *Ticket `json:"ticket"`
	Phase         Phase   `json:"phase"`

	Classification *Classification `json:"classification,omitempty"`
	Constraints    *ConstraintResult `json:"constraints,omitempty"`

	Steps      []AgentStep        `json:"steps,omitempty"`
	Product    *IdentifiedProduct `json:"identified_product,omitempty"`
	AgentResult *AgentOutcome     `json:"agent_result,omitempty"`

	Evidence         []evidence.Item      `json:"evidence,omitempty"`
	ProductDecision  *evidence.Resolution `json:"product_decision,omitempty"`

	Resolution *Resolution `json:"resolution,omitempty"`

	SystemErr string    `json:"system_error,omitempty"`
	StartedAt time.Time `json:"started_at"`
	EndedAt   time.Time `json:"ended_at,omitempty"`
}

// ClaimProduct fills the identified-product slot if it is still empty and
// reports whether the claim won. Later candidates never overwrite.
func (s *State) ClaimProduct(p IdentifiedProduct) bool {
	if s.Product != nil {
		return false
	}
	s.Product = &p
	return true
}

// RecordStep appends one agent iteration to the transcript.
func (s *State) RecordStep(step AgentStep) {
	s.Steps = append(s.Steps, step)
}

// RecordEvidence appends a product identification signal for the resolver.
func (s *State) RecordEvidence(items ...evidence.Item) {
	s.Evidence = append(s.Evidence, items...)
}

// HasSystemError reports whether a terminal system error was recorded.
func (s *State) HasSystemError() bool { return s.SystemErr != "" }
