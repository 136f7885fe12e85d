package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhijyotiba/Flusso-Automation-sub000/internal/agent/tools"
	"github.com/abhijyotiba/Flusso-Automation-sub000/internal/evidence"
	"github.com/abhijyotiba/Flusso-Automation-sub000/internal/fault"
	"github.com/abhijyotiba/Flusso-Automation-sub000/internal/llm"
	"github.com/abhijyotiba/Flusso-Automation-sub000/internal/search"
	"github.com/abhijyotiba/Flusso-Automation-sub000/internal/ticket"
)

type scriptedOracle struct {
	responses []string
	errs      []error
	calls     int
}

func (o *scriptedOracle) Complete(_ context.Context, _ llm.Task, _ []llm.Message, _ float64, _ int) (*llm.Response, error) {
	i := o.calls
	o.calls++
	if i < len(o.errs) && o.errs[i] != nil {
		return nil, o.errs[i]
	}
	if i >= len(o.responses) {
		i = len(o.responses) - 1
	}
	return &llm.Response{Content: o.responses[i]}, nil
}

type fakeTool struct {
	name   string
	result *tools.Result
	err    error
	calls  int
}

func (f *fakeTool) Name() string                 { return f.name }
func (f *fakeTool) Description() string          { return "test tool" }
func (f *fakeTool) InputSchema() json.RawMessage { return json.RawMessage(`{"type":"object"}`) }

func (f *fakeTool) Execute(_ context.Context, _ json.RawMessage) (*tools.Result, error) {
	f.calls++
	return f.result, f.err
}

func toolDirective(action, query string) string {
	return fmt.Sprintf(`{"thought":"try %s","action":%q,"action_input":{"query":%q}}`, action, action, query)
}

const finishDirective = `{"thought":"done","action":"finish","final_answer":"Replace the cartridge.","confidence":0.8,"enough_info":true}`

func newTestState() *ticket.State {
	return &ticket.State{
		CorrelationID: "corr_test",
		Ticket:        &ticket.Ticket{ID: 42, Subject: "Leaky faucet", Text: "My FLX-100 drips constantly."},
	}
}

func TestRunFinishes(t *testing.T) {
	reg := tools.NewRegistry()
	search1 := &fakeTool{name: "product_search", result: &tools.Result{
		Kind:     tools.KindProductMatch,
		Products: []search.ProductHit{{Model: "FLX-100", Name: "Flex Faucet", Score: 91, Exact: true}},
	}}
	reg.Register(search1)

	oracle := &scriptedOracle{responses: []string{
		toolDirective("product_search", "leaky faucet"),
		finishDirective,
	}}
	st := newTestState()

	out, err := NewLoop(oracle, reg, nil, 5).Run(context.Background(), st)
	require.NoError(t, err)
	assert.Equal(t, ticket.StatusFinished, out.Status)
	assert.Equal(t, 0.8, out.Confidence)
	assert.Equal(t, 2, out.Iterations)
	assert.Len(t, st.Steps, 2)

	require.NotNil(t, st.Product)
	assert.Equal(t, "FLX-100", st.Product.Model)
	assert.Equal(t, "product_search", st.Product.Source)

	require.Len(t, st.Evidence, 1)
	assert.Equal(t, evidence.SourceAgent, st.Evidence[0].Source)
	assert.Equal(t, 0.91, st.Evidence[0].Confidence)
	assert.True(t, st.Evidence[0].IsExactMatch)
}

func TestRunForcedFinishAtBudget(t *testing.T) {
	reg := tools.NewRegistry()
	reg.Register(&fakeTool{name: "product_search", result: &tools.Result{Kind: tools.KindProductMatch}})

	oracle := &scriptedOracle{responses: []string{toolDirective("product_search", "anything")}}
	st := newTestState()

	out, err := NewLoop(oracle, reg, nil, 3).Run(context.Background(), st)
	require.NoError(t, err)
	assert.Equal(t, ticket.StatusMaxIterations, out.Status)
	assert.Equal(t, forcedFinishConfidence, out.Confidence)
	assert.Equal(t, 3, out.Iterations)
}

func TestRunSuppressesDuplicateCalls(t *testing.T) {
	reg := tools.NewRegistry()
	tool := &fakeTool{name: "product_search", result: &tools.Result{Kind: tools.KindProductMatch}}
	reg.Register(tool)

	oracle := &scriptedOracle{responses: []string{
		toolDirective("product_search", "same query"),
		toolDirective("product_search", "same query"),
		finishDirective,
	}}
	st := newTestState()

	out, err := NewLoop(oracle, reg, nil, 10).Run(context.Background(), st)
	require.NoError(t, err)
	assert.Equal(t, ticket.StatusFinished, out.Status)
	assert.Equal(t, 1, tool.calls)
	require.Len(t, st.Steps, 3)
	assert.Contains(t, st.Steps[1].Observation, "already attempted")
}

func TestRunDegradesFailingTool(t *testing.T) {
	reg := tools.NewRegistry()
	tool := &fakeTool{name: "product_search", err: fmt.Errorf("backend down")}
	reg.Register(tool)

	oracle := &scriptedOracle{responses: []string{
		toolDirective("product_search", "q1"),
		toolDirective("product_search", "q2"),
		toolDirective("product_search", "q3"),
		toolDirective("product_search", "q4"),
		finishDirective,
	}}
	st := newTestState()

	out, err := NewLoop(oracle, reg, nil, 10).Run(context.Background(), st)
	require.NoError(t, err)
	assert.Equal(t, ticket.StatusFinished, out.Status)
	assert.Equal(t, 3, tool.calls)
	assert.Contains(t, st.Steps[3].Observation, "unavailable")
}

func TestRunUnknownToolObservation(t *testing.T) {
	oracle := &scriptedOracle{responses: []string{
		toolDirective("teleport", "q"),
		finishDirective,
	}}
	st := newTestState()

	out, err := NewLoop(oracle, tools.NewRegistry(), nil, 5).Run(context.Background(), st)
	require.NoError(t, err)
	assert.Equal(t, ticket.StatusFinished, out.Status)
	assert.Contains(t, st.Steps[0].Observation, "unknown tool")
}

func TestRunRepromptRecoversMalformedTurn(t *testing.T) {
	oracle := &scriptedOracle{responses: []string{
		"let me think about this out loud",
		finishDirective,
	}}
	st := newTestState()

	out, err := NewLoop(oracle, tools.NewRegistry(), nil, 5).Run(context.Background(), st)
	require.NoError(t, err)
	assert.Equal(t, ticket.StatusFinished, out.Status)
	assert.Equal(t, 1, out.Iterations)
	assert.Equal(t, 2, oracle.calls)
}

func TestRunMalformedTurnIsRecordedAndSkipped(t *testing.T) {
	oracle := &scriptedOracle{responses: []string{
		"not json",
		"{still not json",
		finishDirective,
	}}
	st := newTestState()

	out, err := NewLoop(oracle, tools.NewRegistry(), nil, 5).Run(context.Background(), st)
	require.NoError(t, err)
	assert.Equal(t, ticket.StatusFinished, out.Status)
	assert.Equal(t, 2, out.Iterations)
	require.Len(t, st.Steps, 2)
	assert.Equal(t, "malformed_response", st.Steps[0].Action)
}

func TestRunOracleErrorSurfaces(t *testing.T) {
	oracle := &scriptedOracle{errs: []error{fmt.Errorf("read tcp: %w", fault.ErrTransientIO)}}
	st := newTestState()

	_, err := NewLoop(oracle, tools.NewRegistry(), nil, 5).Run(context.Background(), st)
	require.Error(t, err)
	assert.ErrorIs(t, err, fault.ErrTransientIO)
}

func TestRunBreakerOpenFailsFast(t *testing.T) {
	breaker := NewBreaker(1, 0)
	oracle := &scriptedOracle{errs: []error{fmt.Errorf("upstream: %w", fault.ErrTransientIO)}}

	loop := NewLoop(oracle, tools.NewRegistry(), breaker, 5)
	_, err := loop.Run(context.Background(), newTestState())
	require.Error(t, err)
	assert.Equal(t, CircuitOpen, breaker.State(string(llm.TaskAgent)))

	// The next run is rejected before the oracle is called.
	calls := oracle.calls
	_, err = loop.Run(context.Background(), newTestState())
	require.Error(t, err)
	assert.True(t, fault.IsSystem(err))
	assert.Equal(t, calls, oracle.calls)
}

func TestHarvestTicketFactsEvidence(t *testing.T) {
	st := newTestState()
	res := &tools.Result{Kind: tools.KindFacts, Facts: map[string]string{"model_candidates": "FLX-100"}}
	harvest(st, "ticket_facts", res)

	require.Len(t, st.Evidence, 1)
	assert.Equal(t, evidence.SourceTicketFacts, st.Evidence[0].Source)
	assert.Equal(t, 0.80, st.Evidence[0].Confidence)

	// Multiple candidates weaken the signal.
	st2 := newTestState()
	res2 := &tools.Result{Kind: tools.KindFacts, Facts: map[string]string{"model_candidates": "FLX-100,AB-200"}}
	harvest(st2, "ticket_facts", res2)
	require.Len(t, st2.Evidence, 1)
	assert.Equal(t, 0.55, st2.Evidence[0].Confidence)
}

func TestHarvestDocumentEvidence(t *testing.T) {
	st := newTestState()
	res := &tools.Result{Kind: tools.KindDocumentHit, Documents: []search.DocumentHit{
		{Title: "FLX-100 installation guide", Snippet: "cartridge replacement", Score: 0.77},
	}}
	harvest(st, "document_search", res)

	require.Len(t, st.Evidence, 1)
	assert.Equal(t, evidence.SourceDocumentAnalysis, st.Evidence[0].Source)
	assert.Equal(t, "FLX-100", st.Evidence[0].ProductModel)
	assert.Equal(t, 0.77, st.Evidence[0].Confidence)
}

func TestHarvestImageAnalysisEvidence(t *testing.T) {
	st := newTestState()
	res := &tools.Result{Kind: tools.KindImageAnalysis, Analysis: &search.ImageAnalysis{
		ImageType:    "serial_label",
		Confidence:   0.92,
		ModelNumbers: []string{"FLX-100", "FLX-100B"},
	}}
	harvest(st, "attachment_analysis", res)

	require.Len(t, st.Evidence, 1)
	assert.Equal(t, evidence.SourceOCR, st.Evidence[0].Source)
	assert.Equal(t, "FLX-100", st.Evidence[0].ProductModel)
	assert.Equal(t, 0.92, st.Evidence[0].Confidence)

	// No model number on the image, no evidence.
	st2 := newTestState()
	res2 := &tools.Result{Kind: tools.KindImageAnalysis, Analysis: &search.ImageAnalysis{ImageType: "damaged_item", Confidence: 0.80}}
	harvest(st2, "attachment_analysis", res2)
	assert.Empty(t, st2.Evidence)
}

func TestHarvestLowScoreDoesNotClaimProduct(t *testing.T) {
	st := newTestState()
	res := &tools.Result{Kind: tools.KindProductMatch, Products: []search.ProductHit{
		{Model: "FLX-100", Score: 25},
	}}
	harvest(st, "product_search", res)

	assert.Nil(t, st.Product)
	require.Len(t, st.Evidence, 1)
	assert.Equal(t, 0.25, st.Evidence[0].Confidence)
}
