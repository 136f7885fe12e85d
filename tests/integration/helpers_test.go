//go:build integration

package integration

import (
	"context"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/abhijyotiba/Flusso-Automation-sub000/internal/agent"
	"github.com/abhijyotiba/Flusso-Automation-sub000/internal/agent/tools"
	"github.com/abhijyotiba/Flusso-Automation-sub000/internal/audit"
	"github.com/abhijyotiba/Flusso-Automation-sub000/internal/classify"
	"github.com/abhijyotiba/Flusso-Automation-sub000/internal/constraints"
	"github.com/abhijyotiba/Flusso-Automation-sub000/internal/decision"
	"github.com/abhijyotiba/Flusso-Automation-sub000/internal/dedup"
	"github.com/abhijyotiba/Flusso-Automation-sub000/internal/evidence"
	"github.com/abhijyotiba/Flusso-Automation-sub000/internal/freshdesk"
	"github.com/abhijyotiba/Flusso-Automation-sub000/internal/llm"
	"github.com/abhijyotiba/Flusso-Automation-sub000/internal/search"
	"github.com/abhijyotiba/Flusso-Automation-sub000/internal/server"
	"github.com/abhijyotiba/Flusso-Automation-sub000/internal/testutil"
	"github.com/abhijyotiba/Flusso-Automation-sub000/internal/ticket"
	"github.com/abhijyotiba/Flusso-Automation-sub000/internal/trigger"
	"github.com/abhijyotiba/Flusso-Automation-sub000/internal/workflow"
)

// stack is everything one integration scenario needs: the HTTP handler at
// the front, the recording helpdesk at the back, and the audit store in
// between.
type stack struct {
	handler  http.Handler
	helpdesk *testutil.MockHelpdesk
	store    *audit.Store
	ring     *audit.Ring
}

// setupStack wires the real pipeline end to end: webhook handler, workflow
// engine, classifier and agent loop over an OpenAI-compatible mock oracle,
// Redis-backed dedup, SQLite audit store. Only the network edges (helpdesk,
// oracle, vector search) are fakes.
func setupStack(t *testing.T, ticketJSON string, oracleResponses ...string) *stack {
	t.Helper()

	helpdesk := testutil.NewMockHelpdesk(ticketJSON)
	t.Cleanup(helpdesk.Close)
	fd := freshdesk.NewHTTPClientWithBaseURL(helpdesk.URL(), "test-key")

	oracleSrv := testutil.NewOracleServer(oracleResponses...)
	t.Cleanup(oracleSrv.Close)
	provider := llm.NewOpenAIProviderWithBaseURL("test-key", oracleSrv.URL)
	router := llm.NewRouter(provider, "gpt-4o-mini", "gpt-4o")

	tables, err := classify.DefaultTables("")
	require.NoError(t, err)

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	cache := dedup.New(rdb, time.Hour)

	store, err := audit.NewStore(filepath.Join(t.TempDir(), "audit.db"), testutil.TestSigningKey)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	ring := audit.NewRing(64)

	// The vector backend is never reached in these scenarios; the oracle
	// finishes before calling a search tool.
	idx := search.NewClient("http://127.0.0.1:1", "http://127.0.0.1:1", "")

	runner := workflow.AgentRunnerFunc(func(ctx context.Context, st *ticket.State) (*ticket.AgentOutcome, error) {
		reg := tools.NewRegistry()
		reg.Register(tools.NewProductSearchTool(idx))
		reg.Register(tools.NewDocumentSearchTool(idx))
		reg.Register(tools.NewPastTicketsTool(idx))
		reg.Register(tools.NewTicketFactsTool(st.Ticket))
		if len(st.Ticket.ImageURLs()) > 0 {
			reg.Register(tools.NewAttachmentAnalysisTool(idx))
		}
		return agent.NewLoop(router, reg, nil, 5).Run(ctx, st)
	})

	engine := workflow.New(workflow.Options{
		Freshdesk:  fd,
		Dedup:      cache,
		Classifier: classify.New(router, tables),
		Validator:  constraints.NewValidator(),
		Agent:      runner,
		Resolver:   evidence.NewResolver(evidence.DefaultThresholds()),
		Decider:    decision.NewEngine(0),
		Audit:      store,
		Ring:       ring,
		Timeout:    time.Minute,
	})

	srv := server.NewServer(trigger.NewWebhookHandler(engine), store, ring, cache)
	return &stack{handler: srv.Routes(), helpdesk: helpdesk, store: store, ring: ring}
}
