package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/abhijyotiba/Flusso-Automation-sub000/internal/agent"
	"github.com/abhijyotiba/Flusso-Automation-sub000/internal/agent/tools"
	"github.com/abhijyotiba/Flusso-Automation-sub000/internal/audit"
	"github.com/abhijyotiba/Flusso-Automation-sub000/internal/classify"
	"github.com/abhijyotiba/Flusso-Automation-sub000/internal/config"
	"github.com/abhijyotiba/Flusso-Automation-sub000/internal/constraints"
	"github.com/abhijyotiba/Flusso-Automation-sub000/internal/decision"
	"github.com/abhijyotiba/Flusso-Automation-sub000/internal/dedup"
	"github.com/abhijyotiba/Flusso-Automation-sub000/internal/evidence"
	"github.com/abhijyotiba/Flusso-Automation-sub000/internal/freshdesk"
	"github.com/abhijyotiba/Flusso-Automation-sub000/internal/llm"
	"github.com/abhijyotiba/Flusso-Automation-sub000/internal/search"
	"github.com/abhijyotiba/Flusso-Automation-sub000/internal/server"
	"github.com/abhijyotiba/Flusso-Automation-sub000/internal/ticket"
	"github.com/abhijyotiba/Flusso-Automation-sub000/internal/trigger"
	"github.com/abhijyotiba/Flusso-Automation-sub000/internal/workflow"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the Flusso server with webhook intake and the resweep cron",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config, :8080)")
	rootCmd.AddCommand(serveCmd)
}

// parseAPIKeys returns a map of key -> operator name from FLUSSO_API_KEYS
// (comma-separated; each entry key or key:name).
func parseAPIKeys(env string) map[string]string {
	m := make(map[string]string)
	if env == "" {
		return m
	}
	for _, part := range strings.Split(env, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name := "default"
		if idx := strings.Index(part, ":"); idx > 0 {
			name = strings.TrimSpace(part[idx+1:])
			part = strings.TrimSpace(part[:idx])
		}
		m[part] = name
	}
	return m
}

// pipeline bundles everything the serve and process commands build from
// config: the workflow engine plus the handles they need for shutdown and
// for the operator API.
type pipeline struct {
	engine *workflow.Engine
	fd     *freshdesk.HTTPClient
	store  *audit.Store
	ring   *audit.Ring
	cache  *dedup.Cache
	rdb    *redis.Client
}

func (p *pipeline) Close() {
	_ = p.store.Close()
	_ = p.rdb.Close()
}

// agentRunner builds a fresh tool registry per ticket. ticket_facts binds to
// one ticket, and visual_search only joins when the category and
// attachments call for it, so the registry cannot be shared across runs.
func agentRunner(oracle agent.Oracle, idx *search.Client, breaker *agent.Breaker, maxIterations int) workflow.AgentRunnerFunc {
	return func(ctx context.Context, st *ticket.State) (*ticket.AgentOutcome, error) {
		reg := tools.NewRegistry()
		reg.Register(tools.NewProductSearchTool(idx))
		reg.Register(tools.NewDocumentSearchTool(idx))
		reg.Register(tools.NewPastTicketsTool(idx))
		reg.Register(tools.NewTicketFactsTool(st.Ticket))

		var category ticket.Category
		if st.Classification != nil {
			category = st.Classification.Category
		}
		hasImages := len(st.Ticket.ImageURLs()) > 0
		if ticket.UsesVision(category, hasImages) {
			reg.Register(tools.NewVisualSearchTool(idx, idx))
		}
		if hasImages {
			reg.Register(tools.NewAttachmentAnalysisTool(idx))
		}

		return agent.NewLoop(oracle, reg, breaker, maxIterations).Run(ctx, st)
	}
}

func buildPipeline(cfg *config.Config) (*pipeline, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	cache := dedup.New(rdb, cfg.DedupTTL)

	store, err := audit.NewStore(cfg.AuditDBPath(), cfg.SigningKey)
	if err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("initializing audit store: %w", err)
	}
	ring := audit.NewRing(cfg.AuditRingCapacity)

	router, err := llm.FromConfig(cfg)
	if err != nil {
		_ = store.Close()
		_ = rdb.Close()
		return nil, fmt.Errorf("building oracle router: %w", err)
	}

	tables, err := classify.DefaultTables(cfg.CategoryTablesPath)
	if err != nil {
		_ = store.Close()
		_ = rdb.Close()
		return nil, fmt.Errorf("loading category tables: %w", err)
	}

	idx := search.NewClient(cfg.VectorBaseURL, cfg.EmbedderBaseURL, cfg.VectorAPIKey)

	var fd *freshdesk.HTTPClient
	if cfg.FreshdeskBaseURL != "" {
		fd = freshdesk.NewHTTPClientWithBaseURL(cfg.FreshdeskBaseURL, cfg.FreshdeskAPIKey)
	} else {
		fd = freshdesk.NewHTTPClient(cfg.FreshdeskDomain, cfg.FreshdeskAPIKey)
	}

	// One breaker across all runs; a flapping provider trips it once.
	breaker := agent.NewBreaker(0, 0)

	engine := workflow.New(workflow.Options{
		Freshdesk:  fd,
		Dedup:      cache,
		Classifier: classify.New(router, tables),
		Validator:  constraints.NewValidator(),
		Agent:      agentRunner(router, idx, breaker, cfg.MaxIterations),
		Resolver: evidence.NewResolver(evidence.Thresholds{
			VisionHigh:   cfg.Thresholds.VisionHigh,
			VisionMedium: cfg.Thresholds.VisionMedium,
			OCR:          cfg.Thresholds.OCR,
			TicketFacts:  cfg.Thresholds.TicketFacts,
			AgentTrust:   cfg.Thresholds.AgentTrust,
		}),
		Decider: decision.NewEngine(cfg.Thresholds.ConfidenceFloor),
		Audit:   store,
		Ring:    ring,
		Timeout: cfg.TicketTimeout,
	})

	return &pipeline{engine: engine, fd: fd, store: store, ring: ring, cache: cache, rdb: rdb}, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.EnsureDataDir(); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}
	cfg.WarnIfDefaultKeys()

	p, err := buildPipeline(cfg)
	if err != nil {
		return err
	}
	defer p.Close()

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	if err := p.cache.Ping(pingCtx); err != nil {
		log.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("redis_unreachable")
	}
	cancel()

	resweeper := trigger.NewResweeper(p.fd, p.engine, cfg.ResweepMaxAge)
	if err := resweeper.Register(cfg.ResweepSpec); err != nil {
		return fmt.Errorf("registering resweep schedule: %w", err)
	}
	resweeper.Start()
	defer resweeper.Stop()

	apiKeys := parseAPIKeys(os.Getenv("FLUSSO_API_KEYS"))
	if len(apiKeys) == 0 {
		log.Warn().Msg("FLUSSO_API_KEYS not set — operator endpoints are open. Set for production.")
	}

	srv := server.NewServer(
		trigger.NewWebhookHandler(p.engine),
		p.store,
		p.ring,
		p.cache,
		server.WithCORSOrigins([]string{"*"}),
		server.WithVersion(resolvedVersion()),
		server.WithAPIKeys(apiKeys),
	)

	addr := serveAddr
	if addr == "" {
		addr = cfg.ListenAddr
	}
	// WriteTimeout must outlast a full ticket run; the webhook responds
	// only when the pipeline finishes.
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      srv.Routes(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.TicketTimeout + 5*time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	log.Info().
		Str("addr", addr).
		Int("cron_entries", resweeper.Entries()).
		Str("oracle_provider", cfg.OracleProvider).
		Str("freshdesk_domain", cfg.FreshdeskDomain).
		Dur("dedup_ttl", cfg.DedupTTL).
		Msg("flusso_serve_started")

	errCh := make(chan error, 1)
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown_signal_received")
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	log.Info().Msg("server_stopped")
	return nil
}
