package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/abhijyotiba/Flusso-Automation-sub000/internal/audit"
	"github.com/abhijyotiba/Flusso-Automation-sub000/internal/config"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run preflight checks (data dir, Redis, oracle key, audit DB)",
	Long:  "Verifies the data directory is writable, Redis is reachable, the helpdesk and oracle credentials are present, and the audit DB is usable.",
	RunE:  runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

//nolint:gocyclo // preflight runs a linear sequence of independent checks
func runDoctor(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), 15*time.Second)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	out := cmd.OutOrStdout()
	ok := true

	// 1. Data directory writable
	dataDir := cfg.DataDir
	if err := cfg.EnsureDataDir(); err != nil {
		fmt.Fprintf(out, "✗ Data directory: %s — %v\n", dataDir, err)
		ok = false
	} else {
		testFile := filepath.Join(dataDir, ".doctor-write-test")
		if err := os.WriteFile(testFile, []byte("ok"), 0o600); err != nil {
			fmt.Fprintf(out, "✗ Data directory: %s not writable — %v\n", dataDir, err)
			ok = false
		} else {
			_ = os.Remove(testFile)
			fmt.Fprintf(out, "✓ Data directory: %s (writable)\n", dataDir)
		}
	}

	// 2. Redis reachable (dedup slots live there; without it no ticket runs)
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
	if err := rdb.Ping(ctx).Err(); err != nil {
		fmt.Fprintf(out, "✗ Redis: %s — %v\n", cfg.RedisAddr, err)
		ok = false
	} else {
		fmt.Fprintf(out, "✓ Redis: %s\n", cfg.RedisAddr)
	}
	_ = rdb.Close()

	// 3. Helpdesk credentials present
	switch {
	case cfg.FreshdeskBaseURL != "":
		fmt.Fprintf(out, "✓ Freshdesk: %s (base URL override)\n", cfg.FreshdeskBaseURL)
	case cfg.FreshdeskDomain == "" || cfg.FreshdeskAPIKey == "":
		fmt.Fprintf(out, "✗ Freshdesk: set FLUSSO_FRESHDESK_DOMAIN and FLUSSO_FRESHDESK_API_KEY\n")
		ok = false
	default:
		fmt.Fprintf(out, "✓ Freshdesk: %s.freshdesk.com\n", cfg.FreshdeskDomain)
	}

	// 4. Oracle key for the configured provider
	switch cfg.OracleProvider {
	case "openai":
		if cfg.OpenAIAPIKey == "" {
			fmt.Fprintf(out, "✗ Oracle: provider openai selected but FLUSSO_OPENAI_API_KEY unset\n")
			ok = false
		} else {
			fmt.Fprintf(out, "✓ Oracle: openai (%s / %s)\n", cfg.OracleClassifyModel, cfg.OracleAgentModel)
		}
	case "anthropic":
		if cfg.AnthropicAPIKey == "" {
			fmt.Fprintf(out, "✗ Oracle: provider anthropic selected but FLUSSO_ANTHROPIC_API_KEY unset\n")
			ok = false
		} else {
			fmt.Fprintf(out, "✓ Oracle: anthropic (%s / %s)\n", cfg.OracleClassifyModel, cfg.OracleAgentModel)
		}
	case "ollama":
		fmt.Fprintf(out, "✓ Oracle: ollama at %s\n", cfg.OllamaBaseURL)
	default:
		fmt.Fprintf(out, "✗ Oracle: unknown provider %q\n", cfg.OracleProvider)
		ok = false
	}

	// 5. Signing key (warn if default)
	if cfg.UsingDefaultSigningKey() {
		fmt.Fprintf(out, "⚠ Signing key: using generated default — set FLUSSO_SIGNING_KEY for production\n")
	} else {
		fmt.Fprintf(out, "✓ Signing key: configured\n")
	}

	// 6. SQLite audit store
	store, err := audit.NewStore(cfg.AuditDBPath(), cfg.SigningKey)
	if err != nil {
		fmt.Fprintf(out, "✗ Audit DB: %v\n", err)
		ok = false
	} else {
		_ = store.Close()
		fmt.Fprintf(out, "✓ Audit DB: %s\n", cfg.AuditDBPath())
	}

	if !ok {
		return fmt.Errorf("preflight checks failed")
	}
	fmt.Fprintf(out, "\nAll checks passed.\n")
	return nil
}
