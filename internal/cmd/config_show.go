package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/abhijyotiba/Flusso-Automation-sub000/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage Flusso configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show resolved configuration (secrets redacted)",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, span := tracer.Start(cmd.Context(), "config.show")
		defer span.End()

		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		renderConfig(cmd.OutOrStdout(), cfg)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	rootCmd.AddCommand(configCmd)
}

func redacted(v string) string {
	if v == "" {
		return "(unset)"
	}
	return "(set)"
}

func renderConfig(w io.Writer, cfg *config.Config) {
	fmt.Fprintf(w, "Data dir:            %s\n", cfg.DataDir)
	fmt.Fprintf(w, "Listen addr:         %s\n", cfg.ListenAddr)
	fmt.Fprintf(w, "Signing key:         %s\n", redacted(cfg.SigningKey))
	fmt.Fprintf(w, "Freshdesk domain:    %s\n", cfg.FreshdeskDomain)
	fmt.Fprintf(w, "Freshdesk API key:   %s\n", redacted(cfg.FreshdeskAPIKey))
	fmt.Fprintf(w, "Oracle provider:     %s\n", cfg.OracleProvider)
	fmt.Fprintf(w, "Classify model:      %s\n", cfg.OracleClassifyModel)
	fmt.Fprintf(w, "Agent model:         %s\n", cfg.OracleAgentModel)
	fmt.Fprintf(w, "Vector base URL:     %s\n", cfg.VectorBaseURL)
	fmt.Fprintf(w, "Embedder base URL:   %s\n", cfg.EmbedderBaseURL)
	fmt.Fprintf(w, "Redis addr:          %s\n", cfg.RedisAddr)
	fmt.Fprintf(w, "Max iterations:      %d\n", cfg.MaxIterations)
	fmt.Fprintf(w, "Ticket timeout:      %s\n", cfg.TicketTimeout)
	fmt.Fprintf(w, "Dedup TTL:           %s\n", cfg.DedupTTL)
	fmt.Fprintf(w, "Audit ring capacity: %d\n", cfg.AuditRingCapacity)
	fmt.Fprintf(w, "Confidence floor:    %.2f\n", cfg.Thresholds.ConfidenceFloor)
	fmt.Fprintf(w, "Resweep cron:        %s\n", cfg.ResweepSpec)
	fmt.Fprintf(w, "Resweep max age:     %s\n", cfg.ResweepMaxAge)
	if cfg.UsingDefaultSigningKey() {
		fmt.Fprintf(w, "\n⚠ signing key is a generated default — set FLUSSO_SIGNING_KEY for production\n")
	}
}
