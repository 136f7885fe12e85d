package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/abhijyotiba/Flusso-Automation-sub000/internal/config"
	"github.com/abhijyotiba/Flusso-Automation-sub000/internal/workflow"
)

var processCmd = &cobra.Command{
	Use:   "process <ticket-id>",
	Short: "Run the resolution pipeline once for a single ticket",
	Long: `Fetches the ticket, runs the full pipeline (classification, constraint
validation, agent loop, decision) and writes the draft note and tags back.
Useful for reprocessing a ticket by hand or testing a deployment.`,
	Args: cobra.ExactArgs(1),
	RunE: runProcess,
}

func init() {
	rootCmd.AddCommand(processCmd)
}

func runProcess(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ctx, span := tracer.Start(ctx, "process")
	defer span.End()

	ticketID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || ticketID <= 0 {
		return fmt.Errorf("ticket id must be a positive integer, got %q", args[0])
	}

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

	res := p.engine.Process(ctx, ticketID, "")

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		return err
	}

	if res.Status == workflow.StatusError || res.Status == workflow.StatusTimeout {
		return fmt.Errorf("ticket %d finished with status %s", ticketID, res.Status)
	}
	return nil
}
