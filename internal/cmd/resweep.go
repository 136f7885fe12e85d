package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/abhijyotiba/Flusso-Automation-sub000/internal/config"
	"github.com/abhijyotiba/Flusso-Automation-sub000/internal/trigger"
)

var resweepLookback time.Duration

var resweepCmd = &cobra.Command{
	Use:   "resweep",
	Short: "Sweep recently updated tickets through the pipeline once",
	Long: `Lists tickets updated within the lookback window and processes every
one that does not carry the processed tag. The serve command runs this on a
cron schedule; this command runs a single sweep and exits.`,
	RunE: runResweep,
}

func init() {
	resweepCmd.Flags().DurationVar(&resweepLookback, "lookback", 0, "how far back to scan (default from config)")
	rootCmd.AddCommand(resweepCmd)
}

func runResweep(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ctx, span := tracer.Start(ctx, "resweep")
	defer span.End()

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

	lookback := resweepLookback
	if lookback <= 0 {
		lookback = cfg.ResweepMaxAge
	}

	processed := trigger.NewResweeper(p.fd, p.engine, lookback).Sweep(ctx)
	fmt.Fprintf(cmd.OutOrStdout(), "Resweep finished: %d ticket(s) processed.\n", processed)
	return nil
}
