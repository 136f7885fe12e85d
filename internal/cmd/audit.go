package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/abhijyotiba/Flusso-Automation-sub000/internal/audit"
	"github.com/abhijyotiba/Flusso-Automation-sub000/internal/config"
)

var (
	auditTicketID    int64
	auditCorrelation string
	auditOutcome     string
	auditLimit       int
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Query and verify the signed audit trail",
}

var auditListCmd = &cobra.Command{
	Use:   "list",
	Short: "List audit events",
	RunE:  auditList,
}

var auditShowCmd = &cobra.Command{
	Use:   "show [event-id]",
	Short: "Show one audit event as JSON",
	Args:  cobra.ExactArgs(1),
	RunE:  auditShow,
}

var auditVerifyCmd = &cobra.Command{
	Use:   "verify [event-id]",
	Short: "Verify the HMAC signature of an audit event",
	Args:  cobra.ExactArgs(1),
	RunE:  auditVerify,
}

func init() {
	auditListCmd.Flags().Int64Var(&auditTicketID, "ticket", 0, "Filter by ticket ID")
	auditListCmd.Flags().StringVar(&auditCorrelation, "correlation", "", "Filter by correlation ID")
	auditListCmd.Flags().StringVar(&auditOutcome, "outcome", "", "Filter by outcome")
	auditListCmd.Flags().IntVar(&auditLimit, "limit", 20, "Maximum events to show")

	auditCmd.AddCommand(auditListCmd)
	auditCmd.AddCommand(auditShowCmd)
	auditCmd.AddCommand(auditVerifyCmd)
	rootCmd.AddCommand(auditCmd)
}

func openAuditStore() (*audit.Store, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.EnsureDataDir(); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	return audit.NewStore(cfg.AuditDBPath(), cfg.SigningKey)
}

func auditList(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()

	store, err := openAuditStore()
	if err != nil {
		return fmt.Errorf("initializing audit store: %w", err)
	}
	defer store.Close()

	events, err := store.List(ctx, audit.Filter{
		TicketID:      auditTicketID,
		CorrelationID: auditCorrelation,
		Outcome:       auditOutcome,
		Limit:         auditLimit,
	})
	if err != nil {
		return fmt.Errorf("querying audit trail: %w", err)
	}

	if len(events) == 0 {
		fmt.Println("No audit events found.")
		return nil
	}
	renderAuditList(os.Stdout, events)
	return nil
}

func auditShow(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()

	store, err := openAuditStore()
	if err != nil {
		return fmt.Errorf("initializing audit store: %w", err)
	}
	defer store.Close()

	ev, err := store.Get(ctx, args[0])
	if err != nil {
		return fmt.Errorf("loading audit event: %w", err)
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(ev)
}

func auditVerify(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()

	eventID := args[0]

	store, err := openAuditStore()
	if err != nil {
		return fmt.Errorf("initializing audit store: %w", err)
	}
	defer store.Close()

	valid, err := store.Verify(ctx, eventID)
	if err != nil {
		return fmt.Errorf("verifying audit event: %w", err)
	}
	renderVerifyResult(os.Stdout, eventID, valid)
	if !valid {
		return fmt.Errorf("signature verification failed for %s", eventID)
	}
	return nil
}

// renderAuditList writes audit event lines to w (testable).
func renderAuditList(w io.Writer, events []audit.Event) {
	fmt.Fprintf(w, "Audit Events (showing %d):\n\n", len(events))
	for i := range events {
		ev := &events[i]
		outcome := ev.Outcome
		if outcome == "" {
			outcome = "-"
		}
		fmt.Fprintf(w, "  %s | %s | ticket %d | %s | %s | %s | %dms\n",
			ev.ID,
			ev.Timestamp.Format("2006-01-02 15:04:05"),
			ev.TicketID,
			ev.Phase,
			ev.Action,
			outcome,
			ev.DurationMS,
		)
	}
}

// renderVerifyResult writes verify outcome to w (testable).
func renderVerifyResult(w io.Writer, eventID string, valid bool) {
	if valid {
		fmt.Fprintf(w, "✓ Event %s: signature VALID (HMAC-SHA256 intact)\n", eventID)
	} else {
		fmt.Fprintf(w, "✗ Event %s: signature INVALID (possible tampering)\n", eventID)
	}
}
