// Package trigger owns the two entry points into the pipeline: the webhook
// handler for pushed deliveries and the cron resweeper that catches tickets
// the webhook missed.
package trigger

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"github.com/abhijyotiba/Flusso-Automation-sub000/internal/freshdesk"
	"github.com/abhijyotiba/Flusso-Automation-sub000/internal/workflow"
)

// DefaultLookback is how far back a sweep looks for updated tickets.
const DefaultLookback = time.Hour

const sweepTimeout = 30 * time.Minute

// TicketLister is the slice of the freshdesk client the resweeper needs.
type TicketLister interface {
	ListRecent(ctx context.Context, lookback time.Duration) ([]freshdesk.TicketRef, error)
}

// Resweeper periodically reprocesses recently updated tickets. The dedup
// slot keeps a sweep from colliding with webhook deliveries of the same
// ticket.
type Resweeper struct {
	cron      *cron.Cron
	lister    TicketLister
	processor Processor
	lookback  time.Duration
}

// NewResweeper creates a resweeper. lookback <= 0 defaults to
// DefaultLookback. Cron expressions use the standard 5-field format.
func NewResweeper(lister TicketLister, processor Processor, lookback time.Duration) *Resweeper {
	if lookback <= 0 {
		lookback = DefaultLookback
	}
	return &Resweeper{
		cron:      cron.New(),
		lister:    lister,
		processor: processor,
		lookback:  lookback,
	}
}

// Register adds a sweep at the given cron spec.
func (s *Resweeper) Register(spec string) error {
	_, err := s.cron.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
		defer cancel()
		s.Sweep(ctx)
	})
	if err != nil {
		return fmt.Errorf("registering resweep cron %q: %w", spec, err)
	}
	return nil
}

// Sweep runs one pass: list recently updated tickets and push each through
// the pipeline. Tickets a previous run already finished are skipped up
// front; the dedup cache suppresses the rest. Returns how many tickets were
// actually processed.
func (s *Resweeper) Sweep(ctx context.Context) int {
	refs, err := s.lister.ListRecent(ctx, s.lookback)
	if err != nil {
		log.Error().Err(err).Msg("resweep_list_failed")
		return 0
	}
	log.Info().Int("candidates", len(refs)).Msg("resweep_started")

	processed := 0
	for _, ref := range refs {
		if ctx.Err() != nil {
			log.Warn().Msg("resweep_deadline_hit")
			break
		}
		if freshdesk.HasProcessedTag(ref.Tags) {
			continue
		}
		updatedAt := ""
		if !ref.UpdatedAt.IsZero() {
			updatedAt = ref.UpdatedAt.UTC().Format(time.RFC3339)
		}
		res := s.processor.Process(ctx, ref.ID, updatedAt)
		if res.Status == workflow.StatusProcessed {
			processed++
		}
	}
	log.Info().Int("processed", processed).Msg("resweep_finished")
	return processed
}

// Start begins executing registered sweeps.
func (s *Resweeper) Start() {
	s.cron.Start()
}

// Stop halts the scheduler and waits for a running sweep to complete.
func (s *Resweeper) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

// Entries returns the number of registered cron entries.
func (s *Resweeper) Entries() int {
	return len(s.cron.Entries())
}
