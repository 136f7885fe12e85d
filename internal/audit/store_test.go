package audit

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhijyotiba/Flusso-Automation-sub000/internal/ticket"
)

const testKey = "0123456789abcdef0123456789abcdef"

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "audit.db"), testKey)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestAppendAndGet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	ev := &Event{
		CorrelationID: "corr-1",
		TicketID:      42,
		Phase:         ticket.PhaseDecided,
		Action:        "resolution_decided",
		Outcome:       string(ticket.OutcomeResolved),
		DurationMS:    1200,
		Record:        json.RawMessage(`{"confidence":0.9}`),
	}
	require.NoError(t, s.Append(ctx, ev))
	assert.NotEmpty(t, ev.ID)
	assert.NotEmpty(t, ev.Signature)
	assert.False(t, ev.Timestamp.IsZero())

	got, err := s.Get(ctx, ev.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(42), got.TicketID)
	assert.Equal(t, ticket.PhaseDecided, got.Phase)
	assert.Equal(t, "resolution_decided", got.Action)
	assert.JSONEq(t, `{"confidence":0.9}`, string(got.Record))
}

func TestGetMissing(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Get(context.Background(), "nope")
	assert.ErrorContains(t, err, "not found")
}

func TestListFilters(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)

	for i, ev := range []*Event{
		{TicketID: 1, Action: "classified", Outcome: "", Phase: ticket.PhaseClassified},
		{TicketID: 1, Action: "resolution_decided", Outcome: string(ticket.OutcomeResolved), Phase: ticket.PhaseDecided},
		{TicketID: 2, Action: "resolution_decided", Outcome: string(ticket.OutcomeNeedsInfo), Phase: ticket.PhaseDecided},
	} {
		ev.Timestamp = base.Add(time.Duration(i) * time.Minute)
		ev.CorrelationID = "corr"
		require.NoError(t, s.Append(ctx, ev))
	}

	byTicket, err := s.List(ctx, Filter{TicketID: 1})
	require.NoError(t, err)
	require.Len(t, byTicket, 2)
	// Newest first.
	assert.Equal(t, "resolution_decided", byTicket[0].Action)

	byOutcome, err := s.List(ctx, Filter{Outcome: string(ticket.OutcomeNeedsInfo)})
	require.NoError(t, err)
	require.Len(t, byOutcome, 1)
	assert.Equal(t, int64(2), byOutcome[0].TicketID)

	windowed, err := s.List(ctx, Filter{From: base.Add(30 * time.Second), Limit: 1})
	require.NoError(t, err)
	require.Len(t, windowed, 1)
	assert.Equal(t, int64(2), windowed[0].TicketID)
}

func TestVerifyDetectsTampering(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	ev := &Event{TicketID: 7, Action: "agent_run", Phase: ticket.PhaseAgentRunning}
	require.NoError(t, s.Append(ctx, ev))

	ok, err := s.Verify(ctx, ev.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	// Rewrite the stored record with a different ticket id.
	tampered := *ev
	tampered.TicketID = 9999
	raw, err := json.Marshal(&tampered)
	require.NoError(t, err)
	_, err = s.db.ExecContext(ctx,
		`UPDATE audit_events SET event_json = ? WHERE id = ?`, string(raw), ev.ID)
	require.NoError(t, err)

	ok, err = s.Verify(ctx, ev.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSignerRejectsShortKey(t *testing.T) {
	_, err := NewSigner("too-short")
	assert.ErrorContains(t, err, "32 bytes")
}

func TestSignerHexKey(t *testing.T) {
	hexKey := "0f1e2d3c4b5a69788796a5b4c3d2e1f00f1e2d3c4b5a69788796a5b4c3d2e1f0"
	s, err := NewSigner(hexKey)
	require.NoError(t, err)
	sig := s.Sign([]byte("payload"))
	assert.True(t, s.Verify([]byte("payload"), sig))
	assert.False(t, s.Verify([]byte("other"), sig))
}
