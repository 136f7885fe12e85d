// Package audit persists an HMAC-signed trail of pipeline events. Every
// phase transition and external side effect (note posted, tags updated)
// produces one signed Event in SQLite, so a reviewer can reconstruct exactly
// what the system did to a ticket and prove the record was not altered.
package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	flussootel "github.com/abhijyotiba/Flusso-Automation-sub000/internal/otel"
	"github.com/abhijyotiba/Flusso-Automation-sub000/internal/ticket"
)

var tracer = flussootel.Tracer("github.com/abhijyotiba/Flusso-Automation-sub000/internal/audit")

// Event is one audited pipeline step.
type Event struct {
	ID            string          `json:"id"`
	CorrelationID string          `json:"correlation_id"`
	TicketID      int64           `json:"ticket_id"`
	Timestamp     time.Time       `json:"timestamp"`
	Phase         ticket.Phase    `json:"phase"`
	Action        string          `json:"action"`
	Outcome       string          `json:"outcome,omitempty"`
	DurationMS    int64           `json:"duration_ms,omitempty"`
	Record        json.RawMessage `json:"record,omitempty"`
	Signature     string          `json:"signature,omitempty"`
}

// Filter narrows a List query. Zero values match everything.
type Filter struct {
	TicketID      int64
	CorrelationID string
	Outcome       string
	From, To      time.Time
	Limit         int
}

// Store persists signed events in SQLite.
type Store struct {
	db     *sql.DB
	signer *Signer
}

// NewStore opens (creating if needed) the audit database at dbPath.
func NewStore(dbPath, signingKey string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening audit database: %w", err)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS audit_events (
		id TEXT PRIMARY KEY,
		correlation_id TEXT NOT NULL,
		ticket_id INTEGER NOT NULL,
		timestamp TIMESTAMP NOT NULL,
		phase TEXT NOT NULL,
		action TEXT NOT NULL,
		outcome TEXT NOT NULL DEFAULT '',
		event_json TEXT NOT NULL,
		signature TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_audit_ticket ON audit_events(ticket_id);
	CREATE INDEX IF NOT EXISTS idx_audit_correlation ON audit_events(correlation_id);
	CREATE INDEX IF NOT EXISTS idx_audit_timestamp ON audit_events(timestamp);
	`
	if _, err := db.ExecContext(context.Background(), schema); err != nil {
		return nil, fmt.Errorf("creating audit schema: %w", err)
	}

	signer, err := NewSigner(signingKey)
	if err != nil {
		return nil, fmt.Errorf("creating signer: %w", err)
	}
	return &Store{db: db, signer: signer}, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Append signs and stores one event. Missing IDs and timestamps are filled
// in. The signature covers the event serialized without its signature field.
func (s *Store) Append(ctx context.Context, ev *Event) error {
	ctx, span := tracer.Start(ctx, "audit.append",
		trace.WithAttributes(
			attribute.Int64("ticket_id", ev.TicketID),
			attribute.String("audit.action", ev.Action),
		))
	defer span.End()

	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}

	ev.Signature = ""
	unsigned, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshalling audit event: %w", err)
	}
	ev.Signature = s.signer.Sign(unsigned)

	signed, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshalling signed audit event: %w", err)
	}

	query := `INSERT INTO audit_events (id, correlation_id, ticket_id, timestamp, phase, action, outcome, event_json, signature)
	          VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = s.db.ExecContext(ctx, query,
		ev.ID, ev.CorrelationID, ev.TicketID, ev.Timestamp,
		string(ev.Phase), ev.Action, ev.Outcome, string(signed), ev.Signature,
	)
	if err != nil {
		return fmt.Errorf("storing audit event: %w", err)
	}
	return nil
}

// Get retrieves one event by ID.
func (s *Store) Get(ctx context.Context, id string) (*Event, error) {
	ctx, span := tracer.Start(ctx, "audit.get",
		trace.WithAttributes(attribute.String("audit.id", id)))
	defer span.End()

	var eventJSON string
	err := s.db.QueryRowContext(ctx,
		`SELECT event_json FROM audit_events WHERE id = ?`, id).Scan(&eventJSON)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("audit event %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("querying audit event: %w", err)
	}

	var ev Event
	if err := json.Unmarshal([]byte(eventJSON), &ev); err != nil {
		return nil, fmt.Errorf("unmarshalling audit event: %w", err)
	}
	return &ev, nil
}

// List returns events matching the filter, newest first.
func (s *Store) List(ctx context.Context, f Filter) ([]Event, error) {
	ctx, span := tracer.Start(ctx, "audit.list",
		trace.WithAttributes(attribute.Int64("ticket_id", f.TicketID)))
	defer span.End()

	query := `SELECT event_json FROM audit_events WHERE 1=1`
	args := []interface{}{}

	if f.TicketID != 0 {
		query += ` AND ticket_id = ?`
		args = append(args, f.TicketID)
	}
	if f.CorrelationID != "" {
		query += ` AND correlation_id = ?`
		args = append(args, f.CorrelationID)
	}
	if f.Outcome != "" {
		query += ` AND outcome = ?`
		args = append(args, f.Outcome)
	}
	if !f.From.IsZero() {
		query += ` AND timestamp >= ?`
		args = append(args, f.From)
	}
	if !f.To.IsZero() {
		query += ` AND timestamp <= ?`
		args = append(args, f.To)
	}
	query += ` ORDER BY timestamp DESC`
	if f.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying audit events: %w", err)
	}
	defer rows.Close()

	var results []Event
	for rows.Next() {
		var eventJSON string
		if err := rows.Scan(&eventJSON); err != nil {
			continue
		}
		var ev Event
		if err := json.Unmarshal([]byte(eventJSON), &ev); err != nil {
			continue
		}
		results = append(results, ev)
	}
	span.SetAttributes(attribute.Int("audit.count", len(results)))
	return results, rows.Err()
}

// Verify checks the HMAC signature of a stored event.
func (s *Store) Verify(ctx context.Context, id string) (bool, error) {
	ctx, span := tracer.Start(ctx, "audit.verify",
		trace.WithAttributes(attribute.String("audit.id", id)))
	defer span.End()

	ev, err := s.Get(ctx, id)
	if err != nil {
		return false, err
	}

	signature := ev.Signature
	ev.Signature = ""
	unsigned, err := json.Marshal(ev)
	if err != nil {
		return false, fmt.Errorf("marshalling for verification: %w", err)
	}
	return s.signer.Verify(unsigned, signature), nil
}
