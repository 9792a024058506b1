// Package audit records the changes clients make through the API.
//
// Events live in an in-memory SQLite database opened with the same driver
// as the revision history, so the trail ends with the process.
package audit

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"grimm.is/iwaf/internal/clock"
	"grimm.is/iwaf/internal/state"
)

// DefaultRetain is the number of events kept.
const DefaultRetain = 1000

// tsLayout is fixed width so timestamps compare as strings.
const tsLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Event represents a single audit log entry.
type Event struct {
	ID        int64     `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Action    string    `json:"action"`   // matched route, e.g. "POST /api/lists/{list}"
	Resource  string    `json:"resource"` // request path
	Status    int       `json:"status"`
	IP        string    `json:"ip,omitempty"`
	Agent     string    `json:"agent,omitempty"`
}

// Query selects events. Zero values match everything.
type Query struct {
	Action string
	Since  time.Time
	Limit  int
}

// Store provides storage for audit events.
type Store struct {
	mu     sync.RWMutex
	db     *sql.DB
	retain int
	clock  clock.Clock
	closed bool
}

// NewStore opens an empty in-memory audit store keeping the newest retain
// events (DefaultRetain when retain <= 0).
func NewStore(retain int, clk clock.Clock) (*Store, error) {
	db, err := sql.Open(state.DriverName, state.MemoryPath)
	if err != nil {
		return nil, fmt.Errorf("open audit db: %w", err)
	}
	db.SetMaxOpenConns(1)

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS audit_events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp TEXT NOT NULL,
			action TEXT NOT NULL,
			resource TEXT NOT NULL,
			status INTEGER DEFAULT 0,
			ip TEXT,
			agent TEXT
		);
		CREATE INDEX IF NOT EXISTS idx_audit_action ON audit_events(action);
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create audit table: %w", err)
	}

	if retain <= 0 {
		retain = DefaultRetain
	}
	return &Store{db: db, retain: retain, clock: clock.Or(clk)}, nil
}

// Write stores evt, stamping it with the current time when unset.
func (s *Store) Write(ctx context.Context, evt Event) (Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return Event{}, state.ErrStoreClosed
	}

	if evt.Timestamp.IsZero() {
		evt.Timestamp = s.clock.Now()
	}
	evt.Timestamp = evt.Timestamp.UTC()

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_events (timestamp, action, resource, status, ip, agent)
		VALUES (?, ?, ?, ?, ?, ?)
	`, evt.Timestamp.Format(tsLayout), evt.Action, evt.Resource, evt.Status, evt.IP, evt.Agent)
	if err != nil {
		return Event{}, fmt.Errorf("insert audit event: %w", err)
	}
	if evt.ID, err = res.LastInsertId(); err != nil {
		return Event{}, err
	}

	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM audit_events WHERE id <= ?`, evt.ID-int64(s.retain)); err != nil {
		return Event{}, fmt.Errorf("prune audit events: %w", err)
	}
	return evt, nil
}

// List returns matching events, newest first.
func (s *Store) List(ctx context.Context, q Query) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, state.ErrStoreClosed
	}

	query := `SELECT id, timestamp, action, resource, status, ip, agent FROM audit_events WHERE 1=1`
	var args []any
	if q.Action != "" {
		query += " AND action = ?"
		args = append(args, q.Action)
	}
	if !q.Since.IsZero() {
		query += " AND timestamp >= ?"
		args = append(args, q.Since.UTC().Format(tsLayout))
	}
	query += " ORDER BY id DESC"
	if q.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, q.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var (
			evt       Event
			ts        string
			ip, agent sql.NullString
		)
		if err := rows.Scan(&evt.ID, &ts, &evt.Action, &evt.Resource, &evt.Status, &ip, &agent); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		evt.Timestamp, _ = time.Parse(tsLayout, ts)
		evt.IP = ip.String
		evt.Agent = agent.String
		events = append(events, evt)
	}
	return events, rows.Err()
}

// Count returns the total number of events in the store.
func (s *Store) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return 0, state.ErrStoreClosed
	}
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM audit_events").Scan(&n)
	return n, err
}

// Close closes the database connection.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}
