// Package state keeps the history of committed configurations.
//
// Every successful settings commit is recorded as a revision holding the
// full configuration as JSON and as HCL. The default database is
// ":memory:", so history lives only as long as the process.
//
// SQLite Driver Selection:
// - Default: modernc.org/sqlite (pure Go, no CGO)
// - CGO: github.com/mattn/go-sqlite3
//
// To build against the CGO driver, use build tags:
//
//	go build -tags sqlite_cgo ...
package state

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"grimm.is/iwaf/internal/clock"
	"grimm.is/iwaf/internal/config"
)

// Common errors
var (
	ErrNotFound    = errors.New("revision not found")
	ErrStoreClosed = errors.New("store is closed")
)

// MemoryPath is the in-process database path.
const MemoryPath = ":memory:"

// Revision is one recorded configuration.
type Revision struct {
	ID        int64          `json:"id"`
	Section   string         `json:"section"`
	CreatedAt time.Time      `json:"created_at"`
	HCL       string         `json:"hcl,omitempty"`
	Config    *config.Config `json:"config,omitempty"`
}

// Options configures the revision store.
type Options struct {
	Path   string      // Database file path (":memory:" for in-memory)
	Retain int         // Revisions kept; older ones are pruned. 0 keeps all.
	Clock  clock.Clock // Optional: time source
}

// DefaultOptions returns sensible defaults.
func DefaultOptions(path string) Options {
	if path == "" {
		path = MemoryPath
	}
	return Options{
		Path:   path,
		Retain: 100,
	}
}

// RevisionStore implements revision history on SQLite.
type RevisionStore struct {
	db     *sql.DB
	mu     sync.RWMutex
	closed bool
	retain int
	clock  clock.Clock
}

// Open creates or opens a revision store.
func Open(opts Options) (*RevisionStore, error) {
	path := opts.Path
	if path == "" {
		path = MemoryPath
	}

	dsn := path
	if path != MemoryPath {
		dsn += "?_busy_timeout=5000"
	}

	db, err := sql.Open(DriverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if path == MemoryPath {
		// Each connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	s := &RevisionStore{
		db:     db,
		retain: opts.Retain,
		clock:  clock.Or(opts.Clock),
	}

	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return s, nil
}

// initSchema creates the database tables.
func (s *RevisionStore) initSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS revisions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			section TEXT NOT NULL,
			created_at TEXT NOT NULL,
			config BLOB NOT NULL,
			hcl TEXT NOT NULL
		);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *RevisionStore) checkOpen() error {
	if s.closed {
		return ErrStoreClosed
	}
	return nil
}

// Record stores cfg as a new revision attributed to section.
func (s *RevisionStore) Record(ctx context.Context, section string, cfg *config.Config) (Revision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return Revision{}, err
	}

	data, err := json.Marshal(cfg)
	if err != nil {
		return Revision{}, fmt.Errorf("failed to marshal config: %w", err)
	}
	hcl := string(config.MarshalHCL(cfg))
	now := s.clock.Now().UTC()

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO revisions (section, created_at, config, hcl) VALUES (?, ?, ?, ?)`,
		section, now.Format(time.RFC3339Nano), data, hcl)
	if err != nil {
		return Revision{}, fmt.Errorf("failed to insert revision: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Revision{}, err
	}

	if s.retain > 0 {
		if _, err := s.db.ExecContext(ctx,
			`DELETE FROM revisions WHERE id <= ?`, id-int64(s.retain)); err != nil {
			return Revision{}, fmt.Errorf("failed to prune revisions: %w", err)
		}
	}

	return Revision{ID: id, Section: section, CreatedAt: now, HCL: hcl, Config: cfg.Clone()}, nil
}

// List returns revision headers, newest first. limit <= 0 returns all.
func (s *RevisionStore) List(ctx context.Context, limit int) ([]Revision, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	query := `SELECT id, section, created_at FROM revisions ORDER BY id DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var revs []Revision
	for rows.Next() {
		var (
			r       Revision
			created string
		)
		if err := rows.Scan(&r.ID, &r.Section, &created); err != nil {
			return nil, err
		}
		r.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
		revs = append(revs, r)
	}
	return revs, rows.Err()
}

// Get returns a full revision.
func (s *RevisionStore) Get(ctx context.Context, id int64) (*Revision, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx,
		`SELECT id, section, created_at, config, hcl FROM revisions WHERE id = ?`, id)
	return scanRevision(row)
}

// Latest returns the newest revision.
func (s *RevisionStore) Latest(ctx context.Context) (*Revision, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx,
		`SELECT id, section, created_at, config, hcl FROM revisions ORDER BY id DESC LIMIT 1`)
	return scanRevision(row)
}

// Count returns the number of stored revisions.
func (s *RevisionStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkOpen(); err != nil {
		return 0, err
	}
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM revisions`).Scan(&n)
	return n, err
}

func scanRevision(row *sql.Row) (*Revision, error) {
	var (
		r       Revision
		created string
		data    []byte
	)
	if err := row.Scan(&r.ID, &r.Section, &created, &data, &r.HCL); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	r.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)

	var cfg config.Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("corrupt revision %d: %w", r.ID, err)
	}
	r.Config = &cfg
	return &r, nil
}

// Close closes the database.
func (s *RevisionStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}
