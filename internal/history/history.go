// Package history records regeneration cycles in a local SQLite
// database. The record is advisory — the engine runs fine without it —
// and exists so `scrim status` can show what the daemon has been doing.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.
)

// schema contains the DDL executed on first open. IF NOT EXISTS makes
// it safe to run on every startup.
const schema = `
CREATE TABLE IF NOT EXISTS regens (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    flow_id     INTEGER NOT NULL,
    identity    TEXT NOT NULL,
    width       INTEGER NOT NULL,
    height      INTEGER NOT NULL,
    stage       TEXT NOT NULL,
    outcome     TEXT NOT NULL,
    duration_ms INTEGER NOT NULL DEFAULT 0,
    created_at  TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

// Entry is one recorded pipeline stage.
type Entry struct {
	FlowID     int64
	Identity   string
	Width      int
	Height     int
	Stage      string // "preview" or "final"
	Outcome    string // "applied", "discarded", or "error"
	DurationMs int64
	CreatedAt  time.Time
}

// Store wraps the SQLite database holding the regeneration log.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the history database at dbPath in WAL mode
// with a single connection; SQLite only supports one writer, and one
// connection avoids SQLITE_BUSY between pooled connections that each
// need their own PRAGMA setup.
func Open(ctx context.Context, dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("history: open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("history: enable WAL mode: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("history: set busy timeout: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("history: create schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Record appends one stage entry. A nil *Store is a valid no-op store,
// so callers that failed to open the database keep working.
func (s *Store) Record(ctx context.Context, e Entry) error {
	if s == nil {
		return nil
	}
	const q = `
		INSERT INTO regens (flow_id, identity, width, height, stage, outcome, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?)`
	if _, err := s.db.ExecContext(ctx, q, e.FlowID, e.Identity, e.Width, e.Height, e.Stage, e.Outcome, e.DurationMs); err != nil {
		return fmt.Errorf("history: record %s/%s: %w", e.Stage, e.Outcome, err)
	}
	return nil
}

// Recent returns the newest n entries, newest first.
func (s *Store) Recent(ctx context.Context, n int) ([]Entry, error) {
	if s == nil {
		return nil, nil
	}
	const q = `
		SELECT flow_id, identity, width, height, stage, outcome, duration_ms, created_at
		FROM regens ORDER BY id DESC LIMIT ?`
	rows, err := s.db.QueryContext(ctx, q, n)
	if err != nil {
		return nil, fmt.Errorf("history: query recent: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.FlowID, &e.Identity, &e.Width, &e.Height, &e.Stage, &e.Outcome, &e.DurationMs, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("history: scan entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("history: iterate entries: %w", err)
	}
	return entries, nil
}

// Close releases the database handle. Calling Close on a nil Store is a
// no-op.
func (s *Store) Close() error {
	if s == nil {
		return nil
	}
	return s.db.Close()
}
