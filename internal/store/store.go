// Package store provides SQLite-backed persistence for notes, agent
// tokens, and the agent write log.
//
// Every mutable-counter contract (rate-limit window, failed-attempt
// threshold, optimistic note version) is implemented as a single
// conditional UPDATE so it stays correct under concurrent agent
// traffic; the application layer never does read-then-write on those
// fields.
package store

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS notes (
	id         TEXT PRIMARY KEY,
	user_id    TEXT NOT NULL,
	title      TEXT NOT NULL DEFAULT '',
	content    TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_notes_user ON notes(user_id, updated_at);

CREATE TABLE IF NOT EXISTS agent_tokens (
	id                  TEXT PRIMARY KEY,
	user_id             TEXT NOT NULL,
	token_hash          TEXT NOT NULL,
	token_salt          TEXT NOT NULL,
	token_prefix        TEXT NOT NULL,
	name                TEXT NOT NULL DEFAULT '',
	created_at          TEXT NOT NULL,
	expires_at          TEXT NOT NULL,
	revoked_at          TEXT,
	last_used_at        TEXT,
	requests_count      INTEGER NOT NULL DEFAULT 0,
	rate_limit_reset_at TEXT NOT NULL,
	failed_attempts     INTEGER NOT NULL DEFAULT 0,
	last_failed_at      TEXT
);

CREATE INDEX IF NOT EXISTS idx_agent_tokens_user ON agent_tokens(user_id);
CREATE INDEX IF NOT EXISTS idx_agent_tokens_prefix ON agent_tokens(token_prefix);

CREATE TABLE IF NOT EXISTS agent_write_log (
	id             TEXT PRIMARY KEY,
	token_id       TEXT NOT NULL,
	note_id        TEXT NOT NULL,
	content_hash   TEXT NOT NULL,
	content_length INTEGER NOT NULL,
	operation_type TEXT NOT NULL,
	written_at     TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_agent_write_log_note ON agent_write_log(note_id, written_at);
`

// DB wraps a sql.DB with Skald's persistence operations.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("store: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: apply schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping verifies the database connection is still usable.
func (db *DB) Ping() error {
	return db.conn.Ping()
}

// Timestamps are stored as RFC3339Nano TEXT so optimistic-concurrency
// comparisons are exact string equality in SQL.
func fmtTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func fmtNullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return fmtTime(*t)
}

func parseNullTime(s sql.NullString) *time.Time {
	if !s.Valid {
		return nil
	}
	t := parseTime(s.String)
	return &t
}
