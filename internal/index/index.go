// Package index maintains a SQLite catalog of per-session telemetry
// statistics so inspection tooling can browse sessions without re-parsing
// every file, and keeps it in sync with the telemetry directory.
package index

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS sessions (
	filename         TEXT PRIMARY KEY,
	checksum         TEXT NOT NULL DEFAULT '',
	session_count    INTEGER NOT NULL DEFAULT 0,
	mean_stability   REAL NOT NULL DEFAULT 0,
	variance         REAL NOT NULL DEFAULT 0,
	drift_percentile REAL NOT NULL DEFAULT 0,
	indexed_at       DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_sessions_indexed_at ON sessions(indexed_at);
`

// SessionIndex defines the catalog operations. Consumers should depend on
// this interface rather than the concrete *DB type to facilitate testing.
type SessionIndex interface {
	UpsertSession(row SessionRow) error
	DeleteSession(filename string) error
	GetChecksum(filename string) (string, error)
	ListSessions() ([]SessionRow, error)
	AllChecksums() (map[string]string, error)
	Close() error
}

// DB wraps a sql.DB with session-catalog operations.
type DB struct {
	conn *sql.DB
}

// Verify *DB satisfies SessionIndex at compile time.
var _ SessionIndex = (*DB)(nil)

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("index: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: apply schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}
