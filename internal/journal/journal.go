// Package journal records applied note changes in a SQLite ledger.
package journal

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS changes (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	tool            TEXT NOT NULL,
	note            TEXT NOT NULL,
	backup          TEXT NOT NULL DEFAULT '',
	summary         TEXT NOT NULL DEFAULT '',
	before_checksum TEXT NOT NULL DEFAULT '',
	after_checksum  TEXT NOT NULL DEFAULT '',
	applied_at      DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_changes_tool ON changes(tool, applied_at);
CREATE INDEX IF NOT EXISTS idx_changes_note ON changes(note);
`

// Recorder is the write side of the journal.
type Recorder interface {
	Record(e Entry) (int64, error)
}

// DB wraps a sql.DB with journal operations.
type DB struct {
	conn *sql.DB
}

var _ Recorder = (*DB)(nil)

// Open opens (or creates) the journal database at path.
func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("journal: create dir: %w", err)
	}
	conn, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("journal: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("journal: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("journal: apply schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}
