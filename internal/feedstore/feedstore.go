// Package feedstore is the SQLite-backed concrete collaborator for the
// virtual scroll core: it stores an append-mostly feed of messages and
// exposes it through the vscroll.QueryContext / vscroll.LiveQuery
// contracts, polling the database on a timer so a change to a live query's
// selection or the arrival of new rows is reflected without the caller
// having to re-query by hand.
package feedstore

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

const feedFile = "feed.db"

// Store wraps the database connection. Connection setup mirrors the
// teacher's single-writer WAL configuration: one pinned connection, WAL
// journal mode, and a busy timeout so concurrent pollers don't fail under
// SQLITE_BUSY.
type Store struct {
	conn    *sql.DB
	baseDir string
}

func openConn(dbPath string) (*sql.DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	conn.SetMaxOpenConns(1)

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}
	if _, err := conn.Exec("PRAGMA busy_timeout=5000"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}
	conn.Exec("PRAGMA synchronous=NORMAL")

	return conn, nil
}

// Open opens (creating if necessary) the feed database under baseDir and
// applies the schema.
func Open(baseDir string) (*Store, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("create base dir: %w", err)
	}
	dbPath := filepath.Join(baseDir, feedFile)

	conn, err := openConn(dbPath)
	if err != nil {
		return nil, err
	}
	s := &Store{conn: conn, baseDir: baseDir}
	if err := s.applySchema(); err != nil {
		conn.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) applySchema() error {
	_, err := s.conn.Exec(schema)
	if err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// Close releases the underlying connection.
func (s *Store) Close() error {
	return s.conn.Close()
}

const schema = `
CREATE TABLE IF NOT EXISTS messages (
	id TEXT PRIMARY KEY,
	channel TEXT NOT NULL DEFAULT '',
	sender TEXT NOT NULL DEFAULT '',
	body TEXT NOT NULL DEFAULT '',
	timestamp INTEGER NOT NULL,
	seq INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_messages_timestamp ON messages(timestamp);
CREATE INDEX IF NOT EXISTS idx_messages_seq ON messages(seq);
`
