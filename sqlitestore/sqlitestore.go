// Package sqlitestore provides a SQLite backed last event ID store for the
// sseclient package. It is suited for command line tools and single node
// daemons that need stream resume over restarts without running a database
// server.
package sqlitestore

import (
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS sse_sessions (
	session TEXT PRIMARY KEY,
	last_event_id TEXT NOT NULL,
	updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
)`

// Store is a SQLite backed implementation of sseclient.Store.
type Store struct {
	db *sql.DB
}

// Open creates or opens a store database at the given path. Missing schema
// is created automatically.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Get returns the last saved event ID for the session, or an empty string if
// none was saved yet.
func (s *Store) Get(session string) (string, error) {
	var id string
	err := s.db.QueryRow(`SELECT last_event_id FROM sse_sessions WHERE session = ?`, session).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return id, nil
}

// Set saves the last seen event ID for the session.
func (s *Store) Set(session, id string) error {
	_, err := s.db.Exec(`
		INSERT INTO sse_sessions (session, last_event_id, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (session) DO UPDATE SET
			last_event_id = excluded.last_event_id,
			updated_at = CURRENT_TIMESTAMP`, session, id)
	return err
}
