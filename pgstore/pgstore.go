// Package pgstore provides a PostgreSQL backed last event ID store for the
// sseclient package. Shared database allows a fleet of consumers to share
// resume positions, for example in a failover setup where any instance can
// take over the stream.
package pgstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
CREATE TABLE IF NOT EXISTS sse_sessions (
	session text PRIMARY KEY,
	last_event_id text NOT NULL,
	updated_at timestamptz NOT NULL DEFAULT now()
)`

// Store is a PostgreSQL backed implementation of sseclient.Store.
type Store struct {
	pool *pgxpool.Pool
}

// Open connects to the database and ensures the store schema exists.
func Open(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{pool: pool}, nil
}

// Close releases the database connection pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// Get returns the last saved event ID for the session, or an empty string if
// none was saved yet.
func (s *Store) Get(session string) (string, error) {
	var id string
	err := s.pool.QueryRow(context.Background(),
		`SELECT last_event_id FROM sse_sessions WHERE session = $1`,
		session).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return id, nil
}

// Set saves the last seen event ID for the session.
func (s *Store) Set(session, id string) error {
	_, err := s.pool.Exec(context.Background(), `
		INSERT INTO sse_sessions (session, last_event_id, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (session) DO UPDATE SET
			last_event_id = excluded.last_event_id,
			updated_at = now()`,
		session, id)
	return err
}
