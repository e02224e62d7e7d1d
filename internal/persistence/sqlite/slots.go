// Package sqlite stores workout slots in a local SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"example.com/workouts/internal/persistence"
)

const schema = `CREATE TABLE IF NOT EXISTS slots (
    name       TEXT PRIMARY KEY,
    value      BLOB NOT NULL,
    updated_at TEXT NOT NULL
)`

// SlotStore implements persistence.SlotStore on a SQLite database.
type SlotStore struct {
	db *sql.DB
}

// Open opens the database behind dsn, e.g. "file:workouts.db?_pragma=busy_timeout(5000)"
// or "file:test?mode=memory&cache=shared".
func Open(ctx context.Context, dsn string) (*SlotStore, error) {
	if dsn == "" {
		return nil, errors.New("sqlite dsn is empty")
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	return &SlotStore{db: db}, nil
}

// Migrate creates the slots table.
func (s *SlotStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Close closes the database.
func (s *SlotStore) Close() error { return s.db.Close() }

// Get implements persistence.SlotStore.
func (s *SlotStore) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx, `SELECT value FROM slots WHERE name = ?`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.ErrSlotAbsent
		}
		return nil, err
	}
	return value, nil
}

// Put implements persistence.SlotStore.
func (s *SlotStore) Put(ctx context.Context, key string, value []byte) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO slots (name, value, updated_at) VALUES (?, ?, ?)
         ON CONFLICT(name) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UTC().Format(time.RFC3339Nano),
	)
	return err
}

// Delete implements persistence.SlotStore.
func (s *SlotStore) Delete(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM slots WHERE name = ?`, key)
	return err
}
