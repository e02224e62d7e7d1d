// Package postgres stores workout slots in PostgreSQL.
package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/workouts/internal/persistence"
)

// Schema mirrors db/postgres/migrations/0001_workout_slots.up.sql.
const Schema = `CREATE TABLE IF NOT EXISTS workout_slots (
    name       TEXT PRIMARY KEY,
    value      JSONB NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

// SlotStore provides Postgres-backed slots.
type SlotStore struct {
	pool *pgxpool.Pool
}

// NewSlotStore constructs a SlotStore.
func NewSlotStore(pool *pgxpool.Pool) *SlotStore {
	return &SlotStore{pool: pool}
}

// Migrate creates the workout_slots table.
func (s *SlotStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, Schema)
	return err
}

// Get implements persistence.SlotStore. The value is returned as text so that
// a malformed payload surfaces as corrupt data instead of a driver error.
func (s *SlotStore) Get(ctx context.Context, key string) ([]byte, error) {
	var value string
	err := s.pool.QueryRow(ctx, `SELECT value::text FROM workout_slots WHERE name=$1`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, persistence.ErrSlotAbsent
		}
		return nil, err
	}
	return []byte(value), nil
}

// Put implements persistence.SlotStore as a single upsert, so the slot is
// either the old list or the new one.
func (s *SlotStore) Put(ctx context.Context, key string, value []byte) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback(ctx)
		}
	}()

	_, err = tx.Exec(ctx,
		`INSERT INTO workout_slots (name, value, updated_at) VALUES ($1, $2::jsonb, NOW())
         ON CONFLICT (name) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`,
		key, string(value),
	)
	if err != nil {
		return err
	}
	err = tx.Commit(ctx)
	return err
}

// Delete implements persistence.SlotStore.
func (s *SlotStore) Delete(ctx context.Context, key string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM workout_slots WHERE name=$1`, key)
	return err
}
