//go:build integration

package postgres

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	postgrescontainer "github.com/testcontainers/testcontainers-go/modules/postgres"

	"example.com/workouts/internal/domain"
	"example.com/workouts/internal/persistence"
)

func TestSlotStoreAgainstPostgres(t *testing.T) {
	ctx := context.Background()

	pg, err := postgrescontainer.RunContainer(ctx,
		postgrescontainer.WithDatabase("fitness"),
		postgrescontainer.WithUsername("platform"),
		postgrescontainer.WithPassword("platform"),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pg.Terminate(ctx) })

	connStr, err := pg.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	require.NoError(t, waitForDatabase(ctx, connStr))

	runMigrations(t, ctx, connStr)

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(func() { pool.Close() })

	store := NewSlotStore(pool)
	require.NoError(t, store.Migrate(ctx))

	_, err = store.Get(ctx, "workouts")
	require.ErrorIs(t, err, persistence.ErrSlotAbsent)

	adapter := persistence.NewAdapter(store, "workouts")
	run, err := domain.NewRunning(5, 30, domain.Coordinates{Lat: 10, Lng: 20}, 160)
	require.NoError(t, err)
	ride, err := domain.NewCycling(20, 60, domain.Coordinates{Lat: 1, Lng: 2}, 0)
	require.NoError(t, err)

	require.NoError(t, adapter.Save(ctx, []domain.Workout{run, ride}))
	require.NoError(t, adapter.Save(ctx, []domain.Workout{ride, run}))

	got, err := adapter.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, []domain.Workout{ride, run}, got)

	require.NoError(t, adapter.Clear(ctx))
	got, err = adapter.Load(ctx)
	require.NoError(t, err)
	require.Empty(t, got)
}

func runMigrations(t *testing.T, ctx context.Context, connStr string) {
	files := []string{
		"../../../db/postgres/migrations/0001_workout_slots.up.sql",
	}

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	defer pool.Close()

	for _, rel := range files {
		contents, readErr := os.ReadFile(resolvePath(t, rel))
		require.NoError(t, readErr)

		_, execErr := pool.Exec(ctx, string(contents))
		require.NoError(t, execErr)
	}
}

func resolvePath(t *testing.T, rel string) string {
	t.Helper()
	_, file, _, ok := runtime.Caller(0)
	require.True(t, ok)
	return filepath.Join(filepath.Dir(file), rel)
}

func waitForDatabase(ctx context.Context, connStr string) error {
	deadline := time.Now().Add(30 * time.Second)
	for {
		pool, err := pgxpool.New(ctx, connStr)
		if err == nil {
			err = pool.Ping(ctx)
			pool.Close()
			if err == nil {
				return nil
			}
		}
		if time.Now().After(deadline) {
			return err
		}
		time.Sleep(time.Second)
	}
}
