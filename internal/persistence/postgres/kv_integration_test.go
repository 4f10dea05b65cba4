//go:build integration

package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	postgrescontainer "github.com/testcontainers/testcontainers-go/modules/postgres"

	"example.com/workoutlog/internal/domain"
	"example.com/workoutlog/internal/persistence"
)

func TestKVStoresWorkoutSnapshot(t *testing.T) {
	ctx := context.Background()

	pg, err := postgrescontainer.RunContainer(ctx,
		postgrescontainer.WithDatabase("workouts"),
		postgrescontainer.WithUsername("workoutlog"),
		postgrescontainer.WithPassword("workoutlog"),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pg.Terminate(ctx) })

	connStr, err := pg.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	require.NoError(t, waitForDatabase(ctx, connStr))

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(func() { pool.Close() })

	kv := NewKV(pool)
	require.NoError(t, kv.Migrate(ctx))
	require.NoError(t, kv.Migrate(ctx))

	_, err = kv.Get(ctx, persistence.DefaultKey)
	require.ErrorIs(t, err, persistence.ErrKeyNotFound)

	snap := persistence.NewSnapshot(kv)
	reg := openRegistry(t, ctx, snap)

	run, err := domain.NewRunning(domain.Coords{10, 20}, 5, 25, 180)
	require.NoError(t, err)
	ride, err := domain.NewCycling(domain.Coords{11, 21}, 10, 30, 100)
	require.NoError(t, err)
	require.NoError(t, reg.Add(ctx, run))
	require.NoError(t, reg.Add(ctx, ride))

	reopened := openRegistry(t, ctx, snap)
	got := reopened.All()
	require.Len(t, got, 2)
	require.Equal(t, run.ID, got[0].ID)
	require.Equal(t, ride.ID, got[1].ID)
	require.True(t, run.Date.Equal(got[0].Date))
	require.Equal(t, 20.0, got[1].Speed())

	require.NoError(t, reopened.RemoveAll(ctx))
	body, err := kv.Get(ctx, persistence.DefaultKey)
	require.NoError(t, err)
	require.JSONEq(t, `[]`, string(body))

	require.Error(t, kv.Put(ctx, "broken", []byte(`{not json`)))

	require.NoError(t, snap.Reset(ctx))
	_, err = kv.Get(ctx, persistence.DefaultKey)
	require.ErrorIs(t, err, persistence.ErrKeyNotFound)
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

func openRegistry(t *testing.T, ctx context.Context, store domain.Store, opts ...domain.Option) *domain.Registry {
	t.Helper()
	reg, err := domain.Open(ctx, store, opts...)
	require.NoError(t, err)
	return reg
}
