package main

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"example.com/workoutlog/internal/config"
	"example.com/workoutlog/internal/persistence"
	"example.com/workoutlog/internal/persistence/postgres"
)

type store struct {
	snapshot *persistence.Snapshot
	close    func()
}

func (s *store) Close() {
	if s.close != nil {
		s.close()
	}
}

func openStore(ctx context.Context, cfg config.Config, logger zerolog.Logger) (*store, error) {
	var (
		kv      persistence.KV
		closeFn func()
	)
	switch cfg.StoreDriver {
	case config.DriverMemory:
		kv = persistence.NewMemoryKV()
	case config.DriverFile:
		fkv, err := persistence.NewFileKV(cfg.StorePath)
		if err != nil {
			return nil, err
		}
		kv = fkv
	case config.DriverPostgres:
		pool, err := pgxpool.New(ctx, cfg.PostgresURL)
		if err != nil {
			return nil, fmt.Errorf("connect to postgres: %w", err)
		}
		pkv := postgres.NewKV(pool)
		if err := pkv.Migrate(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
		kv, closeFn = pkv, pool.Close
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}

	snapshot := persistence.NewSnapshot(kv,
		persistence.WithKey(cfg.StorageKey),
		persistence.WithLogger(logger.With().Str("component", "snapshot").Logger()))
	return &store{snapshot: snapshot, close: closeFn}, nil
}
