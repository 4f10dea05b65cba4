// Package postgres provides a Postgres-backed key-value store for workout snapshots.
package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/workoutlog/internal/persistence"
)

// Schema creates the table used by KV.
const Schema = `CREATE TABLE IF NOT EXISTS kv_store (
    key        TEXT PRIMARY KEY,
    value      JSONB NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// KV stores values in the kv_store table.
type KV struct {
	pool *pgxpool.Pool
}

// NewKV constructs a KV.
func NewKV(pool *pgxpool.Pool) *KV {
	return &KV{pool: pool}
}

// Migrate creates the backing table if it does not exist.
func (k *KV) Migrate(ctx context.Context) error {
	_, err := k.pool.Exec(ctx, Schema)
	return err
}

// Get returns the stored value or persistence.ErrKeyNotFound.
func (k *KV) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := k.pool.QueryRow(ctx, `SELECT value::text FROM kv_store WHERE key=$1`, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, persistence.ErrKeyNotFound
	}
	if err != nil {
		return nil, err
	}
	return value, nil
}

// Put upserts the value inside a single transaction. Values that are not valid
// JSON are rejected by the column type.
func (k *KV) Put(ctx context.Context, key string, value []byte) (err error) {
	tx, err := k.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback(ctx)
		}
	}()

	const stmt = `INSERT INTO kv_store (key, value, updated_at) VALUES ($1, $2::jsonb, now())
        ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`

	if _, err = tx.Exec(ctx, stmt, key, string(value)); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// Delete removes the key. Missing keys are ignored.
func (k *KV) Delete(ctx context.Context, key string) error {
	_, err := k.pool.Exec(ctx, `DELETE FROM kv_store WHERE key=$1`, key)
	return err
}
