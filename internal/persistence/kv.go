// Package persistence stores the workout collection as one JSON document in a
// key-value store.
package persistence

import (
	"context"
	"errors"
)

// ErrKeyNotFound is returned by KV implementations when a key is absent.
var ErrKeyNotFound = errors.New("key not found")

// KV is a durable key-value store. Put must replace the value atomically.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}
