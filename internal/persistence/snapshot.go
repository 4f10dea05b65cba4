package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"example.com/workoutlog/internal/domain"
	"example.com/workoutlog/internal/observability"
)

// DefaultKey is the storage key holding the workout document.
const DefaultKey = "workouts"

// errMalformed marks a stored document that cannot be restored.
var errMalformed = errors.New("malformed workout snapshot")

// Option configures optional behaviour for the Snapshot.
type Option func(*Snapshot)

// WithLogger overrides the logger used to report discarded snapshots.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Snapshot) {
		s.logger = logger
	}
}

// WithKey overrides the storage key.
func WithKey(key string) Option {
	return func(s *Snapshot) {
		s.key = key
	}
}

// Snapshot persists the full workout collection under a single key. It
// implements domain.Store.
type Snapshot struct {
	kv     KV
	key    string
	logger zerolog.Logger
}

// NewSnapshot constructs a Snapshot over kv.
func NewSnapshot(kv KV, opts ...Option) *Snapshot {
	s := &Snapshot{
		kv:     kv,
		key:    DefaultKey,
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Save replaces the stored document with the given collection.
func (s *Snapshot) Save(ctx context.Context, workouts []domain.Workout) error {
	records := make([]record, 0, len(workouts))
	for _, w := range workouts {
		records = append(records, toRecord(w))
	}
	body, err := json.Marshal(records)
	if err != nil {
		observability.RecordSnapshotFailure()
		return fmt.Errorf("encode workouts: %w", err)
	}
	if err := s.kv.Put(ctx, s.key, body); err != nil {
		observability.RecordSnapshotFailure()
		return fmt.Errorf("write workouts: %w", err)
	}
	observability.RecordSnapshotWritten(time.Now(), len(body))
	return nil
}

// Load reads the stored collection. An absent or malformed document yields an
// empty collection and no error; only store failures are returned.
func (s *Snapshot) Load(ctx context.Context) ([]domain.Workout, error) {
	body, err := s.kv.Get(ctx, s.key)
	if errors.Is(err, ErrKeyNotFound) {
		return []domain.Workout{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read workouts: %w", err)
	}

	workouts, err := decode(body)
	if err != nil {
		s.logger.Warn().Err(err).Str("key", s.key).Msg("discarding stored workouts")
		return []domain.Workout{}, nil
	}
	return workouts, nil
}

// Reset drops the stored document.
func (s *Snapshot) Reset(ctx context.Context) error {
	return s.kv.Delete(ctx, s.key)
}

func decode(body []byte) ([]domain.Workout, error) {
	var records []record
	if err := json.Unmarshal(body, &records); err != nil {
		return nil, fmt.Errorf("%w: %v", errMalformed, err)
	}
	out := make([]domain.Workout, 0, len(records))
	for i, rec := range records {
		w, err := rec.toWorkout()
		if err != nil {
			return nil, fmt.Errorf("%w: record %d: %v", errMalformed, i, err)
		}
		out = append(out, w)
	}
	return out, nil
}
