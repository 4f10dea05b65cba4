// Package domain defines workouts and the registry that owns them.
package domain

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
)

var (
	// ErrValidation indicates a non-finite or out-of-range numeric input.
	ErrValidation = errors.New("inputs have to be positive numbers")
	// ErrNotFound is returned when a workout cannot be located.
	ErrNotFound = errors.New("workout not found")
	// ErrDuplicateID is returned when an added workout reuses an identifier.
	ErrDuplicateID = errors.New("workout id already present")
	// ErrPersist wraps failures writing the snapshot. The registry is left unchanged.
	ErrPersist = errors.New("unable to persist workouts")
)

// Store captures snapshot persistence for the whole collection.
type Store interface {
	Save(ctx context.Context, workouts []Workout) error
	Load(ctx context.Context) ([]Workout, error)
}

// Observer is notified after every committed mutation.
type Observer interface {
	Committed(op string, count int)
}

// Option configures optional behaviour for the Registry.
type Option func(*Registry)

// WithLogger overrides the logger used to report persistence problems.
func WithLogger(logger zerolog.Logger) Option {
	return func(r *Registry) {
		r.logger = logger
	}
}

// WithObserver registers an observer for committed mutations.
func WithObserver(o Observer) Option {
	return func(r *Registry) {
		r.observer = o
	}
}

// Registry owns the authoritative, ordered workout collection. Every mutation is
// saved before it is committed, so memory and the stored snapshot never diverge.
// It is not safe for concurrent use.
type Registry struct {
	store    Store
	workouts []Workout
	index    map[string]int
	logger   zerolog.Logger
	observer Observer
}

// Open builds a Registry and rehydrates it from the store. Absent or unreadable
// documents are the store's concern and arrive as an empty collection; any error
// returned by Load aborts, since starting empty would overwrite the stored log
// on the next save.
func Open(ctx context.Context, store Store, opts ...Option) (*Registry, error) {
	r := &Registry{
		store:  store,
		index:  make(map[string]int),
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}

	workouts, err := store.Load(ctx)
	if err != nil {
		r.logger.Error().Err(err).Msg("stored workouts unavailable")
		return nil, fmt.Errorf("rehydrate: %w", err)
	}
	r.commit(dedupe(workouts))
	r.logger.Debug().Int("count", len(r.workouts)).Msg("registry rehydrated")
	return r, nil
}

// Add appends a workout at the end of the collection.
func (r *Registry) Add(ctx context.Context, w Workout) error {
	if _, ok := r.index[w.ID]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateID, w.ID)
	}
	next := append(r.snapshot(), w)
	return r.save(ctx, "add", next)
}

// Find fetches by ID.
func (r *Registry) Find(id string) (Workout, error) {
	i, ok := r.index[id]
	if !ok {
		return Workout{}, ErrNotFound
	}
	return r.workouts[i], nil
}

// Edit updates the workout in place, possibly changing its variant.
func (r *Registry) Edit(ctx context.Context, id string, in EditInput) (Workout, error) {
	i, ok := r.index[id]
	if !ok {
		return Workout{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	updated, err := Reclassify(r.workouts[i], in)
	if err != nil {
		return Workout{}, err
	}
	next := r.snapshot()
	next[i] = updated
	if err := r.save(ctx, "edit", next); err != nil {
		return Workout{}, err
	}
	return updated, nil
}

// RecordClick bumps the interaction counter of a workout.
func (r *Registry) RecordClick(ctx context.Context, id string) (Workout, error) {
	i, ok := r.index[id]
	if !ok {
		return Workout{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	next := r.snapshot()
	next[i].Clicks++
	if err := r.save(ctx, "click", next); err != nil {
		return Workout{}, err
	}
	return next[i], nil
}

// Remove deletes a workout. Missing IDs are ignored.
func (r *Registry) Remove(ctx context.Context, id string) error {
	i, ok := r.index[id]
	if !ok {
		return nil
	}
	next := make([]Workout, 0, len(r.workouts)-1)
	next = append(next, r.workouts[:i]...)
	next = append(next, r.workouts[i+1:]...)
	return r.save(ctx, "remove", next)
}

// RemoveAll clears the collection.
func (r *Registry) RemoveAll(ctx context.Context) error {
	return r.save(ctx, "remove_all", []Workout{})
}

// All returns a copy of the collection in insertion order.
func (r *Registry) All() []Workout {
	return r.snapshot()
}

// Len reports the number of workouts.
func (r *Registry) Len() int {
	return len(r.workouts)
}

func (r *Registry) snapshot() []Workout {
	out := make([]Workout, len(r.workouts))
	copy(out, r.workouts)
	return out
}

func (r *Registry) save(ctx context.Context, op string, next []Workout) error {
	if err := r.store.Save(ctx, next); err != nil {
		r.logger.Error().Err(err).Str("op", op).Msg("snapshot write failed")
		return fmt.Errorf("%w: %v", ErrPersist, err)
	}
	r.commit(next)
	if r.observer != nil {
		r.observer.Committed(op, len(next))
	}
	return nil
}

func (r *Registry) commit(workouts []Workout) {
	index := make(map[string]int, len(workouts))
	for i, w := range workouts {
		index[w.ID] = i
	}
	r.workouts = workouts
	r.index = index
}

// dedupe keeps the first record for each ID so a hand-edited snapshot cannot
// break identifier uniqueness.
func dedupe(workouts []Workout) []Workout {
	seen := make(map[string]struct{}, len(workouts))
	out := make([]Workout, 0, len(workouts))
	for _, w := range workouts {
		if _, ok := seen[w.ID]; ok {
			continue
		}
		seen[w.ID] = struct{}{}
		out = append(out, w)
	}
	return out
}
