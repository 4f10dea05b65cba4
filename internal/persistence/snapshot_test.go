package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"example.com/workoutlog/internal/domain"
)

func sampleWorkouts() []domain.Workout {
	date := time.Date(2026, time.April, 7, 6, 15, 0, 0, time.UTC)
	return []domain.Workout{
		{ID: "a1", Kind: domain.KindRunning, Date: date, Coords: domain.Coords{10, 20}, Distance: 5, Duration: 25, Cadence: 180, Description: "Running on April 7", Clicks: 2},
		{ID: "b2", Kind: domain.KindCycling, Date: date.Add(time.Hour), Coords: domain.Coords{-33.9, 18.4}, Distance: 27, Duration: 95, Elevation: 523, Description: "Cycling on April 7"},
		{ID: "c3", Kind: domain.KindCycling, Date: date.Add(2 * time.Hour), Coords: domain.Coords{0, 0}, Distance: 10, Duration: 30, Elevation: 0, Description: "Cycling on April 7"},
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	ctx := context.Background()
	snap := NewSnapshot(NewMemoryKV())
	workouts := sampleWorkouts()

	require.NoError(t, snap.Save(ctx, workouts))

	loaded, err := snap.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, workouts, loaded)
}

func TestSnapshotWireFormat(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()
	snap := NewSnapshot(kv)
	require.NoError(t, snap.Save(ctx, sampleWorkouts()[:2]))

	body, err := kv.Get(ctx, DefaultKey)
	require.NoError(t, err)

	var docs []map[string]any
	require.NoError(t, json.Unmarshal(body, &docs))
	require.Len(t, docs, 2)

	run := docs[0]
	require.Equal(t, "a1", run["id"])
	require.Equal(t, "running", run["type"])
	require.Equal(t, []any{10.0, 20.0}, run["coords"])
	require.Equal(t, 180.0, run["cadence"])
	require.Equal(t, 5.0, run["pace"])
	require.Equal(t, 2.0, run["click"])
	require.Equal(t, "2026-04-07T06:15:00Z", run["date"])
	require.NotContains(t, run, "elevation")
	require.NotContains(t, run, "speed")

	ride := docs[1]
	require.Equal(t, "cycling", ride["type"])
	require.Equal(t, 523.0, ride["elevation"])
	require.Contains(t, ride, "speed")
	require.NotContains(t, ride, "cadence")
	require.NotContains(t, ride, "pace")
}

func TestSnapshotEmptyCollectionIsEmptyArray(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()
	snap := NewSnapshot(kv, WithKey("custom"))

	require.NoError(t, snap.Save(ctx, nil))

	body, err := kv.Get(ctx, "custom")
	require.NoError(t, err)
	require.JSONEq(t, `[]`, string(body))
}

func TestSnapshotLoadAbsent(t *testing.T) {
	loaded, err := NewSnapshot(NewMemoryKV()).Load(context.Background())
	require.NoError(t, err)
	require.Empty(t, loaded)
}

func TestSnapshotLoadMalformedIsEmpty(t *testing.T) {
	cases := map[string]string{
		"invalid json":     `{not json`,
		"object not array": `{"id":"a"}`,
		"unknown type":     `[{"id":"a","type":"swimming","coords":[1,2],"distance":1,"duration":1,"date":"2026-01-01T00:00:00Z"}]`,
		"short coords":     `[{"id":"a","type":"running","coords":[1],"distance":1,"duration":1,"cadence":1,"date":"2026-01-01T00:00:00Z"}]`,
		"zero distance":    `[{"id":"a","type":"running","coords":[1,2],"distance":0,"duration":1,"cadence":1,"date":"2026-01-01T00:00:00Z"}]`,
		"missing cadence":  `[{"id":"a","type":"running","coords":[1,2],"distance":1,"duration":1,"date":"2026-01-01T00:00:00Z"}]`,
		"zero cadence":     `[{"id":"a","type":"running","coords":[1,2],"distance":1,"duration":1,"cadence":0,"date":"2026-01-01T00:00:00Z"}]`,
		"negative cadence": `[{"id":"a","type":"running","coords":[1,2],"distance":1,"duration":1,"cadence":-170,"date":"2026-01-01T00:00:00Z"}]`,
		"huge cadence":     `[{"id":"a","type":"running","coords":[1,2],"distance":1,"duration":1,"cadence":1e300,"date":"2026-01-01T00:00:00Z"}]`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			kv := NewMemoryKV()
			require.NoError(t, kv.Put(ctx, DefaultKey, []byte(body)))

			loaded, err := NewSnapshot(kv).Load(ctx)
			require.NoError(t, err)
			require.Empty(t, loaded)
		})
	}
}

func TestSnapshotLoadsLegacyDocument(t *testing.T) {
	// edited records from the browser build carry both variant fields
	body := `[{"date":"2026-03-02T10:11:12.345Z","id":"0412345678","click":0,"coords":[38.7,-9.1],
		"distance":10,"duration":30,"type":"cycling","cadence":170,"pace":3,"elevation":100,"speed":20,
		"description":"Cycling on March 5"}]`
	ctx := context.Background()
	kv := NewMemoryKV()
	require.NoError(t, kv.Put(ctx, DefaultKey, []byte(body)))

	loaded, err := NewSnapshot(kv).Load(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 1)

	w := loaded[0]
	require.Equal(t, domain.KindCycling, w.Kind)
	require.Zero(t, w.Cadence)
	require.Equal(t, 100.0, w.Elevation)
	require.Equal(t, 20.0, w.Speed())
	require.Equal(t, "Cycling on March 5", w.Description)
	require.Equal(t, domain.Coords{38.7, -9.1}, w.Coords)
}

func TestSnapshotReset(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()
	snap := NewSnapshot(kv)
	require.NoError(t, snap.Save(ctx, sampleWorkouts()))

	require.NoError(t, snap.Reset(ctx))

	_, err := kv.Get(ctx, DefaultKey)
	require.ErrorIs(t, err, ErrKeyNotFound)
	require.NoError(t, snap.Reset(ctx))
}

type brokenKV struct{ err error }

func (b brokenKV) Get(ctx context.Context, key string) ([]byte, error)       { return nil, b.err }
func (b brokenKV) Put(ctx context.Context, key string, value []byte) error { return b.err }
func (b brokenKV) Delete(ctx context.Context, key string) error             { return b.err }

func TestSnapshotPropagatesStoreErrors(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("boom")
	snap := NewSnapshot(brokenKV{err: boom})

	require.ErrorIs(t, snap.Save(ctx, sampleWorkouts()), boom)

	_, err := snap.Load(ctx)
	require.ErrorIs(t, err, boom)
}

func TestRegistryOverSnapshot(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()

	reg := openRegistry(t, ctx, NewSnapshot(kv))
	for _, w := range sampleWorkouts() {
		require.NoError(t, reg.Add(ctx, w))
	}
	require.NoError(t, reg.Remove(ctx, "b2"))

	reopened := openRegistry(t, ctx, NewSnapshot(kv))
	require.Equal(t, reg.All(), reopened.All())

	require.NoError(t, reopened.RemoveAll(ctx))
	body, err := kv.Get(ctx, DefaultKey)
	require.NoError(t, err)
	require.JSONEq(t, `[]`, string(body))
}

// flakyKV fails reads while readErr is set and otherwise delegates.
type flakyKV struct {
	*MemoryKV
	readErr error
}

func (f *flakyKV) Get(ctx context.Context, key string) ([]byte, error) {
	if f.readErr != nil {
		return nil, f.readErr
	}
	return f.MemoryKV.Get(ctx, key)
}

func TestRegistryRefusesToStartOnFailedRead(t *testing.T) {
	ctx := context.Background()
	kv := &flakyKV{MemoryKV: NewMemoryKV()}
	snap := NewSnapshot(kv)

	reg := openRegistry(t, ctx, snap)
	for _, w := range sampleWorkouts() {
		require.NoError(t, reg.Add(ctx, w))
	}
	before, err := kv.MemoryKV.Get(ctx, DefaultKey)
	require.NoError(t, err)

	kv.readErr = errors.New("transient read error")
	_, err = domain.Open(ctx, snap)
	require.ErrorIs(t, err, kv.readErr)

	kv.readErr = nil
	after, err := kv.MemoryKV.Get(ctx, DefaultKey)
	require.NoError(t, err)
	require.JSONEq(t, string(before), string(after))
	require.Len(t, openRegistry(t, ctx, snap).All(), len(sampleWorkouts()))
}

func TestRegistryStartsEmptyOnInvalidSnapshot(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()
	require.NoError(t, kv.Put(ctx, DefaultKey, []byte(`[{"id":`)))

	reg := openRegistry(t, ctx, NewSnapshot(kv))
	require.Zero(t, reg.Len())
}

func openRegistry(t *testing.T, ctx context.Context, store domain.Store, opts ...domain.Option) *domain.Registry {
	t.Helper()
	reg, err := domain.Open(ctx, store, opts...)
	require.NoError(t, err)
	return reg
}
