package view

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"example.com/workoutlog/internal/domain"
	"example.com/workoutlog/internal/persistence"
	"example.com/workoutlog/internal/presenter"
)

func TestScreenFollowsCoordinator(t *testing.T) {
	ctx := context.Background()
	screen := NewScreen()
	reg := openRegistry(t, ctx, persistence.NewSnapshot(persistence.NewMemoryKV()))
	c := presenter.New(reg, screen.Views())
	c.Open()

	require.NoError(t, c.Locate(ctx, presenter.PositionFunc(func(context.Context) (domain.Coords, error) {
		return domain.Coords{38.7, -9.1}, nil
	})))

	st := screen.State()
	require.Equal(t, &domain.Coords{38.7, -9.1}, st.Center)
	require.Equal(t, presenter.DefaultZoom, st.Zoom)

	require.NoError(t, c.MapClick(domain.Coords{10, 20}))
	require.True(t, screen.State().FormOpen)
	require.Equal(t, &domain.Coords{10, 20}, screen.State().FormCoords)

	run, err := c.SubmitForm(ctx, presenter.FormInput{Type: "running", Distance: "5", Duration: "27", Cadence: "178"})
	require.NoError(t, err)

	require.NoError(t, c.MapClick(domain.Coords{11, 21}))
	ride, err := c.SubmitForm(ctx, presenter.FormInput{Type: "cycling", Distance: "20", Duration: "45", Elevation: "300"})
	require.NoError(t, err)

	st = screen.State()
	require.False(t, st.FormOpen)
	require.Len(t, st.Markers, 2)
	require.Len(t, st.Entries, 2)
	require.Equal(t, ride.ID, st.Entries[0].ID, "newest entry first")
	require.Equal(t, 5, *st.Entries[1].Pace)
	require.Equal(t, 178, *st.Entries[1].Cadence)
	require.Nil(t, st.Entries[1].Speed)
	require.Equal(t, 26, *st.Entries[0].Speed)

	require.True(t, c.BeginEdit(run.ID))
	require.True(t, screen.State().Entries[1].Editing)

	_, err = c.SubmitEdit(ctx, run.ID, presenter.FormInput{Type: "cycling", Distance: "10", Duration: "30", Elevation: "100"})
	require.NoError(t, err)

	st = screen.State()
	edited := st.Entries[1]
	require.False(t, edited.Editing)
	require.Equal(t, "cycling", edited.Type)
	require.Equal(t, 20, *edited.Speed)
	require.Nil(t, edited.Cadence)
	require.Equal(t, "cycling-popup", st.Markers[0].Class)

	_, ok := c.Select(ctx, ride.ID)
	require.True(t, ok)
	require.Equal(t, &domain.Coords{11, 21}, screen.State().Center)

	c.RequestDeleteAll()
	require.True(t, screen.State().PromptOpen)
	_, err = c.ConfirmDeleteAll(ctx)
	require.NoError(t, err)

	st = screen.State()
	require.False(t, st.PromptOpen)
	require.Empty(t, st.Markers)
	require.Empty(t, st.Entries)
}

func TestScreenNotices(t *testing.T) {
	screen := NewScreen()
	views := screen.Views()
	for i := 0; i < maxNotices+5; i++ {
		views.Notify.Alert("n")
	}
	require.Len(t, screen.State().Notices, maxNotices)
	require.Len(t, screen.DrainNotices(), maxNotices)
	require.Empty(t, screen.DrainNotices())
}

func TestStateIsACopy(t *testing.T) {
	screen := NewScreen()
	w, err := domain.Factory{Now: time.Now, NewID: func() string { return "x" }}.NewRunning(domain.Coords{}, 5, 25, 180)
	require.NoError(t, err)
	screen.Views().List.AppendEntry(w)

	st := screen.State()
	st.Entries[0].Title = "changed"
	require.NotEqual(t, "changed", screen.State().Entries[0].Title)
}

func openRegistry(t *testing.T, ctx context.Context, store domain.Store, opts ...domain.Option) *domain.Registry {
	t.Helper()
	reg, err := domain.Open(ctx, store, opts...)
	require.NoError(t, err)
	return reg
}
