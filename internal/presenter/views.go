package presenter

import (
	"context"

	"example.com/workoutlog/internal/domain"
)

// MarkerHandle identifies a marker placed by a MapView.
type MarkerHandle string

// MapView renders markers and moves the viewport.
type MapView interface {
	PlaceMarker(coords domain.Coords, popup, class string) MarkerHandle
	UpdatePopup(handle MarkerHandle, popup, class string)
	RemoveMarker(handle MarkerHandle)
	SetView(coords domain.Coords, zoom int)
}

// ListView renders the workout list next to the map.
type ListView interface {
	AppendEntry(w domain.Workout)
	UpdateEntry(id string, w domain.Workout)
	RemoveEntry(id string)
	OpenEditor(id string)
	CloseEditor(id string)
}

// FormView is the creation form shown after a map click. Close also clears its
// inputs.
type FormView interface {
	Open(coords domain.Coords)
	Close()
}

// Prompt is the delete-all confirmation dialog.
type Prompt interface {
	Open()
	Close()
}

// Notifier shows user-facing notices.
type Notifier interface {
	Alert(msg string)
}

// PositionProvider resolves the user's position once.
type PositionProvider interface {
	CurrentPosition(ctx context.Context) (domain.Coords, error)
}

// PositionFunc adapts a function to PositionProvider.
type PositionFunc func(ctx context.Context) (domain.Coords, error)

// CurrentPosition implements PositionProvider.
func (f PositionFunc) CurrentPosition(ctx context.Context) (domain.Coords, error) {
	return f(ctx)
}

// Views bundles the collaborators driven by the Coordinator.
type Views struct {
	Map    MapView
	List   ListView
	Form   FormView
	Prompt Prompt
	Notify Notifier
}

// PopupText is the marker label for a workout.
func PopupText(w domain.Workout) string {
	return Icon(w.Kind) + " " + w.Description
}

// PopupClass is the CSS class applied to a workout's popup.
func PopupClass(w domain.Workout) string {
	return string(w.Kind) + "-popup"
}

// Icon returns the emoji used for a workout variant.
func Icon(kind domain.Kind) string {
	if kind == domain.KindRunning {
		return "🏃‍♂️"
	}
	return "🚴‍♀️"
}
