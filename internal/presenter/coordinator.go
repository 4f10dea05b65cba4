// Package presenter turns UI events into registry operations and render commands.
package presenter

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"example.com/workoutlog/internal/domain"
	"example.com/workoutlog/internal/observability"
)

// User-facing notices.
const (
	NoticeInvalidInput = "Inputs have to be positive numbers!"
	NoticeNoPosition   = "Could not get your position"
	NoticeNotFound     = "That workout no longer exists"
	NoticeSaveFailed   = "Could not save your workouts"
)

// DefaultZoom is the map zoom level used when centring on a position or workout.
const DefaultZoom = 13

var (
	// ErrInvalidTransition is returned when an event does not apply to the current mode.
	ErrInvalidTransition = errors.New("event not valid in current mode")
	// ErrMapUnavailable is returned for map events before the map was initialised.
	ErrMapUnavailable = errors.New("map is not available")
)

// Mode is the interaction mode of the Coordinator.
type Mode int

const (
	ModeIdle Mode = iota
	ModeAwaitingForm
	ModeEditing
	ModeConfirmingDeleteAll
)

func (m Mode) String() string {
	switch m {
	case ModeIdle:
		return "idle"
	case ModeAwaitingForm:
		return "awaiting_form"
	case ModeEditing:
		return "editing"
	case ModeConfirmingDeleteAll:
		return "confirming_delete_all"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// State is a read-only view of the Coordinator's interaction state.
type State struct {
	Mode      Mode
	MapReady  bool
	Pending   domain.Coords
	EditingID string
}

// Option configures optional behaviour for the Coordinator.
type Option func(*Coordinator)

// WithLogger overrides the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Coordinator) {
		c.logger = logger
	}
}

// WithZoom overrides the zoom level used by SetView.
func WithZoom(zoom int) Option {
	return func(c *Coordinator) {
		c.zoom = zoom
	}
}

// WithFactory overrides how new workouts are stamped.
func WithFactory(f domain.Factory) Option {
	return func(c *Coordinator) {
		c.factory = f
	}
}

// Coordinator owns the interaction state machine and the workout-to-marker
// mapping. Events are handled one at a time, each running to completion.
type Coordinator struct {
	mu       sync.Mutex
	registry *domain.Registry
	views    Views
	factory  domain.Factory
	zoom     int
	logger   zerolog.Logger

	opened   bool
	mapReady bool
	mode     Mode
	pending  domain.Coords
	editing  string
	markers  map[string]MarkerHandle
}

// New constructs a Coordinator.
func New(registry *domain.Registry, views Views, opts ...Option) *Coordinator {
	c := &Coordinator{
		registry: registry,
		views:    views,
		factory:  domain.DefaultFactory,
		zoom:     DefaultZoom,
		logger:   zerolog.Nop(),
		markers:  make(map[string]MarkerHandle),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Open renders the list for the rehydrated registry. Later calls do nothing.
func (c *Coordinator) Open() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.opened {
		return
	}
	c.opened = true
	for _, w := range c.registry.All() {
		c.views.List.AppendEntry(w)
	}
}

// Locate resolves the user's position once and initialises the map there.
// Markers for workouts that do not have one yet are placed on success. On
// failure the user is notified. Before the first success map events stay
// unavailable and ErrMapUnavailable is returned; once the map is ready a later
// failure only raises the notice and the map keeps its current view.
func (c *Coordinator) Locate(ctx context.Context, provider PositionProvider) error {
	coords, err := provider.CurrentPosition(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()

	if err != nil {
		c.logger.Warn().Err(err).Msg("position unavailable")
		c.alert(NoticeNoPosition)
		if c.mapReady {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrMapUnavailable, err)
	}

	c.views.Map.SetView(coords, c.zoom)
	c.mapReady = true
	for _, w := range c.registry.All() {
		if _, ok := c.markers[w.ID]; !ok {
			c.placeMarker(w)
		}
	}
	c.logger.Info().Float64("lat", coords.Lat()).Float64("lng", coords.Lng()).Msg("map initialised")
	return nil
}

// MapClick opens the creation form for the clicked coordinates.
func (c *Coordinator) MapClick(coords domain.Coords) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.mapReady {
		return ErrMapUnavailable
	}
	if c.mode != ModeAwaitingForm {
		c.leave()
	}
	c.mode = ModeAwaitingForm
	c.pending = coords
	c.views.Form.Open(coords)
	return nil
}

// SubmitForm creates a workout at the pending coordinates.
func (c *Coordinator) SubmitForm(ctx context.Context, input FormInput) (domain.Workout, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.mode != ModeAwaitingForm {
		return domain.Workout{}, fmt.Errorf("%w: no pending location", ErrInvalidTransition)
	}

	in, err := input.Parse()
	if err != nil {
		c.alert(NoticeInvalidInput)
		return domain.Workout{}, err
	}
	w, err := c.factory.New(c.pending, in)
	if err != nil {
		c.alert(NoticeInvalidInput)
		return domain.Workout{}, err
	}
	if err := c.registry.Add(ctx, w); err != nil {
		c.alert(NoticeSaveFailed)
		return domain.Workout{}, err
	}

	c.placeMarker(w)
	c.views.List.AppendEntry(w)
	c.views.Form.Close()
	c.toIdle()

	c.logger.Info().Str("id", w.ID).Str("type", string(w.Kind)).Msg("workout created")
	return w, nil
}

// CancelForm closes the creation form without creating anything.
func (c *Coordinator) CancelForm() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.mode != ModeAwaitingForm {
		return
	}
	c.views.Form.Close()
	c.toIdle()
}

// Select recentres the map on a workout and counts the interaction. Unknown
// IDs are ignored.
func (c *Coordinator) Select(ctx context.Context, id string) (domain.Workout, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	w, err := c.registry.Find(id)
	if err != nil {
		return domain.Workout{}, false
	}
	if c.mapReady {
		c.views.Map.SetView(w.Coords, c.zoom)
	}
	if updated, err := c.registry.RecordClick(ctx, id); err == nil {
		w = updated
	} else {
		c.logger.Warn().Err(err).Str("id", id).Msg("click not recorded")
	}
	return w, true
}

// BeginEdit opens the inline editor for a workout. Unknown IDs are ignored.
func (c *Coordinator) BeginEdit(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := c.registry.Find(id); err != nil {
		return false
	}
	if c.mode == ModeEditing && c.editing == id {
		return true
	}
	c.leave()
	c.mode = ModeEditing
	c.editing = id
	c.views.List.OpenEditor(id)
	return true
}

// SubmitEdit applies the editor's values to the workout being edited.
func (c *Coordinator) SubmitEdit(ctx context.Context, id string, input FormInput) (domain.Workout, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.mode != ModeEditing || c.editing != id {
		return domain.Workout{}, fmt.Errorf("%w: %s is not being edited", ErrInvalidTransition, id)
	}

	in, err := input.Parse()
	if err != nil {
		c.alert(NoticeInvalidInput)
		return domain.Workout{}, err
	}

	w, err := c.registry.Edit(ctx, id, in)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		c.alert(NoticeNotFound)
		c.views.List.CloseEditor(id)
		c.toIdle()
		return domain.Workout{}, err
	case errors.Is(err, domain.ErrValidation):
		c.alert(NoticeInvalidInput)
		return domain.Workout{}, err
	case err != nil:
		c.alert(NoticeSaveFailed)
		return domain.Workout{}, err
	}

	c.views.List.UpdateEntry(id, w)
	if handle, ok := c.markers[id]; ok {
		c.views.Map.UpdatePopup(handle, PopupText(w), PopupClass(w))
	}
	c.views.List.CloseEditor(id)
	c.toIdle()

	c.logger.Info().Str("id", id).Str("type", string(w.Kind)).Msg("workout edited")
	return w, nil
}

// CancelEdit closes the inline editor without changes.
func (c *Coordinator) CancelEdit() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.mode != ModeEditing {
		return
	}
	c.leave()
}

// Delete removes one workout with its marker and list entry. Unknown IDs are
// ignored.
func (c *Coordinator) Delete(ctx context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := c.registry.Find(id); err != nil {
		return nil
	}
	if err := c.registry.Remove(ctx, id); err != nil {
		c.alert(NoticeSaveFailed)
		return err
	}
	if c.mode == ModeEditing && c.editing == id {
		c.leave()
	}
	c.removeMarker(id)
	c.views.List.RemoveEntry(id)

	c.logger.Info().Str("id", id).Msg("workout deleted")
	return nil
}

// RequestDeleteAll opens the confirmation prompt, or closes it if it is
// already open.
func (c *Coordinator) RequestDeleteAll() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.mode == ModeConfirmingDeleteAll {
		c.leave()
		return
	}
	c.leave()
	c.mode = ModeConfirmingDeleteAll
	c.views.Prompt.Open()
}

// ConfirmDeleteAll removes every workout, marker and list entry.
func (c *Coordinator) ConfirmDeleteAll(ctx context.Context) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.mode != ModeConfirmingDeleteAll {
		return 0, fmt.Errorf("%w: delete-all was not requested", ErrInvalidTransition)
	}

	all := c.registry.All()
	// Registry first: a failed save must leave markers and entries in place.
	if err := c.registry.RemoveAll(ctx); err != nil {
		c.alert(NoticeSaveFailed)
		return 0, err
	}
	for _, w := range all {
		c.removeMarker(w.ID)
		c.views.List.RemoveEntry(w.ID)
	}
	c.views.Prompt.Close()
	c.toIdle()

	c.logger.Info().Int("count", len(all)).Msg("all workouts deleted")
	return len(all), nil
}

// CancelDeleteAll closes the confirmation prompt without changes.
func (c *Coordinator) CancelDeleteAll() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.mode != ModeConfirmingDeleteAll {
		return
	}
	c.leave()
}

// KeyPress handles keyboard shortcuts. Escape dismisses the confirmation prompt.
func (c *Coordinator) KeyPress(key string) {
	if key == "Escape" {
		c.CancelDeleteAll()
	}
}

// State returns the current interaction state.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	return State{
		Mode:      c.mode,
		MapReady:  c.mapReady,
		Pending:   c.pending,
		EditingID: c.editing,
	}
}

// Markers returns a copy of the workout-to-marker mapping.
func (c *Coordinator) Markers() map[string]MarkerHandle {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make(map[string]MarkerHandle, len(c.markers))
	for id, h := range c.markers {
		out[id] = h
	}
	return out
}

// Workouts returns the registry contents in display order.
func (c *Coordinator) Workouts() []domain.Workout {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.registry.All()
}

// leave closes whatever the current mode has open and returns to idle.
func (c *Coordinator) leave() {
	switch c.mode {
	case ModeAwaitingForm:
		c.views.Form.Close()
	case ModeEditing:
		c.views.List.CloseEditor(c.editing)
	case ModeConfirmingDeleteAll:
		c.views.Prompt.Close()
	}
	c.toIdle()
}

func (c *Coordinator) toIdle() {
	c.mode = ModeIdle
	c.pending = domain.Coords{}
	c.editing = ""
}

func (c *Coordinator) placeMarker(w domain.Workout) {
	if !c.mapReady {
		return
	}
	c.markers[w.ID] = c.views.Map.PlaceMarker(w.Coords, PopupText(w), PopupClass(w))
}

func (c *Coordinator) removeMarker(id string) {
	handle, ok := c.markers[id]
	if !ok {
		return
	}
	c.views.Map.RemoveMarker(handle)
	delete(c.markers, id)
}

func (c *Coordinator) alert(msg string) {
	observability.RecordNotice()
	c.views.Notify.Alert(msg)
}
