package domain

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
)

// Kind discriminates the workout variants.
type Kind string

const (
	KindRunning Kind = "running"
	KindCycling Kind = "cycling"
)

// Valid reports whether k names a known variant.
func (k Kind) Valid() bool {
	return k == KindRunning || k == KindCycling
}

// Title returns the capitalised variant name used in descriptions.
func (k Kind) Title() string {
	switch k {
	case KindRunning:
		return "Running"
	case KindCycling:
		return "Cycling"
	default:
		return string(k)
	}
}

// Coords is a latitude, longitude pair.
type Coords [2]float64

// Lat returns the latitude.
func (c Coords) Lat() float64 { return c[0] }

// Lng returns the longitude.
func (c Coords) Lng() float64 { return c[1] }

// Workout is a single logged activity. Cadence is only meaningful for running
// workouts and Elevation only for cycling workouts; the other field is always zero.
type Workout struct {
	ID          string
	Kind        Kind
	Date        time.Time
	Coords      Coords
	Distance    float64 // km
	Duration    float64 // min
	Cadence     int     // steps/min
	Elevation   float64 // m
	Description string
	Clicks      int
}

// Pace returns min/km for running workouts and zero otherwise.
func (w Workout) Pace() float64 {
	if w.Kind != KindRunning {
		return 0
	}
	return w.Duration / w.Distance
}

// Speed returns km/h for cycling workouts and zero otherwise.
func (w Workout) Speed() float64 {
	if w.Kind != KindCycling {
		return 0
	}
	return w.Distance / (w.Duration / 60)
}

// Factory stamps new workouts with an identifier and a creation time.
type Factory struct {
	Now   func() time.Time
	NewID func() string
}

// DefaultFactory uses the wall clock and time-ordered UUIDs.
var DefaultFactory = Factory{
	Now: time.Now,
	NewID: func() string {
		return uuid.Must(uuid.NewV7()).String()
	},
}

// NewRunning validates the inputs and builds a running workout.
func NewRunning(coords Coords, distance, duration, cadence float64) (Workout, error) {
	return DefaultFactory.NewRunning(coords, distance, duration, cadence)
}

// NewCycling validates the inputs and builds a cycling workout.
func NewCycling(coords Coords, distance, duration, elevation float64) (Workout, error) {
	return DefaultFactory.NewCycling(coords, distance, duration, elevation)
}

// NewRunning validates the inputs and builds a running workout.
func (f Factory) NewRunning(coords Coords, distance, duration, cadence float64) (Workout, error) {
	return f.build(coords, EditInput{Kind: KindRunning, Distance: distance, Duration: duration, Cadence: cadence})
}

// NewCycling validates the inputs and builds a cycling workout.
func (f Factory) NewCycling(coords Coords, distance, duration, elevation float64) (Workout, error) {
	return f.build(coords, EditInput{Kind: KindCycling, Distance: distance, Duration: duration, Elevation: elevation})
}

// New builds a workout of the variant named by in.Kind.
func (f Factory) New(coords Coords, in EditInput) (Workout, error) {
	return f.build(coords, in)
}

func (f Factory) build(coords Coords, in EditInput) (Workout, error) {
	if err := in.Validate(); err != nil {
		return Workout{}, err
	}
	w := Workout{
		ID:     f.NewID(),
		Date:   f.Now(),
		Coords: coords,
	}
	apply(&w, in)
	return w, nil
}

// EditInput carries the fields a user may set on create or edit. Only the field
// matching Kind is read; the other one is ignored.
type EditInput struct {
	Kind      Kind
	Distance  float64
	Duration  float64
	Cadence   float64
	Elevation float64
}

// Validate enforces the numeric rules shared by create and edit.
func (in EditInput) Validate() error {
	if !in.Kind.Valid() {
		return fmt.Errorf("%w: unknown workout type %q", ErrValidation, in.Kind)
	}
	if !positive(in.Distance) {
		return fmt.Errorf("%w: distance must be a positive number", ErrValidation)
	}
	if !positive(in.Duration) {
		return fmt.Errorf("%w: duration must be a positive number", ErrValidation)
	}
	switch in.Kind {
	case KindRunning:
		if !positive(in.Cadence) {
			return fmt.Errorf("%w: cadence must be a positive number", ErrValidation)
		}
		if in.Cadence != math.Trunc(in.Cadence) || in.Cadence > math.MaxInt32 {
			return fmt.Errorf("%w: cadence must be a whole number", ErrValidation)
		}
	case KindCycling:
		if !finite(in.Elevation) || in.Elevation < 0 {
			return fmt.Errorf("%w: elevation must be zero or a positive number", ErrValidation)
		}
	}
	return nil
}

// Reclassify applies an edit to w. The variant may change; the field that belongs
// to the old variant is discarded. The description keeps the creation date.
func Reclassify(w Workout, in EditInput) (Workout, error) {
	if err := in.Validate(); err != nil {
		return w, err
	}
	apply(&w, in)
	return w, nil
}

func apply(w *Workout, in EditInput) {
	w.Kind = in.Kind
	w.Distance = in.Distance
	w.Duration = in.Duration
	w.Cadence, w.Elevation = 0, 0
	switch in.Kind {
	case KindRunning:
		w.Cadence = int(in.Cadence)
	case KindCycling:
		w.Elevation = in.Elevation
	}
	w.Description = Describe(w.Kind, w.Date)
}

// Describe renders "<Type> on <Month> <day>", e.g. "Running on April 7".
func Describe(kind Kind, date time.Time) string {
	return fmt.Sprintf("%s on %s %d", kind.Title(), date.Month(), date.Day())
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func positive(v float64) bool {
	return finite(v) && v > 0
}
