package persistence

import (
	"errors"
	"fmt"
	"math"
	"time"

	"example.com/workoutlog/internal/domain"
)

// record is the stored shape of one workout. Pace and speed are written for
// readers of the raw document and recomputed on load.
type record struct {
	ID          string    `json:"id"`
	Type        string    `json:"type"`
	Coords      []float64 `json:"coords"`
	Distance    float64   `json:"distance"`
	Duration    float64   `json:"duration"`
	Cadence     *float64  `json:"cadence,omitempty"`
	Elevation   *float64  `json:"elevation,omitempty"`
	Description string    `json:"description"`
	Pace        *float64  `json:"pace,omitempty"`
	Speed       *float64  `json:"speed,omitempty"`
	Date        time.Time `json:"date"`
	Click       int       `json:"click"`
}

func toRecord(w domain.Workout) record {
	rec := record{
		ID:          w.ID,
		Type:        string(w.Kind),
		Coords:      []float64{w.Coords.Lat(), w.Coords.Lng()},
		Distance:    w.Distance,
		Duration:    w.Duration,
		Description: w.Description,
		Date:        w.Date,
		Click:       w.Clicks,
	}
	switch w.Kind {
	case domain.KindRunning:
		cadence, pace := float64(w.Cadence), w.Pace()
		rec.Cadence, rec.Pace = &cadence, &pace
	case domain.KindCycling:
		elevation, speed := w.Elevation, w.Speed()
		rec.Elevation, rec.Speed = &elevation, &speed
	}
	return rec
}

func (r record) toWorkout() (domain.Workout, error) {
	kind := domain.Kind(r.Type)
	if !kind.Valid() {
		return domain.Workout{}, fmt.Errorf("unknown type %q", r.Type)
	}
	if r.ID == "" {
		return domain.Workout{}, errors.New("missing id")
	}
	if len(r.Coords) != 2 {
		return domain.Workout{}, fmt.Errorf("coords has %d elements", len(r.Coords))
	}
	if !(r.Distance > 0) || !(r.Duration > 0) {
		return domain.Workout{}, errors.New("distance and duration must be positive")
	}

	w := domain.Workout{
		ID:          r.ID,
		Kind:        kind,
		Date:        r.Date,
		Coords:      domain.Coords{r.Coords[0], r.Coords[1]},
		Distance:    r.Distance,
		Duration:    r.Duration,
		Description: r.Description,
		Clicks:      r.Click,
	}
	switch kind {
	case domain.KindRunning:
		if r.Cadence == nil {
			return domain.Workout{}, errors.New("running record without cadence")
		}
		cadence := math.Round(*r.Cadence)
		if !(cadence > 0) || cadence > math.MaxInt32 {
			return domain.Workout{}, fmt.Errorf("cadence %v out of range", *r.Cadence)
		}
		w.Cadence = int(cadence)
	case domain.KindCycling:
		if r.Elevation == nil {
			return domain.Workout{}, errors.New("cycling record without elevation")
		}
		w.Elevation = *r.Elevation
	}
	return w, nil
}
