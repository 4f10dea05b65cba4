package presenter

import (
	"fmt"
	"strconv"
	"strings"

	"example.com/workoutlog/internal/domain"
)

// FormInput holds raw form values as typed by the user.
type FormInput struct {
	Type      string `json:"type"`
	Distance  string `json:"distance"`
	Duration  string `json:"duration"`
	Cadence   string `json:"cadence"`
	Elevation string `json:"elevation"`
}

// Parse converts raw values and validates them. Only the field belonging to the
// selected type is read.
func (f FormInput) Parse() (domain.EditInput, error) {
	kind := domain.Kind(strings.ToLower(strings.TrimSpace(f.Type)))
	in := domain.EditInput{Kind: kind}

	var err error
	if in.Distance, err = number("distance", f.Distance); err != nil {
		return in, err
	}
	if in.Duration, err = number("duration", f.Duration); err != nil {
		return in, err
	}
	switch kind {
	case domain.KindRunning:
		in.Cadence, err = number("cadence", f.Cadence)
	case domain.KindCycling:
		in.Elevation, err = number("elevation", f.Elevation)
	}
	if err != nil {
		return in, err
	}
	return in, in.Validate()
}

// number parses a form value. A blank field reads as zero.
func number(field, raw string) (float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s is not a number", domain.ErrValidation, field)
	}
	return v, nil
}
