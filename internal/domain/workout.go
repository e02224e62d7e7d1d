// Package domain defines the workout records and the session that owns them.
package domain

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
)

// Kind tags the workout variant.
type Kind string

const (
	KindRunning Kind = "running"
	KindCycling Kind = "cycling"
)

// ParseKind maps a serialized tag onto a Kind.
func ParseKind(raw string) (Kind, error) {
	switch Kind(raw) {
	case KindRunning, KindCycling:
		return Kind(raw), nil
	default:
		return "", fmt.Errorf("unknown workout kind %q", raw)
	}
}

// Label returns the capitalised kind name used in descriptions.
func (k Kind) Label() string {
	switch k {
	case KindRunning:
		return "Running"
	case KindCycling:
		return "Cycling"
	default:
		return string(k)
	}
}

// Coordinates is the latitude/longitude pair picked on the map.
type Coordinates struct {
	Lat float64
	Lng float64
}

// Running holds the run-only fields. Pace is in min/km.
type Running struct {
	Cadence float64
	Pace    float64
}

// Cycling holds the ride-only fields. Speed is in km/h.
type Cycling struct {
	ElevationGain float64
	Speed         float64
}

// Workout is a single logged run or ride. Exactly one of Running or Cycling is
// set and it always matches Kind.
type Workout struct {
	ID          string
	CreatedAt   time.Time
	Kind        Kind
	Distance    float64 // km
	Duration    float64 // min
	Coordinates Coordinates
	ClickCount  int
	Description string

	Running *Running
	Cycling *Cycling
}

// NewRunning validates the inputs and builds a running workout with its pace.
func NewRunning(distance, duration float64, coords Coordinates, cadence float64) (Workout, error) {
	w := newWorkout(KindRunning, distance, duration, coords)
	w.Running = &Running{Cadence: cadence}
	if err := w.Validate(); err != nil {
		return Workout{}, err
	}
	w.Refresh()
	return w, nil
}

// NewCycling validates the inputs and builds a cycling workout with its speed.
// Elevation gain may be zero.
func NewCycling(distance, duration float64, coords Coordinates, elevationGain float64) (Workout, error) {
	w := newWorkout(KindCycling, distance, duration, coords)
	w.Cycling = &Cycling{ElevationGain: elevationGain}
	if err := w.Validate(); err != nil {
		return Workout{}, err
	}
	w.Refresh()
	return w, nil
}

func newWorkout(kind Kind, distance, duration float64, coords Coordinates) Workout {
	return Workout{
		ID:          uuid.NewString(),
		CreatedAt:   time.Now().UTC(),
		Kind:        kind,
		Distance:    distance,
		Duration:    duration,
		Coordinates: coords,
	}
}

// Validate checks every invariant of the record.
func (w Workout) Validate() error {
	if w.ID == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidInput)
	}
	if w.CreatedAt.IsZero() {
		return fmt.Errorf("%w: created_at is required", ErrInvalidInput)
	}
	if err := positive("distance", w.Distance); err != nil {
		return err
	}
	if err := positive("duration", w.Duration); err != nil {
		return err
	}
	if err := validateCoordinates(w.Coordinates); err != nil {
		return err
	}
	if w.ClickCount < 0 {
		return fmt.Errorf("%w: click_count must be >= 0", ErrInvalidInput)
	}

	switch w.Kind {
	case KindRunning:
		if w.Running == nil || w.Cycling != nil {
			return fmt.Errorf("%w: running workout must carry running fields only", ErrInvalidInput)
		}
		return positive("cadence", w.Running.Cadence)
	case KindCycling:
		if w.Cycling == nil || w.Running != nil {
			return fmt.Errorf("%w: cycling workout must carry cycling fields only", ErrInvalidInput)
		}
		return nonNegative("elevation_gain", w.Cycling.ElevationGain)
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidInput, w.Kind)
	}
}

// Refresh recomputes the derived metrics from distance and duration and fills
// in the description when it is missing. Call it after any change to either.
func (w *Workout) Refresh() {
	switch w.Kind {
	case KindRunning:
		if w.Running != nil {
			w.Running.Pace = w.Duration / w.Distance
		}
	case KindCycling:
		if w.Cycling != nil {
			w.Cycling.Speed = w.Distance / (w.Duration / 60)
		}
	}
	if w.Description == "" {
		w.Description = Describe(*w)
	}
}

// RecordInteraction counts a click on the workout.
func (w *Workout) RecordInteraction() {
	w.ClickCount++
}

// Describe renders the label shown in lists and popups, e.g. "Running on April 14".
func Describe(w Workout) string {
	return fmt.Sprintf("%s on %s %d", w.Kind.Label(), w.CreatedAt.Month(), w.CreatedAt.Day())
}

// Pace returns min/km for running workouts.
func (w Workout) Pace() (float64, bool) {
	if w.Kind != KindRunning || w.Running == nil {
		return 0, false
	}
	return w.Running.Pace, true
}

// Speed returns km/h for cycling workouts.
func (w Workout) Speed() (float64, bool) {
	if w.Kind != KindCycling || w.Cycling == nil {
		return 0, false
	}
	return w.Cycling.Speed, true
}

// Clone returns a deep copy so callers cannot mutate store-owned variant fields.
func (w Workout) Clone() Workout {
	out := w
	if w.Running != nil {
		r := *w.Running
		out.Running = &r
	}
	if w.Cycling != nil {
		c := *w.Cycling
		out.Cycling = &c
	}
	return out
}

func positive(field string, value float64) error {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return fmt.Errorf("%w: %s must be a finite number", ErrInvalidInput, field)
	}
	if value <= 0 {
		return fmt.Errorf("%w: %s must be > 0", ErrInvalidInput, field)
	}
	return nil
}

func nonNegative(field string, value float64) error {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return fmt.Errorf("%w: %s must be a finite number", ErrInvalidInput, field)
	}
	if value < 0 {
		return fmt.Errorf("%w: %s must be >= 0", ErrInvalidInput, field)
	}
	return nil
}

func validateCoordinates(c Coordinates) error {
	for _, v := range []float64{c.Lat, c.Lng} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: coordinates must be finite", ErrInvalidInput)
		}
	}
	if c.Lat < -90 || c.Lat > 90 {
		return fmt.Errorf("%w: latitude must be within [-90, 90]", ErrInvalidInput)
	}
	if c.Lng < -180 || c.Lng > 180 {
		return fmt.Errorf("%w: longitude must be within [-180, 180]", ErrInvalidInput)
	}
	return nil
}
