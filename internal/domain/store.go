package domain

import (
	"fmt"
	"slices"
)

// WorkoutChanges carries the fields an edit may replace. Nil fields are left untouched.
type WorkoutChanges struct {
	Distance      *float64
	Duration      *float64
	Cadence       *float64
	ElevationGain *float64
}

// Empty reports whether the change set touches nothing.
func (c WorkoutChanges) Empty() bool {
	return c.Distance == nil && c.Duration == nil && c.Cadence == nil && c.ElevationGain == nil
}

// Store is the ordered in-memory collection of workouts. Insertion order is
// display order. Store is not safe for concurrent use; Service serialises access.
type Store struct {
	workouts []Workout
}

// NewStore builds a Store seeded with the given workouts, rejecting invalid
// records and duplicate ids.
func NewStore(seed ...Workout) (*Store, error) {
	s := &Store{workouts: make([]Workout, 0, len(seed))}
	for _, w := range seed {
		if err := s.Add(w); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Add appends a workout.
func (s *Store) Add(w Workout) error {
	if err := w.Validate(); err != nil {
		return err
	}
	if s.indexOf(w.ID) >= 0 {
		return fmt.Errorf("%w: %s", ErrDuplicateID, w.ID)
	}
	w = w.Clone()
	w.Refresh()
	s.workouts = append(s.workouts, w)
	return nil
}

// FindByID returns a copy of the workout with the given id.
func (s *Store) FindByID(id string) (Workout, error) {
	idx := s.indexOf(id)
	if idx < 0 {
		return Workout{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return s.workouts[idx].Clone(), nil
}

// Update applies changes to a copy, validates it, and only then replaces the
// stored record. On any error the stored record is untouched.
func (s *Store) Update(id string, changes WorkoutChanges) (Workout, error) {
	idx := s.indexOf(id)
	if idx < 0 {
		return Workout{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	next := s.workouts[idx].Clone()
	if changes.Distance != nil {
		next.Distance = *changes.Distance
	}
	if changes.Duration != nil {
		next.Duration = *changes.Duration
	}

	switch next.Kind {
	case KindRunning:
		if changes.ElevationGain != nil {
			return Workout{}, fmt.Errorf("%w: elevation_gain does not apply to running workouts", ErrInvalidInput)
		}
		if changes.Cadence != nil {
			next.Running.Cadence = *changes.Cadence
		}
	case KindCycling:
		if changes.Cadence != nil {
			return Workout{}, fmt.Errorf("%w: cadence does not apply to cycling workouts", ErrInvalidInput)
		}
		if changes.ElevationGain != nil {
			next.Cycling.ElevationGain = *changes.ElevationGain
		}
	default:
		return Workout{}, fmt.Errorf("%w: unknown kind %q", ErrInvalidInput, next.Kind)
	}

	if err := next.Validate(); err != nil {
		return Workout{}, err
	}
	next.Refresh()
	s.workouts[idx] = next
	return next.Clone(), nil
}

// Click records an interaction on the stored workout.
func (s *Store) Click(id string) (Workout, error) {
	idx := s.indexOf(id)
	if idx < 0 {
		return Workout{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	s.workouts[idx].RecordInteraction()
	return s.workouts[idx].Clone(), nil
}

// Remove deletes the workout, keeping the order of the remaining ones.
func (s *Store) Remove(id string) (Workout, error) {
	idx := s.indexOf(id)
	if idx < 0 {
		return Workout{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	removed := s.workouts[idx]
	s.workouts = slices.Delete(s.workouts, idx, idx+1)
	return removed, nil
}

// Clear empties the collection.
func (s *Store) Clear() {
	s.workouts = s.workouts[:0:0]
}

// All returns a copy of the workouts in display order.
func (s *Store) All() []Workout {
	out := make([]Workout, len(s.workouts))
	for i, w := range s.workouts {
		out[i] = w.Clone()
	}
	return out
}

// Len reports the number of stored workouts.
func (s *Store) Len() int {
	return len(s.workouts)
}

func (s *Store) indexOf(id string) int {
	return slices.IndexFunc(s.workouts, func(w Workout) bool { return w.ID == id })
}
