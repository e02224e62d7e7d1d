package persistence

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"example.com/workouts/internal/domain"
)

// record is the stored shape of a workout. Pointer fields let Decode tell a
// missing field from a zero value.
type record struct {
	ID            string     `json:"id"`
	Kind          string     `json:"kind"`
	CreatedAt     *time.Time `json:"created_at"`
	Distance      *float64   `json:"distance"`
	Duration      *float64   `json:"duration"`
	Coordinates   []float64  `json:"coordinates"`
	ClickCount    *int       `json:"click_count"`
	Description   string     `json:"description,omitempty"`
	Cadence       *float64   `json:"cadence,omitempty"`
	Pace          *float64   `json:"pace,omitempty"`
	ElevationGain *float64   `json:"elevation_gain,omitempty"`
	Speed         *float64   `json:"speed,omitempty"`
}

// Encode serialises the ordered workout list. An empty list encodes as "[]".
func Encode(workouts []domain.Workout) ([]byte, error) {
	records := make([]record, 0, len(workouts))
	for _, w := range workouts {
		rec, err := toRecord(w)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return json.Marshal(records)
}

// Decode parses a stored list. Any structural or semantic problem is reported
// as domain.ErrCorruptData.
func Decode(data []byte) ([]domain.Workout, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("%w: empty value", domain.ErrCorruptData)
	}

	var records []record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrCorruptData, err)
	}
	// "null" unmarshals into a nil slice without error.
	if records == nil {
		return nil, fmt.Errorf("%w: expected a list of workouts", domain.ErrCorruptData)
	}

	seen := make(map[string]struct{}, len(records))
	out := make([]domain.Workout, 0, len(records))
	for i, rec := range records {
		w, err := fromRecord(rec)
		if err != nil {
			return nil, fmt.Errorf("%w: record %d: %v", domain.ErrCorruptData, i, err)
		}
		if _, dup := seen[w.ID]; dup {
			return nil, fmt.Errorf("%w: record %d: duplicate id %s", domain.ErrCorruptData, i, w.ID)
		}
		seen[w.ID] = struct{}{}
		out = append(out, w)
	}
	return out, nil
}

func toRecord(w domain.Workout) (record, error) {
	createdAt := w.CreatedAt
	distance := w.Distance
	duration := w.Duration
	clicks := w.ClickCount
	rec := record{
		ID:          w.ID,
		Kind:        string(w.Kind),
		CreatedAt:   &createdAt,
		Distance:    &distance,
		Duration:    &duration,
		Coordinates: []float64{w.Coordinates.Lat, w.Coordinates.Lng},
		ClickCount:  &clicks,
		Description: w.Description,
	}

	switch w.Kind {
	case domain.KindRunning:
		if w.Running == nil {
			return record{}, fmt.Errorf("running workout %s has no running fields", w.ID)
		}
		cadence, pace := w.Running.Cadence, w.Running.Pace
		rec.Cadence, rec.Pace = &cadence, &pace
	case domain.KindCycling:
		if w.Cycling == nil {
			return record{}, fmt.Errorf("cycling workout %s has no cycling fields", w.ID)
		}
		gain, speed := w.Cycling.ElevationGain, w.Cycling.Speed
		rec.ElevationGain, rec.Speed = &gain, &speed
	default:
		return record{}, fmt.Errorf("workout %s has unknown kind %q", w.ID, w.Kind)
	}
	return rec, nil
}

func fromRecord(rec record) (domain.Workout, error) {
	kind, err := domain.ParseKind(rec.Kind)
	if err != nil {
		return domain.Workout{}, err
	}

	var missing []string
	if rec.ID == "" {
		missing = append(missing, "id")
	}
	if rec.CreatedAt == nil {
		missing = append(missing, "created_at")
	}
	if rec.Distance == nil {
		missing = append(missing, "distance")
	}
	if rec.Duration == nil {
		missing = append(missing, "duration")
	}
	if rec.ClickCount == nil {
		missing = append(missing, "click_count")
	}
	switch kind {
	case domain.KindRunning:
		if rec.Cadence == nil {
			missing = append(missing, "cadence")
		}
	case domain.KindCycling:
		if rec.ElevationGain == nil {
			missing = append(missing, "elevation_gain")
		}
	}
	if len(missing) > 0 {
		return domain.Workout{}, fmt.Errorf("missing fields %v", missing)
	}
	if len(rec.Coordinates) != 2 {
		return domain.Workout{}, errors.New("coordinates must be a [lat, lng] pair")
	}

	w := domain.Workout{
		ID:          rec.ID,
		CreatedAt:   rec.CreatedAt.UTC(),
		Kind:        kind,
		Distance:    *rec.Distance,
		Duration:    *rec.Duration,
		Coordinates: domain.Coordinates{Lat: rec.Coordinates[0], Lng: rec.Coordinates[1]},
		ClickCount:  *rec.ClickCount,
		Description: rec.Description,
	}
	switch kind {
	case domain.KindRunning:
		w.Running = &domain.Running{Cadence: *rec.Cadence}
	case domain.KindCycling:
		w.Cycling = &domain.Cycling{ElevationGain: *rec.ElevationGain}
	}

	if err := w.Validate(); err != nil {
		return domain.Workout{}, err
	}
	w.Refresh()
	return w, nil
}
