package domain

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNewRunningComputesPace(t *testing.T) {
	w, err := NewRunning(5, 30, Coordinates{Lat: 10, Lng: 20}, 160)
	require.NoError(t, err)

	require.Equal(t, KindRunning, w.Kind)
	require.NotEmpty(t, w.ID)
	require.False(t, w.CreatedAt.IsZero())
	require.Zero(t, w.ClickCount)
	require.Nil(t, w.Cycling)
	require.NotNil(t, w.Running)
	require.Equal(t, 160.0, w.Running.Cadence)
	require.Equal(t, 6.0, w.Running.Pace)
	require.Contains(t, Describe(w), "Running")
	require.Equal(t, Describe(w), w.Description)
}

func TestNewRunningPaceIsDurationOverDistance(t *testing.T) {
	cases := []struct{ distance, duration float64 }{
		{1, 1}, {3.7, 21.3}, {42.195, 180}, {0.4, 2.25},
	}
	for _, tc := range cases {
		w, err := NewRunning(tc.distance, tc.duration, Coordinates{}, 170)
		require.NoError(t, err)
		pace, ok := w.Pace()
		require.True(t, ok)
		require.Equal(t, tc.duration/tc.distance, pace)
	}
}

func TestNewCyclingComputesSpeed(t *testing.T) {
	w, err := NewCycling(20, 60, Coordinates{}, 150)
	require.NoError(t, err)

	speed, ok := w.Speed()
	require.True(t, ok)
	require.Equal(t, 20.0, speed)
	require.Equal(t, 150.0, w.Cycling.ElevationGain)
	require.Nil(t, w.Running)

	_, ok = w.Pace()
	require.False(t, ok)
}

func TestNewCyclingAllowsZeroElevation(t *testing.T) {
	w, err := NewCycling(12.5, 45, Coordinates{Lat: -33.9, Lng: 18.4}, 0)
	require.NoError(t, err)
	require.Equal(t, 12.5/(45.0/60), w.Cycling.Speed)
}

func TestNewRunningRejectsInvalidInput(t *testing.T) {
	cases := map[string]struct {
		distance, duration, cadence float64
		coords                      Coordinates
	}{
		"zero distance":     {0, 30, 160, Coordinates{}},
		"negative duration": {5, -1, 160, Coordinates{}},
		"zero cadence":      {5, 30, 0, Coordinates{}},
		"nan distance":      {math.NaN(), 30, 160, Coordinates{}},
		"inf duration":      {5, math.Inf(1), 160, Coordinates{}},
		"latitude range":    {5, 30, 160, Coordinates{Lat: 91}},
		"nan longitude":     {5, 30, 160, Coordinates{Lng: math.NaN()}},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := NewRunning(tc.distance, tc.duration, tc.coords, tc.cadence)
			require.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestNewCyclingRejectsInvalidInput(t *testing.T) {
	_, err := NewCycling(0, 60, Coordinates{}, 10)
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = NewCycling(10, 0, Coordinates{}, 10)
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = NewCycling(10, 60, Coordinates{}, -1)
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = NewCycling(10, 60, Coordinates{}, math.Inf(-1))
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestDescribeUsesMonthName(t *testing.T) {
	w := Workout{Kind: KindCycling, CreatedAt: time.Date(2024, time.April, 14, 9, 0, 0, 0, time.UTC)}
	require.Equal(t, "Cycling on April 14", Describe(w))

	w.Kind = KindRunning
	w.CreatedAt = time.Date(2024, time.December, 1, 0, 0, 0, 0, time.UTC)
	require.Equal(t, "Running on December 1", Describe(w))
}

func TestRecordInteractionOnlyCountsClicks(t *testing.T) {
	w, err := NewRunning(5, 30, Coordinates{}, 160)
	require.NoError(t, err)
	before := w.Clone()

	w.RecordInteraction()
	w.RecordInteraction()

	require.Equal(t, 2, w.ClickCount)
	w.ClickCount = 0
	require.Equal(t, before, w)
}

func TestIDsAreUnique(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 500; i++ {
		w, err := NewRunning(1, 1, Coordinates{}, 1)
		require.NoError(t, err)
		_, dup := seen[w.ID]
		require.False(t, dup)
		seen[w.ID] = struct{}{}
	}
}

func TestValidateRejectsMismatchedVariant(t *testing.T) {
	w, err := NewRunning(5, 30, Coordinates{}, 160)
	require.NoError(t, err)

	w.Cycling = &Cycling{}
	require.ErrorIs(t, w.Validate(), ErrInvalidInput)

	w.Cycling = nil
	w.Kind = "swimming"
	require.ErrorIs(t, w.Validate(), ErrInvalidInput)
}

func TestParseKind(t *testing.T) {
	kind, err := ParseKind("cycling")
	require.NoError(t, err)
	require.Equal(t, KindCycling, kind)

	_, err = ParseKind("Running")
	require.Error(t, err)
}

func TestCloneDetachesVariantFields(t *testing.T) {
	w, err := NewRunning(5, 30, Coordinates{}, 160)
	require.NoError(t, err)

	c := w.Clone()
	c.Running.Cadence = 1
	require.Equal(t, 160.0, w.Running.Cadence)
}
