package consumer

import (
	"context"
	"fmt"
	"io"
	"math"
	"strings"
	"sync"
	"time"

	"example.com/workouts/internal/domain"
)

// ListView keeps the latest ordered workout list seen on the feed and re-renders
// it on every change. Messages older than the current list are ignored.
type ListView struct {
	mu       sync.Mutex
	out      io.Writer
	workouts []domain.Workout
	asOf     time.Time
}

// NewListView builds a ListView that writes each rendering to out.
func NewListView(out io.Writer) *ListView {
	return &ListView{out: out}
}

// Handle implements Handler.
func (v *ListView) Handle(_ context.Context, msg Message) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if !v.asOf.IsZero() && msg.OccurredAt.Before(v.asOf) {
		return nil
	}
	v.workouts = msg.Workouts
	v.asOf = msg.OccurredAt
	renderedGauge.Set(float64(len(v.workouts)))

	_, err := io.WriteString(v.out, Render(msg.Reason, v.workouts))
	return err
}

// Workouts returns the current list.
func (v *ListView) Workouts() []domain.Workout {
	v.mu.Lock()
	defer v.mu.Unlock()

	out := make([]domain.Workout, len(v.workouts))
	for i, w := range v.workouts {
		out[i] = w.Clone()
	}
	return out
}

// Render formats the list the way the sidebar shows it, one workout per line.
func Render(reason domain.ChangeReason, workouts []domain.Workout) string {
	var b strings.Builder
	fmt.Fprintf(&b, "== %d workouts (%s) ==\n", len(workouts), reason)
	for _, w := range workouts {
		fmt.Fprintf(&b, "%s | %g km | %g min | %s | clicks %d\n",
			w.Description, w.Distance, w.Duration, metric(w), w.ClickCount)
	}
	return b.String()
}

func metric(w domain.Workout) string {
	switch w.Kind {
	case domain.KindRunning:
		pace, _ := w.Pace()
		return fmt.Sprintf("%d min/km, %g spm", int(math.Floor(pace)), w.Running.Cadence)
	case domain.KindCycling:
		speed, _ := w.Speed()
		return fmt.Sprintf("%.1f km/h, %g m", speed, w.Cycling.ElevationGain)
	default:
		return "?"
	}
}
