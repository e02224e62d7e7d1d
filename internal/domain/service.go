package domain

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"example.com/workouts/internal/observability"
)

// Persister mirrors the full workout list to durable storage.
type Persister interface {
	Save(ctx context.Context, workouts []Workout) error
	Load(ctx context.Context) ([]Workout, error)
	Clear(ctx context.Context) error
}

// ChangeReason names the mutation that produced a ChangeEvent.
type ChangeReason string

const (
	ChangeCreated ChangeReason = "created"
	ChangeUpdated ChangeReason = "updated"
	ChangeDeleted ChangeReason = "deleted"
	ChangeClicked ChangeReason = "clicked"
	ChangeReset   ChangeReason = "reset"
)

// ChangeEvent carries the full ordered list after a mutation so listeners can re-render.
type ChangeEvent struct {
	Reason     ChangeReason
	WorkoutID  string
	Workouts   []Workout
	OccurredAt time.Time
}

// Publisher delivers change events to whoever renders the list.
type Publisher interface {
	Publish(ctx context.Context, event ChangeEvent) error
}

type noopPublisher struct{}

func (noopPublisher) Publish(context.Context, ChangeEvent) error { return nil }

// Option configures optional behaviour for the Service.
type Option func(*Service)

// WithPublisher sets the change feed. Without it changes are not broadcast.
func WithPublisher(p Publisher) Option {
	return func(s *Service) {
		if p != nil {
			s.publisher = p
		}
	}
}

// WithLogger overrides the logger used to report persistence and feed problems.
func WithLogger(logger *log.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// Service owns the session's Store and keeps storage and listeners in step with it.
type Service struct {
	mu        sync.Mutex
	store     *Store
	loaded    bool // persisted workouts have been read into store; until then Save is held back
	persister Persister
	publisher Publisher
	logger    *log.Logger
}

// NewService constructs a Service with an empty Store. Call Open to load persisted workouts.
func NewService(persister Persister, opts ...Option) *Service {
	store, _ := NewStore()
	s := &Service{
		store:     store,
		persister: persister,
		publisher: noopPublisher{},
		logger:    log.New(log.Writer(), "[workouts] ", log.LstdFlags|log.Lshortfile),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open replaces the in-memory Store with the persisted workouts. Either way
// the Store is usable afterwards and the error is returned for the caller to
// surface. Corrupt data is treated as absent. When storage cannot be reached
// the Store starts empty and nothing is saved until the persisted list has
// been read and merged, so earlier sessions are never overwritten.
func (s *Service) Open(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	workouts, err := s.persister.Load(ctx)
	if err != nil {
		s.store.Clear()
		observability.RecordWorkoutCount(0)
		if errors.Is(err, ErrCorruptData) {
			observability.RecordCorruptLoad()
			s.loaded = true
			s.logger.Printf("discarding unreadable workouts, starting empty: %v", err)
		} else {
			s.loaded = false
			s.logger.Printf("storage unreachable, starting empty and holding saves: %v", err)
		}
		return err
	}

	store, err := NewStore(workouts...)
	if err != nil {
		observability.RecordCorruptLoad()
		s.logger.Printf("discarding unreadable workouts, starting empty: %v", err)
		s.store.Clear()
		s.loaded = true
		observability.RecordWorkoutCount(0)
		return errors.Join(ErrCorruptData, err)
	}
	s.store = store
	s.loaded = true
	observability.RecordWorkoutCount(store.Len())
	return nil
}

// CreateRunningInput captures a new run.
type CreateRunningInput struct {
	Distance    float64
	Duration    float64
	Coordinates Coordinates
	Cadence     float64
}

// CreateCyclingInput captures a new ride.
type CreateCyclingInput struct {
	Distance      float64
	Duration      float64
	Coordinates   Coordinates
	ElevationGain float64
}

// LogRunning validates and stores a new run.
func (s *Service) LogRunning(ctx context.Context, input CreateRunningInput) (Workout, error) {
	w, err := NewRunning(input.Distance, input.Duration, input.Coordinates, input.Cadence)
	if err != nil {
		return Workout{}, err
	}
	return s.add(ctx, w)
}

// LogCycling validates and stores a new ride.
func (s *Service) LogCycling(ctx context.Context, input CreateCyclingInput) (Workout, error) {
	w, err := NewCycling(input.Distance, input.Duration, input.Coordinates, input.ElevationGain)
	if err != nil {
		return Workout{}, err
	}
	return s.add(ctx, w)
}

func (s *Service) add(ctx context.Context, w Workout) (Workout, error) {
	return s.mutate(ctx, ChangeCreated, w.ID, func(store *Store) (Workout, error) {
		if err := store.Add(w); err != nil {
			if errors.Is(err, ErrDuplicateID) {
				s.logger.Printf("id collision on add: %v", err)
			}
			return Workout{}, err
		}
		return store.FindByID(w.ID)
	})
}

// Edit applies changes to an existing workout.
func (s *Service) Edit(ctx context.Context, id string, changes WorkoutChanges) (Workout, error) {
	return s.mutate(ctx, ChangeUpdated, id, func(store *Store) (Workout, error) {
		return store.Update(id, changes)
	})
}

// Click records an interaction with a workout.
func (s *Service) Click(ctx context.Context, id string) (Workout, error) {
	return s.mutate(ctx, ChangeClicked, id, func(store *Store) (Workout, error) {
		return store.Click(id)
	})
}

// Delete removes a workout.
func (s *Service) Delete(ctx context.Context, id string) (Workout, error) {
	return s.mutate(ctx, ChangeDeleted, id, func(store *Store) (Workout, error) {
		return store.Remove(id)
	})
}

// Reset drops every workout and removes the storage slot.
func (s *Service) Reset(ctx context.Context) error {
	s.mu.Lock()
	s.store.Clear()
	observability.RecordWorkoutCount(0)

	var storageErr error
	if err := s.persister.Clear(ctx); err != nil {
		s.logger.Printf("clear storage failed: %v", err)
		storageErr = err
	} else {
		s.loaded = true
	}
	event := s.event(ChangeReset, "")
	s.mu.Unlock()

	s.publish(ctx, event)
	return storageErr
}

// Get returns a single workout.
func (s *Service) Get(_ context.Context, id string) (Workout, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.FindByID(id)
}

// List returns every workout in display order.
func (s *Service) List(_ context.Context) []Workout {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.All()
}

// mutate applies fn and persists under the lock, then publishes after
// releasing it so slow listeners never hold up readers.
func (s *Service) mutate(ctx context.Context, reason ChangeReason, id string, fn func(*Store) (Workout, error)) (Workout, error) {
	s.mu.Lock()
	w, err := fn(s.store)
	if err != nil {
		s.mu.Unlock()
		return Workout{}, err
	}
	storageErr := s.persist(ctx, reason, id)
	event := s.event(reason, id)
	s.mu.Unlock()

	s.publish(ctx, event)
	return w, storageErr
}

// persist saves the whole list once. A storage failure is returned but the
// in-memory change stays applied.
func (s *Service) persist(ctx context.Context, reason ChangeReason, id string) error {
	if err := s.catchUp(ctx); err != nil {
		observability.RecordWorkoutCount(s.store.Len())
		s.logger.Printf("not saving after %s %s, stored workouts are still unread: %v", reason, id, err)
		return err
	}
	observability.RecordWorkoutCount(s.store.Len())

	if err := s.persister.Save(ctx, s.store.All()); err != nil {
		s.logger.Printf("persist after %s %s failed: %v", reason, id, err)
		return err
	}
	return nil
}

// catchUp reads the persisted list if Open could not, and puts it ahead of
// the workouts logged since. Corrupt data counts as absent, as in Open.
func (s *Service) catchUp(ctx context.Context) error {
	if s.loaded {
		return nil
	}

	persisted, err := s.persister.Load(ctx)
	if err != nil && !errors.Is(err, ErrCorruptData) {
		if !errors.Is(err, ErrStorageUnavailable) {
			err = fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
		}
		return err
	}

	merged, mergeErr := NewStore(persisted...)
	if err != nil || mergeErr != nil {
		observability.RecordCorruptLoad()
		s.logger.Printf("discarding unreadable workouts: %v", errors.Join(err, mergeErr))
		merged, _ = NewStore()
	}
	for _, w := range s.store.workouts {
		if merged.indexOf(w.ID) >= 0 {
			continue
		}
		if addErr := merged.Add(w); addErr != nil {
			return addErr
		}
	}
	s.store = merged
	s.loaded = true
	s.logger.Printf("restored %d stored workouts after a failed load", len(persisted))
	return nil
}

func (s *Service) event(reason ChangeReason, id string) ChangeEvent {
	return ChangeEvent{
		Reason:     reason,
		WorkoutID:  id,
		Workouts:   s.store.All(),
		OccurredAt: time.Now().UTC(),
	}
}

func (s *Service) publish(ctx context.Context, event ChangeEvent) {
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Printf("publish %s event failed: %v", event.Reason, err)
	}
}
