// Package persistence mirrors the workout list to a single key-value slot.
package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"example.com/workouts/internal/domain"
	"example.com/workouts/internal/observability"
)

// DefaultSlot is the slot name the workout list lives under.
const DefaultSlot = "workouts"

// ErrSlotAbsent is returned by a SlotStore when nothing is stored under the key.
var ErrSlotAbsent = errors.New("slot absent")

// SlotStore is the key-value storage medium behind the Adapter.
type SlotStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// Adapter serialises the whole workout list into one slot. It never keeps a
// copy of the list; every Save writes the full current state.
type Adapter struct {
	slots SlotStore
	slot  string
}

// NewAdapter constructs an Adapter writing to the named slot.
func NewAdapter(slots SlotStore, slot string) *Adapter {
	if slot == "" {
		slot = DefaultSlot
	}
	return &Adapter{slots: slots, slot: slot}
}

// Slot returns the slot name.
func (a *Adapter) Slot() string {
	return a.slot
}

// Save overwrites the slot with the given list.
func (a *Adapter) Save(ctx context.Context, workouts []domain.Workout) error {
	payload, err := Encode(workouts)
	if err != nil {
		return fmt.Errorf("encode workouts: %w", err)
	}
	if err := a.slots.Put(ctx, a.slot, payload); err != nil {
		observability.RecordStorageFailure("save")
		return fmt.Errorf("%w: save %s: %v", domain.ErrStorageUnavailable, a.slot, err)
	}
	observability.RecordSaved(time.Now())
	return nil
}

// Load reads the slot. An absent slot yields an empty list and no error.
func (a *Adapter) Load(ctx context.Context) ([]domain.Workout, error) {
	payload, err := a.slots.Get(ctx, a.slot)
	if err != nil {
		if errors.Is(err, ErrSlotAbsent) {
			return []domain.Workout{}, nil
		}
		observability.RecordStorageFailure("load")
		return nil, fmt.Errorf("%w: load %s: %v", domain.ErrStorageUnavailable, a.slot, err)
	}
	return Decode(payload)
}

// Clear removes the slot entirely.
func (a *Adapter) Clear(ctx context.Context) error {
	if err := a.slots.Delete(ctx, a.slot); err != nil && !errors.Is(err, ErrSlotAbsent) {
		observability.RecordStorageFailure("clear")
		return fmt.Errorf("%w: clear %s: %v", domain.ErrStorageUnavailable, a.slot, err)
	}
	return nil
}
