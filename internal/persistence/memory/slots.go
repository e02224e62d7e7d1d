// Package memory provides an in-process SlotStore for tests and local development.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"example.com/workouts/internal/persistence"
)

var (
	// ErrQuotaExceeded is returned when a Put would push the store past its byte quota.
	ErrQuotaExceeded = errors.New("storage quota exceeded")
	// ErrDisabled is returned by every operation once the store has been disabled.
	ErrDisabled = errors.New("storage disabled")
)

// Option configures a SlotStore.
type Option func(*SlotStore)

// WithQuota caps the total number of stored bytes. Zero means unlimited.
func WithQuota(bytes int) Option {
	return func(s *SlotStore) {
		s.quota = bytes
	}
}

// SlotStore keeps slots in a map.
type SlotStore struct {
	mu       sync.RWMutex
	slots    map[string][]byte
	quota    int
	disabled bool
}

// NewSlotStore constructs an empty SlotStore.
func NewSlotStore(opts ...Option) *SlotStore {
	s := &SlotStore{slots: make(map[string][]byte)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get implements persistence.SlotStore.
func (s *SlotStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.disabled {
		return nil, ErrDisabled
	}
	value, ok := s.slots[key]
	if !ok {
		return nil, persistence.ErrSlotAbsent
	}
	return append([]byte(nil), value...), nil
}

// Put implements persistence.SlotStore.
func (s *SlotStore) Put(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.disabled {
		return ErrDisabled
	}
	if s.quota > 0 {
		used := len(value)
		for k, v := range s.slots {
			if k != key {
				used += len(v)
			}
		}
		if used > s.quota {
			return fmt.Errorf("%w: %d bytes over a %d byte quota", ErrQuotaExceeded, used, s.quota)
		}
	}
	s.slots[key] = append([]byte(nil), value...)
	return nil
}

// Delete implements persistence.SlotStore.
func (s *SlotStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.disabled {
		return ErrDisabled
	}
	delete(s.slots, key)
	return nil
}

// Disable makes every later call fail, like storage switched off by the user.
func (s *SlotStore) Disable() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.disabled = true
}
