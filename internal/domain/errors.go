package domain

import "errors"

var (
	// ErrInvalidInput is returned when a create or update carries a value that breaks a record invariant.
	ErrInvalidInput = errors.New("invalid workout input")
	// ErrNotFound is returned when no workout matches the supplied id.
	ErrNotFound = errors.New("workout not found")
	// ErrDuplicateID signals an id collision on add. Ids are UUIDs, so this indicates a bug.
	ErrDuplicateID = errors.New("duplicate workout id")
	// ErrCorruptData is returned when the persisted slot holds something that is not a valid workout list.
	ErrCorruptData = errors.New("persisted workouts are corrupt")
	// ErrStorageUnavailable wraps failures of the underlying storage medium.
	ErrStorageUnavailable = errors.New("workout storage unavailable")
)
