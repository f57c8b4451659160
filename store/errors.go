package store

import "errors"

var (
	// ErrNotFound is returned when a referenced task, history entry or
	// filter does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when creating a task whose number is already
	// taken by an active or archived task. No write is performed.
	ErrConflict = errors.New("duplicate task number")
)
