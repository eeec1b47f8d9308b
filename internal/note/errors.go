package note

import "errors"

var (
	// ErrNotFound indicates no note with that ID exists for the owner.
	// Deliberately identical whether the ID is absent or belongs to
	// someone else, so existence never leaks across owners.
	ErrNotFound = errors.New("note not found")

	// ErrPermissionDenied indicates an owner mismatch detected after a
	// row was already loaded. Fatal, never retried.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrConflict indicates a concurrent edit lost the race.
	ErrConflict = errors.New("conflicting update")

	// ErrEmptyBody indicates a create/update with no content to store.
	ErrEmptyBody = errors.New("note body is empty")
)
