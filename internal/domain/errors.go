package domain

import "errors"

// Errors returned by the core. Callers match them with errors.Is; the
// concrete error carries the offending id in its message.
var (
	// ErrNotFound is returned when a referenced bookmark, group or relation is absent.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a bookmark is already linked to a group.
	ErrConflict = errors.New("conflict")
	// ErrValidation is returned for malformed input or import documents.
	ErrValidation = errors.New("validation failed")
	// ErrStorage is returned when a durable write fails.
	ErrStorage = errors.New("storage failure")
)
