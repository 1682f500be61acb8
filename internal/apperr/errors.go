// Package apperr defines the sentinel errors shared across the service.
// Callers classify failures with errors.Is.
package apperr

import "errors"

var (
	// ErrValidation covers malformed or missing request fields.
	ErrValidation = errors.New("validation error")

	// ErrNotFound means a referenced entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrPayloadTooLarge means the declared upload size exceeds the cap.
	ErrPayloadTooLarge = errors.New("payload too large")

	// ErrUploadMissing means session completion found no object at the key.
	ErrUploadMissing = errors.New("uploaded object not found")

	// ErrInvalidTransition means a job status move violates the lattice.
	ErrInvalidTransition = errors.New("invalid status transition")
)
