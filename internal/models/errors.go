// Package models defines the catalogue's domain entities and the error
// taxonomy shared by every engine that operates on them.
package models

import "errors"

// Sentinel errors identify the error taxonomy kinds from the design
// doc. Engines wrap these with fmt.Errorf("...: %w", ErrX) so callers can
// use errors.Is against a stable kind while still getting a readable
// message out of Error().
var (
	// ErrNotFound is returned when a referenced Upload, Product,
	// Image, or ImportLog does not exist.
	ErrNotFound = errors.New("not found")

	// ErrValidation is returned for malformed requests or rows:
	// schema violations, out-of-range values, bad base64, bad hex.
	ErrValidation = errors.New("validation failed")

	// ErrChecksumMismatch is returned when a chunk's or an assembled
	// file's SHA-256 differs from the client's declaration.
	ErrChecksumMismatch = errors.New("checksum mismatch")

	// ErrStateConflict is returned when an operation does not apply
	// to the entity's current state (chunk upload after completion,
	// complete with missing chunks, complete after failure, ...).
	ErrStateConflict = errors.New("state conflict")

	// ErrStorageError wraps an underlying blob store or database
	// failure.
	ErrStorageError = errors.New("storage error")

	// ErrTransient marks a failure a background job may retry with
	// back-off (URL fetches, variant generation).
	ErrTransient = errors.New("transient error")

	// ErrFatal marks an unexpected failure that aborts the current
	// operation and drives the owning entity to a terminal failed
	// state.
	ErrFatal = errors.New("fatal error")
)
