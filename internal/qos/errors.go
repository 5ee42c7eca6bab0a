package qos

import "errors"

var (
	// ErrProfileNotFound is returned when an entry is set on a profile that
	// has not been created.
	ErrProfileNotFound = errors.New("profile not found")

	// ErrInvariantViolation is returned when a profile is missing right after
	// it was found or created.
	ErrInvariantViolation = errors.New("invariant violation")

	// ErrInvalidEntry is returned for out-of-range queues, priorities or
	// weights, unknown trust modes and writes to read-only profiles.
	ErrInvalidEntry = errors.New("invalid entry")
)
