package interfaces

import "errors"

// Sentinel errors shared across storage implementations.
var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrAlreadyExists is returned by insert-if-absent operations when the
	// record was already present. Callers treat it as a successful no-op.
	ErrAlreadyExists = errors.New("record already exists")
)
