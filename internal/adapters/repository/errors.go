package repository

import "errors"

// Sentinel kinds for repository errors.
var (
	ErrNotFound      = errors.New("record not found")
	ErrAlreadyExists = errors.New("record already exists")
	ErrTallyLocked   = errors.New("trait tally is locked")
	ErrInvariant     = errors.New("pet invariant violated")
	ErrInvalidLimit  = errors.New("invalid limit")
	// ErrPersistence wraps failures of the underlying storage engine.
	ErrPersistence = errors.New("persistence failure")
)
