package ledger

import "errors"

var (
	// ErrEmptyKey is returned when an event or user id is missing.
	ErrEmptyKey = errors.New("ledger: empty event or user id")
	// ErrFull is returned by a bounded ledger that has no room for a new marker.
	ErrFull = errors.New("ledger: full")
)
