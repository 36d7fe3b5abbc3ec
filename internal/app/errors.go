package service

import "errors"

var (
	// ErrBatchInProgress is returned when RunBatch overlaps a running batch.
	ErrBatchInProgress = errors.New("sync batch already in progress")
	// ErrInvalidArgument is returned for malformed adoption or registration input.
	ErrInvalidArgument = errors.New("invalid argument")
)
