package domain

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidTransition = errors.New("invalid-transition")
	// ErrConflict means the record moved to another status between read and write.
	ErrConflict        = errors.New("status changed concurrently, please retry")
	ErrForbidden       = errors.New("forbidden")
	ErrInvalidInput    = errors.New("invalid input")
	ErrSweepInProgress = errors.New("lifecycle sweep already in progress")
	ErrUnauthenticated = errors.New("unauthenticated")
)
