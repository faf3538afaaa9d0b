package domain

import (
	"fmt"
	"strings"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusPaid      Status = "paid"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// ParseStatus accepts the lower-case status names used on the wire and in storage.
func ParseStatus(s string) (Status, error) {
	switch st := Status(strings.ToLower(strings.TrimSpace(s))); st {
	case StatusPending, StatusPaid, StatusCompleted, StatusCancelled:
		return st, nil
	default:
		return "", fmt.Errorf("%w: unknown status %q", ErrInvalidInput, s)
	}
}

// StageIndex is the position of s in pending < paid < completed.
// Cancelled sits outside the ordering and, like unknown values, reports -1.
func (s Status) StageIndex() int {
	switch s {
	case StatusPending:
		return 0
	case StatusPaid:
		return 1
	case StatusCompleted:
		return 2
	default:
		return -1
	}
}

func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

func (s Status) Valid() bool {
	return s == StatusCancelled || s.StageIndex() >= 0
}

// IsValidTransition reports whether a transaction in current may move to requested.
// Forward moves advance exactly one stage; cancelled is reachable from any non-terminal
// status; nothing leaves completed or cancelled, and a status never transitions to itself.
func IsValidTransition(current, requested Status) bool {
	if !current.Valid() || !requested.Valid() || current.IsTerminal() {
		return false
	}
	if requested == StatusCancelled {
		return true
	}
	return requested.StageIndex() == current.StageIndex()+1
}

// ValidateTransition is IsValidTransition with an error suitable for callers.
func ValidateTransition(current, requested Status) error {
	if !IsValidTransition(current, requested) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current, requested)
	}
	return nil
}
