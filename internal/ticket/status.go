// Package ticket holds the maintenance ticket status machine.
package ticket

import (
	"errors"
	"fmt"
)

type Status string

const (
	StatusOpen       Status = "open"
	StatusInProgress Status = "in_progress"
	StatusResolved   Status = "resolved"
	StatusClosed     Status = "closed"
)

var ErrInvalidTransition = errors.New("invalid ticket transition")

// Parse validates a submitted status string.
func Parse(s string) (Status, error) {
	switch Status(s) {
	case StatusOpen, StatusInProgress, StatusResolved, StatusClosed:
		return Status(s), nil
	}
	return "", fmt.Errorf("unknown ticket status %q", s)
}

// CanTransition reports whether a ticket may move from one status to
// another. Tickets flow open -> in_progress -> resolved -> closed, with
// open -> closed allowed for tickets withdrawn before any work starts,
// and resolved -> open for reopened issues.
func CanTransition(from, to Status) bool {
	switch from {
	case StatusOpen:
		return to == StatusInProgress || to == StatusClosed
	case StatusInProgress:
		return to == StatusResolved
	case StatusResolved:
		return to == StatusClosed || to == StatusOpen
	case StatusClosed:
		return false
	}
	return false
}

// Transition validates and returns the new status.
func Transition(from, to Status) (Status, error) {
	if !CanTransition(from, to) {
		return from, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	return to, nil
}
