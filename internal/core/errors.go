package core

import "errors"

var (
	// ErrNotFound is returned when an operation references a reservation
	// id absent from the store.
	ErrNotFound = errors.New("reservation not found")

	// ErrPastDated is returned when a create or move targets a start
	// before the current time. Rejected before any evaluation or store
	// mutation; a caller that applied an optimistic UI change must revert it.
	ErrPastDated = errors.New("reservation start is in the past")

	// ErrInvalidInterval is returned when start >= end.
	ErrInvalidInterval = errors.New("reservation start must precede end")

	// ErrUnauthorized is returned when the caller is neither the
	// reservation's owner nor an administrator.
	ErrUnauthorized = errors.New("not the reservation owner")

	// ErrInvalidTransition is returned when an update would move a
	// reservation backward through its lifecycle.
	ErrInvalidTransition = errors.New("invalid status transition")
)
