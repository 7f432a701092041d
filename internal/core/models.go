package core

import "time"

// Status represents the lifecycle state of a reservation.
type Status string

const (
	StatusScheduled  Status = "scheduled"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	// StatusCancelled is accepted on updates only. A cancelled reservation
	// is removed from the store outright, never persisted.
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether no further transition may leave the status.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// CanTransitionTo reports whether moving from s to next is a legal forward
// transition. Keeping the same status is always allowed (idempotent updates).
func (s Status) CanTransitionTo(next Status) bool {
	if s == next {
		return true
	}
	switch s {
	case StatusScheduled:
		return next == StatusInProgress || next == StatusCancelled
	case StatusInProgress:
		return next == StatusCompleted || next == StatusCancelled
	default:
		return false
	}
}

// Reservation is a booking of a meeting room for a half-open time interval
// [Start, End). QueueRank 1 holds the slot; rank N>1 waits behind N-1 other
// reservations contending for an overlapping interval.
type Reservation struct {
	ID           string    `json:"id"`
	RoomID       string    `json:"room_id"`
	BuildingID   string    `json:"building_id,omitempty"`
	OwnerID      string    `json:"owner_id"`
	Title        string    `json:"title,omitempty"`
	Participants []string  `json:"participants,omitempty"`
	Start        time.Time `json:"start"`
	End          time.Time `json:"end"`
	Status       Status    `json:"status"`
	QueueRank    int       `json:"queue_rank"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Overlaps reports whether the reservation's interval intersects
// [start, end). Adjacent intervals do not overlap.
func (r Reservation) Overlaps(start, end time.Time) bool {
	return r.Start.Before(end) && start.Before(r.End)
}

// Active reports whether the reservation still occupies or contends for
// its slot. Completed reservations are history and never conflict.
func (r Reservation) Active() bool {
	return r.Status == StatusScheduled || r.Status == StatusInProgress
}

// Availability is the Evaluator's verdict for a candidate reservation.
// Rank 1 means the slot is free; rank N>1 means the candidate would be
// placed behind N-1 existing reservations.
type Availability struct {
	Rank    int    `json:"rank"`
	Message string `json:"message"`
}

// Free reports whether the candidate can take the slot immediately.
func (a Availability) Free() bool {
	return a.Rank == 1
}

// Offer is the waiting-position hand-off raised when a candidate conflicts
// with existing reservations. The caller presents it to the end user and
// settles it with a single ResolveOffer call; no state is retained between
// the offer and its resolution.
type Offer struct {
	Candidate Reservation `json:"candidate"`
	Rank      int         `json:"rank"`
	Message   string      `json:"message"`
}
