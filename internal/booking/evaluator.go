// Package booking implements the meeting-room reservation scheduler: the
// availability evaluator, the reservation lifecycle manager with its
// waiting-position offer flow, and the periodic promoter and reaper passes.
package booking

import (
	"fmt"
	"time"

	"github.com/mistakeknot/roomplan/internal/core"
)

// Candidate describes a proposed reservation interval for a room.
// ExcludeID names the reservation being edited, if any, so it does not
// conflict with itself.
type Candidate struct {
	RoomID    string
	Start     time.Time
	End       time.Time
	ExcludeID string
}

// Evaluate computes the queue rank a candidate would receive among the
// given contenders. Rank 1 means the slot is free; rank N>1 means the
// candidate would wait behind N-1 reservations holding or queued for an
// overlapping interval. Pure with respect to any store: callers pass in
// the room's contender snapshot and keep all side effects to themselves.
//
// Two intervals [a1,a2) and [b1,b2) overlap iff a1 < b2 && b1 < a2;
// adjacent intervals do not conflict. Completed and cancelled
// reservations never count.
func Evaluate(c Candidate, contenders []core.Reservation) core.Availability {
	overlapping := 0
	for _, r := range contenders {
		if r.ID != "" && r.ID == c.ExcludeID {
			continue
		}
		if !r.Active() {
			continue
		}
		if r.Overlaps(c.Start, c.End) {
			overlapping++
		}
	}
	rank := overlapping + 1
	if rank == 1 {
		return core.Availability{Rank: 1, Message: "the requested slot is free"}
	}
	return core.Availability{
		Rank:    rank,
		Message: fmt.Sprintf("the slot is taken; accepting places you at position %d in the waiting queue", rank),
	}
}
