package core

import "time"

type EventType string

const (
	EventReservationCreated   EventType = "reservation.created"
	EventReservationQueued    EventType = "reservation.queued"
	EventReservationUpdated   EventType = "reservation.updated"
	EventReservationMoved     EventType = "reservation.moved"
	EventReservationCancelled EventType = "reservation.cancelled"
	EventReservationStarted   EventType = "reservation.started"
	EventReservationCompleted EventType = "reservation.completed"
	EventReservationExpired   EventType = "reservation.expired"
)

// Event is the notification payload handed to subscribers when a
// reservation changes state. The core does not prescribe the transport;
// the ws package delivers these over websockets.
type Event struct {
	ID          string      `json:"id"`
	Type        EventType   `json:"type"`
	RoomID      string      `json:"room_id"`
	Reservation Reservation `json:"reservation"`
	CreatedAt   time.Time   `json:"created_at"`
}
