package booking

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mistakeknot/roomplan/internal/core"
	"github.com/mistakeknot/roomplan/internal/storage"
)

// Broadcaster is the interface for emitting lifecycle events to subscribers.
type Broadcaster interface {
	Broadcast(room string, event any)
}

// Outcome is the synchronous result of Create, Update and Move. Exactly one
// branch is populated: either the operation committed and Reservation holds
// the stored record, or Offer carries a waiting-position decision for the
// caller to settle with ResolveOffer.
type Outcome struct {
	Reservation core.Reservation `json:"reservation"`
	Offer       *core.Offer      `json:"offer,omitempty"`
}

// Committed reports whether the operation wrote to the store.
func (o Outcome) Committed() bool {
	return o.Offer == nil
}

// Changes is a partial update for an existing reservation. Nil fields are
// left untouched.
type Changes struct {
	Title        *string
	Start        *time.Time
	End          *time.Time
	Status       *core.Status
	Participants []string
}

// Manager owns every reservation mutation. A single mutex serializes each
// evaluation+commit pair, and the promoter and reaper ticks enter through
// the same lock, so a candidate is never evaluated against a store
// mid-mutation. No lock is held across the offer hand-off: Create returns
// immediately and ResolveOffer is a separate, later call.
type Manager struct {
	store   storage.Store
	bus     Broadcaster
	mu      sync.Mutex
	nowFunc func() time.Time // for testing
}

func NewManager(store storage.Store) *Manager {
	return &Manager{store: store, nowFunc: func() time.Time { return time.Now().UTC() }}
}

func (m *Manager) WithBroadcaster(b Broadcaster) *Manager {
	m.bus = b
	return m
}

// Create evaluates a candidate and either commits it at rank 1 or returns a
// waiting-position offer. Past-dated candidates are rejected before any
// evaluation or store mutation.
func (m *Manager) Create(ctx context.Context, candidate core.Reservation) (Outcome, error) {
	if !candidate.Start.Before(candidate.End) {
		return Outcome{}, core.ErrInvalidInterval
	}
	if candidate.Start.Before(m.nowFunc()) {
		return Outcome{}, core.ErrPastDated
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	contenders, err := m.store.RoomContenders(ctx, candidate.RoomID)
	if err != nil {
		return Outcome{}, err
	}
	avail := Evaluate(Candidate{RoomID: candidate.RoomID, Start: candidate.Start, End: candidate.End}, contenders)
	if !avail.Free() {
		return Outcome{Offer: &core.Offer{Candidate: candidate, Rank: avail.Rank, Message: avail.Message}}, nil
	}

	candidate.Status = core.StatusScheduled
	candidate.QueueRank = 1
	created, err := m.store.CreateReservation(ctx, candidate)
	if err != nil {
		return Outcome{}, err
	}
	m.emit(core.EventReservationCreated, created)
	return Outcome{Reservation: created}, nil
}

// Update merges changes into an existing reservation and re-evaluates it as
// a fresh candidate, excluding its own id. A status change to cancelled
// short-circuits everything else and deletes the reservation outright.
func (m *Manager) Update(ctx context.Context, id string, changes Changes) (Outcome, error) {
	if changes.Start != nil && changes.Start.Before(m.nowFunc()) {
		return Outcome{}, core.ErrPastDated
	}
	return m.applyChanges(ctx, id, changes, core.EventReservationUpdated)
}

// Move reschedules a reservation to a new interval. A past-dated target is
// rejected and the caller must revert any optimistic change it applied.
func (m *Manager) Move(ctx context.Context, id string, newStart, newEnd time.Time) (Outcome, error) {
	if !newStart.Before(newEnd) {
		return Outcome{}, core.ErrInvalidInterval
	}
	if newStart.Before(m.nowFunc()) {
		return Outcome{}, core.ErrPastDated
	}
	return m.applyChanges(ctx, id, Changes{Start: &newStart, End: &newEnd}, core.EventReservationMoved)
}

func (m *Manager) applyChanges(ctx context.Context, id string, changes Changes, eventType core.EventType) (Outcome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, err := m.store.GetReservation(ctx, id)
	if err != nil {
		return Outcome{}, err
	}

	if changes.Status != nil && *changes.Status == core.StatusCancelled {
		if err := m.store.DeleteReservation(ctx, id); err != nil {
			return Outcome{}, err
		}
		m.compactQueue(ctx, existing)
		removed := existing
		removed.Status = core.StatusCancelled
		m.emit(core.EventReservationCancelled, removed)
		return Outcome{Reservation: removed}, nil
	}

	merged := existing
	if changes.Title != nil {
		merged.Title = *changes.Title
	}
	if changes.Start != nil {
		merged.Start = *changes.Start
	}
	if changes.End != nil {
		merged.End = *changes.End
	}
	if changes.Participants != nil {
		merged.Participants = changes.Participants
	}
	if changes.Status != nil {
		if !existing.Status.CanTransitionTo(*changes.Status) {
			return Outcome{}, core.ErrInvalidTransition
		}
		merged.Status = *changes.Status
	}
	if !merged.Start.Before(merged.End) {
		return Outcome{}, core.ErrInvalidInterval
	}

	if !merged.Active() {
		// Completed rows are history. Edits commit without evaluation
		// and keep the rank the reservation held when it ran.
		updated, err := m.store.UpdateReservation(ctx, merged)
		if err != nil {
			return Outcome{}, err
		}
		if existing.Active() {
			// Leaving the queue frees the slot for whoever was waiting.
			m.compactQueue(ctx, existing)
		}
		m.emit(eventType, updated)
		return Outcome{Reservation: updated}, nil
	}

	contenders, err := m.store.RoomContenders(ctx, merged.RoomID)
	if err != nil {
		return Outcome{}, err
	}
	avail := Evaluate(Candidate{RoomID: merged.RoomID, Start: merged.Start, End: merged.End, ExcludeID: id}, contenders)
	if !avail.Free() {
		return Outcome{Offer: &core.Offer{Candidate: merged, Rank: avail.Rank, Message: avail.Message}}, nil
	}

	merged.QueueRank = 1
	updated, err := m.store.UpdateReservation(ctx, merged)
	if err != nil {
		return Outcome{}, err
	}
	if !existing.Start.Equal(merged.Start) || !existing.End.Equal(merged.End) {
		// The old interval lost a contender; advance whoever was waiting there.
		m.compactQueue(ctx, existing)
	}
	m.emit(eventType, updated)
	return Outcome{Reservation: updated}, nil
}

// ResolveOffer settles a pending waiting-position offer. Accepting commits
// the candidate at the offered rank; declining commits nothing, and the
// caller collects a replacement interval from the user and resubmits. The
// manager holds no state between the decline and the resubmission.
func (m *Manager) ResolveOffer(ctx context.Context, offer core.Offer, accept bool) (*core.Reservation, error) {
	if !accept {
		return nil, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	candidate := offer.Candidate
	candidate.Status = core.StatusScheduled
	candidate.QueueRank = offer.Rank

	var committed core.Reservation
	if candidate.ID != "" {
		existing, err := m.store.GetReservation(ctx, candidate.ID)
		if err != nil {
			return nil, err
		}
		committed, err = m.store.UpdateReservation(ctx, candidate)
		if err != nil {
			return nil, err
		}
		if !existing.Start.Equal(candidate.Start) || !existing.End.Equal(candidate.End) {
			// The old interval lost a contender; advance whoever was waiting there.
			m.compactQueue(ctx, existing)
		}
	} else {
		var err error
		committed, err = m.store.CreateReservation(ctx, candidate)
		if err != nil {
			return nil, err
		}
	}
	m.emit(core.EventReservationQueued, committed)
	return &committed, nil
}

// Get returns a single reservation.
func (m *Manager) Get(ctx context.Context, id string) (core.Reservation, error) {
	return m.store.GetReservation(ctx, id)
}

// List returns reservations filtered by room and/or building.
func (m *Manager) List(ctx context.Context, roomID, buildingID string) ([]core.Reservation, error) {
	return m.store.ListReservations(ctx, roomID, buildingID)
}

// Delete removes a reservation unconditionally and advances its queue.
func (m *Manager) Delete(ctx context.Context, id string) (core.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, err := m.store.GetReservation(ctx, id)
	if err != nil {
		return core.Reservation{}, err
	}
	if err := m.store.DeleteReservation(ctx, id); err != nil {
		return core.Reservation{}, err
	}
	m.compactQueue(ctx, existing)
	removed := existing
	removed.Status = core.StatusCancelled
	m.emit(core.EventReservationCancelled, removed)
	return removed, nil
}

// Availability evaluates a candidate without committing anything.
func (m *Manager) Availability(ctx context.Context, c Candidate) (core.Availability, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	contenders, err := m.store.RoomContenders(ctx, c.RoomID)
	if err != nil {
		return core.Availability{}, err
	}
	return Evaluate(c, contenders), nil
}

// PromoteDue transitions rank-1 scheduled reservations whose start has
// passed to in_progress, and in_progress reservations whose end has passed
// to completed. Transitions are idempotent and depend only on each
// reservation's own fields; a record that fails to update is skipped, not
// fatal to the tick.
func (m *Manager) PromoteDue(ctx context.Context, now time.Time) (started, completed int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	active, err := m.store.ActiveReservations(ctx)
	if err != nil {
		return 0, 0, err
	}
	for _, r := range active {
		if r.Start.IsZero() || r.End.IsZero() {
			log.Printf("promoter: skipping %s: missing interval", r.ID)
			continue
		}
		switch {
		case r.Status == core.StatusScheduled && r.QueueRank == 1 && !r.Start.After(now):
			r.Status = core.StatusInProgress
			if _, err := m.store.UpdateReservation(ctx, r); err != nil {
				log.Printf("promoter: start %s: %v", r.ID, err)
				continue
			}
			m.emit(core.EventReservationStarted, r)
			started++
		case r.Status == core.StatusInProgress && !r.End.After(now):
			r.Status = core.StatusCompleted
			if _, err := m.store.UpdateReservation(ctx, r); err != nil {
				log.Printf("promoter: complete %s: %v", r.ID, err)
				continue
			}
			// The finished meeting no longer contends; its waiters advance.
			m.compactQueue(ctx, r)
			m.emit(core.EventReservationCompleted, r)
			completed++
		}
	}
	return started, completed, nil
}

// ReapStale deletes queued reservations (rank > 1) whose start has passed
// by more than the grace window. A queued reservation that never reached
// rank 1 before start+grace is abandoned and must not block the room.
func (m *Manager) ReapStale(ctx context.Context, now time.Time, grace time.Duration) ([]core.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	active, err := m.store.ActiveReservations(ctx)
	if err != nil {
		return nil, err
	}
	var deleted []core.Reservation
	for _, r := range active {
		if r.Status != core.StatusScheduled || r.QueueRank <= 1 {
			continue
		}
		if r.Start.IsZero() {
			log.Printf("reaper: skipping %s: missing start", r.ID)
			continue
		}
		if !r.Start.Add(grace).Before(now) {
			continue
		}
		if err := m.store.DeleteReservation(ctx, r.ID); err != nil {
			log.Printf("reaper: delete %s: %v", r.ID, err)
			continue
		}
		m.compactQueue(ctx, r)
		m.emit(core.EventReservationExpired, r)
		deleted = append(deleted, r)
	}
	return deleted, nil
}

// compactQueue recomputes the queue position of every active reservation
// overlapping a departed reservation's interval. Each one moves up to sit
// just behind the contenders still queued ahead of it across its whole
// interval, so a waiter spanning a second holder's slot never jumps past
// that holder to rank 1. Caller holds m.mu.
func (m *Manager) compactQueue(ctx context.Context, departed core.Reservation) {
	contenders, err := m.store.RoomContenders(ctx, departed.RoomID)
	if err != nil {
		log.Printf("booking: compact %s: %v", departed.RoomID, err)
		return
	}
	var affected []core.Reservation
	for _, r := range contenders {
		if r.ID == departed.ID {
			continue
		}
		if r.Overlaps(departed.Start, departed.End) {
			affected = append(affected, r)
		}
	}
	for _, r := range affected {
		ahead := 0
		for _, c := range contenders {
			if c.ID == r.ID {
				continue
			}
			if c.Overlaps(r.Start, r.End) && queuedBefore(c, r) {
				ahead++
			}
		}
		want := ahead + 1
		if r.QueueRank == want {
			continue
		}
		r.QueueRank = want
		if _, err := m.store.UpdateReservation(ctx, r); err != nil {
			log.Printf("booking: renumber %s: %v", r.ID, err)
			continue
		}
		m.emit(core.EventReservationUpdated, r)
	}
}

// queuedBefore reports whether a precedes b in queue order.
func queuedBefore(a, b core.Reservation) bool {
	if a.QueueRank == b.QueueRank {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.QueueRank < b.QueueRank
}

func (m *Manager) emit(t core.EventType, r core.Reservation) {
	if m.bus == nil {
		return
	}
	m.bus.Broadcast(r.RoomID, core.Event{
		ID:          uuid.NewString(),
		Type:        t,
		RoomID:      r.RoomID,
		Reservation: r,
		CreatedAt:   time.Now().UTC(),
	})
}
