package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mistakeknot/roomplan/internal/core"
)

// Store is the persistence boundary for reservations. Reads reflect the
// latest committed writes within the same process.
type Store interface {
	CreateReservation(ctx context.Context, r core.Reservation) (core.Reservation, error)
	GetReservation(ctx context.Context, id string) (core.Reservation, error)
	UpdateReservation(ctx context.Context, r core.Reservation) (core.Reservation, error)
	DeleteReservation(ctx context.Context, id string) error

	// RoomContenders returns every non-completed reservation in a room,
	// the set the availability evaluation scans. Conflict checks never
	// cross rooms.
	RoomContenders(ctx context.Context, roomID string) ([]core.Reservation, error)

	// ActiveReservations returns all non-completed reservations across
	// rooms, for the periodic promotion and reaping passes.
	ActiveReservations(ctx context.Context) ([]core.Reservation, error)

	// ListReservations returns reservations filtered by room and/or
	// building, completed history included.
	ListReservations(ctx context.Context, roomID, buildingID string) ([]core.Reservation, error)
}

// InMemory is a map-backed store for tests and embedded use.
type InMemory struct {
	mu           sync.RWMutex
	reservations map[string]core.Reservation
}

func NewInMemory() *InMemory {
	return &InMemory{reservations: make(map[string]core.Reservation)}
}

func (m *InMemory) CreateReservation(_ context.Context, r core.Reservation) (core.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now
	}
	if r.UpdatedAt.IsZero() {
		r.UpdatedAt = now
	}
	if r.Status == "" {
		r.Status = core.StatusScheduled
	}
	if r.QueueRank == 0 {
		r.QueueRank = 1
	}
	m.reservations[r.ID] = r
	return r, nil
}

func (m *InMemory) GetReservation(_ context.Context, id string) (core.Reservation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.reservations[id]
	if !ok {
		return core.Reservation{}, core.ErrNotFound
	}
	return r, nil
}

func (m *InMemory) UpdateReservation(_ context.Context, r core.Reservation) (core.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.reservations[r.ID]; !ok {
		return core.Reservation{}, core.ErrNotFound
	}
	r.UpdatedAt = time.Now().UTC()
	m.reservations[r.ID] = r
	return r, nil
}

func (m *InMemory) DeleteReservation(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.reservations[id]; !ok {
		return core.ErrNotFound
	}
	delete(m.reservations, id)
	return nil
}

func (m *InMemory) RoomContenders(_ context.Context, roomID string) ([]core.Reservation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []core.Reservation
	for _, r := range m.reservations {
		if r.RoomID == roomID && r.Active() {
			out = append(out, r)
		}
	}
	sortByStart(out)
	return out, nil
}

func (m *InMemory) ActiveReservations(_ context.Context) ([]core.Reservation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []core.Reservation
	for _, r := range m.reservations {
		if r.Active() {
			out = append(out, r)
		}
	}
	sortByStart(out)
	return out, nil
}

func (m *InMemory) ListReservations(_ context.Context, roomID, buildingID string) ([]core.Reservation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []core.Reservation
	for _, r := range m.reservations {
		if roomID != "" && r.RoomID != roomID {
			continue
		}
		if buildingID != "" && r.BuildingID != buildingID {
			continue
		}
		out = append(out, r)
	}
	sortByStart(out)
	return out, nil
}

func sortByStart(rs []core.Reservation) {
	sort.Slice(rs, func(i, j int) bool {
		if rs[i].Start.Equal(rs[j].Start) {
			return rs[i].QueueRank < rs[j].QueueRank
		}
		return rs[i].Start.Before(rs[j].Start)
	})
}
