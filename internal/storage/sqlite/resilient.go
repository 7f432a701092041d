package sqlite

import (
	"context"
	"errors"
	"time"

	"github.com/mistakeknot/roomplan/internal/core"
	"github.com/mistakeknot/roomplan/internal/storage"
)

// Compile-time interface check.
var _ storage.Store = (*ResilientStore)(nil)

// ResilientStore wraps every method of *Store with CircuitBreaker +
// RetryOnDBLock to provide resilience against transient SQLite errors
// (database-is-locked, connection failures, etc.).
type ResilientStore struct {
	inner *Store
	cb    *CircuitBreaker
}

// NewResilient creates a ResilientStore with default circuit breaker settings
// (threshold=5, resetTimeout=30s).
func NewResilient(inner *Store) *ResilientStore {
	return &ResilientStore{inner: inner, cb: NewCircuitBreaker(5, 30*time.Second)}
}

// NewResilientWithBreaker creates a ResilientStore with a custom circuit breaker.
func NewResilientWithBreaker(inner *Store, cb *CircuitBreaker) *ResilientStore {
	return &ResilientStore{inner: inner, cb: cb}
}

// CircuitBreakerState returns the current state of the circuit breaker as a string.
func (r *ResilientStore) CircuitBreakerState() string {
	return r.cb.State().String()
}

// execute runs fn behind the breaker and lock retry. A missing reservation
// is a domain outcome, not an infrastructure failure, so it does not count
// toward opening the breaker.
func (r *ResilientStore) execute(fn func() error) error {
	var opErr error
	cbErr := r.cb.Execute(func() error {
		opErr = RetryOnDBLock(fn)
		if errors.Is(opErr, core.ErrNotFound) {
			return nil
		}
		return opErr
	})
	if opErr != nil {
		return opErr
	}
	return cbErr
}

func (r *ResilientStore) CreateReservation(ctx context.Context, res core.Reservation) (core.Reservation, error) {
	var result core.Reservation
	err := r.execute(func() error {
		var innerErr error
		result, innerErr = r.inner.CreateReservation(ctx, res)
		return innerErr
	})
	return result, err
}

func (r *ResilientStore) GetReservation(ctx context.Context, id string) (core.Reservation, error) {
	var result core.Reservation
	err := r.execute(func() error {
		var innerErr error
		result, innerErr = r.inner.GetReservation(ctx, id)
		return innerErr
	})
	return result, err
}

func (r *ResilientStore) UpdateReservation(ctx context.Context, res core.Reservation) (core.Reservation, error) {
	var result core.Reservation
	err := r.execute(func() error {
		var innerErr error
		result, innerErr = r.inner.UpdateReservation(ctx, res)
		return innerErr
	})
	return result, err
}

func (r *ResilientStore) DeleteReservation(ctx context.Context, id string) error {
	return r.execute(func() error {
		return r.inner.DeleteReservation(ctx, id)
	})
}

func (r *ResilientStore) RoomContenders(ctx context.Context, roomID string) ([]core.Reservation, error) {
	var result []core.Reservation
	err := r.execute(func() error {
		var innerErr error
		result, innerErr = r.inner.RoomContenders(ctx, roomID)
		return innerErr
	})
	return result, err
}

func (r *ResilientStore) ActiveReservations(ctx context.Context) ([]core.Reservation, error) {
	var result []core.Reservation
	err := r.execute(func() error {
		var innerErr error
		result, innerErr = r.inner.ActiveReservations(ctx)
		return innerErr
	})
	return result, err
}

func (r *ResilientStore) ListReservations(ctx context.Context, roomID, buildingID string) ([]core.Reservation, error) {
	var result []core.Reservation
	err := r.execute(func() error {
		var innerErr error
		result, innerErr = r.inner.ListReservations(ctx, roomID, buildingID)
		return innerErr
	})
	return result, err
}

// Close releases the underlying database handle.
func (r *ResilientStore) Close() error {
	return r.inner.Close()
}
