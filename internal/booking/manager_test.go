package booking

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/mistakeknot/roomplan/internal/core"
	"github.com/mistakeknot/roomplan/internal/storage"
)

type captureBus struct {
	mu     sync.Mutex
	events []core.Event
}

func (b *captureBus) Broadcast(room string, event any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if ev, ok := event.(core.Event); ok {
		b.events = append(b.events, ev)
	}
}

func (b *captureBus) byType(t core.EventType) []core.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []core.Event
	for _, ev := range b.events {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

func newTestManager(t *testing.T) (*Manager, *storage.InMemory, *captureBus) {
	t.Helper()
	store := storage.NewInMemory()
	bus := &captureBus{}
	mgr := NewManager(store).WithBroadcaster(bus)
	mgr.nowFunc = func() time.Time { return evalBase }
	return mgr, store, bus
}

func reservationAt(room, owner string, startH, endH int) core.Reservation {
	return core.Reservation{
		RoomID:  room,
		OwnerID: owner,
		Title:   "standup",
		Start:   at(startH),
		End:     at(endH),
	}
}

func TestCreateCommitsFreeSlot(t *testing.T) {
	mgr, _, bus := newTestManager(t)
	ctx := context.Background()

	out, err := mgr.Create(ctx, reservationAt("sky", "uma", 1, 2))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !out.Committed() {
		t.Fatalf("free slot should commit")
	}
	if out.Reservation.Status != core.StatusScheduled || out.Reservation.QueueRank != 1 {
		t.Fatalf("unexpected committed reservation %+v", out.Reservation)
	}
	if out.Reservation.ID == "" {
		t.Fatalf("committed reservation should carry an id")
	}
	if got := bus.byType(core.EventReservationCreated); len(got) != 1 {
		t.Fatalf("expected one created event, got %d", len(got))
	}
}

func TestCreateConflictReturnsOffer(t *testing.T) {
	mgr, store, _ := newTestManager(t)
	ctx := context.Background()

	if _, err := mgr.Create(ctx, reservationAt("sky", "uma", 1, 3)); err != nil {
		t.Fatalf("first create: %v", err)
	}
	out, err := mgr.Create(ctx, reservationAt("sky", "vik", 2, 4))
	if err != nil {
		t.Fatalf("second create: %v", err)
	}
	if out.Committed() {
		t.Fatalf("conflicting slot should return an offer")
	}
	if out.Offer.Rank != 2 {
		t.Fatalf("offer rank = %d, want 2", out.Offer.Rank)
	}

	// Nothing stored until the offer is resolved.
	all, err := store.ListReservations(ctx, "sky", "")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("offer must not write to the store; have %d reservations", len(all))
	}
}

func TestAdjacentIntervalsDoNotConflict(t *testing.T) {
	mgr, _, _ := newTestManager(t)
	ctx := context.Background()

	if _, err := mgr.Create(ctx, reservationAt("sky", "uma", 1, 2)); err != nil {
		t.Fatalf("first create: %v", err)
	}
	out, err := mgr.Create(ctx, reservationAt("sky", "vik", 2, 3))
	if err != nil {
		t.Fatalf("adjacent create: %v", err)
	}
	if !out.Committed() {
		t.Fatalf("adjacent interval should commit, got offer rank %d", out.Offer.Rank)
	}
}

func TestResolveOfferAccept(t *testing.T) {
	mgr, _, bus := newTestManager(t)
	ctx := context.Background()

	if _, err := mgr.Create(ctx, reservationAt("sky", "uma", 1, 3)); err != nil {
		t.Fatalf("first create: %v", err)
	}
	out, err := mgr.Create(ctx, reservationAt("sky", "vik", 2, 4))
	if err != nil {
		t.Fatalf("second create: %v", err)
	}
	committed, err := mgr.ResolveOffer(ctx, *out.Offer, true)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if committed == nil {
		t.Fatalf("accept should commit")
	}
	if committed.QueueRank != 2 || committed.Status != core.StatusScheduled {
		t.Fatalf("queued reservation %+v, want rank 2 scheduled", committed)
	}
	if got := bus.byType(core.EventReservationQueued); len(got) != 1 {
		t.Fatalf("expected one queued event, got %d", len(got))
	}
}

func TestResolveOfferDecline(t *testing.T) {
	mgr, store, _ := newTestManager(t)
	ctx := context.Background()

	if _, err := mgr.Create(ctx, reservationAt("sky", "uma", 1, 3)); err != nil {
		t.Fatalf("create: %v", err)
	}
	out, err := mgr.Create(ctx, reservationAt("sky", "vik", 2, 4))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	committed, err := mgr.ResolveOffer(ctx, *out.Offer, false)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if committed != nil {
		t.Fatalf("decline must commit nothing, got %+v", committed)
	}
	all, _ := store.ListReservations(ctx, "sky", "")
	if len(all) != 1 {
		t.Fatalf("decline must leave the store unchanged; have %d", len(all))
	}
}

func TestCreatePastDatedRejected(t *testing.T) {
	mgr, store, _ := newTestManager(t)
	ctx := context.Background()

	past := core.Reservation{
		RoomID:  "sky",
		OwnerID: "uma",
		Start:   evalBase.Add(-2 * time.Hour),
		End:     evalBase.Add(-1 * time.Hour),
	}
	if _, err := mgr.Create(ctx, past); !errors.Is(err, core.ErrPastDated) {
		t.Fatalf("expected ErrPastDated, got %v", err)
	}
	all, _ := store.ListReservations(ctx, "", "")
	if len(all) != 0 {
		t.Fatalf("rejected create must not touch the store")
	}
}

func TestCreateInvalidInterval(t *testing.T) {
	mgr, _, _ := newTestManager(t)
	ctx := context.Background()

	bad := core.Reservation{RoomID: "sky", OwnerID: "uma", Start: at(2), End: at(1)}
	if _, err := mgr.Create(ctx, bad); !errors.Is(err, core.ErrInvalidInterval) {
		t.Fatalf("expected ErrInvalidInterval, got %v", err)
	}
	zero := core.Reservation{RoomID: "sky", OwnerID: "uma", Start: at(2), End: at(2)}
	if _, err := mgr.Create(ctx, zero); !errors.Is(err, core.ErrInvalidInterval) {
		t.Fatalf("zero-length interval: expected ErrInvalidInterval, got %v", err)
	}
}

func TestPromoteDueStartsAndCompletes(t *testing.T) {
	mgr, store, bus := newTestManager(t)
	ctx := context.Background()

	seeded, err := store.CreateReservation(ctx, core.Reservation{
		RoomID:  "sky",
		OwnerID: "uma",
		Start:   at(1),
		End:     at(2),
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	started, completed, err := mgr.PromoteDue(ctx, at(1))
	if err != nil {
		t.Fatalf("promote: %v", err)
	}
	if started != 1 || completed != 0 {
		t.Fatalf("started=%d completed=%d, want 1/0", started, completed)
	}
	got, _ := store.GetReservation(ctx, seeded.ID)
	if got.Status != core.StatusInProgress {
		t.Fatalf("status = %s, want in_progress", got.Status)
	}

	// Second pass at the same instant changes nothing.
	started, completed, err = mgr.PromoteDue(ctx, at(1))
	if err != nil {
		t.Fatalf("promote: %v", err)
	}
	if started != 0 || completed != 0 {
		t.Fatalf("promotion must be idempotent; started=%d completed=%d", started, completed)
	}

	started, completed, err = mgr.PromoteDue(ctx, at(2))
	if err != nil {
		t.Fatalf("promote: %v", err)
	}
	if started != 0 || completed != 1 {
		t.Fatalf("started=%d completed=%d, want 0/1", started, completed)
	}
	got, _ = store.GetReservation(ctx, seeded.ID)
	if got.Status != core.StatusCompleted {
		t.Fatalf("status = %s, want completed", got.Status)
	}

	if len(bus.byType(core.EventReservationStarted)) != 1 {
		t.Fatalf("expected one started event")
	}
	if len(bus.byType(core.EventReservationCompleted)) != 1 {
		t.Fatalf("expected one completed event")
	}
}

func TestPromoteDueSkipsQueued(t *testing.T) {
	mgr, store, _ := newTestManager(t)
	ctx := context.Background()

	queued, err := store.CreateReservation(ctx, core.Reservation{
		RoomID:    "sky",
		OwnerID:   "vik",
		Start:     at(1),
		End:       at(2),
		QueueRank: 2,
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	started, _, err := mgr.PromoteDue(ctx, at(1))
	if err != nil {
		t.Fatalf("promote: %v", err)
	}
	if started != 0 {
		t.Fatalf("queued reservations must not start; started=%d", started)
	}
	got, _ := store.GetReservation(ctx, queued.ID)
	if got.Status != core.StatusScheduled {
		t.Fatalf("status = %s, want scheduled", got.Status)
	}
}

func TestCompletionAdvancesWaiters(t *testing.T) {
	mgr, store, _ := newTestManager(t)
	ctx := context.Background()

	holder, _ := store.CreateReservation(ctx, core.Reservation{
		RoomID: "sky", OwnerID: "uma", Start: at(1), End: at(2), Status: core.StatusInProgress,
	})
	waiter, _ := store.CreateReservation(ctx, core.Reservation{
		RoomID: "sky", OwnerID: "vik", Start: at(1), End: at(2), QueueRank: 2,
	})

	if _, _, err := mgr.PromoteDue(ctx, at(2)); err != nil {
		t.Fatalf("promote: %v", err)
	}
	done, _ := store.GetReservation(ctx, holder.ID)
	if done.Status != core.StatusCompleted {
		t.Fatalf("holder status = %s, want completed", done.Status)
	}
	advanced, _ := store.GetReservation(ctx, waiter.ID)
	if advanced.QueueRank != 1 {
		t.Fatalf("waiter rank = %d, want 1 after completion", advanced.QueueRank)
	}
}

func TestReapStaleDeletesAbandonedQueue(t *testing.T) {
	mgr, store, bus := newTestManager(t)
	ctx := context.Background()
	grace := time.Hour

	holder, _ := store.CreateReservation(ctx, core.Reservation{
		RoomID: "sky", OwnerID: "uma", Start: at(1), End: at(4),
	})
	stale, _ := store.CreateReservation(ctx, core.Reservation{
		RoomID: "sky", OwnerID: "vik", Start: at(1), End: at(2), QueueRank: 2,
	})

	// Inside the grace window nothing is touched.
	deleted, err := mgr.ReapStale(ctx, at(1).Add(30*time.Minute), grace)
	if err != nil {
		t.Fatalf("reap: %v", err)
	}
	if len(deleted) != 0 {
		t.Fatalf("reap inside grace must delete nothing, got %d", len(deleted))
	}

	deleted, err = mgr.ReapStale(ctx, at(3), grace)
	if err != nil {
		t.Fatalf("reap: %v", err)
	}
	if len(deleted) != 1 || deleted[0].ID != stale.ID {
		t.Fatalf("expected the stale queued reservation to go, got %+v", deleted)
	}
	if _, err := store.GetReservation(ctx, stale.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("reaped reservation should be gone, got %v", err)
	}

	// Rank 1 is never reaped no matter how old.
	kept, err := store.GetReservation(ctx, holder.ID)
	if err != nil {
		t.Fatalf("holder vanished: %v", err)
	}
	if kept.QueueRank != 1 {
		t.Fatalf("holder rank = %d, want 1", kept.QueueRank)
	}

	// A second pass finds nothing.
	deleted, err = mgr.ReapStale(ctx, at(3), grace)
	if err != nil {
		t.Fatalf("reap: %v", err)
	}
	if len(deleted) != 0 {
		t.Fatalf("reap must be monotone; second pass deleted %d", len(deleted))
	}

	if len(bus.byType(core.EventReservationExpired)) != 1 {
		t.Fatalf("expected one expired event")
	}
}

func TestDeleteAdvancesQueue(t *testing.T) {
	mgr, store, bus := newTestManager(t)
	ctx := context.Background()

	holder, err := mgr.Create(ctx, reservationAt("sky", "uma", 1, 3))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	offer, err := mgr.Create(ctx, reservationAt("sky", "vik", 1, 3))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	waiter, err := mgr.ResolveOffer(ctx, *offer.Offer, true)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}

	if _, err := mgr.Delete(ctx, holder.Reservation.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.GetReservation(ctx, holder.Reservation.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("cancelled reservation should be gone, got %v", err)
	}
	advanced, _ := store.GetReservation(ctx, waiter.ID)
	if advanced.QueueRank != 1 {
		t.Fatalf("waiter rank = %d, want 1 after cancellation", advanced.QueueRank)
	}
	if len(bus.byType(core.EventReservationCancelled)) != 1 {
		t.Fatalf("expected a cancelled event")
	}
}

func TestUpdateStatusCancelledDeletes(t *testing.T) {
	mgr, store, _ := newTestManager(t)
	ctx := context.Background()

	out, err := mgr.Create(ctx, reservationAt("sky", "uma", 1, 2))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	cancelled := core.StatusCancelled
	res, err := mgr.Update(ctx, out.Reservation.ID, Changes{Status: &cancelled})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if res.Reservation.Status != core.StatusCancelled {
		t.Fatalf("returned status = %s, want cancelled", res.Reservation.Status)
	}
	if _, err := store.GetReservation(ctx, out.Reservation.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("cancellation must remove the row, got %v", err)
	}
}

func TestUpdateRejectsBackwardTransition(t *testing.T) {
	mgr, store, _ := newTestManager(t)
	ctx := context.Background()

	seeded, _ := store.CreateReservation(ctx, core.Reservation{
		RoomID: "sky", OwnerID: "uma", Start: at(1), End: at(2), Status: core.StatusInProgress,
	})
	back := core.StatusScheduled
	if _, err := mgr.Update(ctx, seeded.ID, Changes{Status: &back}); !errors.Is(err, core.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestMoveFreesOldSlot(t *testing.T) {
	mgr, store, _ := newTestManager(t)
	ctx := context.Background()

	holder, err := mgr.Create(ctx, reservationAt("sky", "uma", 1, 3))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	offer, err := mgr.Create(ctx, reservationAt("sky", "vik", 1, 3))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	waiter, err := mgr.ResolveOffer(ctx, *offer.Offer, true)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}

	out, err := mgr.Move(ctx, holder.Reservation.ID, at(5), at(6))
	if err != nil {
		t.Fatalf("move: %v", err)
	}
	if !out.Committed() {
		t.Fatalf("move to a free slot should commit")
	}
	moved, _ := store.GetReservation(ctx, holder.Reservation.ID)
	if !moved.Start.Equal(at(5)) {
		t.Fatalf("start = %v, want %v", moved.Start, at(5))
	}
	advanced, _ := store.GetReservation(ctx, waiter.ID)
	if advanced.QueueRank != 1 {
		t.Fatalf("waiter rank = %d, want 1 after the holder moved away", advanced.QueueRank)
	}
}

func TestMoveIntoConflictOffersWithoutWriting(t *testing.T) {
	mgr, store, _ := newTestManager(t)
	ctx := context.Background()

	if _, err := mgr.Create(ctx, reservationAt("sky", "uma", 1, 3)); err != nil {
		t.Fatalf("create: %v", err)
	}
	victim, err := mgr.Create(ctx, reservationAt("sky", "vik", 5, 6))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	out, err := mgr.Move(ctx, victim.Reservation.ID, at(2), at(4))
	if err != nil {
		t.Fatalf("move: %v", err)
	}
	if out.Committed() {
		t.Fatalf("move into a conflict should offer, not commit")
	}
	if out.Offer.Rank != 2 {
		t.Fatalf("offer rank = %d, want 2", out.Offer.Rank)
	}
	unchanged, _ := store.GetReservation(ctx, victim.Reservation.ID)
	if !unchanged.Start.Equal(at(5)) {
		t.Fatalf("unresolved move must not write; start = %v", unchanged.Start)
	}
}

func TestMovePastDatedRejected(t *testing.T) {
	mgr, _, _ := newTestManager(t)
	ctx := context.Background()

	out, err := mgr.Create(ctx, reservationAt("sky", "uma", 1, 2))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := mgr.Move(ctx, out.Reservation.ID, evalBase.Add(-2*time.Hour), evalBase.Add(-1*time.Hour)); !errors.Is(err, core.ErrPastDated) {
		t.Fatalf("expected ErrPastDated, got %v", err)
	}
}

func TestConflictsAreScopedToRoom(t *testing.T) {
	mgr, _, _ := newTestManager(t)
	ctx := context.Background()

	if _, err := mgr.Create(ctx, reservationAt("sky", "uma", 1, 3)); err != nil {
		t.Fatalf("create: %v", err)
	}
	out, err := mgr.Create(ctx, reservationAt("garden", "vik", 1, 3))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !out.Committed() {
		t.Fatalf("same interval in another room should commit")
	}
}

func TestAvailabilityCheckDoesNotWrite(t *testing.T) {
	mgr, store, _ := newTestManager(t)
	ctx := context.Background()

	if _, err := mgr.Create(ctx, reservationAt("sky", "uma", 1, 3)); err != nil {
		t.Fatalf("create: %v", err)
	}
	avail, err := mgr.Availability(ctx, Candidate{RoomID: "sky", Start: at(2), End: at(4)})
	if err != nil {
		t.Fatalf("availability: %v", err)
	}
	if avail.Rank != 2 {
		t.Fatalf("rank = %d, want 2", avail.Rank)
	}
	all, _ := store.ListReservations(ctx, "sky", "")
	if len(all) != 1 {
		t.Fatalf("availability check must not write")
	}
}

func TestUpdateMissingReservation(t *testing.T) {
	mgr, _, _ := newTestManager(t)
	title := "renamed"
	if _, err := mgr.Update(context.Background(), "nope", Changes{Title: &title}); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteKeepsWaiterBehindRemainingHolder(t *testing.T) {
	mgr, store, _ := newTestManager(t)
	ctx := context.Background()

	first, err := mgr.Create(ctx, reservationAt("sky", "uma", 1, 3))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	second, err := mgr.Create(ctx, reservationAt("sky", "vik", 3, 5))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	offer, err := mgr.Create(ctx, reservationAt("sky", "wen", 2, 4))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if offer.Committed() || offer.Offer.Rank != 3 {
		t.Fatalf("candidate over two holders should be offered rank 3, got %+v", offer)
	}
	spanning, err := mgr.ResolveOffer(ctx, *offer.Offer, true)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}

	if _, err := mgr.Delete(ctx, first.Reservation.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	// The waiter still overlaps the second holder, so it advances to rank 2
	// only; promoting it to rank 1 would put two first-rank reservations on
	// the same interval.
	got, _ := store.GetReservation(ctx, spanning.ID)
	if got.QueueRank != 2 {
		t.Fatalf("spanning waiter rank = %d, want 2", got.QueueRank)
	}
	holder, _ := store.GetReservation(ctx, second.Reservation.ID)
	if holder.QueueRank != 1 {
		t.Fatalf("remaining holder rank = %d, want 1", holder.QueueRank)
	}
}

func TestOfferAcceptedMoveFreesOldSlot(t *testing.T) {
	mgr, store, _ := newTestManager(t)
	ctx := context.Background()

	holder, err := mgr.Create(ctx, reservationAt("sky", "uma", 1, 3))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	queued, err := mgr.Create(ctx, reservationAt("sky", "vik", 1, 3))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	waiter, err := mgr.ResolveOffer(ctx, *queued.Offer, true)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if _, err := mgr.Create(ctx, reservationAt("sky", "wen", 5, 7)); err != nil {
		t.Fatalf("create: %v", err)
	}

	out, err := mgr.Move(ctx, holder.Reservation.ID, at(5), at(7))
	if err != nil {
		t.Fatalf("move: %v", err)
	}
	if out.Committed() {
		t.Fatalf("move onto an occupied slot should offer, not commit")
	}
	moved, err := mgr.ResolveOffer(ctx, *out.Offer, true)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if moved.QueueRank != 2 {
		t.Fatalf("moved reservation rank = %d, want 2", moved.QueueRank)
	}

	advanced, _ := store.GetReservation(ctx, waiter.ID)
	if advanced.QueueRank != 1 {
		t.Fatalf("waiter on the vacated slot rank = %d, want 1", advanced.QueueRank)
	}
}

func TestUpdateCompletedKeepsHistoricalRank(t *testing.T) {
	mgr, store, _ := newTestManager(t)
	ctx := context.Background()

	seeded, _ := store.CreateReservation(ctx, core.Reservation{
		RoomID: "sky", OwnerID: "uma", Start: at(1), End: at(2),
		Status: core.StatusCompleted, QueueRank: 3,
	})
	if _, err := mgr.Create(ctx, reservationAt("sky", "vik", 1, 2)); err != nil {
		t.Fatalf("create: %v", err)
	}

	title := "standup, minutes attached"
	out, err := mgr.Update(ctx, seeded.ID, Changes{Title: &title})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if !out.Committed() {
		t.Fatalf("editing a completed reservation must not raise an offer")
	}

	got, _ := store.GetReservation(ctx, seeded.ID)
	if got.Title != title {
		t.Fatalf("title = %q, want %q", got.Title, title)
	}
	if got.QueueRank != 3 {
		t.Fatalf("rank = %d, want the recorded 3", got.QueueRank)
	}
	if got.Status != core.StatusCompleted {
		t.Fatalf("status = %s, want completed", got.Status)
	}
}

func TestUpdateToCompletedAdvancesWaiters(t *testing.T) {
	mgr, store, _ := newTestManager(t)
	ctx := context.Background()

	seeded, _ := store.CreateReservation(ctx, core.Reservation{
		RoomID: "sky", OwnerID: "uma", Start: at(1), End: at(3), Status: core.StatusInProgress,
	})
	queued, err := mgr.Create(ctx, reservationAt("sky", "vik", 1, 3))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	waiter, err := mgr.ResolveOffer(ctx, *queued.Offer, true)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}

	done := core.StatusCompleted
	if _, err := mgr.Update(ctx, seeded.ID, Changes{Status: &done}); err != nil {
		t.Fatalf("update: %v", err)
	}

	advanced, _ := store.GetReservation(ctx, waiter.ID)
	if advanced.QueueRank != 1 {
		t.Fatalf("waiter rank = %d, want 1 after the meeting finished", advanced.QueueRank)
	}
}
