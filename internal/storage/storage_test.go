package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mistakeknot/roomplan/internal/core"
)

func TestInMemoryCRUD(t *testing.T) {
	store := NewInMemory()
	ctx := context.Background()
	base := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	created, err := store.CreateReservation(ctx, core.Reservation{
		RoomID:  "sky",
		OwnerID: "uma",
		Start:   base,
		End:     base.Add(time.Hour),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.ID == "" || created.Status != core.StatusScheduled || created.QueueRank != 1 {
		t.Fatalf("defaults not applied: %+v", created)
	}

	created.Title = "renamed"
	if _, err := store.UpdateReservation(ctx, created); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, err := store.GetReservation(ctx, created.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Title != "renamed" {
		t.Fatalf("update not applied: %+v", got)
	}

	if err := store.DeleteReservation(ctx, created.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.GetReservation(ctx, created.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestInMemoryContendersSorted(t *testing.T) {
	store := NewInMemory()
	ctx := context.Background()
	base := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	for i := 3; i >= 1; i-- {
		_, err := store.CreateReservation(ctx, core.Reservation{
			RoomID:  "sky",
			OwnerID: "uma",
			Start:   base.Add(time.Duration(i) * time.Hour),
			End:     base.Add(time.Duration(i+1) * time.Hour),
		})
		if err != nil {
			t.Fatalf("create: %v", err)
		}
	}
	if _, err := store.CreateReservation(ctx, core.Reservation{
		RoomID: "sky", OwnerID: "uma",
		Start: base, End: base.Add(time.Hour),
		Status: core.StatusCompleted,
	}); err != nil {
		t.Fatalf("create: %v", err)
	}

	contenders, err := store.RoomContenders(ctx, "sky")
	if err != nil {
		t.Fatalf("contenders: %v", err)
	}
	if len(contenders) != 3 {
		t.Fatalf("expected 3 contenders, got %d", len(contenders))
	}
	for i := 1; i < len(contenders); i++ {
		if contenders[i].Start.Before(contenders[i-1].Start) {
			t.Fatalf("contenders not sorted by start")
		}
	}
}
