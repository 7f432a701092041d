package booking

import (
	"context"
	"log"
	"time"
)

const (
	DefaultReapInterval = 60 * time.Second
	DefaultGraceWindow  = time.Hour
)

// Reaper runs a background goroutine that periodically purges queued
// reservations abandoned past their grace window, freeing the slot for
// future proposals.
type Reaper struct {
	mgr      *Manager
	interval time.Duration
	grace    time.Duration
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewReaper creates a Reaper. Call Start() to begin reaping.
func NewReaper(mgr *Manager, interval, grace time.Duration) *Reaper {
	if interval <= 0 {
		interval = DefaultReapInterval
	}
	if grace <= 0 {
		grace = DefaultGraceWindow
	}
	return &Reaper{
		mgr:      mgr,
		interval: interval,
		grace:    grace,
		done:     make(chan struct{}),
	}
}

// Start launches the background reap goroutine.
func (rp *Reaper) Start(ctx context.Context) {
	ctx, rp.cancel = context.WithCancel(ctx)

	go func() {
		defer close(rp.done)

		// Startup pass with a widened window: only purge entries that
		// were already stale well before this process came up.
		rp.runReap(ctx, rp.grace+5*time.Minute)

		ticker := time.NewTicker(rp.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				rp.runReap(ctx, rp.grace)
			}
		}
	}()
}

// Stop cancels the reap goroutine and waits for it to finish.
func (rp *Reaper) Stop() {
	if rp.cancel != nil {
		rp.cancel()
	}
	<-rp.done
}

func (rp *Reaper) runReap(ctx context.Context, grace time.Duration) {
	deleted, err := rp.mgr.ReapStale(ctx, time.Now().UTC(), grace)
	if err != nil {
		log.Printf("reaper: %v", err)
		return
	}
	if len(deleted) > 0 {
		log.Printf("reaper: purged %d stale queued reservation(s)", len(deleted))
	}
}
