package booking

import (
	"context"
	"log"
	"time"
)

const DefaultPromoteInterval = 5 * time.Second

// Promoter runs a background goroutine that periodically drives
// reservations through their wall-clock lifecycle: scheduled ->
// in_progress once the start passes, in_progress -> completed once the
// end passes. Ticks serialize through the manager's lock, so a tick that
// is still running when the next fires cannot overlap it.
type Promoter struct {
	mgr      *Manager
	interval time.Duration
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewPromoter creates a Promoter. Call Start() to begin ticking.
func NewPromoter(mgr *Manager, interval time.Duration) *Promoter {
	if interval <= 0 {
		interval = DefaultPromoteInterval
	}
	return &Promoter{
		mgr:      mgr,
		interval: interval,
		done:     make(chan struct{}),
	}
}

// Start launches the background promotion goroutine.
func (p *Promoter) Start(ctx context.Context) {
	ctx, p.cancel = context.WithCancel(ctx)

	go func() {
		defer close(p.done)

		p.runTick(ctx)

		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				p.runTick(ctx)
			}
		}
	}()
}

// Stop cancels the promotion goroutine and waits for it to finish.
func (p *Promoter) Stop() {
	if p.cancel != nil {
		p.cancel()
	}
	<-p.done
}

func (p *Promoter) runTick(ctx context.Context) {
	started, completed, err := p.mgr.PromoteDue(ctx, time.Now().UTC())
	if err != nil {
		log.Printf("promoter: %v", err)
		return
	}
	if started > 0 || completed > 0 {
		log.Printf("promoter: started %d, completed %d reservation(s)", started, completed)
	}
}
