package sweep

import (
	"context"
	"log"
	"time"

	"labstation-backend/internal/store"
)

// Sweeper periodically reconciles reservation statuses at rest. Read
// paths already reconcile lazily; the sweeper only bounds how stale
// persisted rows can get between reads, so it can be disabled without
// changing any externally observable behavior.
type Sweeper struct {
	store    store.Store
	interval time.Duration
	enabled  bool
}

// New creates a sweeper over the given store.
func New(st store.Store, interval time.Duration, enabled bool) *Sweeper {
	return &Sweeper{store: st, interval: interval, enabled: enabled}
}

// Run starts the sweep loop and blocks until the context is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	if !s.enabled {
		log.Println("Status sweeper is disabled. Not starting.")
		return
	}
	log.Println("Starting status sweeper...")

	s.sweepOnce(ctx)

	timer := time.NewTimer(s.interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Status sweeper shutting down.")
			return
		case <-timer.C:
			s.sweepOnce(ctx)
			timer.Reset(s.interval)
		}
	}
}

func (s *Sweeper) sweepOnce(ctx context.Context) {
	moved, err := s.store.SweepStatuses(ctx)
	if err != nil {
		log.Printf("Sweep cycle failed: %v", err)
		return
	}
	if moved > 0 {
		log.Printf("Sweep reconciled %d reservations", moved)
	}
}
