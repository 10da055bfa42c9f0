package reconcile

import (
	"context"
	"log"
	"time"

	"github.com/ariefcatur/go-resort-booking.git/internal/booking"
)

// Sweeper releases holds whose window elapsed without payment confirmation.
// One loop per process, started at bootstrap, stopped via ctx.
type Sweeper struct {
	Store    booking.Store
	Poller   *Poller
	Apply    *Applier
	Interval time.Duration
}

func NewSweeper(store booking.Store, poller *Poller, apply *Applier) *Sweeper {
	return &Sweeper{Store: store, Poller: poller, Apply: apply, Interval: 60 * time.Second}
}

func (s *Sweeper) Run(ctx context.Context) error {
	t := time.NewTicker(s.Interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			s.SweepOnce(ctx, time.Now().UTC())
		}
	}
}

// SweepOnce expires every overdue pending hold and returns the booking ids
// it transitioned. The store's state-guarded update means a hold that became
// reserved in the same instant is never expired.
func (s *Sweeper) SweepOnce(ctx context.Context, now time.Time) []string {
	swept, err := s.Store.SweepExpired(ctx, now)
	if err != nil {
		log.Printf("sweeper: sweep failed: %v", err)
		return nil
	}
	for _, id := range swept {
		log.Printf("sweeper: booking=%s hold expired", id)
		if s.Poller != nil {
			s.Poller.Stop(id)
		}
		if s.Apply != nil {
			if r, err := s.Store.Get(ctx, id); err == nil {
				s.Apply.CacheStatus(ctx, r)
				s.Apply.PublishCancelled(ctx, r, "EXPIRED")
			}
		}
	}
	return swept
}
