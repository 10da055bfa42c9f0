package reconcile

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/ariefcatur/go-resort-booking.git/internal/booking"
	"github.com/ariefcatur/go-resort-booking.git/internal/gateway"
)

// TransactionRetriever is the slice of the gateway client the poller needs.
type TransactionRetriever interface {
	RetrieveTransaction(ctx context.Context, orderID string) (gateway.TransactionResponse, error)
}

// Poller runs at most MaxChecks reconciliation checks per booking, Interval
// apart, the first immediately on Start. The registry is insert-if-absent:
// starting a poll for a booking that is already being polled is a no-op.
type Poller struct {
	Gateway   TransactionRetriever
	Apply     *Applier
	Interval  time.Duration
	MaxChecks int

	mu     sync.Mutex
	active map[string]context.CancelFunc
	wg     sync.WaitGroup
}

func NewPoller(gw TransactionRetriever, apply *Applier) *Poller {
	return &Poller{
		Gateway:   gw,
		Apply:     apply,
		Interval:  5 * time.Minute,
		MaxChecks: 3,
		active:    make(map[string]context.CancelFunc),
	}
}

// Start registers and launches a poller for bookingID. Returns false if one
// is already running.
func (p *Poller) Start(ctx context.Context, bookingID string) bool {
	p.mu.Lock()
	if _, running := p.active[bookingID]; running {
		p.mu.Unlock()
		return false
	}
	pctx, cancel := context.WithCancel(ctx)
	p.active[bookingID] = cancel
	p.mu.Unlock()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer p.Stop(bookingID)
		p.run(pctx, bookingID)
	}()
	return true
}

// Stop cancels the poller for bookingID if one is running. Safe to call from
// any path, any number of times; the cancel handle is released exactly once.
func (p *Poller) Stop(bookingID string) {
	p.mu.Lock()
	cancel, ok := p.active[bookingID]
	if ok {
		delete(p.active, bookingID)
	}
	p.mu.Unlock()
	if ok {
		cancel()
	}
}

// Wait blocks until every in-flight poller goroutine has exited.
func (p *Poller) Wait() { p.wg.Wait() }

// Active reports whether a poller is registered for bookingID.
func (p *Poller) Active(bookingID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.active[bookingID]
	return ok
}

func (p *Poller) run(ctx context.Context, bookingID string) {
	timer := time.NewTimer(0) // first check immediately
	defer timer.Stop()

	for check := 1; check <= p.MaxChecks; check++ {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		if p.checkOnce(ctx, bookingID, check) {
			return
		}
		timer.Reset(p.Interval)
	}
	// no terminal outcome after MaxChecks; the expiry sweeper is the backstop
	log.Printf("poller: booking=%s gave up after %d checks, leaving hold for sweeper", bookingID, p.MaxChecks)
}

// checkOnce returns true when polling should stop.
func (p *Poller) checkOnce(ctx context.Context, bookingID string, check int) bool {
	tx, err := p.Gateway.RetrieveTransaction(ctx, bookingID)
	if err != nil {
		if errors.Is(err, gateway.ErrUnreachable) {
			log.Printf("poller: booking=%s check=%d gateway unreachable: %v", bookingID, check, err)
			return false // retry on the next scheduled tick
		}
		log.Printf("poller: booking=%s check=%d retrieve failed: %v", bookingID, check, err)
		return false
	}

	terminal, err := p.Apply.Apply(ctx, bookingID, tx)
	if err != nil {
		if errors.Is(err, booking.ErrHoldExpired) {
			log.Printf("poller: booking=%s payment confirmed after hold expired, needs operator attention", bookingID)
			return true
		}
		log.Printf("poller: booking=%s apply outcome: %v", bookingID, err)
	}
	return terminal
}
