package booking

import "time"

type Status string

const (
	StatusPending   Status = "pending"
	StatusReserved  Status = "reserved"
	StatusCancelled Status = "cancelled"
	StatusExpired   Status = "expired"
)

type PaymentStatus string

const (
	PaymentUnpaid    PaymentStatus = "unpaid"
	PaymentPending   PaymentStatus = "pending"
	PaymentPaid      PaymentStatus = "paid"
	PaymentFailed    PaymentStatus = "failed"
	PaymentCancelled PaymentStatus = "cancelled"
	PaymentRefunded  PaymentStatus = "refunded"
)

var validNext = map[Status]map[Status]bool{
	StatusPending:   {StatusReserved: true, StatusCancelled: true, StatusExpired: true},
	StatusReserved:  {StatusCancelled: true},
	StatusCancelled: {},
	StatusExpired:   {},
}

func CanTransition(from, to Status) bool {
	return validNext[from][to]
}

// Terminal statuses accept a repeated transition to themselves as a no-op;
// the poller and the webhook may both deliver the same outcome.
func (s Status) Terminal() bool {
	return s == StatusReserved || s == StatusCancelled || s == StatusExpired
}

// Evidence carries what the gateway told us when a transition was triggered.
// Kept on the reservation for audit.
type Evidence struct {
	PaymentStatus PaymentStatus
	AuthStatus    string
	TransactionID string
	RefundPercent int
}

// applyTransition is the single place transition rules live. Both the
// in-memory store and the postgres store run reservations through it.
func applyTransition(r Reservation, to Status, ev Evidence, now time.Time) (Reservation, bool, error) {
	if r.Status == to && to.Terminal() {
		return r, false, nil
	}
	if !CanTransition(r.Status, to) {
		if r.Status == StatusExpired && to == StatusReserved {
			return r, false, ErrHoldExpired
		}
		return r, false, ErrInvalidTransition
	}

	r.Status = to
	if ev.PaymentStatus != "" {
		r.PaymentStatus = ev.PaymentStatus
	}
	if ev.AuthStatus != "" {
		r.AuthStatus = ev.AuthStatus
	}
	if ev.TransactionID != "" {
		r.TransactionID = ev.TransactionID
	}
	if ev.RefundPercent > 0 {
		r.RefundPercent = ev.RefundPercent
	}
	if to != StatusPending {
		r.ExpiresAt = nil
	}
	r.UpdatedAt = now
	return r, true, nil
}
