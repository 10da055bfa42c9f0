package booking

import (
	"context"
	"time"
)

// HoldInput is what the booking-intake collaborator hands us to create a hold.
type HoldInput struct {
	ExternalID  string
	GuestName   string
	GuestEmail  string
	ResourceIDs []string
	CheckIn     time.Time
	CheckOut    time.Time
	AmountCents int64
	Currency    string
}

func (in HoldInput) Validate() error {
	if len(in.ResourceIDs) == 0 {
		return ErrInvalidHold
	}
	seen := make(map[string]struct{}, len(in.ResourceIDs))
	for _, id := range in.ResourceIDs {
		if id == "" {
			return ErrInvalidHold
		}
		if _, dup := seen[id]; dup {
			return ErrInvalidHold
		}
		seen[id] = struct{}{}
	}
	if !in.CheckIn.Before(in.CheckOut) {
		return ErrInvalidHold
	}
	if in.AmountCents <= 0 {
		return ErrInvalidHold
	}
	return nil
}

// Store owns reservation records. CreateHold and Transition are the only
// mutation points and are serialized per booking; everything else reads.
type Store interface {
	// CreateHold checks availability and inserts the hold as one atomic unit.
	// Replaying the same ExternalID returns the existing reservation.
	// Conflicts come back as *ConflictError.
	CreateHold(ctx context.Context, in HoldInput) (Reservation, error)

	Get(ctx context.Context, bookingID string) (Reservation, error)

	// CheckAvailability is read-only; available==false comes with the
	// conflicting booking ids.
	CheckAvailability(ctx context.Context, resourceIDs []string, checkIn, checkOut time.Time, excludeBookingID string) (bool, []string, error)

	// Transition advances the state machine. Repeating a terminal outcome is
	// a no-op; confirming an expired hold returns ErrHoldExpired.
	Transition(ctx context.Context, bookingID string, to Status, ev Evidence) (Reservation, error)

	// MarkPaymentInitiated flips unpaid -> pending and records the gateway
	// order id. A second call returns ErrAlreadyInitiated.
	MarkPaymentInitiated(ctx context.Context, bookingID, gatewayOrderID string) error

	// SweepExpired expires every pending hold with expiresAt <= now using the
	// same state-guarded update as Transition, and returns the booking ids.
	SweepExpired(ctx context.Context, now time.Time) ([]string, error)

	CreateTransaction(ctx context.Context, tx PaymentTransaction) error
	FinishTransaction(ctx context.Context, bookingID string, status TxStatus, transactionID, authStatus, rawResponse string) error
	GetTransaction(ctx context.Context, bookingID string) (PaymentTransaction, error)

	RecordWebhook(ctx context.Context, ev WebhookEvent) error
}
