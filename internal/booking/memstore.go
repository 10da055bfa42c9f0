package booking

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemStore is the single-process Store: one mutex serializes CreateHold and
// Transition, which closes the check-then-act race between the availability
// check and the insert.
type MemStore struct {
	HoldTTL time.Duration

	mu           sync.Mutex
	reservations map[string]Reservation // keyed by BookingID
	byExternal   map[string]string      // ExternalID -> BookingID
	transactions map[string]PaymentTransaction
	webhooks     []WebhookEvent
}

func NewMemStore(holdTTL time.Duration) *MemStore {
	if holdTTL <= 0 {
		holdTTL = 15 * time.Minute
	}
	return &MemStore{
		HoldTTL:      holdTTL,
		reservations: make(map[string]Reservation),
		byExternal:   make(map[string]string),
		transactions: make(map[string]PaymentTransaction),
	}
}

func newBookingID() string {
	// gateway order ids must be alphanumeric
	return "BK" + strings.ReplaceAll(uuid.NewString(), "-", "")[:14]
}

func (s *MemStore) CreateHold(ctx context.Context, in HoldInput) (Reservation, error) {
	if err := in.Validate(); err != nil {
		return Reservation{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if in.ExternalID != "" {
		if id, ok := s.byExternal[in.ExternalID]; ok {
			return s.reservations[id], nil
		}
	}

	conflicts := FindConflicts(s.snapshotLocked(), in.ResourceIDs, in.CheckIn, in.CheckOut, "")
	if len(conflicts) > 0 {
		return Reservation{}, &ConflictError{Conflicts: conflicts}
	}

	now := time.Now().UTC()
	exp := now.Add(s.HoldTTL)
	r := Reservation{
		ID:            uuid.NewString(),
		BookingID:     newBookingID(),
		ExternalID:    in.ExternalID,
		GuestName:     in.GuestName,
		GuestEmail:    in.GuestEmail,
		ResourceIDs:   append([]string(nil), in.ResourceIDs...),
		CheckIn:       in.CheckIn,
		CheckOut:      in.CheckOut,
		Status:        StatusPending,
		PaymentStatus: PaymentUnpaid,
		AmountCents:   in.AmountCents,
		Currency:      in.Currency,
		ExpiresAt:     &exp,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	s.reservations[r.BookingID] = r
	if r.ExternalID != "" {
		s.byExternal[r.ExternalID] = r.BookingID
	}
	return r, nil
}

func (s *MemStore) snapshotLocked() []Reservation {
	out := make([]Reservation, 0, len(s.reservations))
	for _, r := range s.reservations {
		out = append(out, r)
	}
	return out
}

func (s *MemStore) Get(ctx context.Context, bookingID string) (Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reservations[bookingID]
	if !ok {
		return Reservation{}, ErrNotFound
	}
	return r, nil
}

func (s *MemStore) CheckAvailability(ctx context.Context, resourceIDs []string, checkIn, checkOut time.Time, excludeBookingID string) (bool, []string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	conflicts := FindConflicts(s.snapshotLocked(), resourceIDs, checkIn, checkOut, excludeBookingID)
	return len(conflicts) == 0, conflicts, nil
}

func (s *MemStore) Transition(ctx context.Context, bookingID string, to Status, ev Evidence) (Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reservations[bookingID]
	if !ok {
		return Reservation{}, ErrNotFound
	}
	next, changed, err := applyTransition(r, to, ev, time.Now().UTC())
	if err != nil {
		return Reservation{}, err
	}
	if changed {
		s.reservations[bookingID] = next
	}
	return next, nil
}

func (s *MemStore) MarkPaymentInitiated(ctx context.Context, bookingID, gatewayOrderID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reservations[bookingID]
	if !ok {
		return ErrNotFound
	}
	if r.Status != StatusPending {
		if r.Status == StatusExpired {
			return ErrHoldExpired
		}
		return ErrInvalidTransition
	}
	if r.PaymentStatus != PaymentUnpaid {
		return ErrAlreadyInitiated
	}
	r.PaymentStatus = PaymentPending
	r.GatewayOrderID = gatewayOrderID
	r.UpdatedAt = time.Now().UTC()
	s.reservations[bookingID] = r
	return nil
}

func (s *MemStore) SweepExpired(ctx context.Context, now time.Time) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var swept []string
	for id, r := range s.reservations {
		if r.Status != StatusPending || r.ExpiresAt == nil || r.ExpiresAt.After(now) {
			continue
		}
		next, changed, err := applyTransition(r, StatusExpired, Evidence{}, now)
		if err != nil || !changed {
			continue
		}
		s.reservations[id] = next
		swept = append(swept, id)
	}
	return swept, nil
}

func (s *MemStore) CreateTransaction(ctx context.Context, tx PaymentTransaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	tx.CreatedAt, tx.UpdatedAt = now, now
	s.transactions[tx.BookingID] = tx
	return nil
}

func (s *MemStore) FinishTransaction(ctx context.Context, bookingID string, status TxStatus, transactionID, authStatus, rawResponse string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, ok := s.transactions[bookingID]
	if !ok {
		return ErrNotFound
	}
	if tx.Status != TxInitiated {
		// append-only once terminal
		return nil
	}
	tx.Status = status
	tx.TransactionID = transactionID
	tx.AuthStatus = authStatus
	tx.RawResponse = rawResponse
	tx.UpdatedAt = time.Now().UTC()
	s.transactions[bookingID] = tx
	return nil
}

func (s *MemStore) GetTransaction(ctx context.Context, bookingID string) (PaymentTransaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, ok := s.transactions[bookingID]
	if !ok {
		return PaymentTransaction{}, ErrNotFound
	}
	return tx, nil
}

func (s *MemStore) RecordWebhook(ctx context.Context, ev WebhookEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.ReceivedAt.IsZero() {
		ev.ReceivedAt = time.Now().UTC()
	}
	s.webhooks = append(s.webhooks, ev)
	return nil
}

// Webhooks returns a copy of the audit log, mostly for tests and admin reads.
func (s *MemStore) Webhooks() []WebhookEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]WebhookEvent(nil), s.webhooks...)
}
