package booking

import (
	"encoding/json"
	"time"
)

const (
	EventBookingConfirmed = "BookingConfirmed"
	EventBookingCancelled = "BookingCancelled"
	EventBookingExpired   = "BookingExpired"
)

type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // booking_id
	Payload       json.RawMessage `json:"payload"`
}

type BookingConfirmedPayload struct {
	BookingID     string `json:"booking_id"`
	GuestName     string `json:"guest_name"`
	GuestEmail    string `json:"guest_email"`
	AmountCents   int64  `json:"amount_cents"`
	Currency      string `json:"currency"`
	TransactionID string `json:"transaction_id"`
	CheckIn       string `json:"check_in"`
	CheckOut      string `json:"check_out"`
}

type BookingCancelledPayload struct {
	BookingID     string `json:"booking_id"`
	GuestName     string `json:"guest_name"`
	GuestEmail    string `json:"guest_email"`
	Reason        string `json:"reason"` // PAYMENT_FAILED | USER_CANCELLED | ADMIN_CANCELLED | EXPIRED
	RefundPercent int    `json:"refund_percent"`
	AmountCents   int64  `json:"amount_cents"`
	Currency      string `json:"currency"`
}
