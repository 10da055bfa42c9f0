package booking

import "time"

// Reservation is one attempt to book a set of resources (rooms, tents,
// tourist-spot slots) over [CheckIn, CheckOut). CheckOut is exclusive so
// back-to-back stays on the same resource do not conflict.
type Reservation struct {
	ID         string
	BookingID  string // gateway-facing order id
	ExternalID string // client idempotency key

	GuestName  string
	GuestEmail string

	ResourceIDs []string
	CheckIn     time.Time
	CheckOut    time.Time

	Status        Status
	PaymentStatus PaymentStatus

	AmountCents int64 // fixed at hold creation; does not float with catalog changes
	Currency    string

	ExpiresAt *time.Time // set only while Status == pending

	GatewayOrderID string
	TransactionID  string
	AuthStatus     string
	RefundPercent  int // populated on post-payment cancellation

	CreatedAt time.Time
	UpdatedAt time.Time
}

// BlocksAvailability reports whether this reservation occupies its resources
// for the purpose of the availability check.
func (r Reservation) BlocksAvailability() bool {
	if r.Status != StatusPending && r.Status != StatusReserved {
		return false
	}
	switch r.PaymentStatus {
	case PaymentUnpaid, PaymentPending, PaymentPaid:
		return true
	}
	return false
}

type TxStatus string

const (
	TxInitiated TxStatus = "initiated"
	TxSuccess   TxStatus = "success"
	TxFailed    TxStatus = "failed"
)

// PaymentTransaction is one outbound gateway order, 1:1 with a reservation's
// active payment attempt. RawRequest keeps the sealed envelope and
// RawResponse the decoded gateway reply; rows are append-only once terminal.
type PaymentTransaction struct {
	ID        string
	BookingID string

	Status TxStatus

	GatewayOrderID string
	TransactionID  string
	AuthStatus     string

	RawRequest  string
	RawResponse string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// WebhookEvent is the audit record of an inbound gateway push. Persisted
// even when signature verification fails, for operator replay.
type WebhookEvent struct {
	ID         string
	BookingID  string // empty when the envelope could not be opened
	RawPayload string
	Verified   bool
	ReceivedAt time.Time
}
