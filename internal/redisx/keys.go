package redisx

import "time"

const (
	// Cache of booking status: booking_status:{booking_id} -> {"status":...,"payment_status":...}
	KeyBookingStatus = "booking_status:%s"

	// Dedup of processed events/webhooks: dedup:{service}:{id}
	KeyDedup = "dedup:%s:%s"
)

var (
	TTLStatusCache = 5 * time.Minute
	TTLDedup       = 48 * time.Hour
)
