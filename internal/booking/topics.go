package booking

const (
	TopicBookingConfirmed = "booking.confirmed"
	TopicBookingCancelled = "booking.cancelled"
)

// Partition key = booking_id so every event for one booking stays ordered.
func PartitionKey(bookingID string) []byte { return []byte(bookingID) }
