package booking

import "time"

// RefundPercent returns the refund percentage for cancelling a paid booking
// at `now` relative to its check-in. Policy only; moving the money is the
// payment team's problem.
//
//	>48h before check-in -> 90
//	24h..48h             -> 80
//	<24h                 -> 0
func RefundPercent(now, checkIn time.Time) int {
	lead := checkIn.Sub(now)
	switch {
	case lead > 48*time.Hour:
		return 90
	case lead >= 24*time.Hour:
		return 80
	default:
		return 0
	}
}
