package booking

import "time"

// Overlaps is the canonical half-open interval test: [aStart,aEnd) and
// [bStart,bEnd) overlap iff aStart < bEnd && bStart < aEnd. Touching
// boundaries (aEnd == bStart) do not overlap.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

func intersects(a, b []string) bool {
	set := make(map[string]struct{}, len(a))
	for _, id := range a {
		set[id] = struct{}{}
	}
	for _, id := range b {
		if _, ok := set[id]; ok {
			return true
		}
	}
	return false
}

// FindConflicts returns the booking ids among existing that block the
// candidate resource set over [checkIn, checkOut). excludeBookingID lets an
// update recheck without colliding with itself. Pure: no side effects, safe
// to call concurrently.
func FindConflicts(existing []Reservation, resourceIDs []string, checkIn, checkOut time.Time, excludeBookingID string) []string {
	var conflicts []string
	for _, r := range existing {
		if r.BookingID == excludeBookingID {
			continue
		}
		if !r.BlocksAvailability() {
			continue
		}
		if !intersects(r.ResourceIDs, resourceIDs) {
			continue
		}
		if Overlaps(r.CheckIn, r.CheckOut, checkIn, checkOut) {
			conflicts = append(conflicts, r.BookingID)
		}
	}
	return conflicts
}
