package booking

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestOverlaps(t *testing.T) {
	cases := []struct {
		name                       string
		aStart, aEnd, bStart, bEnd string
		want                       bool
	}{
		{"identical", "2024-06-01", "2024-06-03", "2024-06-01", "2024-06-03", true},
		{"partial", "2024-06-01", "2024-06-03", "2024-06-02", "2024-06-05", true},
		{"contained", "2024-06-01", "2024-06-10", "2024-06-03", "2024-06-05", true},
		{"touching checkout/checkin", "2024-06-01", "2024-06-03", "2024-06-03", "2024-06-05", false},
		{"touching the other way", "2024-06-03", "2024-06-05", "2024-06-01", "2024-06-03", false},
		{"disjoint", "2024-06-01", "2024-06-02", "2024-06-10", "2024-06-12", false},
		{"one night inside", "2024-06-01", "2024-06-05", "2024-06-02", "2024-06-03", true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := Overlaps(day(c.aStart), day(c.aEnd), day(c.bStart), day(c.bEnd))
			assert.Equal(t, c.want, got)
			// symmetric
			assert.Equal(t, c.want, Overlaps(day(c.bStart), day(c.bEnd), day(c.aStart), day(c.aEnd)))
		})
	}
}

func TestOverlapsRandomized(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	base := day("2024-01-01")

	for i := 0; i < 2000; i++ {
		a1 := rng.Intn(60)
		a2 := a1 + 1 + rng.Intn(14)
		b1 := rng.Intn(60)
		b2 := b1 + 1 + rng.Intn(14)

		want := a1 < b2 && b1 < a2
		got := Overlaps(
			base.AddDate(0, 0, a1), base.AddDate(0, 0, a2),
			base.AddDate(0, 0, b1), base.AddDate(0, 0, b2),
		)
		require.Equal(t, want, got, "a=[%d,%d) b=[%d,%d)", a1, a2, b1, b2)
	}
}

func TestFindConflicts(t *testing.T) {
	existing := []Reservation{
		{BookingID: "BK1", ResourceIDs: []string{"room-101"}, CheckIn: day("2024-06-01"), CheckOut: day("2024-06-03"), Status: StatusReserved, PaymentStatus: PaymentPaid},
		{BookingID: "BK2", ResourceIDs: []string{"room-102"}, CheckIn: day("2024-06-01"), CheckOut: day("2024-06-03"), Status: StatusPending, PaymentStatus: PaymentUnpaid},
		{BookingID: "BK3", ResourceIDs: []string{"room-101"}, CheckIn: day("2024-06-05"), CheckOut: day("2024-06-07"), Status: StatusCancelled, PaymentStatus: PaymentRefunded},
		{BookingID: "BK4", ResourceIDs: []string{"room-103"}, CheckIn: day("2024-06-01"), CheckOut: day("2024-06-03"), Status: StatusExpired, PaymentStatus: PaymentUnpaid},
	}

	t.Run("reserved booking blocks", func(t *testing.T) {
		got := FindConflicts(existing, []string{"room-101"}, day("2024-06-02"), day("2024-06-04"), "")
		require.Equal(t, []string{"BK1"}, got)
	})

	t.Run("pending hold blocks too", func(t *testing.T) {
		got := FindConflicts(existing, []string{"room-102"}, day("2024-06-01"), day("2024-06-02"), "")
		require.Equal(t, []string{"BK2"}, got)
	})

	t.Run("cancelled and expired do not block", func(t *testing.T) {
		got := FindConflicts(existing, []string{"room-101"}, day("2024-06-05"), day("2024-06-07"), "")
		assert.Empty(t, got)
		got = FindConflicts(existing, []string{"room-103"}, day("2024-06-01"), day("2024-06-03"), "")
		assert.Empty(t, got)
	})

	t.Run("touching boundary is free", func(t *testing.T) {
		got := FindConflicts(existing, []string{"room-101"}, day("2024-06-03"), day("2024-06-05"), "")
		assert.Empty(t, got)
	})

	t.Run("disjoint resources never conflict", func(t *testing.T) {
		got := FindConflicts(existing, []string{"room-999"}, day("2024-06-01"), day("2024-06-03"), "")
		assert.Empty(t, got)
	})

	t.Run("exclusion skips self", func(t *testing.T) {
		got := FindConflicts(existing, []string{"room-101"}, day("2024-06-01"), day("2024-06-03"), "BK1")
		assert.Empty(t, got)
	})

	t.Run("multi-resource request conflicts on any member", func(t *testing.T) {
		got := FindConflicts(existing, []string{"room-101", "room-102"}, day("2024-06-02"), day("2024-06-04"), "")
		assert.ElementsMatch(t, []string{"BK1", "BK2"}, got)
	})
}

func TestBlocksAvailability(t *testing.T) {
	blocking := []Reservation{
		{Status: StatusPending, PaymentStatus: PaymentUnpaid},
		{Status: StatusPending, PaymentStatus: PaymentPending},
		{Status: StatusReserved, PaymentStatus: PaymentPaid},
	}
	for _, r := range blocking {
		assert.True(t, r.BlocksAvailability(), "%s/%s", r.Status, r.PaymentStatus)
	}

	free := []Reservation{
		{Status: StatusCancelled, PaymentStatus: PaymentRefunded},
		{Status: StatusExpired, PaymentStatus: PaymentUnpaid},
		{Status: StatusCancelled, PaymentStatus: PaymentFailed},
	}
	for _, r := range free {
		assert.False(t, r.BlocksAvailability(), "%s/%s", r.Status, r.PaymentStatus)
	}
}
