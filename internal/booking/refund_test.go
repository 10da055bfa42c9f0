package booking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRefundPercent(t *testing.T) {
	checkIn := day("2024-06-10")

	cases := []struct {
		name string
		now  time.Time
		want int
	}{
		{"a week out", checkIn.Add(-7 * 24 * time.Hour), 90},
		{"just over 48h", checkIn.Add(-48*time.Hour - time.Minute), 90},
		{"exactly 48h", checkIn.Add(-48 * time.Hour), 80},
		{"36h out", checkIn.Add(-36 * time.Hour), 80},
		{"exactly 24h", checkIn.Add(-24 * time.Hour), 80},
		{"just under 24h", checkIn.Add(-24*time.Hour + time.Minute), 0},
		{"same day", checkIn.Add(-2 * time.Hour), 0},
		{"after check-in", checkIn.Add(5 * time.Hour), 0},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.want, RefundPercent(c.now, checkIn))
		})
	}
}
