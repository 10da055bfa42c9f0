package gateway

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/ariefcatur/go-resort-booking.git/internal/booking"
)

// Initiator turns a held reservation into an outbound gateway order.
type Initiator struct {
	Store     booking.Store
	Client    *Client
	ReturnURL string
}

func (i *Initiator) Initiate(ctx context.Context, bookingID string) (OrderResponse, error) {
	r, err := i.Store.Get(ctx, bookingID)
	if err != nil {
		return OrderResponse{}, err
	}
	if r.Status == booking.StatusExpired {
		return OrderResponse{}, booking.ErrHoldExpired
	}
	if r.ExpiresAt != nil && !r.ExpiresAt.After(time.Now().UTC()) {
		// sweeper hasn't run yet but the hold is gone
		return OrderResponse{}, booking.ErrHoldExpired
	}
	if r.PaymentStatus != booking.PaymentUnpaid {
		return OrderResponse{}, booking.ErrAlreadyInitiated
	}

	req := OrderRequest{
		OrderID:   r.BookingID,
		Amount:    formatAmount(r.AmountCents),
		Currency:  r.Currency,
		ReturnURL: i.ReturnURL,
	}
	resp, sealed, err := i.Client.CreateOrder(ctx, req)
	if err != nil {
		var ge *Error
		if errors.As(err, &ge) {
			// the call demonstrably failed at the gateway; do not leave the
			// transaction dangling in initiated
			_ = i.Store.CreateTransaction(ctx, booking.PaymentTransaction{
				BookingID:   r.BookingID,
				Status:      booking.TxFailed,
				RawRequest:  sealed,
				RawResponse: ge.Error(),
			})
		}
		return OrderResponse{}, err
	}

	if err := i.Store.MarkPaymentInitiated(ctx, r.BookingID, resp.GatewayOrderID); err != nil {
		return OrderResponse{}, err
	}
	if err := i.Store.CreateTransaction(ctx, booking.PaymentTransaction{
		BookingID:      r.BookingID,
		Status:         booking.TxInitiated,
		GatewayOrderID: resp.GatewayOrderID,
		RawRequest:     sealed,
	}); err != nil {
		return OrderResponse{}, fmt.Errorf("persist transaction: %w", err)
	}
	return resp, nil
}

// formatAmount renders minor units as the gateway's "1234.00" decimal string.
func formatAmount(cents int64) string {
	return strconv.FormatInt(cents/100, 10) + "." + fmt.Sprintf("%02d", cents%100)
}
