// Package reconcile converges reservation state with the payment gateway's
// view of it: a bounded per-booking poller, a webhook-fed outcome applier,
// and the expiry sweeper that backstops both.
package reconcile

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/ariefcatur/go-resort-booking.git/internal/booking"
	"github.com/ariefcatur/go-resort-booking.git/internal/gateway"
	kafkax "github.com/ariefcatur/go-resort-booking.git/internal/kafka"
	"github.com/ariefcatur/go-resort-booking.git/internal/redisx"
)

// Applier maps a gateway auth_status onto the reservation state machine.
// The poller and the webhook ingestor share it, so a duplicated outcome
// lands on the idempotent Transition and stays a no-op.
type Applier struct {
	Store           booking.Store
	Redis           *redis.Client
	ProducerConfirm *kafkax.Producer // booking.confirmed
	ProducerCancel  *kafkax.Producer // booking.cancelled
	Service         string
}

// Apply advances the booking for one gateway transaction status. terminal
// reports whether polling for this booking should stop.
func (a *Applier) Apply(ctx context.Context, bookingID string, tx gateway.TransactionResponse) (terminal bool, err error) {
	switch gateway.OutcomeFor(tx.AuthStatus) {
	case gateway.OutcomeSuccess:
		r, err := a.Store.Transition(ctx, bookingID, booking.StatusReserved, booking.Evidence{
			PaymentStatus: booking.PaymentPaid,
			AuthStatus:    tx.AuthStatus,
			TransactionID: tx.TransactionID,
		})
		if err != nil {
			return true, err
		}
		_ = a.Store.FinishTransaction(ctx, bookingID, booking.TxSuccess, tx.TransactionID, tx.AuthStatus, rawOf(tx))
		a.cacheStatus(ctx, r)
		a.publishConfirmed(ctx, r)
		return true, nil

	case gateway.OutcomeFailed:
		return true, a.cancel(ctx, bookingID, tx, booking.PaymentFailed, "PAYMENT_FAILED")

	case gateway.OutcomeCancelled:
		return true, a.cancel(ctx, bookingID, tx, booking.PaymentCancelled, "USER_CANCELLED")

	case gateway.OutcomeUnknown:
		// operator visibility; treated as pending
		log.Printf("reconcile: booking=%s unrecognized auth_status=%q, treating as pending", bookingID, tx.AuthStatus)
		return false, nil

	default: // pending
		return false, nil
	}
}

func (a *Applier) cancel(ctx context.Context, bookingID string, tx gateway.TransactionResponse, ps booking.PaymentStatus, reason string) error {
	r, err := a.Store.Transition(ctx, bookingID, booking.StatusCancelled, booking.Evidence{
		PaymentStatus: ps,
		AuthStatus:    tx.AuthStatus,
		TransactionID: tx.TransactionID,
	})
	if err != nil {
		return err
	}
	_ = a.Store.FinishTransaction(ctx, bookingID, booking.TxFailed, tx.TransactionID, tx.AuthStatus, rawOf(tx))
	a.cacheStatus(ctx, r)
	a.PublishCancelled(ctx, r, reason)
	return nil
}

func rawOf(tx gateway.TransactionResponse) string {
	return string(kafkax.MustMarshal(tx))
}

func (a *Applier) cacheStatus(ctx context.Context, r booking.Reservation) {
	if a.Redis == nil {
		return
	}
	key := fmt.Sprintf(redisx.KeyBookingStatus, r.BookingID)
	body := kafkax.MustMarshal(map[string]string{
		"status":         string(r.Status),
		"payment_status": string(r.PaymentStatus),
	})
	_ = a.Redis.Set(ctx, key, body, redisx.TTLStatusCache).Err()
}

func (a *Applier) publishConfirmed(ctx context.Context, r booking.Reservation) {
	if a.ProducerConfirm == nil {
		return
	}
	ev := booking.Envelope{
		EventID:       uuid.NewString(),
		EventType:     booking.EventBookingConfirmed,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      a.Service,
		CorrelationID: r.BookingID,
		Payload: kafkax.MustMarshal(booking.BookingConfirmedPayload{
			BookingID:     r.BookingID,
			GuestName:     r.GuestName,
			GuestEmail:    r.GuestEmail,
			AmountCents:   r.AmountCents,
			Currency:      r.Currency,
			TransactionID: r.TransactionID,
			CheckIn:       r.CheckIn.Format("2006-01-02"),
			CheckOut:      r.CheckOut.Format("2006-01-02"),
		}),
	}
	a.ProducerConfirm.Publish(booking.PartitionKey(r.BookingID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(booking.EventBookingConfirmed)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}

// PublishCancelled is also used by the cancellation endpoint and the sweeper.
func (a *Applier) PublishCancelled(ctx context.Context, r booking.Reservation, reason string) {
	if a.ProducerCancel == nil {
		return
	}
	eventType := booking.EventBookingCancelled
	if reason == "EXPIRED" {
		eventType = booking.EventBookingExpired
	}
	ev := booking.Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      a.Service,
		CorrelationID: r.BookingID,
		Payload: kafkax.MustMarshal(booking.BookingCancelledPayload{
			BookingID:     r.BookingID,
			GuestName:     r.GuestName,
			GuestEmail:    r.GuestEmail,
			Reason:        reason,
			RefundPercent: r.RefundPercent,
			AmountCents:   r.AmountCents,
			Currency:      r.Currency,
		}),
	}
	a.ProducerCancel.Publish(booking.PartitionKey(r.BookingID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(eventType)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}

// CacheStatus refreshes the read cache after a state change.
func (a *Applier) CacheStatus(ctx context.Context, r booking.Reservation) { a.cacheStatus(ctx, r) }
