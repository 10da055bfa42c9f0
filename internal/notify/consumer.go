package notify

import (
	"context"
	"encoding/json"
	"log"

	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/ariefcatur/go-resort-booking.git/internal/booking"
	"github.com/ariefcatur/go-resort-booking.git/internal/redisx"
)

// Consumer-side service: turns booking outcome events into guest emails.
type Service struct {
	Mailer      *Mailer
	Redis       *redis.Client
	ServiceName string
}

func (s *Service) HandleConfirmed(ctx context.Context, m kafkago.Message) error {
	var env booking.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		return err
	}
	if env.EventType != booking.EventBookingConfirmed {
		return nil
	}
	if fresh, _ := redisx.MarkProcessed(ctx, s.Redis, s.ServiceName, env.EventID); !fresh {
		return nil
	}

	var p booking.BookingConfirmedPayload
	if err := json.Unmarshal(env.Payload, &p); err != nil {
		return err
	}
	if p.GuestEmail == "" {
		return nil
	}
	if err := s.Mailer.SendConfirmation(p); err != nil {
		// delivery failures are logged, not replayed through Kafka
		log.Printf("[notify] confirmation mail for %s: %v", p.BookingID, err)
	}
	return nil
}

func (s *Service) HandleCancelled(ctx context.Context, m kafkago.Message) error {
	var env booking.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		return err
	}
	if env.EventType != booking.EventBookingCancelled && env.EventType != booking.EventBookingExpired {
		return nil
	}
	if fresh, _ := redisx.MarkProcessed(ctx, s.Redis, s.ServiceName, env.EventID); !fresh {
		return nil
	}

	var p booking.BookingCancelledPayload
	if err := json.Unmarshal(env.Payload, &p); err != nil {
		return err
	}

	// expired holds were never confirmed to the guest; no mail, just a trace
	if env.EventType == booking.EventBookingExpired || p.Reason == "EXPIRED" {
		log.Printf("[notify] booking %s expired, skipping mail", p.BookingID)
		return nil
	}
	if p.GuestEmail == "" {
		return nil
	}
	if err := s.Mailer.SendCancellation(p); err != nil {
		log.Printf("[notify] cancellation mail for %s: %v", p.BookingID, err)
	}
	return nil
}
