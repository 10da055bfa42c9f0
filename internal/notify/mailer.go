package notify

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/mailersend/mailersend-go"

	"github.com/ariefcatur/go-resort-booking.git/internal/booking"
)

// Mailer sends guest-facing booking emails through MailerSend.
type Mailer struct {
	Client    *mailersend.Mailersend
	FromName  string
	FromEmail string
}

func NewMailer(apiKey, fromName, fromEmail string) *Mailer {
	return &Mailer{
		Client:    mailersend.NewMailersend(apiKey),
		FromName:  fromName,
		FromEmail: fromEmail,
	}
}

func (m *Mailer) SendConfirmation(p booking.BookingConfirmedPayload) error {
	subject := fmt.Sprintf("Booking %s confirmed", p.BookingID)
	text := fmt.Sprintf(
		"Hi %s,\n\nyour booking %s is confirmed.\nCheck-in: %s\nCheck-out: %s\nAmount paid: %d %s (transaction %s)\n\nSee you soon!",
		p.GuestName, p.BookingID, p.CheckIn, p.CheckOut, p.AmountCents, p.Currency, p.TransactionID,
	)
	return m.send(p.GuestEmail, subject, text)
}

func (m *Mailer) SendCancellation(p booking.BookingCancelledPayload) error {
	subject := fmt.Sprintf("Booking %s cancelled", p.BookingID)
	text := fmt.Sprintf(
		"Hi %s,\n\nyour booking %s has been cancelled.\nRefund: %d%% of the paid amount.\n\nWe hope to see you another time.",
		p.GuestName, p.BookingID, p.RefundPercent,
	)
	return m.send(p.GuestEmail, subject, text)
}

func (m *Mailer) send(to, subject, text string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	message := m.Client.Email.NewMessage()
	message.SetFrom(mailersend.From{Name: m.FromName, Email: m.FromEmail})
	message.SetRecipients([]mailersend.Recipient{{Email: to}})
	message.SetSubject(subject)
	message.SetText(text)

	res, err := m.Client.Email.Send(ctx, message)
	if err != nil {
		return fmt.Errorf("send email to %s: %w", to, err)
	}
	log.Println("[notify] email sent, message id:", res.Header.Get("X-Message-Id"))
	return nil
}
