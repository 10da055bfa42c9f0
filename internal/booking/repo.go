package booking

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repo is the postgres Store. Hold creation takes a per-resource advisory
// lock inside the transaction so two concurrent holds for the same resource
// serialize even when no conflicting row exists yet; transitions use
// state-guarded updates (UPDATE ... WHERE status = current).
type Repo struct {
	DB      *pgxpool.Pool
	HoldTTL time.Duration
}

func NewRepo(db *pgxpool.Pool, holdTTL time.Duration) *Repo {
	if holdTTL <= 0 {
		holdTTL = 15 * time.Minute
	}
	return &Repo{DB: db, HoldTTL: holdTTL}
}

const reservationCols = `id, booking_id, external_id, guest_name, guest_email, resource_ids,
	check_in, check_out, status, payment_status, amount_cents, currency, expires_at,
	gateway_order_id, transaction_id, auth_status, refund_percent, created_at, updated_at`

func scanReservation(row pgx.Row) (Reservation, error) {
	var r Reservation
	err := row.Scan(&r.ID, &r.BookingID, &r.ExternalID, &r.GuestName, &r.GuestEmail, &r.ResourceIDs,
		&r.CheckIn, &r.CheckOut, &r.Status, &r.PaymentStatus, &r.AmountCents, &r.Currency, &r.ExpiresAt,
		&r.GatewayOrderID, &r.TransactionID, &r.AuthStatus, &r.RefundPercent, &r.CreatedAt, &r.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Reservation{}, ErrNotFound
	}
	return r, err
}

func (s *Repo) CreateHold(ctx context.Context, in HoldInput) (Reservation, error) {
	if err := in.Validate(); err != nil {
		return Reservation{}, err
	}

	// idempotency short-circuit by external_id
	if in.ExternalID != "" {
		r, err := scanReservation(s.DB.QueryRow(ctx,
			`SELECT `+reservationCols+` FROM reservations WHERE external_id=$1`, in.ExternalID))
		if err == nil {
			return r, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return Reservation{}, err
		}
	}

	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Reservation{}, err
	}
	defer tx.Rollback(ctx)

	// lock each resource id in sorted order; sorting keeps lock order stable
	// across concurrent holds and avoids deadlock
	locked := append([]string(nil), in.ResourceIDs...)
	sort.Strings(locked)
	for _, rid := range locked {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, rid); err != nil {
			return Reservation{}, err
		}
	}

	rows, err := tx.Query(ctx, `
		SELECT booking_id FROM reservations
		WHERE status IN ('pending','reserved')
		  AND payment_status IN ('unpaid','pending','paid')
		  AND resource_ids && $1
		  AND check_in < $3 AND $2 < check_out`,
		in.ResourceIDs, in.CheckIn, in.CheckOut)
	if err != nil {
		return Reservation{}, err
	}
	var conflicts []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return Reservation{}, err
		}
		conflicts = append(conflicts, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return Reservation{}, err
	}
	if len(conflicts) > 0 {
		return Reservation{}, &ConflictError{Conflicts: conflicts}
	}

	now := time.Now().UTC()
	exp := now.Add(s.HoldTTL)
	r := Reservation{
		ID:            uuid.NewString(),
		BookingID:     newBookingID(),
		ExternalID:    in.ExternalID,
		GuestName:     in.GuestName,
		GuestEmail:    in.GuestEmail,
		ResourceIDs:   in.ResourceIDs,
		CheckIn:       in.CheckIn,
		CheckOut:      in.CheckOut,
		Status:        StatusPending,
		PaymentStatus: PaymentUnpaid,
		AmountCents:   in.AmountCents,
		Currency:      in.Currency,
		ExpiresAt:     &exp,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO reservations(id, booking_id, external_id, guest_name, guest_email, resource_ids,
			check_in, check_out, status, payment_status, amount_cents, currency, expires_at, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)`,
		r.ID, r.BookingID, r.ExternalID, r.GuestName, r.GuestEmail, r.ResourceIDs,
		r.CheckIn, r.CheckOut, r.Status, r.PaymentStatus, r.AmountCents, r.Currency, r.ExpiresAt, r.CreatedAt, r.UpdatedAt)
	if err != nil {
		return Reservation{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return Reservation{}, err
	}
	return r, nil
}

func (s *Repo) Get(ctx context.Context, bookingID string) (Reservation, error) {
	return scanReservation(s.DB.QueryRow(ctx,
		`SELECT `+reservationCols+` FROM reservations WHERE booking_id=$1`, bookingID))
}

func (s *Repo) CheckAvailability(ctx context.Context, resourceIDs []string, checkIn, checkOut time.Time, excludeBookingID string) (bool, []string, error) {
	rows, err := s.DB.Query(ctx, `
		SELECT booking_id FROM reservations
		WHERE status IN ('pending','reserved')
		  AND payment_status IN ('unpaid','pending','paid')
		  AND resource_ids && $1
		  AND check_in < $3 AND $2 < check_out
		  AND booking_id <> $4`,
		resourceIDs, checkIn, checkOut, excludeBookingID)
	if err != nil {
		return false, nil, err
	}
	defer rows.Close()

	var conflicts []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return false, nil, err
		}
		conflicts = append(conflicts, id)
	}
	return len(conflicts) == 0, conflicts, rows.Err()
}

func (s *Repo) Transition(ctx context.Context, bookingID string, to Status, ev Evidence) (Reservation, error) {
	// read, apply the shared rules, then write with a status guard; retry
	// once if another path moved the reservation in between
	for attempt := 0; attempt < 2; attempt++ {
		r, err := s.Get(ctx, bookingID)
		if err != nil {
			return Reservation{}, err
		}
		next, changed, err := applyTransition(r, to, ev, time.Now().UTC())
		if err != nil {
			return Reservation{}, err
		}
		if !changed {
			return next, nil
		}
		ct, err := s.DB.Exec(ctx, `
			UPDATE reservations
			SET status=$3, payment_status=$4, transaction_id=$5, auth_status=$6,
			    refund_percent=$7, expires_at=$8, updated_at=$9
			WHERE booking_id=$1 AND status=$2`,
			bookingID, r.Status, next.Status, next.PaymentStatus, next.TransactionID,
			next.AuthStatus, next.RefundPercent, next.ExpiresAt, next.UpdatedAt)
		if err != nil {
			return Reservation{}, err
		}
		if ct.RowsAffected() == 1 {
			return next, nil
		}
	}
	return Reservation{}, ErrInvalidTransition
}

func (s *Repo) MarkPaymentInitiated(ctx context.Context, bookingID, gatewayOrderID string) error {
	r, err := s.Get(ctx, bookingID)
	if err != nil {
		return err
	}
	if r.Status != StatusPending {
		if r.Status == StatusExpired {
			return ErrHoldExpired
		}
		return ErrInvalidTransition
	}
	ct, err := s.DB.Exec(ctx, `
		UPDATE reservations SET payment_status='pending', gateway_order_id=$2, updated_at=now()
		WHERE booking_id=$1 AND status='pending' AND payment_status='unpaid'`,
		bookingID, gatewayOrderID)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrAlreadyInitiated
	}
	return nil
}

func (s *Repo) SweepExpired(ctx context.Context, now time.Time) ([]string, error) {
	// single statement: the status guard means a hold that just turned
	// reserved in the same instant is left alone
	rows, err := s.DB.Query(ctx, `
		UPDATE reservations
		SET status='expired', expires_at=NULL, updated_at=$1
		WHERE status='pending' AND expires_at <= $1
		RETURNING booking_id`, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var swept []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		swept = append(swept, id)
	}
	return swept, rows.Err()
}

func (s *Repo) CreateTransaction(ctx context.Context, t PaymentTransaction) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	_, err := s.DB.Exec(ctx, `
		INSERT INTO payment_transactions(id, booking_id, status, gateway_order_id, transaction_id,
			auth_status, raw_request, raw_response, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,now(),now())`,
		t.ID, t.BookingID, t.Status, t.GatewayOrderID, t.TransactionID, t.AuthStatus, t.RawRequest, t.RawResponse)
	return err
}

func (s *Repo) FinishTransaction(ctx context.Context, bookingID string, status TxStatus, transactionID, authStatus, rawResponse string) error {
	_, err := s.DB.Exec(ctx, `
		UPDATE payment_transactions
		SET status=$2, transaction_id=$3, auth_status=$4, raw_response=$5, updated_at=now()
		WHERE booking_id=$1 AND status='initiated'`,
		bookingID, status, transactionID, authStatus, rawResponse)
	return err
}

func (s *Repo) GetTransaction(ctx context.Context, bookingID string) (PaymentTransaction, error) {
	var t PaymentTransaction
	err := s.DB.QueryRow(ctx, `
		SELECT id, booking_id, status, gateway_order_id, transaction_id, auth_status,
		       raw_request, raw_response, created_at, updated_at
		FROM payment_transactions WHERE booking_id=$1
		ORDER BY created_at DESC LIMIT 1`, bookingID).
		Scan(&t.ID, &t.BookingID, &t.Status, &t.GatewayOrderID, &t.TransactionID, &t.AuthStatus,
			&t.RawRequest, &t.RawResponse, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return PaymentTransaction{}, ErrNotFound
	}
	return t, err
}

func (s *Repo) RecordWebhook(ctx context.Context, ev WebhookEvent) error {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.ReceivedAt.IsZero() {
		ev.ReceivedAt = time.Now().UTC()
	}
	_, err := s.DB.Exec(ctx, `
		INSERT INTO webhook_events(id, booking_id, raw_payload, verified, received_at)
		VALUES ($1,$2,$3,$4,$5)`,
		ev.ID, ev.BookingID, ev.RawPayload, ev.Verified, ev.ReceivedAt)
	return err
}
