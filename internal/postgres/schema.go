package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS reservations (
	id UUID PRIMARY KEY,
	booking_id TEXT UNIQUE NOT NULL,
	external_id TEXT NOT NULL DEFAULT '',
	guest_name TEXT NOT NULL DEFAULT '',
	guest_email TEXT NOT NULL DEFAULT '',
	resource_ids TEXT[] NOT NULL,
	check_in TIMESTAMPTZ NOT NULL,
	check_out TIMESTAMPTZ NOT NULL,
	status TEXT NOT NULL,
	payment_status TEXT NOT NULL,
	amount_cents BIGINT NOT NULL,
	currency TEXT NOT NULL DEFAULT 'INR',
	expires_at TIMESTAMPTZ,
	gateway_order_id TEXT NOT NULL DEFAULT '',
	transaction_id TEXT NOT NULL DEFAULT '',
	auth_status TEXT NOT NULL DEFAULT '',
	refund_percent INT NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_reservations_external_id
	ON reservations(external_id) WHERE external_id <> '';

-- active-hold lookup used by the availability query and the sweeper
CREATE INDEX IF NOT EXISTS idx_reservations_active
	ON reservations(status, payment_status);
CREATE INDEX IF NOT EXISTS idx_reservations_expiry
	ON reservations(expires_at) WHERE status = 'pending';

CREATE TABLE IF NOT EXISTS payment_transactions (
	id UUID PRIMARY KEY,
	booking_id TEXT NOT NULL REFERENCES reservations(booking_id),
	status TEXT NOT NULL,
	gateway_order_id TEXT NOT NULL DEFAULT '',
	transaction_id TEXT NOT NULL DEFAULT '',
	auth_status TEXT NOT NULL DEFAULT '',
	raw_request TEXT NOT NULL DEFAULT '',
	raw_response TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_payment_transactions_booking
	ON payment_transactions(booking_id, created_at DESC);

CREATE TABLE IF NOT EXISTS webhook_events (
	id UUID PRIMARY KEY,
	booking_id TEXT NOT NULL DEFAULT '',
	raw_payload TEXT NOT NULL,
	verified BOOLEAN NOT NULL,
	received_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, schemaSQL)
	return err
}
