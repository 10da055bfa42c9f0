package gateway

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariefcatur/go-resort-booking.git/internal/booking"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func newHold(t *testing.T, s booking.Store) booking.Reservation {
	t.Helper()
	r, err := s.CreateHold(context.Background(), booking.HoldInput{
		GuestName:   "Alice",
		GuestEmail:  "alice@example.com",
		ResourceIDs: []string{"room-101"},
		CheckIn:     day("2024-06-01"),
		CheckOut:    day("2024-06-03"),
		AmountCents: 5000,
		Currency:    "356",
	})
	require.NoError(t, err)
	return r
}

func TestInitiate(t *testing.T) {
	keys := testKeys()
	store := booking.NewMemStore(15 * time.Minute)
	r := newHold(t, store)

	fg := &fakeGateway{t: t, keys: keys}
	fg.createOrder = func(req OrderRequest) (int, any) {
		assert.Equal(t, r.BookingID, req.OrderID)
		assert.Equal(t, "50.00", req.Amount)
		assert.Equal(t, "https://app.example/return", req.ReturnURL)
		return http.StatusOK, OrderResponse{GatewayOrderID: "BD1", OrderID: req.OrderID, Status: "ACTIVE", AuthURL: "https://pay.example/BD1"}
	}
	srv := httptest.NewServer(fg.handler())
	defer srv.Close()

	ini := &Initiator{
		Store:     store,
		Client:    NewClient(srv.URL, "MERC01", keys),
		ReturnURL: "https://app.example/return",
	}

	resp, err := ini.Initiate(context.Background(), r.BookingID)
	require.NoError(t, err)
	assert.Equal(t, "BD1", resp.GatewayOrderID)

	got, err := store.Get(context.Background(), r.BookingID)
	require.NoError(t, err)
	assert.Equal(t, booking.PaymentPending, got.PaymentStatus)
	assert.Equal(t, "BD1", got.GatewayOrderID)

	tx, err := store.GetTransaction(context.Background(), r.BookingID)
	require.NoError(t, err)
	assert.Equal(t, booking.TxInitiated, tx.Status)
	assert.NotEmpty(t, tx.RawRequest)

	// second initiation is refused before the gateway is called
	_, err = ini.Initiate(context.Background(), r.BookingID)
	assert.ErrorIs(t, err, booking.ErrAlreadyInitiated)
}

func TestInitiateExpiredHold(t *testing.T) {
	store := booking.NewMemStore(time.Millisecond)
	r := newHold(t, store)
	time.Sleep(5 * time.Millisecond)

	ini := &Initiator{Store: store, Client: NewClient("http://gateway.invalid", "MERC01", testKeys())}
	_, err := ini.Initiate(context.Background(), r.BookingID)
	assert.ErrorIs(t, err, booking.ErrHoldExpired)
}

func TestInitiateUnknownBooking(t *testing.T) {
	store := booking.NewMemStore(15 * time.Minute)
	ini := &Initiator{Store: store, Client: NewClient("http://gateway.invalid", "MERC01", testKeys())}
	_, err := ini.Initiate(context.Background(), "BKnope")
	assert.ErrorIs(t, err, booking.ErrNotFound)
}

func TestInitiateGatewayRejection(t *testing.T) {
	keys := testKeys()
	store := booking.NewMemStore(15 * time.Minute)
	r := newHold(t, store)

	fg := &fakeGateway{t: t, keys: keys}
	fg.createOrder = func(req OrderRequest) (int, any) {
		return http.StatusUnprocessableEntity, map[string]string{"error_code": "BD104", "message": "invalid merchant"}
	}
	srv := httptest.NewServer(fg.handler())
	defer srv.Close()

	ini := &Initiator{Store: store, Client: NewClient(srv.URL, "MERC01", keys)}
	_, err := ini.Initiate(context.Background(), r.BookingID)
	var ge *Error
	require.ErrorAs(t, err, &ge)

	// booking stays payable, the failed attempt is on record
	got, err := store.Get(context.Background(), r.BookingID)
	require.NoError(t, err)
	assert.Equal(t, booking.PaymentUnpaid, got.PaymentStatus)

	tx, err := store.GetTransaction(context.Background(), r.BookingID)
	require.NoError(t, err)
	assert.Equal(t, booking.TxFailed, tx.Status)
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "50.00", formatAmount(5000))
	assert.Equal(t, "0.05", formatAmount(5))
	assert.Equal(t, "123.45", formatAmount(12345))
	assert.Equal(t, "1.00", formatAmount(100))
}
