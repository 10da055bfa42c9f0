package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariefcatur/go-resort-booking.git/internal/booking"
	"github.com/ariefcatur/go-resort-booking.git/internal/gateway"
	"github.com/ariefcatur/go-resort-booking.git/internal/reconcile"
)

func testKeys() gateway.Keys {
	return gateway.Keys{
		SignKey:  bytes.Repeat([]byte("s"), 32),
		EncKey:   bytes.Repeat([]byte("e"), 32),
		KeyID:    "1",
		ClientID: "merchant01",
	}
}

func newTestServer(t *testing.T, store *booking.MemStore) (*httptest.Server, *BookingsHandler) {
	t.Helper()
	h := &BookingsHandler{
		Store:  store,
		Apply:  &reconcile.Applier{Store: store, Service: "test"},
		Keys:   testKeys(),
		AppCtx: context.Background(),
	}
	router := NewRouter()
	h.Register(router)
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv, h
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(raw))
	require.NoError(t, err)
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func validHold() CreateHoldReq {
	return CreateHoldReq{
		GuestName:   "Alice",
		GuestEmail:  "alice@example.com",
		ResourceIDs: []string{"room-101"},
		CheckIn:     "2024-06-01",
		CheckOut:    "2024-06-03",
		AmountCents: 5000,
		Currency:    "356",
	}
}

func TestCreateHoldEndpoint(t *testing.T) {
	store := booking.NewMemStore(15 * time.Minute)
	srv, _ := newTestServer(t, store)

	resp := postJSON(t, srv.URL+"/bookings", validHold())
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	got := decode[bookingResp](t, resp)
	assert.True(t, strings.HasPrefix(got.BookingID, "BK"))
	assert.Equal(t, "pending", got.Status)
	assert.Equal(t, "unpaid", got.PaymentStatus)
	require.NotNil(t, got.ExpiresAt)

	// overlapping dates on the same room
	resp = postJSON(t, srv.URL+"/bookings", validHold())
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	conflict := decode[map[string]any](t, resp)
	assert.Contains(t, conflict, "conflicts")

	// touching boundary is fine
	in := validHold()
	in.CheckIn, in.CheckOut = "2024-06-03", "2024-06-05"
	resp = postJSON(t, srv.URL+"/bookings", in)
	resp.Body.Close()
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
}

func TestCreateHoldValidation(t *testing.T) {
	store := booking.NewMemStore(15 * time.Minute)
	srv, _ := newTestServer(t, store)

	in := validHold()
	in.CheckOut = in.CheckIn
	resp := postJSON(t, srv.URL+"/bookings", in)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	in = validHold()
	in.CheckIn = "June 1st"
	resp = postJSON(t, srv.URL+"/bookings", in)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	in = validHold()
	in.ResourceIDs = nil
	resp = postJSON(t, srv.URL+"/bookings", in)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetBookingEndpoint(t *testing.T) {
	store := booking.NewMemStore(15 * time.Minute)
	srv, _ := newTestServer(t, store)

	created := decode[bookingResp](t, postJSON(t, srv.URL+"/bookings", validHold()))

	resp, err := http.Get(srv.URL + "/bookings/" + created.BookingID)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got := decode[bookingResp](t, resp)
	assert.Equal(t, created.BookingID, got.BookingID)
	assert.Equal(t, "pending", got.Status)

	resp, err = http.Get(srv.URL + "/bookings/BKnope")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCancelEndpoint(t *testing.T) {
	store := booking.NewMemStore(15 * time.Minute)
	srv, _ := newTestServer(t, store)

	created := decode[bookingResp](t, postJSON(t, srv.URL+"/bookings", validHold()))

	resp := postJSON(t, srv.URL+"/bookings/"+created.BookingID+"/cancel", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got := decode[bookingResp](t, resp)
	assert.Equal(t, "cancelled", got.Status)

	// cancelling again is a terminal no-op, still 200
	resp = postJSON(t, srv.URL+"/bookings/"+created.BookingID+"/cancel", nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestCancelReservedRefunds(t *testing.T) {
	store := booking.NewMemStore(15 * time.Minute)
	srv, _ := newTestServer(t, store)

	in := validHold()
	// far enough out for the 90% tier
	in.CheckIn = time.Now().UTC().Add(30 * 24 * time.Hour).Format("2006-01-02")
	in.CheckOut = time.Now().UTC().Add(32 * 24 * time.Hour).Format("2006-01-02")
	created := decode[bookingResp](t, postJSON(t, srv.URL+"/bookings", in))

	_, err := store.Transition(context.Background(), created.BookingID, booking.StatusReserved,
		booking.Evidence{PaymentStatus: booking.PaymentPaid, TransactionID: "T1"})
	require.NoError(t, err)

	resp := postJSON(t, srv.URL+"/bookings/"+created.BookingID+"/cancel", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got := decode[bookingResp](t, resp)
	assert.Equal(t, "cancelled", got.Status)
	assert.Equal(t, "refunded", got.PaymentStatus)
	assert.Equal(t, 90, got.RefundPercent)
}

func TestWebhookEndpoint(t *testing.T) {
	store := booking.NewMemStore(15 * time.Minute)
	srv, h := newTestServer(t, store)

	created := decode[bookingResp](t, postJSON(t, srv.URL+"/bookings", validHold()))
	require.NoError(t, store.MarkPaymentInitiated(context.Background(), created.BookingID, "BD1"))
	require.NoError(t, store.CreateTransaction(context.Background(), booking.PaymentTransaction{
		BookingID: created.BookingID, GatewayOrderID: "BD1", Status: booking.TxInitiated,
	}))

	payload, err := json.Marshal(gateway.TransactionResponse{
		OrderID:       created.BookingID,
		TransactionID: "T55",
		AuthStatus:    gateway.AuthSuccess,
		Amount:        "50.00",
	})
	require.NoError(t, err)
	sealed, err := h.Keys.Seal(payload)
	require.NoError(t, err)

	resp, err := http.Post(srv.URL+"/webhook/gateway", "application/jose", strings.NewReader(sealed))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	got, err := store.Get(context.Background(), created.BookingID)
	require.NoError(t, err)
	assert.Equal(t, booking.StatusReserved, got.Status)
	assert.Equal(t, booking.PaymentPaid, got.PaymentStatus)
	assert.Equal(t, "T55", got.TransactionID)

	hooks := store.Webhooks()
	require.Len(t, hooks, 1)
	assert.True(t, hooks[0].Verified)
	assert.Equal(t, created.BookingID, hooks[0].BookingID)
}

func TestWebhookRejectsTamperedEnvelope(t *testing.T) {
	store := booking.NewMemStore(15 * time.Minute)
	srv, h := newTestServer(t, store)

	created := decode[bookingResp](t, postJSON(t, srv.URL+"/bookings", validHold()))

	payload, _ := json.Marshal(gateway.TransactionResponse{OrderID: created.BookingID, AuthStatus: gateway.AuthSuccess})
	sealed, err := h.Keys.Seal(payload)
	require.NoError(t, err)

	// attacker flips a byte
	b := []byte(sealed)
	b[len(b)/2] ^= 0x01

	resp, err := http.Post(srv.URL+"/webhook/gateway", "application/jose", bytes.NewReader(b))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// booking untouched, attempt on record
	got, err := store.Get(context.Background(), created.BookingID)
	require.NoError(t, err)
	assert.Equal(t, booking.StatusPending, got.Status)

	hooks := store.Webhooks()
	require.Len(t, hooks, 1)
	assert.False(t, hooks[0].Verified)
	assert.Empty(t, hooks[0].BookingID)
}
