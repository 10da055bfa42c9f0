package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/ariefcatur/go-resort-booking.git/internal/booking"
	"github.com/ariefcatur/go-resort-booking.git/internal/gateway"
	"github.com/ariefcatur/go-resort-booking.git/internal/reconcile"
	"github.com/ariefcatur/go-resort-booking.git/internal/redisx"
)

type BookingsHandler struct {
	Store     booking.Store
	Redis     *redis.Client
	Initiator *gateway.Initiator
	Poller    *reconcile.Poller
	Apply     *reconcile.Applier
	Keys      gateway.Keys
	Currency  string // default for holds that do not name one

	// AppCtx outlives any single request; pollers must not die with the
	// request that started them.
	AppCtx context.Context
}

func (h *BookingsHandler) Register(r *chi.Mux) {
	r.Post("/bookings", h.createHold)
	r.Get("/bookings/{id}", h.getBooking)
	r.Post("/bookings/{id}/cancel", h.cancelBooking)
	r.Post("/payment/initiate", h.initiatePayment)
	r.Post("/webhook/gateway", h.gatewayWebhook)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

type CreateHoldReq struct {
	ExternalID  string   `json:"external_id"`
	GuestName   string   `json:"guest_name"`
	GuestEmail  string   `json:"guest_email"`
	ResourceIDs []string `json:"resource_ids"`
	CheckIn     string   `json:"check_in"`  // YYYY-MM-DD
	CheckOut    string   `json:"check_out"` // YYYY-MM-DD, exclusive
	AmountCents int64    `json:"amount_cents"`
	Currency    string   `json:"currency"`
}

type bookingResp struct {
	BookingID     string     `json:"booking_id"`
	Status        string     `json:"status"`
	PaymentStatus string     `json:"payment_status"`
	ResourceIDs   []string   `json:"resource_ids,omitempty"`
	CheckIn       string     `json:"check_in,omitempty"`
	CheckOut      string     `json:"check_out,omitempty"`
	AmountCents   int64      `json:"amount_cents,omitempty"`
	Currency      string     `json:"currency,omitempty"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
	RefundPercent int        `json:"refund_percent,omitempty"`
}

func toResp(r booking.Reservation) bookingResp {
	return bookingResp{
		BookingID:     r.BookingID,
		Status:        string(r.Status),
		PaymentStatus: string(r.PaymentStatus),
		ResourceIDs:   r.ResourceIDs,
		CheckIn:       r.CheckIn.Format("2006-01-02"),
		CheckOut:      r.CheckOut.Format("2006-01-02"),
		AmountCents:   r.AmountCents,
		Currency:      r.Currency,
		ExpiresAt:     r.ExpiresAt,
		RefundPercent: r.RefundPercent,
	}
}

func (h *BookingsHandler) createHold(w http.ResponseWriter, r *http.Request) {
	var req CreateHoldReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	checkIn, err1 := time.Parse("2006-01-02", req.CheckIn)
	checkOut, err2 := time.Parse("2006-01-02", req.CheckOut)
	if err1 != nil || err2 != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "check_in/check_out must be YYYY-MM-DD"})
		return
	}
	if req.Currency == "" {
		req.Currency = h.Currency
	}
	in := booking.HoldInput{
		ExternalID:  req.ExternalID,
		GuestName:   req.GuestName,
		GuestEmail:  req.GuestEmail,
		ResourceIDs: req.ResourceIDs,
		CheckIn:     checkIn,
		CheckOut:    checkOut,
		AmountCents: req.AmountCents,
		Currency:    req.Currency,
	}
	if err := in.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	res, err := h.Store.CreateHold(ctx, in)
	if err != nil {
		var ce *booking.ConflictError
		if errors.As(err, &ce) {
			writeJSON(w, http.StatusConflict, map[string]any{
				"error":     "resources not available for the requested dates",
				"conflicts": ce.Conflicts,
			})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	h.cacheStatus(ctx, res)
	writeJSON(w, http.StatusCreated, toResp(res))
}

func (h *BookingsHandler) getBooking(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing id"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	// cache first, DB as truth
	if h.Redis != nil {
		key := fmt.Sprintf(redisx.KeyBookingStatus, id)
		if s, err := h.Redis.Get(ctx, key).Result(); err == nil && s != "" {
			var cached struct {
				Status        string `json:"status"`
				PaymentStatus string `json:"payment_status"`
			}
			if json.Unmarshal([]byte(s), &cached) == nil && cached.Status != "" {
				writeJSON(w, http.StatusOK, bookingResp{
					BookingID:     id,
					Status:        cached.Status,
					PaymentStatus: cached.PaymentStatus,
				})
				return
			}
		}
	}

	res, err := h.Store.Get(ctx, id)
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
		return
	}
	h.cacheStatus(ctx, res)
	writeJSON(w, http.StatusOK, toResp(res))
}

func (h *BookingsHandler) cancelBooking(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	res, err := h.Store.Get(ctx, id)
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
		return
	}

	ev := booking.Evidence{PaymentStatus: booking.PaymentCancelled}
	reason := "USER_CANCELLED"
	if res.Status == booking.StatusReserved {
		ev.RefundPercent = booking.RefundPercent(time.Now().UTC(), res.CheckIn)
		ev.PaymentStatus = booking.PaymentRefunded
		reason = "ADMIN_CANCELLED"
	}

	res, err = h.Store.Transition(ctx, id, booking.StatusCancelled, ev)
	if err != nil {
		switch {
		case errors.Is(err, booking.ErrInvalidTransition):
			writeJSON(w, http.StatusConflict, map[string]string{"error": "booking cannot be cancelled from its current state"})
		default:
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		}
		return
	}

	if h.Poller != nil {
		h.Poller.Stop(id)
	}
	if h.Apply != nil {
		h.Apply.CacheStatus(ctx, res)
		h.Apply.PublishCancelled(ctx, res, reason)
	}
	writeJSON(w, http.StatusOK, toResp(res))
}

type initiateReq struct {
	BookingID string `json:"booking_id"`
}

func (h *BookingsHandler) initiatePayment(w http.ResponseWriter, r *http.Request) {
	var req initiateReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.BookingID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "booking_id required"})
		return
	}

	// the gateway round trip is bounded by the client's own 30s timeout
	resp, err := h.Initiator.Initiate(r.Context(), req.BookingID)
	if err != nil {
		switch {
		case errors.Is(err, booking.ErrNotFound):
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
		case errors.Is(err, booking.ErrHoldExpired):
			writeJSON(w, http.StatusGone, map[string]string{"error": booking.ErrHoldExpired.Error()})
		case errors.Is(err, booking.ErrAlreadyInitiated):
			writeJSON(w, http.StatusConflict, map[string]string{"error": booking.ErrAlreadyInitiated.Error()})
		case errors.Is(err, gateway.ErrUnreachable):
			writeJSON(w, http.StatusBadGateway, map[string]string{"error": "payment gateway unreachable"})
		default:
			var ge *gateway.Error
			if errors.As(err, &ge) {
				writeJSON(w, http.StatusBadGateway, map[string]string{"error": ge.Message, "code": ge.Code})
				return
			}
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		}
		return
	}

	// reconciliation starts immediately; the webhook can short-circuit it
	h.Poller.Start(h.appCtx(), req.BookingID)

	writeJSON(w, http.StatusAccepted, map[string]string{
		"booking_id":       req.BookingID,
		"gateway_order_id": resp.GatewayOrderID,
		"auth_url":         resp.AuthURL,
	})
}

func (h *BookingsHandler) gatewayWebhook(w http.ResponseWriter, r *http.Request) {
	const maxBodyBytes = int64(65536)
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "read body"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	plain, err := h.Keys.Open(string(raw))
	if err != nil {
		// stored unverified for operator replay
		_ = h.Store.RecordWebhook(ctx, booking.WebhookEvent{RawPayload: string(raw), Verified: false})
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "envelope verification failed"})
		return
	}

	var tx gateway.TransactionResponse
	if err := json.Unmarshal(plain, &tx); err != nil || tx.OrderID == "" {
		_ = h.Store.RecordWebhook(ctx, booking.WebhookEvent{RawPayload: string(raw), Verified: true})
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "malformed webhook payload"})
		return
	}
	_ = h.Store.RecordWebhook(ctx, booking.WebhookEvent{BookingID: tx.OrderID, RawPayload: string(raw), Verified: true})

	terminal, err := h.Apply.Apply(ctx, tx.OrderID, tx)
	if err != nil && !errors.Is(err, booking.ErrHoldExpired) {
		// still 200: the poller and sweeper converge on the final state
		writeJSON(w, http.StatusOK, map[string]string{"status": "accepted"})
		return
	}
	if terminal && h.Poller != nil {
		h.Poller.Stop(tx.OrderID)
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *BookingsHandler) cacheStatus(ctx context.Context, r booking.Reservation) {
	if h.Apply != nil {
		h.Apply.CacheStatus(ctx, r)
	}
}

func (h *BookingsHandler) appCtx() context.Context {
	if h.AppCtx != nil {
		return h.AppCtx
	}
	return context.Background()
}
