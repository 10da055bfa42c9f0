package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

var ErrUnreachable = errors.New("gateway unreachable")

// Error is a structured gateway-side failure, decoded from the encrypted
// error envelope the gateway returns on non-2xx responses.
type Error struct {
	HTTPStatus int
	Code       string `json:"error_code"`
	Message    string `json:"message"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("gateway error %s (http %d): %s", e.Code, e.HTTPStatus, e.Message)
}

type OrderRequest struct {
	MerchantID string `json:"mercid"`
	OrderID    string `json:"orderid"`
	Amount     string `json:"amount"`
	Currency   string `json:"currency"`
	ReturnURL  string `json:"ru"`
}

type OrderResponse struct {
	GatewayOrderID string `json:"bdorderid"`
	OrderID        string `json:"orderid"`
	Status         string `json:"status"`
	AuthURL        string `json:"authurl,omitempty"`
}

type RetrieveRequest struct {
	MerchantID string `json:"mercid"`
	OrderID    string `json:"orderid"`
}

type TransactionResponse struct {
	OrderID       string `json:"orderid"`
	TransactionID string `json:"transactionid"`
	AuthStatus    string `json:"auth_status"`
	ErrorDesc     string `json:"transaction_error_desc,omitempty"`
	Amount        string `json:"amount"`
}

// Client calls the gateway's create-order and retrieve-transaction
// endpoints. Everything on the wire is application/jose.
type Client struct {
	HTTP       *http.Client
	BaseURL    string
	MerchantID string
	Keys       Keys
}

func NewClient(baseURL, merchantID string, keys Keys) *Client {
	return &Client{
		HTTP:       &http.Client{Timeout: 30 * time.Second},
		BaseURL:    strings.TrimRight(baseURL, "/"),
		MerchantID: merchantID,
		Keys:       keys,
	}
}

// CreateOrder registers an order with the gateway. The sealed request body is
// returned too so the caller can persist it for audit.
func (c *Client) CreateOrder(ctx context.Context, req OrderRequest) (OrderResponse, string, error) {
	req.MerchantID = c.MerchantID
	var resp OrderResponse
	sealed, err := c.post(ctx, "/payments/ve1_2/orders/create", req, &resp)
	return resp, sealed, err
}

func (c *Client) RetrieveTransaction(ctx context.Context, orderID string) (TransactionResponse, error) {
	var resp TransactionResponse
	_, err := c.post(ctx, "/payments/ve1_2/transactions/get", RetrieveRequest{MerchantID: c.MerchantID, OrderID: orderID}, &resp)
	return resp, err
}

func (c *Client) post(ctx context.Context, path string, payload, out any) (string, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	sealed, err := c.Keys.Seal(raw)
	if err != nil {
		return "", err
	}

	hreq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader([]byte(sealed)))
	if err != nil {
		return sealed, err
	}
	hreq.Header.Set("Content-Type", "application/jose")
	hreq.Header.Set("Accept", "application/jose")
	hreq.Header.Set("BD-Traceid", strings.ReplaceAll(uuid.NewString(), "-", "")[:20])
	hreq.Header.Set("BD-Timestamp", strconv.FormatInt(time.Now().UnixMilli(), 10))

	hresp, err := c.HTTP.Do(hreq)
	if err != nil {
		return sealed, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer hresp.Body.Close()

	body, err := io.ReadAll(hresp.Body)
	if err != nil {
		return sealed, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}

	if hresp.StatusCode < 200 || hresp.StatusCode >= 300 {
		return sealed, c.decodeError(hresp.StatusCode, body)
	}

	plain, err := c.Keys.Open(strings.TrimSpace(string(body)))
	if err != nil {
		return sealed, err
	}
	if err := json.Unmarshal(plain, out); err != nil {
		return sealed, fmt.Errorf("decode gateway response: %w", err)
	}
	return sealed, nil
}

// decodeError opens the encrypted error envelope the gateway sends with
// non-2xx responses. A body that is not a valid envelope (proxy error page,
// truncated response) degrades to a bare HTTP error.
func (c *Client) decodeError(status int, body []byte) error {
	plain, err := c.Keys.Open(strings.TrimSpace(string(body)))
	if err != nil {
		return fmt.Errorf("%w: http %d", ErrUnreachable, status)
	}
	ge := &Error{HTTPStatus: status}
	if err := json.Unmarshal(plain, ge); err != nil {
		return fmt.Errorf("%w: http %d", ErrUnreachable, status)
	}
	return ge
}
