// Package client is the typed consumer of the storefront order API. Every
// endpoint returns either decoded data or an *APIError whose Kind drives the
// recovery logic's branching, so callers switch on a classification instead
// of inspecting raw payload fields.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/xeromart/storefront/pkg/types"
)

// ErrorKind classifies an API failure for the caller's retry decision.
type ErrorKind int

const (
	// KindTransient covers network failures and 5xx responses: retry later.
	KindTransient ErrorKind = iota
	// KindNotFound means the server does not know the refno: terminal, drop it.
	KindNotFound
	// KindRejected covers other 4xx responses: the request itself is bad.
	KindRejected
)

// APIError is a classified failure from the order API.
type APIError struct {
	Kind       ErrorKind
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error (%d): %s", e.StatusCode, e.Message)
}

// KindOf classifies an error returned by this package. Anything that is not
// an *APIError (context cancellation, transport errors already wrapped) is
// treated as transient.
func KindOf(err error) ErrorKind {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return KindTransient
}

// API is the HTTP client for the storefront order subsystem.
type API struct {
	baseURL string
	client  *http.Client
}

// New creates an API client for the given base URL.
func New(baseURL string) *API {
	return &API{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 20 * time.Second},
	}
}

// envelope is the server's uniform response wrapper.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Details string          `json:"details"`
}

func (a *API) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return &APIError{Kind: KindTransient, Message: err.Error()}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &APIError{Kind: KindTransient, Message: err.Error()}
	}

	var env envelope
	if jsonErr := json.Unmarshal(raw, &env); jsonErr != nil && resp.StatusCode == http.StatusOK {
		return &APIError{Kind: KindTransient, StatusCode: resp.StatusCode, Message: "malformed response"}
	}

	if resp.StatusCode != http.StatusOK || !env.Success {
		msg := env.Error
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		kind := KindTransient
		switch {
		case resp.StatusCode == http.StatusNotFound:
			kind = KindNotFound
		case resp.StatusCode >= 400 && resp.StatusCode < 500:
			kind = KindRejected
		}
		return &APIError{Kind: kind, StatusCode: resp.StatusCode, Message: msg}
	}

	if out != nil {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return &APIError{Kind: KindTransient, StatusCode: resp.StatusCode, Message: "malformed data payload"}
		}
	}
	return nil
}

// Ping probes the API health endpoint. Used by the network monitor.
func (a *API) Ping(ctx context.Context) error {
	return a.do(ctx, http.MethodGet, "/api/health", nil, nil)
}

// PlaceOrder submits a verified payment proof plus line-item data and
// returns the server-issued refnos.
func (a *API) PlaceOrder(ctx context.Context, req types.PlaceOrderRequest) (*types.PlaceOrderData, error) {
	var data types.PlaceOrderData
	if err := a.do(ctx, http.MethodPost, "/api/order/place-order", req, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// Status fetches an order's lifecycle state.
func (a *API) Status(ctx context.Context, refno string) (*types.StatusData, error) {
	var data types.StatusData
	if err := a.do(ctx, http.MethodGet, "/api/order/status/"+url.PathEscape(refno), nil, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// ForceUpdate asks the server to re-sync the order against the upstream
// issuer. Best-effort for callers; failures are safe to ignore.
func (a *API) ForceUpdate(ctx context.Context, refno string) error {
	return a.do(ctx, http.MethodPost, "/api/order/force-update/"+url.PathEscape(refno), nil, nil)
}

// Details fetches the full order record, including card secrets once the
// order is COMPLETE.
func (a *API) Details(ctx context.Context, refno string) (*types.DetailsData, error) {
	var data types.DetailsData
	if err := a.do(ctx, http.MethodGet, "/api/order/details/"+url.PathEscape(refno), nil, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// CreatePaymentOrder creates a gateway order for checkout.
func (a *API) CreatePaymentOrder(ctx context.Context, amount float64, currency string) (*types.PaymentOrderData, error) {
	var data types.PaymentOrderData
	req := types.PaymentOrderRequest{Amount: amount, Currency: currency}
	if err := a.do(ctx, http.MethodPost, "/api/payment/order", req, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// VerifyPayment checks a payment proof server-side.
func (a *API) VerifyPayment(ctx context.Context, req types.VerifyRequest) error {
	return a.do(ctx, http.MethodPost, "/api/payment/verify", req, nil)
}
