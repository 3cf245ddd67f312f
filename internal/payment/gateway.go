package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// GatewayOrder is the order object the gateway returns when a charge is
// initiated. Amount is in the smallest currency unit.
type GatewayOrder struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Status   string `json:"status"`
}

// Gateway creates orders with the external payment gateway. The gateway UI
// widget and webhook surface are out of scope; this is the one server-side
// call the checkout flow needs.
type Gateway interface {
	CreateOrder(ctx context.Context, amount float64, currency string) (*GatewayOrder, error)
}

// HTTPGateway talks to a Razorpay-style orders API using basic auth.
type HTTPGateway struct {
	baseURL   string
	keyID     string
	keySecret string
	client    *http.Client
}

// NewHTTPGateway creates a gateway client. baseURL is the gateway API root,
// e.g. https://api.razorpay.com.
func NewHTTPGateway(baseURL, keyID, keySecret string) *HTTPGateway {
	return &HTTPGateway{
		baseURL:   baseURL,
		keyID:     keyID,
		keySecret: keySecret,
		client:    &http.Client{Timeout: 15 * time.Second},
	}
}

// SmallestUnit converts a decimal price to the gateway's integer smallest
// currency unit. Rounded, not truncated: 19.99 is 1999 paise, and float64
// cannot represent many decimal prices exactly.
func SmallestUnit(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

// CreateOrder creates a gateway order for the given amount. The receipt id
// is generated here so retried requests are distinguishable in the gateway
// dashboard.
func (g *HTTPGateway) CreateOrder(ctx context.Context, amount float64, currency string) (*GatewayOrder, error) {
	body, err := json.Marshal(map[string]any{
		"amount":   SmallestUnit(amount),
		"currency": currency,
		"receipt":  "rcpt_" + uuid.New().String(),
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/v1/orders", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.SetBasicAuth(g.keyID, g.keySecret)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gateway request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("gateway returned status %d", resp.StatusCode)
	}

	var order GatewayOrder
	if err := json.NewDecoder(resp.Body).Decode(&order); err != nil {
		return nil, fmt.Errorf("failed to decode gateway response: %w", err)
	}

	return &order, nil
}
