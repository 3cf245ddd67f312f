// Package issuer talks to the upstream card-issuing partner, the external
// API that actually allocates gift-card number/PIN pairs.
package issuer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
)

// Issuance states reported by the partner.
const (
	StateIssued     = "issued"
	StateProcessing = "processing"
	StateCanceled   = "canceled"
	StateFailed     = "failed"
)

// IssueRequest asks the partner to allocate one card.
type IssueRequest struct {
	Refno       string  `json:"refno"`
	RequestID   string  `json:"requestId"`
	SKU         string  `json:"sku"`
	Amount      float64 `json:"amount"`
	FirstName   string  `json:"firstName"`
	LastName    string  `json:"lastName"`
	Email       string  `json:"email,omitempty"`
	ProductName string  `json:"productName,omitempty"`
}

// Issuance is the partner's view of one allocation. Card fields are only
// populated when State is issued.
type Issuance struct {
	IssuerRef    string `json:"issuerRef"`
	State        string `json:"state"`
	CardNumber   string `json:"cardNumber,omitempty"`
	CardPin      string `json:"cardPin,omitempty"`
	Validity     string `json:"validity,omitempty"`
	IssuanceDate string `json:"issuanceDate,omitempty"`
}

// Issuer is the upstream partner API. Sync is an idempotent re-query: the
// partner re-reports current state, never re-allocates.
type Issuer interface {
	Issue(ctx context.Context, req IssueRequest) (*Issuance, error)
	Sync(ctx context.Context, refno string) (*Issuance, error)
}

// HTTPClient implements Issuer against the partner's REST API.
type HTTPClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewHTTPClient creates a partner API client.
func NewHTTPClient(baseURL, apiKey string) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// Issue requests allocation of one card. The request id makes a retried
// call idempotent on the partner side.
func (c *HTTPClient) Issue(ctx context.Context, req IssueRequest) (*Issuance, error) {
	if req.RequestID == "" {
		req.RequestID = uuid.New().String()
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/cards/issue", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	return c.do(httpReq)
}

// Sync re-queries the partner for the current state of an allocation.
func (c *HTTPClient) Sync(ctx context.Context, refno string) (*Issuance, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/v1/cards/"+url.PathEscape(refno), nil)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	return c.do(httpReq)
}

func (c *HTTPClient) do(req *http.Request) (*Issuance, error) {
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("issuer request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("issuer returned status %d", resp.StatusCode)
	}

	var iss Issuance
	if err := json.NewDecoder(resp.Body).Decode(&iss); err != nil {
		return nil, fmt.Errorf("failed to decode issuer response: %w", err)
	}

	return &iss, nil
}
