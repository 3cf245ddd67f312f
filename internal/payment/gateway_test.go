package payment

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSmallestUnit(t *testing.T) {
	tests := []struct {
		name   string
		amount float64
		want   int64
	}{
		{"whole rupees", 500, 50000},
		{"decimal price rounds up", 19.99, 1999},
		{"float representation error", 99.85, 9985},
		{"single paisa", 0.01, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SmallestUnit(tt.amount); got != tt.want {
				t.Errorf("SmallestUnit(%v) = %d, want %d", tt.amount, got, tt.want)
			}
		})
	}
}

func TestHTTPGateway_CreateOrderSendsRoundedAmount(t *testing.T) {
	var captured map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/orders" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if user, pass, ok := r.BasicAuth(); !ok || user != "key_id" || pass != "key_secret" {
			t.Error("expected basic auth with gateway credentials")
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("failed to decode request body: %v", err)
		}
		json.NewEncoder(w).Encode(GatewayOrder{
			ID: "order_test", Amount: 1999, Currency: "INR", Status: "created",
		})
	}))
	defer srv.Close()

	g := NewHTTPGateway(srv.URL, "key_id", "key_secret")
	order, err := g.CreateOrder(context.Background(), 19.99, "INR")
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}

	// JSON numbers decode as float64.
	if got := captured["amount"].(float64); got != 1999 {
		t.Errorf("19.99 charged as %.0f paise, want 1999", got)
	}
	if captured["currency"] != "INR" {
		t.Errorf("unexpected currency %v", captured["currency"])
	}
	if captured["receipt"] == "" {
		t.Error("expected a receipt id")
	}
	if order.ID != "order_test" || order.Amount != 1999 {
		t.Errorf("unexpected order %+v", order)
	}
}

func TestHTTPGateway_CreateOrderUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	g := NewHTTPGateway(srv.URL, "key_id", "key_secret")
	if _, err := g.CreateOrder(context.Background(), 500, "INR"); err == nil {
		t.Fatal("expected error on upstream failure")
	}
}
