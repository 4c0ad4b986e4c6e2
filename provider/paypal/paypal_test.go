package paypal

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/velora/vault/id"
	"github.com/velora/vault/provider"
	"github.com/velora/vault/types"
	"github.com/velora/vault/webhook"
)

// fakePayPal is a minimal stand-in for the REST API.
type fakePayPal struct {
	tokenCalls   atomic.Int64
	lastCreate   map[string]any
	verifyStatus string
}

func (f *fakePayPal) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/v1/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		f.tokenCalls.Add(1)
		if u, _, ok := r.BasicAuth(); !ok || u != "client-id" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "tok-1", "expires_in": 3600,
		})
	})

	mux.HandleFunc("/v2/checkout/orders", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok-1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&f.lastCreate); err != nil {
			t.Errorf("decode create body: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":     "PP-ORDER-1",
			"status": "CREATED",
			"links": []map[string]string{
				{"rel": "self", "href": "https://example.test/self"},
				{"rel": "approve", "href": "https://example.test/approve"},
			},
		})
	})

	mux.HandleFunc("/v2/checkout/orders/PP-ORDER-1/capture", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id": "PP-ORDER-1",
			"purchase_units": []map[string]any{{
				"payments": map[string]any{
					"captures": []map[string]string{{"id": "CAP-1"}},
				},
			}},
		})
	})

	mux.HandleFunc("/v1/notifications/verify-webhook-signature", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"verification_status": f.verifyStatus})
	})

	return mux
}

func newTestClient(t *testing.T, f *fakePayPal) *Client {
	t.Helper()
	srv := httptest.NewServer(f.handler(t))
	t.Cleanup(srv.Close)
	return New("client-id", "client-secret", "WH-1", WithBaseURL(srv.URL))
}

func TestCreateCheckout(t *testing.T) {
	f := &fakePayPal{}
	c := newTestClient(t, f)

	orderID := id.NewOrderID()
	out, err := c.CreateCheckout(context.Background(), provider.CheckoutRequest{
		OrderID:        orderID,
		Amount:         types.USD(1250),
		Description:    "image unlock",
		IdempotencyKey: "idem-1",
	})
	if err != nil {
		t.Fatalf("CreateCheckout: %v", err)
	}
	if out.ProviderRef != "PP-ORDER-1" {
		t.Errorf("provider ref: got %q", out.ProviderRef)
	}
	if out.ApproveURL != "https://example.test/approve" {
		t.Errorf("approve url: got %q", out.ApproveURL)
	}

	units, ok := f.lastCreate["purchase_units"].([]any)
	if !ok || len(units) != 1 {
		t.Fatalf("expected one purchase unit, got %v", f.lastCreate["purchase_units"])
	}
	unit := units[0].(map[string]any)
	if unit["custom_id"] != orderID.String() {
		t.Errorf("custom_id: got %v, want %s", unit["custom_id"], orderID)
	}
	amount := unit["amount"].(map[string]any)
	if amount["currency_code"] != "USD" || amount["value"] != "12.50" {
		t.Errorf("amount: got %v", amount)
	}
}

func TestCapture(t *testing.T) {
	f := &fakePayPal{}
	c := newTestClient(t, f)

	ref, err := c.Capture(context.Background(), "PP-ORDER-1")
	if err != nil {
		t.Fatalf("Capture: %v", err)
	}
	if ref != "CAP-1" {
		t.Errorf("capture ref: got %q, want CAP-1", ref)
	}
}

func TestTokenCached(t *testing.T) {
	f := &fakePayPal{}
	c := newTestClient(t, f)

	for i := 0; i < 3; i++ {
		if _, err := c.Capture(context.Background(), "PP-ORDER-1"); err != nil {
			t.Fatalf("Capture %d: %v", i, err)
		}
	}

	if got := f.tokenCalls.Load(); got != 1 {
		t.Errorf("token fetched %d times, want 1", got)
	}
}

func TestVerify(t *testing.T) {
	payload := []byte(`{
		"id": "WH-EVT-1",
		"event_type": "PAYMENT.CAPTURE.COMPLETED",
		"resource": {
			"id": "CAP-1",
			"custom_id": "ord_x",
			"supplementary_data": {"related_ids": {"order_id": "PP-ORDER-1"}}
		}
	}`)
	headers := map[string]string{
		"Paypal-Transmission-Id":   "t-1",
		"Paypal-Transmission-Time": "2026-01-01T00:00:00Z",
		"Paypal-Transmission-Sig":  "sig",
		"Paypal-Cert-Url":          "https://example.test/cert",
		"Paypal-Auth-Algo":         "SHA256withRSA",
	}

	t.Run("success", func(t *testing.T) {
		f := &fakePayPal{verifyStatus: "SUCCESS"}
		c := newTestClient(t, f)

		evt, err := c.Verify(context.Background(), payload, headers)
		if err != nil {
			t.Fatalf("Verify: %v", err)
		}
		if evt.Key != "WH-EVT-1" {
			t.Errorf("key: got %q", evt.Key)
		}
		if evt.Type != webhook.TypeCaptureCompleted {
			t.Errorf("type: got %q", evt.Type)
		}
		if evt.ProviderRef != "PP-ORDER-1" {
			t.Errorf("provider ref: got %q", evt.ProviderRef)
		}
		if evt.CaptureRef != "CAP-1" {
			t.Errorf("capture ref: got %q", evt.CaptureRef)
		}
	})

	t.Run("failure", func(t *testing.T) {
		f := &fakePayPal{verifyStatus: "FAILURE"}
		c := newTestClient(t, f)

		if _, err := c.Verify(context.Background(), payload, headers); err == nil {
			t.Fatal("expected verification failure")
		}
	})
}
