// Package paypal adapts the PayPal REST API to the provider capability.
//
// It implements checkout creation and capture against /v2/checkout and
// webhook authenticity verification against the
// verify-webhook-signature endpoint. No PayPal SDK is used; the REST
// surface is small enough to call directly.
package paypal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/velora/vault/provider"
)

const (
	// LiveBase is the production API host.
	LiveBase = "https://api-m.paypal.com"
	// SandboxBase is the sandbox API host.
	SandboxBase = "https://api-m.sandbox.paypal.com"
)

// Event types the engine subscribes to.
const (
	EventOrderApproved    = "CHECKOUT.ORDER.APPROVED"
	EventCaptureCompleted = "PAYMENT.CAPTURE.COMPLETED"
)

// Client talks to the PayPal REST API. It implements provider.Provider
// and webhook.Verifier.
type Client struct {
	base      string
	clientID  string
	secret    string
	webhookID string
	http      *http.Client
	logger    *slog.Logger

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithBaseURL points the client at a different API host (sandbox, test
// server).
func WithBaseURL(base string) Option {
	return func(c *Client) { c.base = strings.TrimRight(base, "/") }
}

// WithLogger sets the client logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New builds a Client. webhookID is the PayPal webhook configuration id
// used for signature verification.
func New(clientID, secret, webhookID string, opts ...Option) *Client {
	c := &Client{
		base:      LiveBase,
		clientID:  clientID,
		secret:    secret,
		webhookID: webhookID,
		http:      &http.Client{Timeout: 30 * time.Second},
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// token returns a cached OAuth2 access token, refreshing via the
// client-credentials grant when expired.
func (c *Client) token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.accessToken != "" && time.Now().Before(c.tokenExpiry) {
		return c.accessToken, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.base+"/v1/oauth2/token", strings.NewReader("grant_type=client_credentials"))
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(c.clientID, c.secret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: oauth token: %v", provider.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: oauth token: status %d", provider.ErrUnavailable, resp.StatusCode)
	}

	var body struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("paypal: decode token response: %w", err)
	}

	c.accessToken = body.AccessToken
	// Refresh a minute early to avoid using a token at the edge.
	c.tokenExpiry = time.Now().Add(time.Duration(body.ExpiresIn-60) * time.Second)
	return c.accessToken, nil
}

// do issues an authenticated JSON request and decodes the response into
// out when non-nil.
func (c *Client) do(ctx context.Context, method, path string, payload any, idempotencyKey string, out any) error {
	tok, err := c.token(ctx)
	if err != nil {
		return err
	}

	var body io.Reader
	if payload != nil {
		buf, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("paypal: marshal request: %w", err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+tok)
	req.Header.Set("Content-Type", "application/json")
	if idempotencyKey != "" {
		req.Header.Set("PayPal-Request-Id", idempotencyKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %v", provider.ErrUnavailable, method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return fmt.Errorf("%w: %s %s: status %d", provider.ErrUnavailable, method, path, resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("paypal: %s %s: status %d: %s", method, path, resp.StatusCode, raw)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("paypal: decode response: %w", err)
		}
	}
	return nil
}

type orderResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Links  []struct {
		Href string `json:"href"`
		Rel  string `json:"rel"`
	} `json:"links"`
	PurchaseUnits []struct {
		Payments struct {
			Captures []struct {
				ID string `json:"id"`
			} `json:"captures"`
		} `json:"payments"`
	} `json:"purchase_units"`
}

// CreateCheckout implements provider.Provider.
func (c *Client) CreateCheckout(ctx context.Context, req provider.CheckoutRequest) (*provider.Checkout, error) {
	payload := map[string]any{
		"intent": "CAPTURE",
		"purchase_units": []map[string]any{{
			// custom_id carries the internal order id back on webhooks.
			"custom_id":   req.OrderID.String(),
			"description": req.Description,
			"amount": map[string]string{
				"currency_code": strings.ToUpper(req.Amount.Currency),
				"value":         req.Amount.FormatMajor(),
			},
		}},
	}

	var resp orderResponse
	if err := c.do(ctx, http.MethodPost, "/v2/checkout/orders", payload, req.IdempotencyKey, &resp); err != nil {
		return nil, err
	}

	out := &provider.Checkout{ProviderRef: resp.ID}
	for _, link := range resp.Links {
		if link.Rel == "approve" {
			out.ApproveURL = link.Href
			break
		}
	}

	c.logger.Info("paypal checkout created", "order", req.OrderID, "provider_ref", resp.ID)
	return out, nil
}

// Capture implements provider.Provider.
func (c *Client) Capture(ctx context.Context, providerRef string) (string, error) {
	var resp orderResponse
	path := "/v2/checkout/orders/" + providerRef + "/capture"
	if err := c.do(ctx, http.MethodPost, path, struct{}{}, "", &resp); err != nil {
		return "", err
	}

	for _, pu := range resp.PurchaseUnits {
		for _, capture := range pu.Payments.Captures {
			return capture.ID, nil
		}
	}
	return resp.ID, nil
}
