package paypal

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/velora/vault/webhook"
)

// webhookEnvelope is the wire shape of a PayPal webhook delivery.
type webhookEnvelope struct {
	ID         string    `json:"id"`
	EventType  string    `json:"event_type"`
	CreateTime time.Time `json:"create_time"`
	Resource   struct {
		ID                string `json:"id"`
		CustomID          string `json:"custom_id"`
		SupplementaryData struct {
			RelatedIDs struct {
				OrderID string `json:"order_id"`
			} `json:"related_ids"`
		} `json:"supplementary_data"`
	} `json:"resource"`
}

// Verify implements webhook.Verifier by calling PayPal's
// verify-webhook-signature endpoint with the transmission headers.
func (c *Client) Verify(ctx context.Context, payload []byte, headers map[string]string) (*webhook.Event, error) {
	verification := map[string]any{
		"transmission_id":   headers["Paypal-Transmission-Id"],
		"transmission_time": headers["Paypal-Transmission-Time"],
		"transmission_sig":  headers["Paypal-Transmission-Sig"],
		"cert_url":          headers["Paypal-Cert-Url"],
		"auth_algo":         headers["Paypal-Auth-Algo"],
		"webhook_id":        c.webhookID,
		"webhook_event":     json.RawMessage(payload),
	}

	var result struct {
		VerificationStatus string `json:"verification_status"`
	}
	err := c.do(ctx, http.MethodPost, "/v1/notifications/verify-webhook-signature", verification, "", &result)
	if err != nil {
		return nil, err
	}
	if result.VerificationStatus != "SUCCESS" {
		return nil, fmt.Errorf("paypal: verification status %q", result.VerificationStatus)
	}

	var env webhookEnvelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return nil, fmt.Errorf("paypal: decode webhook payload: %w", err)
	}
	if env.ID == "" || env.EventType == "" {
		return nil, fmt.Errorf("paypal: webhook payload missing id or event_type")
	}

	evt := &webhook.Event{
		Key:        env.ID,
		Type:       env.EventType,
		OccurredAt: env.CreateTime,
		Raw:        json.RawMessage(payload),
	}

	// Normalize PayPal event types to the canonical ones and pull the
	// provider order reference, which lives in different places per
	// type: on approval the resource is the order itself; on capture
	// the resource is the capture and the order id is in supplementary
	// data.
	switch env.EventType {
	case EventOrderApproved:
		evt.Type = webhook.TypeCheckoutApproved
		evt.ProviderRef = env.Resource.ID
	case EventCaptureCompleted:
		evt.Type = webhook.TypeCaptureCompleted
		evt.ProviderRef = env.Resource.SupplementaryData.RelatedIDs.OrderID
		evt.CaptureRef = env.Resource.ID
	default:
		evt.ProviderRef = env.Resource.ID
	}

	return evt, nil
}
