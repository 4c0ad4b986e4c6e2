// Package webhook implements the idempotent payment webhook processor.
//
// Events arrive as opaque payloads with transport headers. A Verifier
// authenticates them and extracts the envelope; the processor dedupes on
// the provider's event key, dispatches to a registered handler, and
// queues events that match no order yet for bounded retry.
package webhook

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/velora/vault/id"
	"github.com/velora/vault/types"
)

var (
	// ErrBadSignature means the payload failed authenticity verification.
	// The caller must reject the delivery; nothing is processed or recorded.
	ErrBadSignature = errors.New("vault: webhook signature verification failed")

	// ErrDuplicateEvent means the event key was already processed. The
	// caller acknowledges the delivery without side effects.
	ErrDuplicateEvent = errors.New("vault: duplicate webhook event")

	// ErrNoMatchingOrder is returned by handlers when the event references
	// an order the engine doesn't know yet. The processor queues the event
	// for retry instead of failing the delivery.
	ErrNoMatchingOrder = errors.New("vault: webhook event matched no order")

	// ErrReconciliationRequired means money moved at the provider but the
	// internal state can't absorb it automatically. The event is parked
	// for operator attention.
	ErrReconciliationRequired = errors.New("vault: reconciliation required")
)

// Canonical event types. Verifiers normalize provider-specific type
// strings to these so the engine stays provider-agnostic.
const (
	// TypeCheckoutApproved means the buyer approved payment; the engine
	// should capture.
	TypeCheckoutApproved = "checkout.approved"
	// TypeCaptureCompleted means money moved; the engine should mark
	// the order paid and settle it.
	TypeCaptureCompleted = "capture.completed"
)

// Event is a verified webhook envelope.
type Event struct {
	Key         string          `json:"key"`  // Provider event id; the idempotency key
	Type        string          `json:"type"` // Provider event type
	ProviderRef string          `json:"provider_ref,omitempty"` // Provider-side order reference
	CaptureRef  string          `json:"capture_ref,omitempty"`  // Provider-side capture reference
	OccurredAt  time.Time       `json:"occurred_at"`
	Raw         json.RawMessage `json:"raw,omitempty"`
}

// ProcessedEvent is one row in the append-only idempotency log. The log
// is purged by age to keep the set bounded; the purge horizon must
// exceed the provider's redelivery window.
type ProcessedEvent struct {
	types.Entity
	ID   id.WebhookEventID `json:"id"`
	Key  string            `json:"key"`
	Type string            `json:"type"`
}

// PendingEvent is a verified event that matched no order when it
// arrived. It is retried a bounded number of times, then flagged for
// reconciliation.
type PendingEvent struct {
	types.Entity
	ID             id.WebhookEventID `json:"id"`
	Key            string            `json:"key"`
	Type           string            `json:"type"`
	ProviderRef    string            `json:"provider_ref,omitempty"`
	CaptureRef     string            `json:"capture_ref,omitempty"`
	Raw            json.RawMessage   `json:"raw,omitempty"`
	Attempts       int               `json:"attempts"`
	LastError      string            `json:"last_error,omitempty"`
	Reconciliation bool              `json:"reconciliation"` // Retries exhausted; operator attention needed
}

// ToEvent rebuilds the envelope for a retry attempt.
func (p *PendingEvent) ToEvent() *Event {
	return &Event{
		Key:         p.Key,
		Type:        p.Type,
		ProviderRef: p.ProviderRef,
		CaptureRef:  p.CaptureRef,
		Raw:         p.Raw,
	}
}
