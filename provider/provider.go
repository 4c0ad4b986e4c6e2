// Package provider defines the payment provider capability.
//
// The engine never talks to a provider SDK directly; it depends on this
// interface and an adapter (e.g. provider/paypal) is injected at
// construction.
package provider

import (
	"context"
	"errors"

	"github.com/velora/vault/id"
	"github.com/velora/vault/types"
)

// ErrUnavailable wraps provider transport failures. The operation can
// be retried later; no money moved.
var ErrUnavailable = errors.New("vault: payment provider unavailable")

// CheckoutRequest asks the provider to open a payment for one order.
type CheckoutRequest struct {
	OrderID        id.OrderID
	Amount         types.Money
	Description    string
	IdempotencyKey string
}

// Checkout is the provider's side of an opened payment.
type Checkout struct {
	ProviderRef string // Provider-side order reference
	ApproveURL  string // Where the buyer completes payment
}

// Provider is the payment capability the engine depends on.
type Provider interface {
	// CreateCheckout opens a payment. Implementations must pass the
	// idempotency key through so a retried checkout doesn't double-open.
	CreateCheckout(ctx context.Context, req CheckoutRequest) (*Checkout, error)

	// Capture settles an approved payment, returning the provider's
	// capture reference.
	Capture(ctx context.Context, providerRef string) (string, error)
}
