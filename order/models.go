// Package order defines purchase orders and their lifecycle state machine.
package order

import (
	"errors"
	"fmt"
	"time"

	"github.com/velora/vault/id"
	"github.com/velora/vault/types"
)

// ErrInvalidTransition is returned when an order status change is not
// permitted by the lifecycle graph.
var ErrInvalidTransition = errors.New("vault: invalid order transition")

// Status is an order lifecycle state. The graph is closed: only the
// transitions listed in allowedTransitions are legal, everything else
// is rejected.
type Status string

const (
	StatusCreated         Status = "created"
	StatusAwaitingPayment Status = "awaiting_payment"
	StatusPaid            Status = "paid"
	StatusFulfilled       Status = "fulfilled"
	StatusExpired         Status = "expired"
	StatusFailed          Status = "failed"
)

// allowedTransitions is the closed lifecycle graph. Paid only moves
// forward: once the payment is captured the order can no longer fail,
// it stays paid until fulfillment lands.
var allowedTransitions = map[Status][]Status{
	StatusCreated:         {StatusAwaitingPayment, StatusExpired, StatusFailed},
	StatusAwaitingPayment: {StatusPaid, StatusExpired, StatusFailed},
	StatusPaid:            {StatusFulfilled},
	StatusFulfilled:       {},
	StatusExpired:         {},
	StatusFailed:          {},
}

// Terminal reports whether s is a terminal state.
func (s Status) Terminal() bool {
	next, ok := allowedTransitions[s]
	return ok && len(next) == 0
}

// Valid reports whether s is a known status value.
func (s Status) Valid() bool {
	_, ok := allowedTransitions[s]
	return ok
}

// CanTransition reports whether the move from s to target is legal.
func (s Status) CanTransition(target Status) bool {
	for _, next := range allowedTransitions[s] {
		if next == target {
			return true
		}
	}
	return false
}

// ItemKind identifies what an order purchases.
type ItemKind string

const (
	ItemImage         ItemKind = "image"
	ItemSubscription  ItemKind = "subscription"
	ItemCustomRequest ItemKind = "custom_request"
)

// Order is a single purchase attempt. Price is the quote computed at
// checkout time; it never changes after creation.
type Order struct {
	types.Entity
	ID             id.OrderID `json:"id"`
	UserID         id.UserID  `json:"user_id"`
	Kind           ItemKind   `json:"kind"`
	ImageID        id.ImageID `json:"image_id,omitempty"`
	SubscriptionID id.SubscriptionID `json:"subscription_id,omitempty"`
	RequestID      id.CustomRequestID `json:"request_id,omitempty"`
	Status         Status      `json:"status"`
	Price          types.Money `json:"price"`
	FlashSaleID    id.FlashSaleID `json:"flash_sale_id,omitempty"` // Sale applied to the quote
	ProviderRef    string      `json:"provider_ref,omitempty"`     // Provider-side order id
	CaptureRef     string      `json:"capture_ref,omitempty"`      // Provider-side capture id
	IdempotencyKey string      `json:"idempotency_key"`
	PaidAt         *time.Time  `json:"paid_at,omitempty"`
	FulfilledAt    *time.Time  `json:"fulfilled_at,omitempty"`
	FailReason     string      `json:"fail_reason,omitempty"`
	Metadata       map[string]string `json:"metadata,omitempty"`
}

// Transition moves the order to target, validating against the
// lifecycle graph and stamping PaidAt/FulfilledAt.
func (o *Order) Transition(target Status) error {
	if !o.Status.CanTransition(target) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, o.Status, target)
	}

	now := time.Now().UTC()
	switch target {
	case StatusPaid:
		o.PaidAt = &now
	case StatusFulfilled:
		o.FulfilledAt = &now
	}
	o.Status = target
	o.Touch()

	return nil
}
