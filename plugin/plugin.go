// Package plugin provides an extensible plugin system for Vault.
// Plugins can hook into various lifecycle events to extend functionality.
package plugin

import (
	"context"
)

// Plugin is the base interface that all plugins must implement.
type Plugin interface {
	Name() string
}

// ──────────────────────────────────────────────────
// Lifecycle hooks
// ──────────────────────────────────────────────────

// OnInit is called when the plugin is initialized.
type OnInit interface {
	Plugin
	OnInit(ctx context.Context, engine interface{}) error
}

// OnShutdown is called when the plugin is shutting down.
type OnShutdown interface {
	Plugin
	OnShutdown(ctx context.Context) error
}

// ──────────────────────────────────────────────────
// Order lifecycle hooks
// ──────────────────────────────────────────────────

// OnOrderCreated is called when a checkout opens a new order.
type OnOrderCreated interface {
	Plugin
	OnOrderCreated(ctx context.Context, ord interface{}) error
}

// OnOrderPaid is called when payment is confirmed for an order.
type OnOrderPaid interface {
	Plugin
	OnOrderPaid(ctx context.Context, ord interface{}) error
}

// OnOrderFulfilled is called when an order's entitlements are granted
// and delivery has been dispatched.
type OnOrderFulfilled interface {
	Plugin
	OnOrderFulfilled(ctx context.Context, ord interface{}) error
}

// OnOrderExpired is called when an unpaid order times out.
type OnOrderExpired interface {
	Plugin
	OnOrderExpired(ctx context.Context, orderID string) error
}

// OnOrderFailed is called when an order fails terminally.
type OnOrderFailed interface {
	Plugin
	OnOrderFailed(ctx context.Context, ord interface{}, reason string) error
}

// ──────────────────────────────────────────────────
// Subscription lifecycle hooks
// ──────────────────────────────────────────────────

// OnSubscriptionActivated is called when a paid subscription window opens.
type OnSubscriptionActivated interface {
	Plugin
	OnSubscriptionActivated(ctx context.Context, sub interface{}) error
}

// OnSubscriptionExpired is called when a subscription window closes.
type OnSubscriptionExpired interface {
	Plugin
	OnSubscriptionExpired(ctx context.Context, sub interface{}) error
}

// ──────────────────────────────────────────────────
// Promotion hooks
// ──────────────────────────────────────────────────

// OnFlashSaleStarted is called when the scheduler announces a sale.
type OnFlashSaleStarted interface {
	Plugin
	OnFlashSaleStarted(ctx context.Context, sale interface{}) error
}

// OnFlashSaleExpired is called when a sale window closes.
type OnFlashSaleExpired interface {
	Plugin
	OnFlashSaleExpired(ctx context.Context, sale interface{}) error
}

// OnDripDelivered is called when a drip release goes out.
type OnDripDelivered interface {
	Plugin
	OnDripDelivered(ctx context.Context, schedule interface{}) error
}

// ──────────────────────────────────────────────────
// Loyalty hooks
// ──────────────────────────────────────────────────

// OnPointsCredited is called when points are credited to a user.
type OnPointsCredited interface {
	Plugin
	OnPointsCredited(ctx context.Context, userID string, delta int64, balance int64) error
}

// OnPointsRedeemed is called when a redemption debits points.
type OnPointsRedeemed interface {
	Plugin
	OnPointsRedeemed(ctx context.Context, userID string, delta int64, balance int64) error
}

// OnTierChanged is called when a user's tier moves in either direction.
type OnTierChanged interface {
	Plugin
	OnTierChanged(ctx context.Context, userID string, oldTier, newTier string) error
}

// ──────────────────────────────────────────────────
// Webhook hooks
// ──────────────────────────────────────────────────

// OnWebhookReceived is called for every verified webhook event before
// dispatch.
type OnWebhookReceived interface {
	Plugin
	OnWebhookReceived(ctx context.Context, eventType string, key string) error
}

// OnWebhookDuplicate is called when a replayed event is deduplicated.
type OnWebhookDuplicate interface {
	Plugin
	OnWebhookDuplicate(ctx context.Context, eventType string, key string) error
}

// OnReconciliationRequired is called when an event exhausts its retries
// or money moved for an order the engine can't absorb.
type OnReconciliationRequired interface {
	Plugin
	OnReconciliationRequired(ctx context.Context, key string, reason string) error
}

// ──────────────────────────────────────────────────
// Safety hooks
// ──────────────────────────────────────────────────

// OnSafetyViolation is called when the content guard blocks a public
// posting attempt.
type OnSafetyViolation interface {
	Plugin
	OnSafetyViolation(ctx context.Context, imageID string, surface string) error
}
