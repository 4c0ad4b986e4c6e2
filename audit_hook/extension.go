// Package audithook bridges Vault lifecycle events to an audit trail backend.
//
// It defines a local Recorder interface so the package does not import
// Chronicle directly. Callers inject a RecorderFunc adapter that bridges
// to Chronicle at wiring time.
package audithook

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/velora/vault/plugin"
)

// Compile-time interface checks.
var (
	_ plugin.Plugin                   = (*Extension)(nil)
	_ plugin.OnOrderCreated           = (*Extension)(nil)
	_ plugin.OnOrderPaid              = (*Extension)(nil)
	_ plugin.OnOrderFulfilled         = (*Extension)(nil)
	_ plugin.OnOrderExpired           = (*Extension)(nil)
	_ plugin.OnOrderFailed            = (*Extension)(nil)
	_ plugin.OnSubscriptionActivated  = (*Extension)(nil)
	_ plugin.OnSubscriptionExpired    = (*Extension)(nil)
	_ plugin.OnFlashSaleStarted       = (*Extension)(nil)
	_ plugin.OnFlashSaleExpired       = (*Extension)(nil)
	_ plugin.OnDripDelivered          = (*Extension)(nil)
	_ plugin.OnPointsCredited         = (*Extension)(nil)
	_ plugin.OnPointsRedeemed         = (*Extension)(nil)
	_ plugin.OnTierChanged            = (*Extension)(nil)
	_ plugin.OnWebhookReceived        = (*Extension)(nil)
	_ plugin.OnWebhookDuplicate       = (*Extension)(nil)
	_ plugin.OnReconciliationRequired = (*Extension)(nil)
	_ plugin.OnSafetyViolation        = (*Extension)(nil)
)

// Recorder is the interface that audit backends must implement.
// This matches chronicle.Emitter but is defined locally so that the
// audit_hook package does not import Chronicle directly — callers inject
// the concrete *chronicle.Chronicle at wiring time.
type Recorder interface {
	Record(ctx context.Context, event *AuditEvent) error
}

// AuditEvent is a local representation of an audit event.
// It mirrors chronicle/audit.Event but avoids a module dependency.
type AuditEvent struct {
	Action     string         `json:"action"`
	Resource   string         `json:"resource"`
	Category   string         `json:"category"`
	ResourceID string         `json:"resource_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Outcome    string         `json:"outcome"`
	Severity   string         `json:"severity"`
	Reason     string         `json:"reason,omitempty"`
}

// RecorderFunc is an adapter to use a plain function as a Recorder.
type RecorderFunc func(ctx context.Context, event *AuditEvent) error

// Record implements Recorder.
func (f RecorderFunc) Record(ctx context.Context, event *AuditEvent) error {
	return f(ctx, event)
}

// Extension bridges Vault lifecycle events to an audit trail backend.
type Extension struct {
	recorder Recorder
	enabled  map[string]bool // nil = all enabled
	logger   *slog.Logger
}

// New creates an Extension that emits audit events through the provided Recorder.
func New(r Recorder, opts ...Option) *Extension {
	e := &Extension{
		recorder: r,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements plugin.Plugin.
func (e *Extension) Name() string { return "audit-hook" }

// ──────────────────────────────────────────────────
// Order lifecycle hooks
// ──────────────────────────────────────────────────

// OnOrderCreated implements plugin.OnOrderCreated.
func (e *Extension) OnOrderCreated(ctx context.Context, _ interface{}) error {
	return e.record(ctx, ActionOrderCreated, SeverityInfo, OutcomeSuccess,
		ResourceOrder, "", CategoryCommerce, nil,
		"event", "order_created",
	)
}

// OnOrderPaid implements plugin.OnOrderPaid.
func (e *Extension) OnOrderPaid(ctx context.Context, _ interface{}) error {
	return e.record(ctx, ActionOrderPaid, SeverityInfo, OutcomeSuccess,
		ResourceOrder, "", CategoryPayment, nil,
		"event", "order_paid",
	)
}

// OnOrderFulfilled implements plugin.OnOrderFulfilled.
func (e *Extension) OnOrderFulfilled(ctx context.Context, _ interface{}) error {
	return e.record(ctx, ActionOrderFulfilled, SeverityInfo, OutcomeSuccess,
		ResourceOrder, "", CategoryCommerce, nil,
		"event", "order_fulfilled",
	)
}

// OnOrderExpired implements plugin.OnOrderExpired.
func (e *Extension) OnOrderExpired(ctx context.Context, orderID string) error {
	return e.record(ctx, ActionOrderExpired, SeverityInfo, OutcomeSuccess,
		ResourceOrder, orderID, CategoryCommerce, nil,
		"order_id", orderID,
	)
}

// OnOrderFailed implements plugin.OnOrderFailed.
func (e *Extension) OnOrderFailed(ctx context.Context, _ interface{}, reason string) error {
	return e.record(ctx, ActionOrderFailed, SeverityError, OutcomeFailure,
		ResourceOrder, "", CategoryPayment, nil,
		"event", "order_failed",
		"fail_reason", reason,
	)
}

// ──────────────────────────────────────────────────
// Subscription lifecycle hooks
// ──────────────────────────────────────────────────

// OnSubscriptionActivated implements plugin.OnSubscriptionActivated.
func (e *Extension) OnSubscriptionActivated(ctx context.Context, _ interface{}) error {
	return e.record(ctx, ActionSubscriptionActivated, SeverityInfo, OutcomeSuccess,
		ResourceSubscription, "", CategoryCommerce, nil,
		"event", "subscription_activated",
	)
}

// OnSubscriptionExpired implements plugin.OnSubscriptionExpired.
func (e *Extension) OnSubscriptionExpired(ctx context.Context, _ interface{}) error {
	return e.record(ctx, ActionSubscriptionExpired, SeverityInfo, OutcomeSuccess,
		ResourceSubscription, "", CategoryCommerce, nil,
		"event", "subscription_expired",
	)
}

// ──────────────────────────────────────────────────
// Promotion hooks
// ──────────────────────────────────────────────────

// OnFlashSaleStarted implements plugin.OnFlashSaleStarted.
func (e *Extension) OnFlashSaleStarted(ctx context.Context, _ interface{}) error {
	return e.record(ctx, ActionFlashSaleStarted, SeverityInfo, OutcomeSuccess,
		ResourceFlashSale, "", CategoryPromotion, nil,
		"event", "flash_sale_started",
	)
}

// OnFlashSaleExpired implements plugin.OnFlashSaleExpired.
func (e *Extension) OnFlashSaleExpired(ctx context.Context, _ interface{}) error {
	return e.record(ctx, ActionFlashSaleExpired, SeverityInfo, OutcomeSuccess,
		ResourceFlashSale, "", CategoryPromotion, nil,
		"event", "flash_sale_expired",
	)
}

// OnDripDelivered implements plugin.OnDripDelivered.
func (e *Extension) OnDripDelivered(ctx context.Context, _ interface{}) error {
	return e.record(ctx, ActionDripDelivered, SeverityInfo, OutcomeSuccess,
		ResourceDrip, "", CategoryPromotion, nil,
		"event", "drip_delivered",
	)
}

// ──────────────────────────────────────────────────
// Loyalty hooks
// ──────────────────────────────────────────────────

// OnPointsCredited implements plugin.OnPointsCredited.
func (e *Extension) OnPointsCredited(ctx context.Context, userID string, delta, balance int64) error {
	return e.record(ctx, ActionPointsCredited, SeverityInfo, OutcomeSuccess,
		ResourceUser, userID, CategoryLoyalty, nil,
		"user_id", userID,
		"delta", delta,
		"balance", balance,
	)
}

// OnPointsRedeemed implements plugin.OnPointsRedeemed.
func (e *Extension) OnPointsRedeemed(ctx context.Context, userID string, delta, balance int64) error {
	return e.record(ctx, ActionPointsRedeemed, SeverityInfo, OutcomeSuccess,
		ResourceUser, userID, CategoryLoyalty, nil,
		"user_id", userID,
		"delta", delta,
		"balance", balance,
	)
}

// OnTierChanged implements plugin.OnTierChanged.
func (e *Extension) OnTierChanged(ctx context.Context, userID, oldTier, newTier string) error {
	return e.record(ctx, ActionTierChanged, SeverityInfo, OutcomeSuccess,
		ResourceUser, userID, CategoryLoyalty, nil,
		"user_id", userID,
		"old_tier", oldTier,
		"new_tier", newTier,
	)
}

// ──────────────────────────────────────────────────
// Webhook hooks
// ──────────────────────────────────────────────────

// OnWebhookReceived implements plugin.OnWebhookReceived.
func (e *Extension) OnWebhookReceived(ctx context.Context, eventType, key string) error {
	return e.record(ctx, ActionWebhookReceived, SeverityInfo, OutcomeSuccess,
		ResourceWebhook, key, CategoryPayment, nil,
		"event_type", eventType,
		"event_key", key,
	)
}

// OnWebhookDuplicate implements plugin.OnWebhookDuplicate.
func (e *Extension) OnWebhookDuplicate(ctx context.Context, eventType, key string) error {
	return e.record(ctx, ActionWebhookDuplicate, SeverityInfo, OutcomeSuccess,
		ResourceWebhook, key, CategoryPayment, nil,
		"event_type", eventType,
		"event_key", key,
	)
}

// OnReconciliationRequired implements plugin.OnReconciliationRequired.
func (e *Extension) OnReconciliationRequired(ctx context.Context, key, reason string) error {
	return e.record(ctx, ActionReconciliationFlagged, SeverityCritical, OutcomeFailure,
		ResourceWebhook, key, CategoryPayment, nil,
		"event_key", key,
		"reason", reason,
	)
}

// ──────────────────────────────────────────────────
// Safety hooks
// ──────────────────────────────────────────────────

// OnSafetyViolation implements plugin.OnSafetyViolation.
func (e *Extension) OnSafetyViolation(ctx context.Context, imageID, surface string) error {
	return e.record(ctx, ActionSafetyViolation, SeverityWarning, OutcomeFailure,
		ResourceImage, imageID, CategorySafety, nil,
		"image_id", imageID,
		"surface", surface,
	)
}

// ──────────────────────────────────────────────────
// Internal helpers
// ──────────────────────────────────────────────────

// record builds and sends an audit event if the action is enabled.
func (e *Extension) record(
	ctx context.Context,
	action, severity, outcome string,
	resource, resourceID, category string,
	err error,
	kvPairs ...any,
) error {
	if e.enabled != nil && !e.enabled[action] {
		return nil
	}

	meta := make(map[string]any, len(kvPairs)/2+1)
	for i := 0; i+1 < len(kvPairs); i += 2 {
		key, ok := kvPairs[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kvPairs[i])
		}
		meta[key] = kvPairs[i+1]
	}

	var reason string
	if err != nil {
		reason = err.Error()
		meta["error"] = err.Error()
	}

	evt := &AuditEvent{
		Action:     action,
		Resource:   resource,
		Category:   category,
		ResourceID: resourceID,
		Metadata:   meta,
		Outcome:    outcome,
		Severity:   severity,
		Reason:     reason,
	}

	if recErr := e.recorder.Record(ctx, evt); recErr != nil {
		e.logger.Warn("audit_hook: failed to record audit event",
			"action", action,
			"resource_id", resourceID,
			"error", recErr,
		)
	}
	return nil
}
