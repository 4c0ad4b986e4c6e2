// Package observability provides a metrics extension for Vault that records
// lifecycle event counts via go-utils MetricFactory.
package observability

import (
	"context"

	"github.com/velora/vault/plugin"
)

// Ensure MetricsExtension implements required interfaces.
var (
	_ plugin.Plugin                   = (*MetricsExtension)(nil)
	_ plugin.OnInit                   = (*MetricsExtension)(nil)
	_ plugin.OnOrderCreated           = (*MetricsExtension)(nil)
	_ plugin.OnOrderPaid              = (*MetricsExtension)(nil)
	_ plugin.OnOrderFulfilled         = (*MetricsExtension)(nil)
	_ plugin.OnOrderExpired           = (*MetricsExtension)(nil)
	_ plugin.OnOrderFailed            = (*MetricsExtension)(nil)
	_ plugin.OnSubscriptionActivated  = (*MetricsExtension)(nil)
	_ plugin.OnSubscriptionExpired    = (*MetricsExtension)(nil)
	_ plugin.OnFlashSaleStarted       = (*MetricsExtension)(nil)
	_ plugin.OnFlashSaleExpired       = (*MetricsExtension)(nil)
	_ plugin.OnDripDelivered          = (*MetricsExtension)(nil)
	_ plugin.OnPointsCredited         = (*MetricsExtension)(nil)
	_ plugin.OnPointsRedeemed         = (*MetricsExtension)(nil)
	_ plugin.OnTierChanged            = (*MetricsExtension)(nil)
	_ plugin.OnWebhookReceived        = (*MetricsExtension)(nil)
	_ plugin.OnWebhookDuplicate       = (*MetricsExtension)(nil)
	_ plugin.OnReconciliationRequired = (*MetricsExtension)(nil)
	_ plugin.OnSafetyViolation        = (*MetricsExtension)(nil)
)

// Counter interface for metric counters.
type Counter interface {
	Inc()
	Add(float64)
}

// Histogram interface for metric histograms.
type Histogram interface {
	Observe(float64)
}

// MetricFactory creates metrics.
type MetricFactory interface {
	Counter(name string) Counter
	Histogram(name string) Histogram
}

// MetricsExtension records system-wide lifecycle metrics.
// Register it as a Vault plugin to automatically track commerce metrics.
type MetricsExtension struct {
	factory MetricFactory

	// Order metrics
	OrderCreated   Counter
	OrderPaid      Counter
	OrderFulfilled Counter
	OrderExpired   Counter
	OrderFailed    Counter

	// Subscription metrics
	SubscriptionActivated Counter
	SubscriptionExpired   Counter

	// Promotion metrics
	FlashSaleStarted Counter
	FlashSaleExpired Counter
	DripDelivered    Counter

	// Loyalty metrics
	PointsCredited     Counter
	PointsRedeemed     Counter
	PointsCreditVolume Histogram
	TierChanged        Counter

	// Webhook metrics
	WebhookReceived       Counter
	WebhookDuplicate      Counter
	ReconciliationFlagged Counter

	// Safety metrics
	SafetyViolations Counter

	// Error metrics
	StoreErrors  Counter
	PluginErrors Counter
}

// NewMetricsExtension creates a MetricsExtension with the provided MetricFactory.
// Use app.Metrics() in forge extensions.
func NewMetricsExtension(factory MetricFactory) *MetricsExtension {
	return &MetricsExtension{
		factory: factory,

		// Order metrics
		OrderCreated:   factory.Counter("vault.order.created"),
		OrderPaid:      factory.Counter("vault.order.paid"),
		OrderFulfilled: factory.Counter("vault.order.fulfilled"),
		OrderExpired:   factory.Counter("vault.order.expired"),
		OrderFailed:    factory.Counter("vault.order.failed"),

		// Subscription metrics
		SubscriptionActivated: factory.Counter("vault.subscription.activated"),
		SubscriptionExpired:   factory.Counter("vault.subscription.expired"),

		// Promotion metrics
		FlashSaleStarted: factory.Counter("vault.flash_sale.started"),
		FlashSaleExpired: factory.Counter("vault.flash_sale.expired"),
		DripDelivered:    factory.Counter("vault.drip.delivered"),

		// Loyalty metrics
		PointsCredited:     factory.Counter("vault.points.credited"),
		PointsRedeemed:     factory.Counter("vault.points.redeemed"),
		PointsCreditVolume: factory.Histogram("vault.points.credit_volume"),
		TierChanged:        factory.Counter("vault.tier.changed"),

		// Webhook metrics
		WebhookReceived:       factory.Counter("vault.webhook.received"),
		WebhookDuplicate:      factory.Counter("vault.webhook.duplicate"),
		ReconciliationFlagged: factory.Counter("vault.webhook.reconciliation_flagged"),

		// Safety metrics
		SafetyViolations: factory.Counter("vault.safety.violations"),

		// Error metrics
		StoreErrors:  factory.Counter("vault.store.errors"),
		PluginErrors: factory.Counter("vault.plugin.errors"),
	}
}

// Name implements plugin.Plugin.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// OnInit implements plugin.OnInit.
func (m *MetricsExtension) OnInit(_ context.Context, _ interface{}) error {
	// No initialization needed
	return nil
}

// ──────────────────────────────────────────────────
// Order lifecycle hooks
// ──────────────────────────────────────────────────

// OnOrderCreated implements plugin.OnOrderCreated.
func (m *MetricsExtension) OnOrderCreated(_ context.Context, _ interface{}) error {
	m.OrderCreated.Inc()
	return nil
}

// OnOrderPaid implements plugin.OnOrderPaid.
func (m *MetricsExtension) OnOrderPaid(_ context.Context, _ interface{}) error {
	m.OrderPaid.Inc()
	return nil
}

// OnOrderFulfilled implements plugin.OnOrderFulfilled.
func (m *MetricsExtension) OnOrderFulfilled(_ context.Context, _ interface{}) error {
	m.OrderFulfilled.Inc()
	return nil
}

// OnOrderExpired implements plugin.OnOrderExpired.
func (m *MetricsExtension) OnOrderExpired(_ context.Context, _ string) error {
	m.OrderExpired.Inc()
	return nil
}

// OnOrderFailed implements plugin.OnOrderFailed.
func (m *MetricsExtension) OnOrderFailed(_ context.Context, _ interface{}, _ string) error {
	m.OrderFailed.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Subscription lifecycle hooks
// ──────────────────────────────────────────────────

// OnSubscriptionActivated implements plugin.OnSubscriptionActivated.
func (m *MetricsExtension) OnSubscriptionActivated(_ context.Context, _ interface{}) error {
	m.SubscriptionActivated.Inc()
	return nil
}

// OnSubscriptionExpired implements plugin.OnSubscriptionExpired.
func (m *MetricsExtension) OnSubscriptionExpired(_ context.Context, _ interface{}) error {
	m.SubscriptionExpired.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Promotion hooks
// ──────────────────────────────────────────────────

// OnFlashSaleStarted implements plugin.OnFlashSaleStarted.
func (m *MetricsExtension) OnFlashSaleStarted(_ context.Context, _ interface{}) error {
	m.FlashSaleStarted.Inc()
	return nil
}

// OnFlashSaleExpired implements plugin.OnFlashSaleExpired.
func (m *MetricsExtension) OnFlashSaleExpired(_ context.Context, _ interface{}) error {
	m.FlashSaleExpired.Inc()
	return nil
}

// OnDripDelivered implements plugin.OnDripDelivered.
func (m *MetricsExtension) OnDripDelivered(_ context.Context, _ interface{}) error {
	m.DripDelivered.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Loyalty hooks
// ──────────────────────────────────────────────────

// OnPointsCredited implements plugin.OnPointsCredited.
func (m *MetricsExtension) OnPointsCredited(_ context.Context, _ string, delta, _ int64) error {
	m.PointsCredited.Inc()
	m.PointsCreditVolume.Observe(float64(delta))
	return nil
}

// OnPointsRedeemed implements plugin.OnPointsRedeemed.
func (m *MetricsExtension) OnPointsRedeemed(_ context.Context, _ string, _, _ int64) error {
	m.PointsRedeemed.Inc()
	return nil
}

// OnTierChanged implements plugin.OnTierChanged.
func (m *MetricsExtension) OnTierChanged(_ context.Context, _, _, _ string) error {
	m.TierChanged.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Webhook hooks
// ──────────────────────────────────────────────────

// OnWebhookReceived implements plugin.OnWebhookReceived.
func (m *MetricsExtension) OnWebhookReceived(_ context.Context, _, _ string) error {
	m.WebhookReceived.Inc()
	return nil
}

// OnWebhookDuplicate implements plugin.OnWebhookDuplicate.
func (m *MetricsExtension) OnWebhookDuplicate(_ context.Context, _, _ string) error {
	m.WebhookDuplicate.Inc()
	return nil
}

// OnReconciliationRequired implements plugin.OnReconciliationRequired.
func (m *MetricsExtension) OnReconciliationRequired(_ context.Context, _, _ string) error {
	m.ReconciliationFlagged.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Safety hooks
// ──────────────────────────────────────────────────

// OnSafetyViolation implements plugin.OnSafetyViolation.
func (m *MetricsExtension) OnSafetyViolation(_ context.Context, _, _ string) error {
	m.SafetyViolations.Inc()
	return nil
}
