package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Registry manages all registered plugins and provides efficient dispatch.
// It uses type-cached discovery for O(1) dispatch performance.
type Registry struct {
	mu      sync.RWMutex
	plugins []Plugin
	logger  *slog.Logger

	// Type-cached plugin lists for efficient dispatch
	onInit                   []OnInit
	onShutdown               []OnShutdown
	onOrderCreated           []OnOrderCreated
	onOrderPaid              []OnOrderPaid
	onOrderFulfilled         []OnOrderFulfilled
	onOrderExpired           []OnOrderExpired
	onOrderFailed            []OnOrderFailed
	onSubscriptionActivated  []OnSubscriptionActivated
	onSubscriptionExpired    []OnSubscriptionExpired
	onFlashSaleStarted       []OnFlashSaleStarted
	onFlashSaleExpired       []OnFlashSaleExpired
	onDripDelivered          []OnDripDelivered
	onPointsCredited         []OnPointsCredited
	onPointsRedeemed         []OnPointsRedeemed
	onTierChanged            []OnTierChanged
	onWebhookReceived        []OnWebhookReceived
	onWebhookDuplicate       []OnWebhookDuplicate
	onReconciliationRequired []OnReconciliationRequired
	onSafetyViolation        []OnSafetyViolation
}

// NewRegistry creates a new plugin registry.
func NewRegistry() *Registry {
	return &Registry{logger: slog.Default()}
}

// WithLogger sets the logger for the registry.
func (r *Registry) WithLogger(logger *slog.Logger) *Registry {
	r.logger = logger
	return r
}

// Register adds a plugin to the registry and caches its interfaces.
func (r *Registry) Register(p Plugin) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Check for duplicate
	for _, existing := range r.plugins {
		if existing.Name() == p.Name() {
			return fmt.Errorf("plugin: duplicate registration: %s", p.Name())
		}
	}

	r.plugins = append(r.plugins, p)

	// Type-switch to cache interfaces
	if v, ok := p.(OnInit); ok {
		r.onInit = append(r.onInit, v)
	}
	if v, ok := p.(OnShutdown); ok {
		r.onShutdown = append(r.onShutdown, v)
	}
	if v, ok := p.(OnOrderCreated); ok {
		r.onOrderCreated = append(r.onOrderCreated, v)
	}
	if v, ok := p.(OnOrderPaid); ok {
		r.onOrderPaid = append(r.onOrderPaid, v)
	}
	if v, ok := p.(OnOrderFulfilled); ok {
		r.onOrderFulfilled = append(r.onOrderFulfilled, v)
	}
	if v, ok := p.(OnOrderExpired); ok {
		r.onOrderExpired = append(r.onOrderExpired, v)
	}
	if v, ok := p.(OnOrderFailed); ok {
		r.onOrderFailed = append(r.onOrderFailed, v)
	}
	if v, ok := p.(OnSubscriptionActivated); ok {
		r.onSubscriptionActivated = append(r.onSubscriptionActivated, v)
	}
	if v, ok := p.(OnSubscriptionExpired); ok {
		r.onSubscriptionExpired = append(r.onSubscriptionExpired, v)
	}
	if v, ok := p.(OnFlashSaleStarted); ok {
		r.onFlashSaleStarted = append(r.onFlashSaleStarted, v)
	}
	if v, ok := p.(OnFlashSaleExpired); ok {
		r.onFlashSaleExpired = append(r.onFlashSaleExpired, v)
	}
	if v, ok := p.(OnDripDelivered); ok {
		r.onDripDelivered = append(r.onDripDelivered, v)
	}
	if v, ok := p.(OnPointsCredited); ok {
		r.onPointsCredited = append(r.onPointsCredited, v)
	}
	if v, ok := p.(OnPointsRedeemed); ok {
		r.onPointsRedeemed = append(r.onPointsRedeemed, v)
	}
	if v, ok := p.(OnTierChanged); ok {
		r.onTierChanged = append(r.onTierChanged, v)
	}
	if v, ok := p.(OnWebhookReceived); ok {
		r.onWebhookReceived = append(r.onWebhookReceived, v)
	}
	if v, ok := p.(OnWebhookDuplicate); ok {
		r.onWebhookDuplicate = append(r.onWebhookDuplicate, v)
	}
	if v, ok := p.(OnReconciliationRequired); ok {
		r.onReconciliationRequired = append(r.onReconciliationRequired, v)
	}
	if v, ok := p.(OnSafetyViolation); ok {
		r.onSafetyViolation = append(r.onSafetyViolation, v)
	}

	r.logger.Info("plugin registered", "name", p.Name())

	return nil
}

// Get returns a plugin by name.
func (r *Registry) Get(name string) Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.plugins {
		if p.Name() == name {
			return p
		}
	}
	return nil
}

// List returns all registered plugins.
func (r *Registry) List() []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Plugin, len(r.plugins))
	copy(result, r.plugins)
	return result
}

// Count returns the number of registered plugins.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.plugins)
}

// ──────────────────────────────────────────────────
// Event emission methods
// ──────────────────────────────────────────────────

// emit runs fn for every cached plugin in ps, logging failures.
func emit[P Plugin](r *Registry, ctx context.Context, hook string, ps []P, fn func(P) error) {
	for _, p := range ps {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return fn(p)
		}); err != nil {
			r.logger.Warn("plugin hook failed",
				"hook", hook,
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitInit calls OnInit for all plugins that implement it.
func (r *Registry) EmitInit(ctx context.Context, engine interface{}) {
	r.mu.RLock()
	plugins := r.onInit
	r.mu.RUnlock()

	emit(r, ctx, "OnInit", plugins, func(p OnInit) error {
		return p.OnInit(ctx, engine)
	})
}

// EmitShutdown calls OnShutdown for all plugins that implement it.
func (r *Registry) EmitShutdown(ctx context.Context) {
	r.mu.RLock()
	plugins := r.onShutdown
	r.mu.RUnlock()

	emit(r, ctx, "OnShutdown", plugins, func(p OnShutdown) error {
		return p.OnShutdown(ctx)
	})
}

// EmitOrderCreated emits an order created event.
func (r *Registry) EmitOrderCreated(ctx context.Context, ord interface{}) {
	r.mu.RLock()
	plugins := r.onOrderCreated
	r.mu.RUnlock()

	emit(r, ctx, "OnOrderCreated", plugins, func(p OnOrderCreated) error {
		return p.OnOrderCreated(ctx, ord)
	})
}

// EmitOrderPaid emits an order paid event.
func (r *Registry) EmitOrderPaid(ctx context.Context, ord interface{}) {
	r.mu.RLock()
	plugins := r.onOrderPaid
	r.mu.RUnlock()

	emit(r, ctx, "OnOrderPaid", plugins, func(p OnOrderPaid) error {
		return p.OnOrderPaid(ctx, ord)
	})
}

// EmitOrderFulfilled emits an order fulfilled event.
func (r *Registry) EmitOrderFulfilled(ctx context.Context, ord interface{}) {
	r.mu.RLock()
	plugins := r.onOrderFulfilled
	r.mu.RUnlock()

	emit(r, ctx, "OnOrderFulfilled", plugins, func(p OnOrderFulfilled) error {
		return p.OnOrderFulfilled(ctx, ord)
	})
}

// EmitOrderExpired emits an order expired event.
func (r *Registry) EmitOrderExpired(ctx context.Context, orderID string) {
	r.mu.RLock()
	plugins := r.onOrderExpired
	r.mu.RUnlock()

	emit(r, ctx, "OnOrderExpired", plugins, func(p OnOrderExpired) error {
		return p.OnOrderExpired(ctx, orderID)
	})
}

// EmitOrderFailed emits an order failed event.
func (r *Registry) EmitOrderFailed(ctx context.Context, ord interface{}, reason string) {
	r.mu.RLock()
	plugins := r.onOrderFailed
	r.mu.RUnlock()

	emit(r, ctx, "OnOrderFailed", plugins, func(p OnOrderFailed) error {
		return p.OnOrderFailed(ctx, ord, reason)
	})
}

// EmitSubscriptionActivated emits a subscription activated event.
func (r *Registry) EmitSubscriptionActivated(ctx context.Context, sub interface{}) {
	r.mu.RLock()
	plugins := r.onSubscriptionActivated
	r.mu.RUnlock()

	emit(r, ctx, "OnSubscriptionActivated", plugins, func(p OnSubscriptionActivated) error {
		return p.OnSubscriptionActivated(ctx, sub)
	})
}

// EmitSubscriptionExpired emits a subscription expired event.
func (r *Registry) EmitSubscriptionExpired(ctx context.Context, sub interface{}) {
	r.mu.RLock()
	plugins := r.onSubscriptionExpired
	r.mu.RUnlock()

	emit(r, ctx, "OnSubscriptionExpired", plugins, func(p OnSubscriptionExpired) error {
		return p.OnSubscriptionExpired(ctx, sub)
	})
}

// EmitFlashSaleStarted emits a flash sale started event.
func (r *Registry) EmitFlashSaleStarted(ctx context.Context, sale interface{}) {
	r.mu.RLock()
	plugins := r.onFlashSaleStarted
	r.mu.RUnlock()

	emit(r, ctx, "OnFlashSaleStarted", plugins, func(p OnFlashSaleStarted) error {
		return p.OnFlashSaleStarted(ctx, sale)
	})
}

// EmitFlashSaleExpired emits a flash sale expired event.
func (r *Registry) EmitFlashSaleExpired(ctx context.Context, sale interface{}) {
	r.mu.RLock()
	plugins := r.onFlashSaleExpired
	r.mu.RUnlock()

	emit(r, ctx, "OnFlashSaleExpired", plugins, func(p OnFlashSaleExpired) error {
		return p.OnFlashSaleExpired(ctx, sale)
	})
}

// EmitDripDelivered emits a drip delivered event.
func (r *Registry) EmitDripDelivered(ctx context.Context, schedule interface{}) {
	r.mu.RLock()
	plugins := r.onDripDelivered
	r.mu.RUnlock()

	emit(r, ctx, "OnDripDelivered", plugins, func(p OnDripDelivered) error {
		return p.OnDripDelivered(ctx, schedule)
	})
}

// EmitPointsCredited emits a points credited event.
func (r *Registry) EmitPointsCredited(ctx context.Context, userID string, delta, balance int64) {
	r.mu.RLock()
	plugins := r.onPointsCredited
	r.mu.RUnlock()

	emit(r, ctx, "OnPointsCredited", plugins, func(p OnPointsCredited) error {
		return p.OnPointsCredited(ctx, userID, delta, balance)
	})
}

// EmitPointsRedeemed emits a points redeemed event.
func (r *Registry) EmitPointsRedeemed(ctx context.Context, userID string, delta, balance int64) {
	r.mu.RLock()
	plugins := r.onPointsRedeemed
	r.mu.RUnlock()

	emit(r, ctx, "OnPointsRedeemed", plugins, func(p OnPointsRedeemed) error {
		return p.OnPointsRedeemed(ctx, userID, delta, balance)
	})
}

// EmitTierChanged emits a tier changed event.
func (r *Registry) EmitTierChanged(ctx context.Context, userID, oldTier, newTier string) {
	r.mu.RLock()
	plugins := r.onTierChanged
	r.mu.RUnlock()

	emit(r, ctx, "OnTierChanged", plugins, func(p OnTierChanged) error {
		return p.OnTierChanged(ctx, userID, oldTier, newTier)
	})
}

// EmitWebhookReceived emits a webhook received event.
func (r *Registry) EmitWebhookReceived(ctx context.Context, eventType, key string) {
	r.mu.RLock()
	plugins := r.onWebhookReceived
	r.mu.RUnlock()

	emit(r, ctx, "OnWebhookReceived", plugins, func(p OnWebhookReceived) error {
		return p.OnWebhookReceived(ctx, eventType, key)
	})
}

// EmitWebhookDuplicate emits a webhook duplicate event.
func (r *Registry) EmitWebhookDuplicate(ctx context.Context, eventType, key string) {
	r.mu.RLock()
	plugins := r.onWebhookDuplicate
	r.mu.RUnlock()

	emit(r, ctx, "OnWebhookDuplicate", plugins, func(p OnWebhookDuplicate) error {
		return p.OnWebhookDuplicate(ctx, eventType, key)
	})
}

// EmitReconciliationRequired emits a reconciliation required event.
func (r *Registry) EmitReconciliationRequired(ctx context.Context, key, reason string) {
	r.mu.RLock()
	plugins := r.onReconciliationRequired
	r.mu.RUnlock()

	emit(r, ctx, "OnReconciliationRequired", plugins, func(p OnReconciliationRequired) error {
		return p.OnReconciliationRequired(ctx, key, reason)
	})
}

// EmitSafetyViolation emits a safety violation event.
func (r *Registry) EmitSafetyViolation(ctx context.Context, imageID, surface string) {
	r.mu.RLock()
	plugins := r.onSafetyViolation
	r.mu.RUnlock()

	emit(r, ctx, "OnSafetyViolation", plugins, func(p OnSafetyViolation) error {
		return p.OnSafetyViolation(ctx, imageID, surface)
	})
}

// callWithTimeout calls a plugin function with a timeout.
// Plugins should never block the purchase pipeline.
func (r *Registry) callWithTimeout(ctx context.Context, pluginName string, fn func() error) error {
	done := make(chan error, 1)

	go func() {
		done <- fn()
	}()

	select {
	case err := <-done:
		return err
	case <-time.After(5 * time.Second):
		return fmt.Errorf("plugin timeout: %s", pluginName)
	case <-ctx.Done():
		return ctx.Err()
	}
}
