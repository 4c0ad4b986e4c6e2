package vault

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/velora/vault/id"
	"github.com/velora/vault/order"
	"github.com/velora/vault/webhook"
)

// ──────────────────────────────────────────────────
// Webhook Handling
// ──────────────────────────────────────────────────

// HandleWebhook runs one provider delivery through the idempotent
// pipeline: verify, dedupe, dispatch. The transport layer passes the
// raw body and headers straight through.
//
// Returns ErrBadSignature when the delivery must be rejected and
// ErrDuplicateEvent when it should be acknowledged without effect.
func (e *Engine) HandleWebhook(ctx context.Context, payload []byte, headers map[string]string) error {
	return e.processor.Process(ctx, payload, headers)
}

// registerHandlers wires the canonical event types into the processor.
func (e *Engine) registerHandlers() {
	e.processor.Handle(webhook.TypeCheckoutApproved, e.handleCheckoutApproved)
	e.processor.Handle(webhook.TypeCaptureCompleted, e.handleCaptureCompleted)
}

// handleCheckoutApproved reacts to the buyer approving payment: find
// the order by provider reference and capture the funds. The capture
// response marks the order paid without waiting for the capture event.
func (e *Engine) handleCheckoutApproved(ctx context.Context, evt *webhook.Event) error {
	e.plugins.EmitWebhookReceived(ctx, evt.Type, evt.Key)

	ord, err := e.store.GetOrderByProviderRef(ctx, evt.ProviderRef)
	if err != nil {
		if IsNotFound(err) {
			return fmt.Errorf("%w: provider ref %s", webhook.ErrNoMatchingOrder, evt.ProviderRef)
		}
		return err
	}
	if ord.Status.Terminal() || ord.Status == order.StatusPaid {
		// Capture event or a prior delivery got here first.
		return nil
	}

	captureRef, err := e.provider.Capture(ctx, evt.ProviderRef)
	if err != nil {
		return fmt.Errorf("capture order %s: %w", ord.ID, err)
	}

	return e.recordPayment(ctx, ord.ID, captureRef)
}

// handleCaptureCompleted reacts to money moving at the provider. This
// is the authoritative payment signal: it also covers captures whose
// synchronous response was lost.
func (e *Engine) handleCaptureCompleted(ctx context.Context, evt *webhook.Event) error {
	e.plugins.EmitWebhookReceived(ctx, evt.Type, evt.Key)

	ord, err := e.store.GetOrderByProviderRef(ctx, evt.ProviderRef)
	if err != nil {
		if IsNotFound(err) {
			return fmt.Errorf("%w: provider ref %s", webhook.ErrNoMatchingOrder, evt.ProviderRef)
		}
		return err
	}

	return e.recordPayment(ctx, ord.ID, evt.CaptureRef)
}

// recordPayment marks an order paid and settles it. The paid mark is a
// compare-and-set from awaiting_payment; a lost race means someone
// already recorded this payment and settle is still safe to run
// because every settlement step is idempotent.
func (e *Engine) recordPayment(ctx context.Context, orderID id.OrderID, captureRef string) error {
	err := e.store.MarkOrderPaid(ctx, orderID, captureRef, time.Now().UTC())
	if err != nil && !errors.Is(err, order.ErrInvalidTransition) {
		return err
	}

	ord, getErr := e.store.GetOrder(ctx, orderID)
	if getErr != nil {
		return getErr
	}

	if err != nil {
		switch ord.Status {
		case order.StatusPaid, order.StatusFulfilled:
			// Already recorded; fall through to settle.
		case order.StatusExpired, order.StatusFailed:
			// Money moved for an order we gave up on. Park it for an
			// operator instead of guessing.
			e.logger.Error("payment arrived for closed order", "order_id", ord.ID, "status", ord.Status)
			e.plugins.EmitReconciliationRequired(ctx, ord.ID.String(), fmt.Sprintf("payment for %s order", ord.Status))
			return nil
		default:
			return err
		}
	} else {
		e.plugins.EmitOrderPaid(ctx, ord)
	}

	return e.settle(ctx, ord)
}
