package webhook

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Verifier authenticates a raw webhook delivery and extracts the event
// envelope. Implementations live next to their payment provider.
type Verifier interface {
	Verify(ctx context.Context, payload []byte, headers map[string]string) (*Event, error)
}

// Handler processes one verified event type. Returning
// ErrNoMatchingOrder queues the event for retry; any other error fails
// the delivery so the provider redelivers.
type Handler func(ctx context.Context, evt *Event) error

// Processor is the idempotent webhook pipeline: verify, dedupe,
// dispatch. Every accepted event is processed at most once regardless
// of provider redelivery.
type Processor struct {
	verifier   Verifier
	store      Store
	handlers   map[string]Handler
	retryLimit int
	logger     *slog.Logger

	// OnDuplicate and OnReconciliation, when set, observe dedupe hits
	// and retry exhaustion. Used to feed lifecycle plugins.
	OnDuplicate      func(ctx context.Context, evt *Event)
	OnReconciliation func(ctx context.Context, p *PendingEvent)
}

// NewProcessor builds a Processor. retryLimit bounds how many times an
// unmatched event is retried before being flagged for reconciliation.
func NewProcessor(verifier Verifier, store Store, retryLimit int, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}

	return &Processor{
		verifier:   verifier,
		store:      store,
		handlers:   make(map[string]Handler),
		retryLimit: retryLimit,
		logger:     logger,
	}
}

// Handle registers a handler for an event type. Events with no
// registered handler are acknowledged and dropped.
func (p *Processor) Handle(eventType string, h Handler) {
	p.handlers[eventType] = h
}

// Process runs one delivery through the pipeline.
//
// Returns ErrBadSignature if verification fails (reject the delivery),
// ErrDuplicateEvent if the key was seen before (acknowledge, no-op),
// and nil when the event was processed or queued for retry.
func (p *Processor) Process(ctx context.Context, payload []byte, headers map[string]string) error {
	evt, err := p.verifier.Verify(ctx, payload, headers)
	if err != nil {
		p.logger.Warn("webhook verification failed", "error", err)
		return fmt.Errorf("%w: %v", ErrBadSignature, err)
	}

	fresh, err := p.store.CheckAndRecord(ctx, evt.Key, evt.Type)
	if err != nil {
		return fmt.Errorf("webhook: record event %s: %w", evt.Key, err)
	}
	if !fresh {
		p.logger.Info("duplicate webhook event", "key", evt.Key, "type", evt.Type)
		if p.OnDuplicate != nil {
			p.OnDuplicate(ctx, evt)
		}
		return ErrDuplicateEvent
	}

	handler, ok := p.handlers[evt.Type]
	if !ok {
		// Unknown types are acknowledged so the provider stops redelivering.
		p.logger.Debug("ignoring webhook event type", "type", evt.Type, "key", evt.Key)
		return nil
	}

	if err := p.dispatch(ctx, handler, evt); err != nil {
		return err
	}

	p.logger.Info("webhook event processed", "key", evt.Key, "type", evt.Type)
	return nil
}

// dispatch runs a handler, diverting unmatched events into the pending
// queue instead of failing the delivery.
func (p *Processor) dispatch(ctx context.Context, handler Handler, evt *Event) error {
	err := handler(ctx, evt)
	if err == nil {
		return nil
	}
	if !errors.Is(err, ErrNoMatchingOrder) {
		return fmt.Errorf("webhook: handle %s event %s: %w", evt.Type, evt.Key, err)
	}

	pending := &PendingEvent{
		Key:         evt.Key,
		Type:        evt.Type,
		ProviderRef: evt.ProviderRef,
		CaptureRef:  evt.CaptureRef,
		Raw:         evt.Raw,
	}
	if qErr := p.store.EnqueuePending(ctx, pending); qErr != nil {
		return fmt.Errorf("webhook: queue unmatched event %s: %w", evt.Key, qErr)
	}

	p.logger.Warn("webhook event matched no order, queued for retry",
		"key", evt.Key, "type", evt.Type, "provider_ref", evt.ProviderRef)
	return nil
}

// RetryPending re-dispatches queued events. Events exceeding the retry
// limit are flagged reconciliation-required and kept for operators.
// Called from the scheduler on its own cadence.
func (p *Processor) RetryPending(ctx context.Context) error {
	pending, err := p.store.ListPending(ctx, 100)
	if err != nil {
		return fmt.Errorf("webhook: list pending: %w", err)
	}

	for _, pe := range pending {
		if pe.Reconciliation {
			continue
		}

		handler, ok := p.handlers[pe.Type]
		if !ok {
			// Handler set changed; nothing will ever consume this.
			if err := p.store.DeletePending(ctx, pe.ID); err != nil {
				return err
			}
			continue
		}

		err := handler(ctx, pe.ToEvent())
		if err == nil {
			if err := p.store.DeletePending(ctx, pe.ID); err != nil {
				return err
			}
			p.logger.Info("pending webhook event resolved", "key", pe.Key, "attempts", pe.Attempts)
			continue
		}

		pe.Attempts++
		pe.LastError = err.Error()
		if pe.Attempts >= p.retryLimit {
			pe.Reconciliation = true
			p.logger.Error("pending webhook event exhausted retries",
				"key", pe.Key, "attempts", pe.Attempts, "error", err)
			if p.OnReconciliation != nil {
				p.OnReconciliation(ctx, pe)
			}
		}
		if err := p.store.UpdatePending(ctx, pe); err != nil {
			return fmt.Errorf("webhook: update pending %s: %w", pe.Key, err)
		}
	}

	return nil
}

// PurgeProcessed trims the idempotency log to entries newer than ttl.
func (p *Processor) PurgeProcessed(ctx context.Context, ttl time.Duration) (int64, error) {
	return p.store.PurgeProcessedBefore(ctx, time.Now().UTC().Add(-ttl))
}
