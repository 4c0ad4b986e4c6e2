package webhook

import (
	"context"
	"time"

	"github.com/velora/vault/id"
)

type Store interface {
	// CheckAndRecord atomically records the event key. It returns true
	// if the key was new (caller proceeds) and false if it was already
	// recorded (caller treats the event as a duplicate). The check and
	// the record are one atomic unit: two concurrent deliveries of the
	// same key cannot both see true.
	CheckAndRecord(ctx context.Context, key string, eventType string) (bool, error)

	// PurgeProcessedBefore deletes idempotency log rows older than
	// cutoff, returning how many were removed.
	PurgeProcessedBefore(ctx context.Context, cutoff time.Time) (int64, error)

	EnqueuePending(ctx context.Context, p *PendingEvent) error
	ListPending(ctx context.Context, limit int) ([]*PendingEvent, error)
	UpdatePending(ctx context.Context, p *PendingEvent) error
	DeletePending(ctx context.Context, eventID id.WebhookEventID) error
}
