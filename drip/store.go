package drip

import (
	"context"
	"time"

	"github.com/velora/vault/id"
)

type Store interface {
	Create(ctx context.Context, s *Schedule) error
	Get(ctx context.Context, dripID id.DripID) (*Schedule, error)
	Update(ctx context.Context, s *Schedule) error
	List(ctx context.Context, opts ListOpts) ([]*Schedule, error)

	// ListDue returns undelivered schedules whose release time is at or
	// before t.
	ListDue(ctx context.Context, t time.Time) ([]*Schedule, error)

	// MarkDelivered sets the delivered flag exactly once; a second call
	// for the same schedule reports already-delivered via the returned
	// bool, making the delivery tick idempotent.
	MarkDelivered(ctx context.Context, dripID id.DripID, at time.Time) (bool, error)
}

type ListOpts struct {
	Delivered *bool
	Limit     int
	Offset    int
}
