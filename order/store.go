package order

import (
	"context"
	"time"

	"github.com/velora/vault/id"
)

type Store interface {
	Create(ctx context.Context, o *Order) error
	Get(ctx context.Context, orderID id.OrderID) (*Order, error)
	GetByProviderRef(ctx context.Context, ref string) (*Order, error)
	Update(ctx context.Context, o *Order) error
	List(ctx context.Context, opts ListOpts) ([]*Order, error)

	// MarkPaid atomically moves an order from awaiting_payment to paid,
	// recording the provider capture reference. It fails with an invalid
	// transition error if the order is in any other state.
	MarkPaid(ctx context.Context, orderID id.OrderID, captureRef string, paidAt time.Time) error

	// Fulfill atomically moves an order from paid to fulfilled. A retry
	// after success is an invalid transition, which callers treat as
	// already-done.
	Fulfill(ctx context.Context, orderID id.OrderID, fulfilledAt time.Time) error

	// ExpireStale moves orders in created or awaiting_payment older than
	// cutoff to expired, returning the ids of the orders it expired.
	ExpireStale(ctx context.Context, cutoff time.Time) ([]id.OrderID, error)
}

type ListOpts struct {
	UserID id.UserID
	Status Status
	Kind   ItemKind
	Limit  int
	Offset int
}
