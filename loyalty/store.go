package loyalty

import (
	"context"

	"github.com/velora/vault/id"
)

type Store interface {
	// Credit appends a positive entry and bumps the user's balance in
	// the same atomic unit, returning the written entry.
	Credit(ctx context.Context, userID id.UserID, delta int64, reason Reason, orderID id.OrderID, note string) (*Entry, error)

	// Debit appends a negative entry if and only if the user's balance
	// covers it; otherwise it returns an insufficient-balance error and
	// leaves the balance untouched.
	Debit(ctx context.Context, userID id.UserID, delta int64, reason Reason, note string) (*Entry, error)

	// Balance returns the user's current points balance.
	Balance(ctx context.Context, userID id.UserID) (int64, error)

	List(ctx context.Context, userID id.UserID, opts ListOpts) ([]*Entry, error)
}

type ListOpts struct {
	Reason  Reason
	OrderID id.OrderID // Entries produced by one purchase
	Limit   int
	Offset  int
}
