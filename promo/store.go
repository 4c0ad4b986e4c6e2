package promo

import (
	"context"
	"time"

	"github.com/velora/vault/id"
)

type Store interface {
	Create(ctx context.Context, fs *FlashSale) error
	Get(ctx context.Context, saleID id.FlashSaleID) (*FlashSale, error)
	Update(ctx context.Context, fs *FlashSale) error
	List(ctx context.Context, opts ListOpts) ([]*FlashSale, error)

	// ListRunning returns sales whose window covers t.
	ListRunning(ctx context.Context, t time.Time) ([]*FlashSale, error)

	// MarkAnnounced sets the announced flag exactly once; a second call
	// for the same sale reports already-announced via the returned bool.
	MarkAnnounced(ctx context.Context, saleID id.FlashSaleID) (bool, error)

	// ExpireEnded moves sales whose window ended before cutoff to
	// expired, returning the sales it touched.
	ExpireEnded(ctx context.Context, cutoff time.Time) ([]*FlashSale, error)
}

type ListOpts struct {
	Status Status
	Limit  int
	Offset int
}
