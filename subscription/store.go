package subscription

import (
	"context"
	"time"

	"github.com/velora/vault/id"
)

type Store interface {
	Create(ctx context.Context, s *Subscription) error
	Get(ctx context.Context, subID id.SubscriptionID) (*Subscription, error)
	GetActive(ctx context.Context, userID id.UserID, at time.Time) (*Subscription, error)
	Update(ctx context.Context, s *Subscription) error
	List(ctx context.Context, opts ListOpts) ([]*Subscription, error)

	// ExpireEnded moves active subscriptions whose window ended before
	// cutoff to expired, returning the subscriptions it touched.
	ExpireEnded(ctx context.Context, cutoff time.Time) ([]*Subscription, error)

	// ListExpiringSoon returns active subscriptions ending within the
	// window [at, at+within).
	ListExpiringSoon(ctx context.Context, at time.Time, within time.Duration) ([]*Subscription, error)
}

type ListOpts struct {
	UserID id.UserID
	Status Status
	Limit  int
	Offset int
}
