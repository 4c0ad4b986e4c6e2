package post

import (
	"context"
	"time"

	"github.com/velora/vault/id"
)

type Store interface {
	Create(ctx context.Context, p *ScheduledPost) error
	Get(ctx context.Context, postID id.ScheduledPostID) (*ScheduledPost, error)
	Update(ctx context.Context, p *ScheduledPost) error
	List(ctx context.Context, opts ListOpts) ([]*ScheduledPost, error)

	// ListDue returns pending posts whose post time is at or before t.
	ListDue(ctx context.Context, t time.Time) ([]*ScheduledPost, error)
}

type ListOpts struct {
	Status Status
	Limit  int
	Offset int
}
