package user

import (
	"context"

	"github.com/velora/vault/id"
)

type Store interface {
	Create(ctx context.Context, u *User) error
	Get(ctx context.Context, userID id.UserID) (*User, error)
	GetByChatID(ctx context.Context, chatID string) (*User, error)
	Update(ctx context.Context, u *User) error
	List(ctx context.Context, opts ListOpts) ([]*User, error)
}

type ListOpts struct {
	Tier   Tier
	Banned *bool
	Limit  int
	Offset int
}
