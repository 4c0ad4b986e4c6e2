package request

import (
	"context"

	"github.com/velora/vault/id"
)

type Store interface {
	Create(ctx context.Context, r *CustomRequest) error
	Get(ctx context.Context, requestID id.CustomRequestID) (*CustomRequest, error)
	Update(ctx context.Context, r *CustomRequest) error
	List(ctx context.Context, opts ListOpts) ([]*CustomRequest, error)
}

type ListOpts struct {
	UserID id.UserID
	Status Status
	Limit  int
	Offset int
}
