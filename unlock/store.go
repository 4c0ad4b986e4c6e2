package unlock

import (
	"context"

	"github.com/velora/vault/id"
)

type Store interface {
	// Grant records ownership. Granting an already-owned image is a
	// no-op; the returned bool reports whether a new grant was written.
	Grant(ctx context.Context, u *Unlock) (bool, error)

	Has(ctx context.Context, userID id.UserID, imageID id.ImageID) (bool, error)
	ListByUser(ctx context.Context, userID id.UserID) ([]*Unlock, error)
	CountByImage(ctx context.Context, imageID id.ImageID) (int64, error)
}
