package catalog

import (
	"context"

	"github.com/velora/vault/id"
)

type Store interface {
	CreateImage(ctx context.Context, img *Image) error
	GetImage(ctx context.Context, imageID id.ImageID) (*Image, error)
	UpdateImage(ctx context.Context, img *Image) error
	ListImages(ctx context.Context, opts ListOpts) ([]*Image, error)

	CreateCategory(ctx context.Context, c *Category) error
	GetCategory(ctx context.Context, categoryID id.CategoryID) (*Category, error)
	ListCategories(ctx context.Context, activeOnly bool) ([]*Category, error)
}

type ListOpts struct {
	CategoryID  id.CategoryID
	ContentType ContentType
	ActiveOnly  bool
	Limit       int
	Offset      int
}
