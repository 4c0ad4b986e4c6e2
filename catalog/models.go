// Package catalog defines unlockable images and their categories.
package catalog

import (
	"github.com/velora/vault/id"
	"github.com/velora/vault/types"
	"github.com/velora/vault/user"
)

// ContentType classifies where an image is allowed to appear.
// Everything defaults to private; instagram is an explicit admin action.
type ContentType string

const (
	// ContentPrivate is sold through the bot and never posted publicly.
	ContentPrivate ContentType = "private"
	// ContentInstagram is cleared for public posting.
	ContentInstagram ContentType = "instagram"
)

// Valid reports whether ct is a known content type.
func (ct ContentType) Valid() bool {
	return ct == ContentPrivate || ct == ContentInstagram
}

// Category groups images for browsing and flash-sale scoping.
type Category struct {
	types.Entity
	ID          id.CategoryID `json:"id"`
	Name        string        `json:"name"`
	Slug        string        `json:"slug"`
	Description string        `json:"description,omitempty"`
	SortOrder   int           `json:"sort_order"`
	Active      bool          `json:"active"`
}

// Image is a single unit of unlockable content.
type Image struct {
	types.Entity
	ID           id.ImageID    `json:"id"`
	CategoryID   id.CategoryID `json:"category_id"`
	Title        string        `json:"title"`
	Description  string        `json:"description,omitempty"`
	Price        types.Money   `json:"price"`
	ContentType  ContentType   `json:"content_type"`
	TierRequired user.Tier     `json:"tier_required"` // Minimum tier to see/buy
	Explicit     bool          `json:"explicit"`      // Blocked from free unlocks
	Active       bool          `json:"active"`
	StorageKey   string        `json:"storage_key"` // Object storage location
	MimeType     string        `json:"mime_type,omitempty"`
	TotalSales   int64         `json:"total_sales"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

// PublicSafe reports whether the image has been explicitly cleared for
// public posting.
func (img *Image) PublicSafe() bool {
	return img.ContentType == ContentInstagram
}

// FreeUnlockable reports whether a free-unlock token may redeem this
// image. Explicit content and content above bronze tier is excluded.
func (img *Image) FreeUnlockable() bool {
	if img.Explicit {
		return false
	}
	return !img.TierRequired.AtLeast(user.TierSilver)
}
