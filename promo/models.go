// Package promo defines flash sales.
package promo

import (
	"time"

	"github.com/velora/vault/id"
	"github.com/velora/vault/types"
)

type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusActive    Status = "active"
	StatusExpired   Status = "expired"
)

// FlashSale is a time-boxed percent discount. A nil-scope sale
// (CategoryID unset) applies to the whole catalog; otherwise it applies
// only to images in its category.
type FlashSale struct {
	types.Entity
	ID              id.FlashSaleID `json:"id"`
	Title           string         `json:"title"`
	CategoryID      id.CategoryID  `json:"category_id,omitempty"` // Nil = global scope
	DiscountPercent int            `json:"discount_percent"`
	StartsAt        time.Time      `json:"starts_at"`
	EndsAt          time.Time      `json:"ends_at"`
	Status          Status         `json:"status"`
	Announced       bool           `json:"announced"` // Start announcement sent exactly once
}

// Global reports whether the sale applies to the whole catalog.
func (fs *FlashSale) Global() bool {
	return fs.CategoryID.IsNil()
}

// RunningAt reports whether the sale window covers t. Status is not
// consulted: the window is the source of truth, status tracks what the
// scheduler has observed.
func (fs *FlashSale) RunningAt(t time.Time) bool {
	return !t.Before(fs.StartsAt) && t.Before(fs.EndsAt)
}

// AppliesTo reports whether the sale discounts an image in the given
// category at time t.
func (fs *FlashSale) AppliesTo(categoryID id.CategoryID, t time.Time) bool {
	if !fs.RunningAt(t) {
		return false
	}
	return fs.Global() || fs.CategoryID == categoryID
}

// Discount applies the sale's percentage to price.
func (fs *FlashSale) Discount(price types.Money) types.Money {
	return price.ApplyPercentDiscount(fs.DiscountPercent)
}
