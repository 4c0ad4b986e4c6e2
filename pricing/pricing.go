// Package pricing computes purchase quotes.
//
// A quote starts at the image's base price, applies the best applicable
// flash-sale discount, and floors the result at the configured minimum
// charge. Quoting is pure: callers pass the candidate sales in, nothing
// is read or written here.
package pricing

import (
	"time"

	"github.com/velora/vault/catalog"
	"github.com/velora/vault/promo"
	"github.com/velora/vault/types"
)

// Quote is a priced purchase. Sale is the sale that won, if any.
type Quote struct {
	Base  types.Money
	Final types.Money
	Sale  *promo.FlashSale
}

// Discounted reports whether a sale changed the price.
func (q Quote) Discounted() bool {
	return q.Sale != nil && q.Final.LessThan(q.Base)
}

// QuoteImage prices an image against the given flash sales at time t.
//
// Selection among applicable sales: a category-scoped sale beats a
// global one; within the same scope the larger discount wins. The final
// price never drops below min.
func QuoteImage(img *catalog.Image, sales []*promo.FlashSale, t time.Time, min types.Money) Quote {
	q := Quote{Base: img.Price, Final: img.Price}

	var best *promo.FlashSale
	for _, fs := range sales {
		if !fs.AppliesTo(img.CategoryID, t) {
			continue
		}
		if best == nil || beats(fs, best) {
			best = fs
		}
	}
	if best != nil {
		q.Sale = best
		q.Final = best.Discount(img.Price)
	}

	q.Final = q.Final.AtLeast(min)
	return q
}

// beats reports whether a should win over b. Category scope beats
// global; equal scope falls back to the larger discount.
func beats(a, b *promo.FlashSale) bool {
	if a.Global() != b.Global() {
		return !a.Global()
	}
	return a.DiscountPercent > b.DiscountPercent
}
