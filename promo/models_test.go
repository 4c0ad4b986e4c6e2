package promo

import (
	"testing"
	"time"

	"github.com/velora/vault/id"
	"github.com/velora/vault/types"
)

func TestAppliesTo(t *testing.T) {
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(24 * time.Hour)
	catA := id.NewCategoryID()
	catB := id.NewCategoryID()

	global := &FlashSale{DiscountPercent: 20, StartsAt: start, EndsAt: end}
	scoped := &FlashSale{CategoryID: catA, DiscountPercent: 30, StartsAt: start, EndsAt: end}

	mid := start.Add(12 * time.Hour)

	tests := []struct {
		name string
		sale *FlashSale
		cat  id.CategoryID
		at   time.Time
		want bool
	}{
		{"global covers any category", global, catA, mid, true},
		{"global covers other category", global, catB, mid, true},
		{"scoped covers its category", scoped, catA, mid, true},
		{"scoped excludes other category", scoped, catB, mid, false},
		{"before window", global, catA, start.Add(-time.Minute), false},
		{"window start inclusive", global, catA, start, true},
		{"window end exclusive", global, catA, end, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.sale.AppliesTo(tt.cat, tt.at); got != tt.want {
				t.Errorf("AppliesTo: got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGlobal(t *testing.T) {
	if !(&FlashSale{}).Global() {
		t.Error("sale without category should be global")
	}
	if (&FlashSale{CategoryID: id.NewCategoryID()}).Global() {
		t.Error("scoped sale should not be global")
	}
}

func TestDiscount(t *testing.T) {
	fs := &FlashSale{DiscountPercent: 20}
	got := fs.Discount(types.USD(1000))
	if !got.Equal(types.USD(800)) {
		t.Errorf("Discount: got %v, want %v", got, types.USD(800))
	}
}
