package pricing

import (
	"testing"
	"time"

	"github.com/velora/vault/catalog"
	"github.com/velora/vault/id"
	"github.com/velora/vault/promo"
	"github.com/velora/vault/types"
)

var (
	quoteAt = time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	minUSD  = types.USD(100)
)

func runningSale(cat id.CategoryID, percent int) *promo.FlashSale {
	return &promo.FlashSale{
		ID:              id.NewFlashSaleID(),
		CategoryID:      cat,
		DiscountPercent: percent,
		StartsAt:        quoteAt.Add(-time.Hour),
		EndsAt:          quoteAt.Add(time.Hour),
	}
}

func testImage(price int64) *catalog.Image {
	return &catalog.Image{
		ID:         id.NewImageID(),
		CategoryID: id.NewCategoryID(),
		Price:      types.USD(price),
	}
}

func TestQuoteNoSales(t *testing.T) {
	img := testImage(1000)
	q := QuoteImage(img, nil, quoteAt, minUSD)

	if !q.Final.Equal(types.USD(1000)) {
		t.Errorf("final: got %v, want %v", q.Final, types.USD(1000))
	}
	if q.Discounted() {
		t.Error("no sale should mean no discount")
	}
}

func TestQuoteGlobalSale(t *testing.T) {
	img := testImage(1000)
	sales := []*promo.FlashSale{runningSale(id.Nil, 20)}

	q := QuoteImage(img, sales, quoteAt, minUSD)
	if !q.Final.Equal(types.USD(800)) {
		t.Errorf("final: got %v, want %v", q.Final, types.USD(800))
	}
	if !q.Discounted() {
		t.Error("expected discounted quote")
	}
}

func TestQuoteCategoryBeatsGlobal(t *testing.T) {
	img := testImage(1000)

	// Global discount is bigger, but category scope still wins.
	sales := []*promo.FlashSale{
		runningSale(id.Nil, 50),
		runningSale(img.CategoryID, 10),
	}

	q := QuoteImage(img, sales, quoteAt, minUSD)
	if !q.Final.Equal(types.USD(900)) {
		t.Errorf("final: got %v, want %v (category sale must win)", q.Final, types.USD(900))
	}
	if q.Sale == nil || q.Sale.Global() {
		t.Error("winning sale should be the category-scoped one")
	}
}

func TestQuoteTieLargerDiscountWins(t *testing.T) {
	img := testImage(1000)

	tests := []struct {
		name  string
		sales []*promo.FlashSale
		want  types.Money
	}{
		{
			"two globals",
			[]*promo.FlashSale{runningSale(id.Nil, 10), runningSale(id.Nil, 30)},
			types.USD(700),
		},
		{
			"two category sales",
			[]*promo.FlashSale{runningSale(img.CategoryID, 25), runningSale(img.CategoryID, 15)},
			types.USD(750),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := QuoteImage(img, tt.sales, quoteAt, minUSD)
			if !q.Final.Equal(tt.want) {
				t.Errorf("final: got %v, want %v", q.Final, tt.want)
			}
		})
	}
}

func TestQuoteOtherCategoryIgnored(t *testing.T) {
	img := testImage(1000)
	sales := []*promo.FlashSale{runningSale(id.NewCategoryID(), 50)}

	q := QuoteImage(img, sales, quoteAt, minUSD)
	if !q.Final.Equal(types.USD(1000)) {
		t.Errorf("final: got %v, want full price", q.Final)
	}
}

func TestQuoteExpiredSaleIgnored(t *testing.T) {
	img := testImage(1000)
	ended := runningSale(id.Nil, 50)
	ended.EndsAt = quoteAt.Add(-time.Minute)

	q := QuoteImage(img, []*promo.FlashSale{ended}, quoteAt, minUSD)
	if !q.Final.Equal(types.USD(1000)) {
		t.Errorf("final: got %v, want full price", q.Final)
	}
}

func TestQuoteFloor(t *testing.T) {
	img := testImage(120)
	sales := []*promo.FlashSale{runningSale(id.Nil, 90)}

	q := QuoteImage(img, sales, quoteAt, minUSD)
	if !q.Final.Equal(minUSD) {
		t.Errorf("final: got %v, want floor %v", q.Final, minUSD)
	}
}
