package pricing

import (
	"cmp"
	"slices"

	"github.com/shopspring/decimal"
)

// Stack applies the given discounts to basePrice sequentially, each one to the
// price remaining after the previous, sorted by percentage descending so the
// largest discount hits the largest base. The input slice is not modified and
// validity windows are NOT checked here: callers filter by ValidAt first.
//
// An empty list returns basePrice unchanged. A non-empty result is rounded to
// 2 decimal places (half away from zero); this is the single rounding point
// for every price in the engine.
func Stack(basePrice decimal.Decimal, discounts []Discount) decimal.Decimal {
	if len(discounts) == 0 {
		return basePrice
	}

	sorted := slices.Clone(discounts)
	slices.SortStableFunc(sorted, func(a, b Discount) int {
		return cmp.Compare(b.Percentage, a.Percentage)
	})

	price := basePrice
	for _, d := range sorted {
		price = price.Mul(d.multiplier())
	}
	return price.Round(2)
}
