package pricing

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Item is an immutable line-item snapshot taken at evaluation time. It is
// never a live database row; callers copy whatever they need out of storage
// before pricing starts.
type Item struct {
	ProductID uuid.UUID       `json:"productId"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Qty       int             `json:"qty"`
	Weight    decimal.Decimal `json:"weight"` // per-unit weight in kg
}

// Snapshot is an ordered cart snapshot used for pricing. Order matters for
// buy-x-get-y tie breaking, so callers should preserve catalog/insertion
// order when building one.
type Snapshot []Item

// OrderValue sums unit price times quantity across the snapshot. Lines with
// non-positive quantities are skipped.
func (s Snapshot) OrderValue() decimal.Decimal {
	total := decimal.Zero
	for _, it := range s {
		if it.Qty <= 0 {
			continue
		}
		total = total.Add(it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Qty))))
	}
	return total
}

// TotalWeight sums per-unit weight times quantity in kilograms.
func (s Snapshot) TotalWeight() decimal.Decimal {
	total := decimal.Zero
	for _, it := range s {
		if it.Qty <= 0 {
			continue
		}
		total = total.Add(it.Weight.Mul(decimal.NewFromInt(int64(it.Qty))))
	}
	return total
}

// ItemCount returns the total unit count across all lines.
func (s Snapshot) ItemCount() int {
	count := 0
	for _, it := range s {
		if it.Qty <= 0 {
			continue
		}
		count += it.Qty
	}
	return count
}

// Breakdown aggregates the computed pricing components, each rounded to two
// decimal places. Total always equals Subtotal - Discount + Shipping + Tax.
type Breakdown struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Discount decimal.Decimal `json:"discount"`
	Shipping decimal.Decimal `json:"shipping"`
	Tax      decimal.Decimal `json:"tax"`
	Total    decimal.Decimal `json:"total"`
}

// Compute assembles subtotal, discount, shipping and tax into a final
// breakdown. The discount is re-clamped to [0, subtotal] here even though the
// promotion engine clamps upstream, because admin-entered fixed amounts reach
// this path with no other validation. Tax applies to the discounted subtotal
// and is expressed in basis points. Rounding is half-up to the cent; the total
// is computed from the rounded components so the breakdown always adds up
// exactly.
func Compute(items Snapshot, discount decimal.Decimal, taxBps int, shipping decimal.Decimal) Breakdown {
	subtotal := items.OrderValue()
	if discount.IsNegative() {
		discount = decimal.Zero
	}
	if discount.GreaterThan(subtotal) {
		discount = subtotal
	}
	if shipping.IsNegative() {
		shipping = decimal.Zero
	}

	taxable := subtotal.Sub(discount)
	tax := decimal.Zero
	if taxBps > 0 {
		tax = taxable.Mul(decimal.NewFromInt(int64(taxBps))).Div(decimal.NewFromInt(10000)).Round(2)
	}

	b := Breakdown{
		Subtotal: subtotal.Round(2),
		Discount: discount.Round(2),
		Shipping: shipping.Round(2),
		Tax:      tax,
	}
	b.Total = b.Subtotal.Sub(b.Discount).Add(b.Shipping).Add(b.Tax)
	return b
}
