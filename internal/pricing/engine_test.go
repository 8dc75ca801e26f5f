package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestComputeBreakdownAddsUp(t *testing.T) {
	items := Snapshot{
		{UnitPrice: dec("199.99"), Qty: 3},
		{UnitPrice: dec("49.50"), Qty: 2},
	}
	b := Compute(items, dec("37.13"), 750, dec("60"))
	want := b.Subtotal.Sub(b.Discount).Add(b.Shipping).Add(b.Tax)
	if !b.Total.Equal(want) {
		t.Fatalf("total %s does not equal subtotal-discount+shipping+tax %s", b.Total, want)
	}
}

func TestComputeTaxOnDiscountedBase(t *testing.T) {
	items := Snapshot{{UnitPrice: dec("1000"), Qty: 1}}
	b := Compute(items, dec("100"), 1000, decimal.Zero)
	if !b.Tax.Equal(dec("90")) {
		t.Fatalf("expected tax 90 on discounted base, got %s", b.Tax)
	}
	if !b.Total.Equal(dec("990")) {
		t.Fatalf("expected total 990, got %s", b.Total)
	}
}

func TestComputeDiscountClamp(t *testing.T) {
	items := Snapshot{{UnitPrice: dec("100"), Qty: 1}}
	b := Compute(items, dec("150"), 0, decimal.Zero)
	if !b.Discount.Equal(dec("100")) {
		t.Fatalf("expected discount clamped to 100, got %s", b.Discount)
	}
	if !b.Total.IsZero() {
		t.Fatalf("expected zero total, got %s", b.Total)
	}

	b = Compute(items, dec("-5"), 0, decimal.Zero)
	if !b.Discount.IsZero() {
		t.Fatalf("negative discount should clamp to zero, got %s", b.Discount)
	}
}

func TestComputeNegativeShippingClamped(t *testing.T) {
	items := Snapshot{{UnitPrice: dec("10"), Qty: 1}}
	b := Compute(items, decimal.Zero, 0, dec("-20"))
	if !b.Shipping.IsZero() {
		t.Fatalf("expected shipping clamped to zero, got %s", b.Shipping)
	}
}

func TestComputeRoundsHalfUp(t *testing.T) {
	// 10.005 * 10% tax = 1.0005 -> 1.00; 0.125 tax base cases round half up.
	items := Snapshot{{UnitPrice: dec("1.25"), Qty: 1}}
	b := Compute(items, decimal.Zero, 1000, decimal.Zero)
	// 1.25 * 0.10 = 0.125 -> 0.13 half-up
	if !b.Tax.Equal(dec("0.13")) {
		t.Fatalf("expected tax 0.13 (half-up), got %s", b.Tax)
	}
}

func TestSnapshotDerivedValues(t *testing.T) {
	items := Snapshot{
		{UnitPrice: dec("100"), Qty: 2, Weight: dec("0.5")},
		{UnitPrice: dec("50"), Qty: 3, Weight: dec("1.2")},
		{UnitPrice: dec("9.99"), Qty: 0, Weight: dec("4")}, // skipped
	}
	if got := items.OrderValue(); !got.Equal(dec("350")) {
		t.Fatalf("order value: expected 350, got %s", got)
	}
	if got := items.TotalWeight(); !got.Equal(dec("4.6")) {
		t.Fatalf("total weight: expected 4.6, got %s", got)
	}
	if got := items.ItemCount(); got != 5 {
		t.Fatalf("item count: expected 5, got %d", got)
	}
}
