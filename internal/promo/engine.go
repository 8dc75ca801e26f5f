package promo

import (
	"errors"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/justclothing/pricing-api/internal/pricing"
)

// Kind enumerates the supported promotion types.
type Kind string

const (
	KindPercentage   Kind = "percentage"
	KindFixedAmount  Kind = "fixed_amount"
	KindFreeShipping Kind = "free_shipping"
	KindBuyXGetY     Kind = "buy_x_get_y"
)

// Status is the promotion lifecycle state. Only active promotions redeem.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusActive    Status = "active"
	StatusPaused    Status = "paused"
	StatusExpired   Status = "expired"
	StatusCompleted Status = "completed"
)

var (
	// ErrNotActive is returned when the promotion is outside its validity
	// window, not in active status, or its global usage quota is exhausted.
	ErrNotActive = errors.New("promotion not active")
	// ErrPerCustomerLimitReached indicates the customer has exceeded the
	// per-customer allowance.
	ErrPerCustomerLimitReached = errors.New("promotion per-customer usage limit reached")
	// ErrBelowMinimumOrder indicates the order value did not meet the
	// promotion requirement.
	ErrBelowMinimumOrder = errors.New("promotion minimum order amount not met")
	// ErrBelowMinimumQuantity indicates the cart holds fewer units than the
	// promotion requires.
	ErrBelowMinimumQuantity = errors.New("promotion minimum quantity not met")
)

// Rule captures the runtime constraints of a promotion. The engine only ever
// reads UsedCount; incrementing it on successful orders is the settlement
// layer's responsibility.
type Rule struct {
	Code             string
	Kind             Kind
	Percent          decimal.Decimal // percentage kind, 0-100
	Amount           decimal.Decimal // fixed_amount kind
	BuyQty           int             // buy_x_get_y kind
	GetQty           int
	MinOrderAmount   *decimal.Decimal
	MinQuantity      *int
	UsageLimit       *int
	PerCustomerLimit *int
	UsedCount        int
	StartAt          time.Time
	EndAt            time.Time
	Status           Status
}

// Usable reports whether the rule itself can currently be redeemed: active
// status, now inside the half-open [StartAt, EndAt) window, and global quota
// remaining.
func (r Rule) Usable(now time.Time) bool {
	if r.Status != StatusActive {
		return false
	}
	if now.Before(r.StartAt) || !now.Before(r.EndAt) {
		return false
	}
	if r.UsageLimit != nil && r.UsedCount >= *r.UsageLimit {
		return false
	}
	return true
}

// Result carries the evaluated discount. FreeShipping instructs the price
// calculator to zero the shipping charge; the discount stays zero in that
// case rather than approximating the waived charge with a nominal amount.
type Result struct {
	Discount     decimal.Decimal `json:"discount"`
	FreeShipping bool            `json:"freeShipping"`
}

// Evaluate decides whether the rule applies to the cart and computes the
// discount. Eligibility checks run in a fixed order and the first failure
// wins: not active, per-customer limit, minimum order amount (inclusive
// boundary), minimum quantity. Declines surface as sentinel errors for the
// caller to branch on; valid-shaped input never panics. The final discount
// never exceeds the order value.
func Evaluate(r Rule, items pricing.Snapshot, customerUsed int, now time.Time) (Result, error) {
	if !r.Usable(now) {
		return Result{Discount: decimal.Zero}, ErrNotActive
	}
	if r.PerCustomerLimit != nil && customerUsed >= *r.PerCustomerLimit {
		return Result{Discount: decimal.Zero}, ErrPerCustomerLimitReached
	}
	orderValue := items.OrderValue()
	if r.MinOrderAmount != nil && orderValue.LessThan(*r.MinOrderAmount) {
		return Result{Discount: decimal.Zero}, ErrBelowMinimumOrder
	}
	if r.MinQuantity != nil && items.ItemCount() < *r.MinQuantity {
		return Result{Discount: decimal.Zero}, ErrBelowMinimumQuantity
	}

	var discount decimal.Decimal
	switch r.Kind {
	case KindPercentage:
		discount = orderValue.Mul(r.Percent).Div(decimal.NewFromInt(100))
	case KindFixedAmount:
		discount = r.Amount
	case KindFreeShipping:
		return Result{Discount: decimal.Zero, FreeShipping: true}, nil
	case KindBuyXGetY:
		discount = buyXGetYDiscount(items, r.BuyQty, r.GetQty)
	}

	if discount.GreaterThan(orderValue) {
		discount = orderValue
	}
	if discount.IsNegative() {
		discount = decimal.Zero
	}
	return Result{Discount: discount}, nil
}

// buyXGetYDiscount grants floor(itemCount/buyQty)*getQty free units, consumed
// from the cheapest lines first. Price ties keep the snapshot's insertion
// order.
func buyXGetYDiscount(items pricing.Snapshot, buyQty, getQty int) decimal.Decimal {
	if buyQty <= 0 || getQty <= 0 {
		return decimal.Zero
	}
	freeUnits := (items.ItemCount() / buyQty) * getQty
	if freeUnits <= 0 {
		return decimal.Zero
	}

	sorted := make(pricing.Snapshot, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].UnitPrice.LessThan(sorted[j].UnitPrice)
	})

	discount := decimal.Zero
	remaining := freeUnits
	for _, it := range sorted {
		if remaining <= 0 {
			break
		}
		if it.Qty <= 0 {
			continue
		}
		take := it.Qty
		if take > remaining {
			take = remaining
		}
		discount = discount.Add(it.UnitPrice.Mul(decimal.NewFromInt(int64(take))))
		remaining -= take
	}
	return discount
}
