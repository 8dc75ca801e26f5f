package rates

import (
	"sort"

	"github.com/shopspring/decimal"
)

// Calculate returns the shipping cost a rule yields for the given order
// characteristics. The boolean reports applicability: inactive rules and
// orders outside the configured value bounds yield false, and the caller is
// expected to try the next candidate rule.
//
// Handling fee and fuel surcharge are added to the base cost
// unconditionally, including for free-type rules. When the order value
// reaches the free shipping threshold (inclusive) the final cost is forced
// to zero regardless of calculation type. Missing numeric configuration
// (absent per-kg rate, empty tier list) degrades to a zero addend or the
// base rate rather than failing, so a misconfigured rule can never block
// checkout. The result is clamped to be non-negative.
func Calculate(r Rule, orderValue, totalWeight decimal.Decimal, itemCount int) (decimal.Decimal, bool) {
	if !r.Active {
		return decimal.Zero, false
	}
	if r.MinOrderValue != nil && orderValue.LessThan(*r.MinOrderValue) {
		return decimal.Zero, false
	}
	if r.MaxOrderValue != nil && orderValue.GreaterThan(*r.MaxOrderValue) {
		return decimal.Zero, false
	}

	cost := r.BaseRate
	switch r.CalculationType {
	case CalcFlat:
		cost = r.BaseRate
	case CalcWeightBased:
		perKg := decimal.Zero
		if r.RatePerKg != nil {
			perKg = *r.RatePerKg
		}
		cost = r.BaseRate.Add(totalWeight.Mul(perKg))
	case CalcPriceBased:
		cost = tierRate(r.Tiers, orderValue, r.BaseRate)
	case CalcItemBased:
		cost = r.BaseRate.Mul(decimal.NewFromInt(int64(itemCount)))
	case CalcFree:
		cost = decimal.Zero
	}

	cost = cost.Add(r.HandlingFee).Add(r.FuelSurcharge)

	if r.FreeShippingThreshold != nil && orderValue.GreaterThanOrEqual(*r.FreeShippingThreshold) {
		cost = decimal.Zero
	}
	if cost.IsNegative() {
		cost = decimal.Zero
	}
	return cost, true
}

// tierRate selects the tier with the greatest min value not exceeding the
// order value, falling back to the base rate when no tier qualifies. The
// tiers are sorted on a copy so caller ordering cannot change the outcome.
func tierRate(tiers []Tier, orderValue, fallback decimal.Decimal) decimal.Decimal {
	if len(tiers) == 0 {
		return fallback
	}
	sorted := make([]Tier, len(tiers))
	copy(sorted, tiers)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].MinValue.LessThan(sorted[j].MinValue)
	})
	rate := fallback
	for _, tier := range sorted {
		if orderValue.GreaterThanOrEqual(tier.MinValue) {
			rate = tier.Rate
		}
	}
	return rate
}
