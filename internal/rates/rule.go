package rates

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CalculationType selects how a rate rule derives its base cost.
type CalculationType string

const (
	CalcFlat        CalculationType = "flat"
	CalcWeightBased CalculationType = "weight_based"
	CalcPriceBased  CalculationType = "price_based"
	CalcItemBased   CalculationType = "item_based"
	CalcFree        CalculationType = "free"
)

// Tier maps a minimum order value onto a flat rate for price-based rules.
type Tier struct {
	MinValue decimal.Decimal `json:"minValue"`
	Rate     decimal.Decimal `json:"rate"`
}

// Rule is the admin-managed rate configuration for a zone/method pair. It is
// a plain snapshot handed in by the caller; the engine never loads one
// itself.
type Rule struct {
	ID                    uuid.UUID        `json:"id"`
	ZoneID                uuid.UUID        `json:"zoneId"`
	MethodID              uuid.UUID        `json:"methodId"`
	CalculationType       CalculationType  `json:"calculationType"`
	BaseRate              decimal.Decimal  `json:"baseRate"`
	RatePerKg             *decimal.Decimal `json:"ratePerKg,omitempty"`
	Tiers                 []Tier           `json:"tiers,omitempty"`
	MinOrderValue         *decimal.Decimal `json:"minOrderValue,omitempty"`
	MaxOrderValue         *decimal.Decimal `json:"maxOrderValue,omitempty"`
	FreeShippingThreshold *decimal.Decimal `json:"freeShippingThreshold,omitempty"`
	HandlingFee           decimal.Decimal  `json:"handlingFee"`
	FuelSurcharge         decimal.Decimal  `json:"fuelSurcharge"`
	Active                bool             `json:"active"`
}

// Method is a delivery service tier independent of zone.
type Method struct {
	ID              uuid.UUID `json:"id"`
	Code            string    `json:"code"`
	Name            string    `json:"name"`
	MinDeliveryDays int       `json:"minDeliveryDays"`
	MaxDeliveryDays int       `json:"maxDeliveryDays"`
	Active          bool      `json:"active"`
	CreatedAt       time.Time `json:"createdAt"`
}
