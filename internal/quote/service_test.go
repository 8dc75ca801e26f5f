package quote_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/justclothing/pricing-api/internal/obs"
	"github.com/justclothing/pricing-api/internal/pricing"
	"github.com/justclothing/pricing-api/internal/promo"
	"github.com/justclothing/pricing-api/internal/quote"
	"github.com/justclothing/pricing-api/internal/rates"
)

var (
	zoneID     = uuid.New()
	standardID = uuid.New()
	expressID  = uuid.New()
)

type fakeRepo struct {
	zones   []rates.Zone
	methods []rates.Method
	rules   map[uuid.UUID][]rates.Rule
}

func (f *fakeRepo) ListActiveZones(context.Context) ([]rates.Zone, error) {
	return f.zones, nil
}

func (f *fakeRepo) ListActiveMethods(context.Context) ([]rates.Method, error) {
	return f.methods, nil
}

func (f *fakeRepo) ListRatesForZone(_ context.Context, id uuid.UUID) ([]rates.Rule, error) {
	return f.rules[id], nil
}

type fakePromoQuerier struct {
	promotion promo.Promotion
}

func (f *fakePromoQuerier) GetPromotionByCode(_ context.Context, code string) (promo.Promotion, error) {
	if code != f.promotion.Rule.Code {
		return promo.Promotion{}, promo.ErrCodeNotFound
	}
	return f.promotion, nil
}

func (f *fakePromoQuerier) CountUsageByCustomer(context.Context, uuid.UUID, uuid.UUID) (int, error) {
	return 0, nil
}

func (f *fakePromoQuerier) RecordUsage(context.Context, uuid.UUID, uuid.UUID, uuid.UUID, *uuid.UUID, decimal.Decimal) (bool, error) {
	return true, nil
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func testRepo() *fakeRepo {
	perKg := dec("20")
	return &fakeRepo{
		zones: []rates.Zone{
			{ID: zoneID, Name: "Dhaka Metro", Countries: []string{"BD"}, Cities: []string{"Dhaka"}, Active: true},
		},
		methods: []rates.Method{
			{ID: standardID, Code: "standard", Name: "Standard", MinDeliveryDays: 3, MaxDeliveryDays: 5, Active: true},
			{ID: expressID, Code: "express", Name: "Express", MinDeliveryDays: 1, MaxDeliveryDays: 2, Active: true},
		},
		rules: map[uuid.UUID][]rates.Rule{
			zoneID: {
				{
					ID: uuid.New(), ZoneID: zoneID, MethodID: standardID,
					CalculationType: rates.CalcFlat,
					BaseRate:        dec("60"), HandlingFee: dec("10"), FuelSurcharge: dec("5"),
					Active: true,
				},
				{
					ID: uuid.New(), ZoneID: zoneID, MethodID: expressID,
					CalculationType: rates.CalcWeightBased,
					BaseRate:        dec("50"), RatePerKg: &perKg,
					Active: true,
				},
			},
		},
	}
}

func promoService(rule promo.Rule) *promo.Service {
	return &promo.Service{
		Q: &fakePromoQuerier{promotion: promo.Promotion{
			ID:         uuid.New(),
			Name:       "Test",
			CodeID:     uuid.New(),
			CodeActive: true,
			Rule:       rule,
		}},
		Now: func() time.Time { return time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC) },
	}
}

func activeRule() promo.Rule {
	return promo.Rule{
		Code:    "SAVE10",
		Kind:    promo.KindPercentage,
		Percent: dec("10"),
		StartAt: time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC),
		EndAt:   time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC),
		Status:  promo.StatusActive,
	}
}

func newService(repo *fakeRepo, promos *promo.Service) *quote.Service {
	return &quote.Service{
		Repo:     repo,
		Promos:   promos,
		TaxBps:   1000,
		Currency: "BDT",
		Logger:   zerolog.Nop(),
	}
}

func dhakaAddress() rates.Address {
	return rates.Address{Country: "BD", City: "Dhaka", PostalCode: "1207"}
}

func cartItems() pricing.Snapshot {
	return pricing.Snapshot{
		{ProductID: uuid.New(), UnitPrice: dec("500"), Qty: 2, Weight: dec("1.5")},
	}
}

func TestShippingQuoteListsOptions(t *testing.T) {
	svc := newService(testRepo(), promoService(activeRule()))

	shipping, err := svc.ShippingQuote(context.Background(), cartItems(), dhakaAddress())
	require.NoError(t, err)
	require.NotNil(t, shipping.ZoneID)
	require.Equal(t, "Dhaka Metro", shipping.ZoneName)
	require.Len(t, shipping.Options, 2)

	byCode := map[string]decimal.Decimal{}
	for _, opt := range shipping.Options {
		byCode[opt.MethodCode] = opt.Amount
	}
	require.True(t, byCode["standard"].Equal(dec("75")))
	// 50 base + 3kg x 20/kg
	require.True(t, byCode["express"].Equal(dec("110")))
}

func TestShippingQuoteFallbackCountsOnlyPricedRules(t *testing.T) {
	obs.MustRegisterDomainMetrics("quotetest", prometheus.NewRegistry())
	before := testutil.ToFloat64(obs.RateRuleFallbackTotal)

	// A weight-based rule without a per-kg rate falls back to base rate, but
	// only once it actually prices: bounded out of range it must not count.
	highMin := dec("5000")
	repo := testRepo()
	repo.rules[zoneID] = []rates.Rule{{
		ID: uuid.New(), ZoneID: zoneID, MethodID: standardID,
		CalculationType: rates.CalcWeightBased,
		BaseRate:        dec("50"), MinOrderValue: &highMin,
		Active: true,
	}}
	svc := newService(repo, promoService(activeRule()))

	shipping, err := svc.ShippingQuote(context.Background(), cartItems(), dhakaAddress())
	require.NoError(t, err)
	require.Empty(t, shipping.Options)
	require.Equal(t, before, testutil.ToFloat64(obs.RateRuleFallbackTotal))

	repo.rules[zoneID][0].MinOrderValue = nil
	shipping, err = svc.ShippingQuote(context.Background(), cartItems(), dhakaAddress())
	require.NoError(t, err)
	require.Len(t, shipping.Options, 1)
	require.Equal(t, before+1, testutil.ToFloat64(obs.RateRuleFallbackTotal))
}

func TestShippingQuoteUnmatchedDestination(t *testing.T) {
	svc := newService(testRepo(), promoService(activeRule()))

	shipping, err := svc.ShippingQuote(context.Background(), cartItems(), rates.Address{Country: "IN", City: "Mumbai"})
	require.NoError(t, err)
	require.Nil(t, shipping.ZoneID)
	require.Empty(t, shipping.Options)
}

func TestComputeFullQuote(t *testing.T) {
	svc := newService(testRepo(), promoService(activeRule()))

	result, err := svc.Compute(context.Background(), quote.Request{
		Items:      cartItems(),
		Address:    dhakaAddress(),
		MethodCode: "standard",
		PromoCode:  "SAVE10",
	})
	require.NoError(t, err)
	require.True(t, result.ShippingAvailable)
	require.NotNil(t, result.Promo)
	require.Empty(t, result.PromoDecline)
	require.Equal(t, "BDT", result.Currency)

	b := result.Breakdown
	require.True(t, b.Subtotal.Equal(dec("1000")))
	require.True(t, b.Discount.Equal(dec("100")))
	require.True(t, b.Shipping.Equal(dec("75")))
	// 10% tax on the discounted subtotal
	require.True(t, b.Tax.Equal(dec("90")))
	require.True(t, b.Total.Equal(dec("1065")))
}

func TestComputePicksCheapestWhenNoMethodNamed(t *testing.T) {
	svc := newService(testRepo(), promoService(activeRule()))

	result, err := svc.Compute(context.Background(), quote.Request{
		Items:   cartItems(),
		Address: dhakaAddress(),
	})
	require.NoError(t, err)
	require.NotNil(t, result.Shipping)
	require.Equal(t, "standard", result.Shipping.MethodCode)
}

func TestComputeFreeShippingPromo(t *testing.T) {
	rule := activeRule()
	rule.Code = "FREESHIP"
	rule.Kind = promo.KindFreeShipping
	svc := newService(testRepo(), promoService(rule))

	result, err := svc.Compute(context.Background(), quote.Request{
		Items:      cartItems(),
		Address:    dhakaAddress(),
		MethodCode: "standard",
		PromoCode:  "FREESHIP",
	})
	require.NoError(t, err)
	require.NotNil(t, result.Promo)
	require.True(t, result.Promo.FreeShipping)
	// waived charge is not rebooked as a discount
	require.True(t, result.Breakdown.Discount.Equal(decimal.Zero))
	require.True(t, result.Breakdown.Shipping.Equal(decimal.Zero))
	require.True(t, result.Shipping.Amount.Equal(decimal.Zero))
	require.True(t, result.Breakdown.Total.Equal(dec("1100")))
}

func TestComputePromoDeclineDoesNotFailQuote(t *testing.T) {
	svc := newService(testRepo(), promoService(activeRule()))

	result, err := svc.Compute(context.Background(), quote.Request{
		Items:     cartItems(),
		Address:   dhakaAddress(),
		PromoCode: "UNKNOWN",
	})
	require.NoError(t, err)
	require.Nil(t, result.Promo)
	require.Equal(t, "CODE_NOT_FOUND", result.PromoDecline)
	require.True(t, result.Breakdown.Discount.Equal(decimal.Zero))
	require.True(t, result.Breakdown.Subtotal.Equal(dec("1000")))
}

func TestComputeUnknownMethodDegrades(t *testing.T) {
	svc := newService(testRepo(), promoService(activeRule()))

	result, err := svc.Compute(context.Background(), quote.Request{
		Items:      cartItems(),
		Address:    dhakaAddress(),
		MethodCode: "drone",
	})
	require.NoError(t, err)
	require.False(t, result.ShippingAvailable)
	require.Nil(t, result.Shipping)
	require.True(t, result.Breakdown.Shipping.Equal(decimal.Zero))
}
