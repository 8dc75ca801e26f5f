package quote

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/trace"

	"github.com/justclothing/pricing-api/internal/cache"
	"github.com/justclothing/pricing-api/internal/obs"
	"github.com/justclothing/pricing-api/internal/pricing"
	"github.com/justclothing/pricing-api/internal/promo"
	"github.com/justclothing/pricing-api/internal/rates"
)

// Repository is the storage contract quote computation reads from.
type Repository interface {
	ListActiveZones(ctx context.Context) ([]rates.Zone, error)
	ListActiveMethods(ctx context.Context) ([]rates.Method, error)
	ListRatesForZone(ctx context.Context, zoneID uuid.UUID) ([]rates.Rule, error)
}

// Service computes shipping options and full order quotes.
type Service struct {
	Repo     Repository
	Cache    *cache.Cache
	Promos   *promo.Service
	TaxBps   int
	Currency string
	Logger   zerolog.Logger
	Tracer   trace.Tracer
}

// Option is one quoted delivery method for a destination.
type Option struct {
	MethodID        uuid.UUID       `json:"methodId"`
	MethodCode      string          `json:"methodCode"`
	MethodName      string          `json:"methodName"`
	Amount          decimal.Decimal `json:"amount"`
	MinDeliveryDays int             `json:"minDeliveryDays"`
	MaxDeliveryDays int             `json:"maxDeliveryDays"`
}

// Shipping is the result of resolving a destination against the zone table.
type Shipping struct {
	ZoneID   *uuid.UUID `json:"zoneId,omitempty"`
	ZoneName string     `json:"zoneName,omitempty"`
	Options  []Option   `json:"options"`
}

// Request describes a cart plus destination to be quoted.
type Request struct {
	Items      pricing.Snapshot
	Address    rates.Address
	MethodCode string
	PromoCode  string
	CustomerID *uuid.UUID
}

// Quote is a complete order price breakdown with the inputs that shaped it.
type Quote struct {
	Currency          string             `json:"currency"`
	Breakdown         pricing.Breakdown  `json:"breakdown"`
	Shipping          *Option            `json:"shipping,omitempty"`
	ShippingAvailable bool               `json:"shippingAvailable"`
	Promo             *promo.Preview     `json:"promo,omitempty"`
	PromoDecline      string             `json:"promoDeclineReason,omitempty"`
}

// ShippingQuote resolves the destination to a zone and prices every
// applicable method. A destination outside all zones, or a zone with no
// applicable rates, yields an empty option list rather than an error.
func (s *Service) ShippingQuote(ctx context.Context, items pricing.Snapshot, addr rates.Address) (Shipping, error) {
	zones, err := s.loadZones(ctx)
	if err != nil {
		return Shipping{}, err
	}
	var zone *rates.Zone
	for i := range zones {
		if zones[i].MatchesAddress(addr) {
			zone = &zones[i]
			break
		}
	}
	if zone == nil {
		return Shipping{Options: []Option{}}, nil
	}

	methods, err := s.loadMethods(ctx)
	if err != nil {
		return Shipping{}, err
	}
	rules, err := s.loadRates(ctx, zone.ID)
	if err != nil {
		return Shipping{}, err
	}

	orderValue := items.OrderValue()
	totalWeight := items.TotalWeight()
	itemCount := items.ItemCount()

	options := make([]Option, 0, len(rules))
	seen := make(map[uuid.UUID]bool, len(rules))
	for _, rule := range rules {
		method, ok := methods[rule.MethodID]
		if !ok || seen[rule.MethodID] {
			continue
		}
		amount, applicable := rates.Calculate(rule, orderValue, totalWeight, itemCount)
		recordCalculation(rule.CalculationType, applicable)
		if !applicable {
			continue
		}
		recordFallback(rule)
		seen[rule.MethodID] = true
		options = append(options, Option{
			MethodID:        method.ID,
			MethodCode:      method.Code,
			MethodName:      method.Name,
			Amount:          amount.Round(2),
			MinDeliveryDays: method.MinDeliveryDays,
			MaxDeliveryDays: method.MaxDeliveryDays,
		})
	}
	zoneID := zone.ID
	return Shipping{ZoneID: &zoneID, ZoneName: zone.Name, Options: options}, nil
}

// Compute produces the full order quote: shipping resolution, promotion
// evaluation, and the price breakdown. Promotion declines never fail the
// quote; the reason is reported alongside an undiscounted breakdown. An
// unavailable shipping option likewise degrades to a zero shipping charge.
func (s *Service) Compute(ctx context.Context, req Request) (Quote, error) {
	start := time.Now()
	if s.Tracer != nil {
		var span trace.Span
		ctx, span = s.Tracer.Start(ctx, "quote.Compute")
		defer span.End()
	}

	shipping, err := s.ShippingQuote(ctx, req.Items, req.Address)
	if err != nil {
		recordQuote("error")
		return Quote{}, err
	}

	chosen := chooseOption(shipping.Options, req.MethodCode)

	out := Quote{
		Currency:          s.Currency,
		Shipping:          chosen,
		ShippingAvailable: chosen != nil,
	}

	discount := decimal.Zero
	freeShipping := false
	if req.PromoCode != "" {
		preview, err := s.Promos.Preview(ctx, req.PromoCode, req.CustomerID, req.Items)
		switch {
		case err == nil:
			out.Promo = &preview
			discount = preview.Discount
			freeShipping = preview.FreeShipping
		default:
			reason := promo.DeclineReason(err)
			if reason == "" {
				recordQuote("error")
				return Quote{}, err
			}
			out.PromoDecline = reason
		}
	}

	shippingAmount := decimal.Zero
	if chosen != nil {
		shippingAmount = chosen.Amount
	}
	if freeShipping {
		shippingAmount = decimal.Zero
		if chosen != nil {
			zeroed := *chosen
			zeroed.Amount = decimal.Zero
			out.Shipping = &zeroed
		}
	}

	out.Breakdown = pricing.Compute(req.Items, discount, s.TaxBps, shippingAmount)

	recordQuote("ok")
	if obs.QuoteDuration != nil {
		obs.QuoteDuration.Observe(obs.DurationMillis(time.Since(start)))
	}
	return out, nil
}

// chooseOption picks the requested method, or the cheapest option when no
// method was named. Amount ties keep the repository ordering.
func chooseOption(options []Option, methodCode string) *Option {
	if methodCode != "" {
		for i := range options {
			if options[i].MethodCode == methodCode {
				return &options[i]
			}
		}
		return nil
	}
	var best *Option
	for i := range options {
		if best == nil || options[i].Amount.LessThan(best.Amount) {
			best = &options[i]
		}
	}
	return best
}

func (s *Service) loadZones(ctx context.Context) ([]rates.Zone, error) {
	var zones []rates.Zone
	if found, err := s.Cache.GetJSON(ctx, cache.KeyZones, &zones); err == nil && found {
		return zones, nil
	} else if err != nil {
		s.Logger.Warn().Err(err).Msg("zone cache read failed")
	}
	zones, err := s.Repo.ListActiveZones(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.Cache.SetJSON(ctx, cache.KeyZones, zones); err != nil {
		s.Logger.Warn().Err(err).Msg("zone cache write failed")
	}
	return zones, nil
}

func (s *Service) loadMethods(ctx context.Context) (map[uuid.UUID]rates.Method, error) {
	var list []rates.Method
	found, err := s.Cache.GetJSON(ctx, cache.KeyMethods, &list)
	if err != nil {
		s.Logger.Warn().Err(err).Msg("method cache read failed")
	}
	if !found {
		list, err = s.Repo.ListActiveMethods(ctx)
		if err != nil {
			return nil, err
		}
		if err := s.Cache.SetJSON(ctx, cache.KeyMethods, list); err != nil {
			s.Logger.Warn().Err(err).Msg("method cache write failed")
		}
	}
	methods := make(map[uuid.UUID]rates.Method, len(list))
	for _, m := range list {
		methods[m.ID] = m
	}
	return methods, nil
}

func (s *Service) loadRates(ctx context.Context, zoneID uuid.UUID) ([]rates.Rule, error) {
	key := cache.KeyRatesPrefix + zoneID.String()
	var rules []rates.Rule
	if found, err := s.Cache.GetJSON(ctx, key, &rules); err == nil && found {
		return rules, nil
	} else if err != nil {
		s.Logger.Warn().Err(err).Msg("rate cache read failed")
	}
	rules, err := s.Repo.ListRatesForZone(ctx, zoneID)
	if err != nil {
		return nil, err
	}
	if err := s.Cache.SetJSON(ctx, key, rules); err != nil {
		s.Logger.Warn().Err(err).Msg("rate cache write failed")
	}
	return rules, nil
}

// CacheKeysForZone lists the cache entries an admin write to the zone must drop.
func CacheKeysForZone(zoneID uuid.UUID) []string {
	return []string{cache.KeyZones, cache.KeyMethods, cache.KeyRatesPrefix + zoneID.String()}
}

func recordQuote(result string) {
	if obs.QuoteTotal == nil {
		return
	}
	obs.QuoteTotal.WithLabelValues(result).Inc()
}

func recordCalculation(calcType rates.CalculationType, applicable bool) {
	if obs.RateCalculationTotal == nil {
		return
	}
	result := "applicable"
	if !applicable {
		result = "not_applicable"
	}
	obs.RateCalculationTotal.WithLabelValues(string(calcType), result).Inc()
}

// recordFallback counts rules whose configuration forces the engine to
// degrade to the base rate.
func recordFallback(rule rates.Rule) {
	if obs.RateRuleFallbackTotal == nil {
		return
	}
	switch rule.CalculationType {
	case rates.CalcWeightBased:
		if rule.RatePerKg == nil {
			obs.RateRuleFallbackTotal.Inc()
		}
	case rates.CalcPriceBased:
		if len(rule.Tiers) == 0 {
			obs.RateRuleFallbackTotal.Inc()
		}
	}
}
