package repo

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/justclothing/pricing-api/internal/rates"
)

// Rates persists shipping zones, methods, and rate rules.
type Rates struct {
	Pool *pgxpool.Pool
}

// ListActiveZones returns every active zone ordered by name.
func (r Rates) ListActiveZones(ctx context.Context) ([]rates.Zone, error) {
	const query = `
		SELECT id, name, countries, states, cities, postal_codes, active
		FROM shipping_zones
		WHERE active
		ORDER BY name`
	rows, err := r.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("repo: list zones: %w", err)
	}
	defer rows.Close()

	var zones []rates.Zone
	for rows.Next() {
		var z rates.Zone
		if err := rows.Scan(&z.ID, &z.Name, &z.Countries, &z.States, &z.Cities, &z.PostalCodes, &z.Active); err != nil {
			return nil, fmt.Errorf("repo: scan zone: %w", err)
		}
		zones = append(zones, z)
	}
	return zones, rows.Err()
}

// ListActiveMethods returns active delivery methods ordered by minimum delivery days.
func (r Rates) ListActiveMethods(ctx context.Context) ([]rates.Method, error) {
	const query = `
		SELECT id, code, name, min_delivery_days, max_delivery_days, active, created_at
		FROM shipping_methods
		WHERE active
		ORDER BY min_delivery_days, code`
	rows, err := r.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("repo: list methods: %w", err)
	}
	defer rows.Close()

	var methods []rates.Method
	for rows.Next() {
		var m rates.Method
		if err := rows.Scan(&m.ID, &m.Code, &m.Name, &m.MinDeliveryDays, &m.MaxDeliveryDays, &m.Active, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("repo: scan method: %w", err)
		}
		methods = append(methods, m)
	}
	return methods, rows.Err()
}

// ListRatesForZone returns active rate rules for a zone ordered by creation time.
func (r Rates) ListRatesForZone(ctx context.Context, zoneID uuid.UUID) ([]rates.Rule, error) {
	const query = `
		SELECT id, zone_id, method_id, calculation_type,
		       base_rate::text, rate_per_kg::text, tiers,
		       min_order_value::text, max_order_value::text, free_shipping_threshold::text,
		       handling_fee::text, fuel_surcharge::text, active
		FROM shipping_rates
		WHERE zone_id = $1 AND active
		ORDER BY created_at`
	rows, err := r.Pool.Query(ctx, query, zoneID)
	if err != nil {
		return nil, fmt.Errorf("repo: list rates: %w", err)
	}
	defer rows.Close()

	var rules []rates.Rule
	for rows.Next() {
		var (
			rule                         rates.Rule
			baseRate, handling, fuel     string
			perKg, minVal, maxVal, thold *string
			tiersRaw                     []byte
		)
		if err := rows.Scan(
			&rule.ID, &rule.ZoneID, &rule.MethodID, &rule.CalculationType,
			&baseRate, &perKg, &tiersRaw,
			&minVal, &maxVal, &thold,
			&handling, &fuel, &rule.Active,
		); err != nil {
			return nil, fmt.Errorf("repo: scan rate: %w", err)
		}
		if rule.BaseRate, err = parseDec(baseRate); err != nil {
			return nil, err
		}
		if rule.HandlingFee, err = parseDec(handling); err != nil {
			return nil, err
		}
		if rule.FuelSurcharge, err = parseDec(fuel); err != nil {
			return nil, err
		}
		if rule.RatePerKg, err = parseDecPtr(perKg); err != nil {
			return nil, err
		}
		if rule.MinOrderValue, err = parseDecPtr(minVal); err != nil {
			return nil, err
		}
		if rule.MaxOrderValue, err = parseDecPtr(maxVal); err != nil {
			return nil, err
		}
		if rule.FreeShippingThreshold, err = parseDecPtr(thold); err != nil {
			return nil, err
		}
		if len(tiersRaw) > 0 {
			if err := json.Unmarshal(tiersRaw, &rule.Tiers); err != nil {
				return nil, fmt.Errorf("repo: decode tiers for rate %s: %w", rule.ID, err)
			}
		}
		rules = append(rules, rule)
	}
	return rules, rows.Err()
}

// CreateZone inserts a zone and returns it with the generated identifier.
func (r Rates) CreateZone(ctx context.Context, z rates.Zone) (rates.Zone, error) {
	const query = `
		INSERT INTO shipping_zones (name, countries, states, cities, postal_codes, active)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`
	if err := r.Pool.QueryRow(ctx, query,
		z.Name, z.Countries, z.States, z.Cities, z.PostalCodes, z.Active,
	).Scan(&z.ID); err != nil {
		return rates.Zone{}, fmt.Errorf("repo: create zone: %w", err)
	}
	return z, nil
}

// CreateRate inserts a rate rule and returns it with the generated identifier.
func (r Rates) CreateRate(ctx context.Context, rule rates.Rule) (rates.Rule, error) {
	tiersRaw, err := json.Marshal(rule.Tiers)
	if err != nil {
		return rates.Rule{}, fmt.Errorf("repo: encode tiers: %w", err)
	}
	const query = `
		INSERT INTO shipping_rates (
			zone_id, method_id, calculation_type,
			base_rate, rate_per_kg, tiers,
			min_order_value, max_order_value, free_shipping_threshold,
			handling_fee, fuel_surcharge, active
		)
		VALUES ($1, $2, $3, $4::numeric, $5::numeric, $6, $7::numeric, $8::numeric, $9::numeric, $10::numeric, $11::numeric, $12)
		RETURNING id`
	if err := r.Pool.QueryRow(ctx, query,
		rule.ZoneID, rule.MethodID, rule.CalculationType,
		decArg(rule.BaseRate), decPtrArg(rule.RatePerKg), tiersRaw,
		decPtrArg(rule.MinOrderValue), decPtrArg(rule.MaxOrderValue), decPtrArg(rule.FreeShippingThreshold),
		decArg(rule.HandlingFee), decArg(rule.FuelSurcharge), rule.Active,
	).Scan(&rule.ID); err != nil {
		return rates.Rule{}, fmt.Errorf("repo: create rate: %w", err)
	}
	return rule, nil
}
