package rates

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	validator "github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/justclothing/pricing-api/internal/common"
)

// Store is the storage contract for rate administration.
type Store interface {
	CreateZone(ctx context.Context, z Zone) (Zone, error)
	CreateRate(ctx context.Context, r Rule) (Rule, error)
}

// CacheInvalidator drops cached rule payloads after admin writes.
type CacheInvalidator interface {
	Invalidate(ctx context.Context, keys ...string) error
}

// Handler exposes administrative shipping configuration endpoints.
type Handler struct {
	Store     Store
	Validate  *validator.Validate
	Cache     CacheInvalidator
	CacheKeys func(zoneID uuid.UUID) []string
	Logger    zerolog.Logger
}

type zonePayload struct {
	Name        string   `json:"name" validate:"required"`
	Countries   []string `json:"countries"`
	States      []string `json:"states"`
	Cities      []string `json:"cities"`
	PostalCodes []string `json:"postalCodes"`
	Active      *bool    `json:"active"`
}

type ratePayload struct {
	ZoneID                string           `json:"zoneId" validate:"required,uuid4"`
	MethodID              string           `json:"methodId" validate:"required,uuid4"`
	CalculationType       string           `json:"calculationType" validate:"required,oneof=flat weight_based price_based item_based free"`
	BaseRate              decimal.Decimal  `json:"baseRate"`
	RatePerKg             *decimal.Decimal `json:"ratePerKg"`
	Tiers                 []Tier           `json:"tiers"`
	MinOrderValue         *decimal.Decimal `json:"minOrderValue"`
	MaxOrderValue         *decimal.Decimal `json:"maxOrderValue"`
	FreeShippingThreshold *decimal.Decimal `json:"freeShippingThreshold"`
	HandlingFee           decimal.Decimal  `json:"handlingFee"`
	FuelSurcharge         decimal.Decimal  `json:"fuelSurcharge"`
	Active                *bool            `json:"active"`
}

// CreateZone inserts a shipping zone.
func (h *Handler) CreateZone(w http.ResponseWriter, r *http.Request) {
	if h.Store == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "rate store not configured", nil)
		return
	}
	var payload zonePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	if err := h.Validate.Struct(payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
		return
	}
	active := true
	if payload.Active != nil {
		active = *payload.Active
	}
	zone, err := h.Store.CreateZone(r.Context(), Zone{
		Name:        payload.Name,
		Countries:   payload.Countries,
		States:      payload.States,
		Cities:      payload.Cities,
		PostalCodes: payload.PostalCodes,
		Active:      active,
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			common.JSONError(w, http.StatusConflict, "CONFLICT", "zone name already exists", nil)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to create zone", nil)
		return
	}
	h.invalidate(r.Context(), zone.ID)
	common.JSONData(w, http.StatusCreated, zone)
}

// CreateRate inserts a rate rule for a zone/method pair.
func (h *Handler) CreateRate(w http.ResponseWriter, r *http.Request) {
	if h.Store == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "rate store not configured", nil)
		return
	}
	var payload ratePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	if err := h.Validate.Struct(payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
		return
	}
	zoneID, err := uuid.Parse(payload.ZoneID)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid zoneId", nil)
		return
	}
	methodID, err := uuid.Parse(payload.MethodID)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid methodId", nil)
		return
	}
	calcType := CalculationType(payload.CalculationType)
	if calcType == CalcWeightBased && payload.RatePerKg == nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "ratePerKg is required for weight_based rates", nil)
		return
	}
	if calcType == CalcPriceBased && len(payload.Tiers) == 0 {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "tiers are required for price_based rates", nil)
		return
	}
	active := true
	if payload.Active != nil {
		active = *payload.Active
	}
	rule, err := h.Store.CreateRate(r.Context(), Rule{
		ZoneID:                zoneID,
		MethodID:              methodID,
		CalculationType:       calcType,
		BaseRate:              payload.BaseRate,
		RatePerKg:             payload.RatePerKg,
		Tiers:                 payload.Tiers,
		MinOrderValue:         payload.MinOrderValue,
		MaxOrderValue:         payload.MaxOrderValue,
		FreeShippingThreshold: payload.FreeShippingThreshold,
		HandlingFee:           payload.HandlingFee,
		FuelSurcharge:         payload.FuelSurcharge,
		Active:                active,
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "unknown zone or method", nil)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to create rate", nil)
		return
	}
	h.invalidate(r.Context(), rule.ZoneID)
	common.JSONData(w, http.StatusCreated, rule)
}

func (h *Handler) invalidate(ctx context.Context, zoneID uuid.UUID) {
	if h.Cache == nil || h.CacheKeys == nil {
		return
	}
	if err := h.Cache.Invalidate(ctx, h.CacheKeys(zoneID)...); err != nil {
		h.Logger.Warn().Err(err).Str("zone_id", zoneID.String()).Msg("rate cache invalidation failed")
	}
}
