package quote

import (
	"encoding/json"
	"errors"
	"net/http"

	validator "github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/justclothing/pricing-api/internal/common"
	"github.com/justclothing/pricing-api/internal/pricing"
	"github.com/justclothing/pricing-api/internal/rates"
)

// Handler exposes the public quote endpoints.
type Handler struct {
	Svc      *Service
	Validate *validator.Validate
}

type itemPayload struct {
	ProductID string          `json:"productId" validate:"required,uuid4"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Qty       int             `json:"qty" validate:"gt=0"`
	Weight    decimal.Decimal `json:"weight"`
}

type addressPayload struct {
	Country    string `json:"country" validate:"required"`
	State      string `json:"state"`
	City       string `json:"city"`
	PostalCode string `json:"postalCode"`
}

type shippingQuoteRequest struct {
	Items   []itemPayload  `json:"items" validate:"required,min=1,dive"`
	Address addressPayload `json:"address" validate:"required"`
}

type quoteRequest struct {
	Items      []itemPayload  `json:"items" validate:"required,min=1,dive"`
	Address    addressPayload `json:"address" validate:"required"`
	MethodCode string         `json:"methodCode"`
	PromoCode  string         `json:"promoCode"`
	CustomerID *string        `json:"customerId"`
}

// ShippingQuote lists priced delivery options for a destination.
func (h *Handler) ShippingQuote(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "quote service not configured", nil)
		return
	}
	var req shippingQuoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	if err := h.Validate.Struct(req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
		return
	}
	items, err := toSnapshot(req.Items)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
		return
	}

	shipping, err := h.Svc.ShippingQuote(r.Context(), items, toAddress(req.Address))
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to compute shipping quote", nil)
		return
	}
	common.JSONData(w, http.StatusOK, shipping)
}

// Quote computes a full order price breakdown.
func (h *Handler) Quote(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "quote service not configured", nil)
		return
	}
	var req quoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	if err := h.Validate.Struct(req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
		return
	}
	items, err := toSnapshot(req.Items)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
		return
	}
	var customerID *uuid.UUID
	if req.CustomerID != nil && *req.CustomerID != "" {
		parsed, err := uuid.Parse(*req.CustomerID)
		if err != nil {
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid customerId", nil)
			return
		}
		customerID = &parsed
	}

	result, err := h.Svc.Compute(r.Context(), Request{
		Items:      items,
		Address:    toAddress(req.Address),
		MethodCode: req.MethodCode,
		PromoCode:  req.PromoCode,
		CustomerID: customerID,
	})
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to compute quote", nil)
		return
	}
	common.JSONData(w, http.StatusOK, result)
}

func toSnapshot(items []itemPayload) (pricing.Snapshot, error) {
	snapshot := make(pricing.Snapshot, 0, len(items))
	for _, item := range items {
		productID, err := uuid.Parse(item.ProductID)
		if err != nil {
			return nil, errors.New("invalid productId")
		}
		if item.UnitPrice.IsNegative() {
			return nil, errors.New("unitPrice must not be negative")
		}
		if item.Weight.IsNegative() {
			return nil, errors.New("weight must not be negative")
		}
		snapshot = append(snapshot, pricing.Item{
			ProductID: productID,
			UnitPrice: item.UnitPrice,
			Qty:       item.Qty,
			Weight:    item.Weight,
		})
	}
	return snapshot, nil
}

func toAddress(a addressPayload) rates.Address {
	return rates.Address{
		Country:    a.Country,
		State:      a.State,
		City:       a.City,
		PostalCode: a.PostalCode,
	}
}
