package promo

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/justclothing/pricing-api/internal/common"
	"github.com/justclothing/pricing-api/internal/pricing"
)

// AdminStore is the storage contract for promotion management.
type AdminStore interface {
	CreatePromotion(ctx context.Context, in Input) (uuid.UUID, error)
	UpdatePromotion(ctx context.Context, id uuid.UUID, in Input) (bool, error)
}

// Handler exposes promotion preview, redemption, and admin endpoints.
type Handler struct {
	Svc      *Service
	Store    AdminStore
	Validate *validator.Validate
	Tasks    SweepEnqueuer
	Logger   zerolog.Logger
}

type cartItemPayload struct {
	ProductID string          `json:"productId"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Qty       int             `json:"qty" validate:"gt=0"`
	Weight    decimal.Decimal `json:"weight"`
}

type previewRequest struct {
	Code       string            `json:"code" validate:"required"`
	CustomerID *string           `json:"customerId"`
	Items      []cartItemPayload `json:"items" validate:"required,min=1,dive"`
}

type redeemRequest struct {
	Code    string          `json:"code" validate:"required"`
	OrderID string          `json:"orderId" validate:"required,uuid4"`
	Amount  decimal.Decimal `json:"amount"`
}

type promotionPayload struct {
	Name             string           `json:"name" validate:"required"`
	Code             string           `json:"code" validate:"required"`
	Kind             string           `json:"kind" validate:"required,oneof=percentage fixed_amount free_shipping buy_x_get_y"`
	Percent          decimal.Decimal  `json:"percent"`
	Amount           decimal.Decimal  `json:"amount"`
	BuyQty           int              `json:"buyQty"`
	GetQty           int              `json:"getQty"`
	MinOrderAmount   *decimal.Decimal `json:"minOrderAmount"`
	MinQuantity      *int             `json:"minQuantity"`
	UsageLimit       *int             `json:"usageLimit"`
	PerCustomerLimit *int             `json:"perCustomerLimit"`
	CodeUsageLimit   *int             `json:"codeUsageLimit"`
	StartAt          time.Time        `json:"startAt" validate:"required"`
	EndAt            time.Time        `json:"endAt" validate:"required"`
	Status           string           `json:"status" validate:"omitempty,oneof=draft active paused expired completed"`
}

// Preview evaluates a code against a cart without consuming it.
func (h *Handler) Preview(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "promotion service not configured", nil)
		return
	}
	var req previewRequest
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
	customerID, err := parseOptionalUUID(req.CustomerID)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid customerId", nil)
		return
	}

	preview, err := h.Svc.Preview(r.Context(), req.Code, customerID, items)
	if err != nil {
		writePromoError(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, preview)
}

// Redeem settles a promotion against a placed order. Replays of the same
// order return the same success response.
func (h *Handler) Redeem(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "promotion service not configured", nil)
		return
	}
	var req redeemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	if err := h.Validate.Struct(req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
		return
	}
	orderID, err := uuid.Parse(req.OrderID)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid orderId", nil)
		return
	}

	var customerID *uuid.UUID
	if raw, ok := common.UserID(r.Context()); ok {
		if parsed, err := uuid.Parse(raw); err == nil {
			customerID = &parsed
		}
	}

	if err := h.Svc.Settle(r.Context(), req.Code, orderID, customerID, req.Amount); err != nil {
		writePromoError(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, map[string]any{
		"code":    NormalizeCode(req.Code),
		"orderId": orderID,
		"settled": true,
	})
}

// Create inserts a new promotion with its redemption code.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	if h.Store == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "promotion store not configured", nil)
		return
	}
	input, ok := h.decodePromotion(w, r)
	if !ok {
		return
	}
	id, err := h.Store.CreatePromotion(r.Context(), input)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			common.JSONError(w, http.StatusConflict, "CONFLICT", "promotion code already exists", nil)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to create promotion", nil)
		return
	}
	h.enqueueSweep(r.Context())
	common.JSONData(w, http.StatusCreated, map[string]any{"id": id})
}

// enqueueSweep asks the worker to re-evaluate promotion statuses right away,
// so an admin edit to a window or quota takes effect without waiting for the
// periodic run. Best effort: a queue outage only delays the transition.
func (h *Handler) enqueueSweep(ctx context.Context) {
	if h.Tasks == nil {
		return
	}
	if err := h.Tasks.EnqueueSweep(ctx); err != nil {
		h.Logger.Warn().Err(err).Msg("failed to enqueue promotion sweep")
	}
}

// Update rewrites an existing promotion.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	if h.Store == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "promotion store not configured", nil)
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid promotion id", nil)
		return
	}
	input, ok := h.decodePromotion(w, r)
	if !ok {
		return
	}
	matched, err := h.Store.UpdatePromotion(r.Context(), id, input)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to update promotion", nil)
		return
	}
	if !matched {
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "promotion not found", nil)
		return
	}
	h.enqueueSweep(r.Context())
	common.JSONData(w, http.StatusOK, map[string]any{"id": id})
}

func (h *Handler) decodePromotion(w http.ResponseWriter, r *http.Request) (Input, bool) {
	var payload promotionPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return Input{}, false
	}
	if err := h.Validate.Struct(payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
		return Input{}, false
	}
	if !payload.EndAt.After(payload.StartAt) {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "endAt must be after startAt", nil)
		return Input{}, false
	}
	kind := Kind(payload.Kind)
	if kind == KindBuyXGetY && (payload.BuyQty <= 0 || payload.GetQty <= 0) {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "buyQty and getQty must be positive", nil)
		return Input{}, false
	}
	status := Status(payload.Status)
	if status == "" {
		status = StatusDraft
	}
	return Input{
		Name:           payload.Name,
		Code:           payload.Code,
		CodeUsageLimit: payload.CodeUsageLimit,
		Rule: Rule{
			Code:             NormalizeCode(payload.Code),
			Kind:             kind,
			Percent:          payload.Percent,
			Amount:           payload.Amount,
			BuyQty:           payload.BuyQty,
			GetQty:           payload.GetQty,
			MinOrderAmount:   payload.MinOrderAmount,
			MinQuantity:      payload.MinQuantity,
			UsageLimit:       payload.UsageLimit,
			PerCustomerLimit: payload.PerCustomerLimit,
			StartAt:          payload.StartAt,
			EndAt:            payload.EndAt,
			Status:           status,
		},
	}, true
}

func toSnapshot(items []cartItemPayload) (pricing.Snapshot, error) {
	snapshot := make(pricing.Snapshot, 0, len(items))
	for _, item := range items {
		productID, err := uuid.Parse(item.ProductID)
		if err != nil {
			return nil, errors.New("invalid productId")
		}
		if item.UnitPrice.IsNegative() {
			return nil, errors.New("unitPrice must not be negative")
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

func parseOptionalUUID(raw *string) (*uuid.UUID, error) {
	if raw == nil || *raw == "" {
		return nil, nil
	}
	parsed, err := uuid.Parse(*raw)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}

func writePromoError(w http.ResponseWriter, err error) {
	switch reason := DeclineReason(err); reason {
	case "":
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "promotion lookup failed", nil)
	case "CODE_NOT_FOUND":
		common.JSONError(w, http.StatusNotFound, reason, "promotion code not found", nil)
	default:
		common.JSONError(w, http.StatusUnprocessableEntity, reason, err.Error(), nil)
	}
}
