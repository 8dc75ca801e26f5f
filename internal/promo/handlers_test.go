package promo_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	validator "github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/justclothing/pricing-api/internal/promo"
)

type fakeAdminStore struct {
	created promo.Input
	id      uuid.UUID
	matched bool
}

func (f *fakeAdminStore) CreatePromotion(_ context.Context, in promo.Input) (uuid.UUID, error) {
	f.created = in
	return f.id, nil
}

func (f *fakeAdminStore) UpdatePromotion(_ context.Context, _ uuid.UUID, in promo.Input) (bool, error) {
	f.created = in
	return f.matched, nil
}

func previewBody(code string) []byte {
	body := map[string]any{
		"code": code,
		"items": []map[string]any{
			{"productId": uuid.NewString(), "unitPrice": "500", "qty": 2, "weight": "0.5"},
		},
	}
	raw, _ := json.Marshal(body)
	return raw
}

func TestPreviewHandlerApplies(t *testing.T) {
	h := &promo.Handler{
		Svc:      &promo.Service{Q: &fakeQuerier{promotion: activePromotion()}, Now: fixedNow},
		Validate: validator.New(),
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/promotions/preview", bytes.NewReader(previewBody("SUMMER10")))
	rr := httptest.NewRecorder()
	h.Preview(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var resp struct {
		Data promo.Preview `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Equal(t, "SUMMER10", resp.Data.Code)
	require.True(t, resp.Data.Discount.Equal(decimal.NewFromInt(100)))
}

func TestPreviewHandlerUnknownCode(t *testing.T) {
	h := &promo.Handler{
		Svc:      &promo.Service{Q: &fakeQuerier{promotion: activePromotion()}, Now: fixedNow},
		Validate: validator.New(),
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/promotions/preview", bytes.NewReader(previewBody("MISSING")))
	rr := httptest.NewRecorder()
	h.Preview(rr, req)

	require.Equal(t, http.StatusNotFound, rr.Code)
	require.Contains(t, rr.Body.String(), "CODE_NOT_FOUND")
}

func TestPreviewHandlerDecline(t *testing.T) {
	p := activePromotion()
	p.Rule.Status = promo.StatusPaused
	h := &promo.Handler{
		Svc:      &promo.Service{Q: &fakeQuerier{promotion: p}, Now: fixedNow},
		Validate: validator.New(),
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/promotions/preview", bytes.NewReader(previewBody("SUMMER10")))
	rr := httptest.NewRecorder()
	h.Preview(rr, req)

	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	require.Contains(t, rr.Body.String(), "NOT_ACTIVE")
}

func TestRedeemHandlerReplay(t *testing.T) {
	q := &fakeQuerier{promotion: activePromotion()}
	h := &promo.Handler{
		Svc:      &promo.Service{Q: q, Now: fixedNow},
		Validate: validator.New(),
	}

	body := fmt.Sprintf(`{"code":"SUMMER10","orderId":%q,"amount":"100"}`, uuid.NewString())
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/promotions/redeem", bytes.NewReader([]byte(body)))
		rr := httptest.NewRecorder()
		h.Redeem(rr, req)
		require.Equal(t, http.StatusOK, rr.Code)
	}
	require.Equal(t, 1, q.increments)
}

func TestCreateHandlerValidation(t *testing.T) {
	store := &fakeAdminStore{id: uuid.New()}
	h := &promo.Handler{Store: store, Validate: validator.New()}

	start := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	payload := map[string]any{
		"name":    "Flash Sale",
		"code":    "flash20",
		"kind":    "percentage",
		"percent": "20",
		"startAt": start,
		"endAt":   start.Add(48 * time.Hour),
		"status":  "active",
	}
	raw, _ := json.Marshal(payload)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/promotions", bytes.NewReader(raw))
	rr := httptest.NewRecorder()
	h.Create(rr, req)

	require.Equal(t, http.StatusCreated, rr.Code)
	require.Equal(t, "FLASH20", store.created.Rule.Code)
	require.Equal(t, promo.StatusActive, store.created.Rule.Status)

	// window must be ordered
	payload["endAt"] = start
	raw, _ = json.Marshal(payload)
	req = httptest.NewRequest(http.MethodPost, "/api/v1/admin/promotions", bytes.NewReader(raw))
	rr = httptest.NewRecorder()
	h.Create(rr, req)
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

type fakeSweepQueue struct {
	enqueued int
}

func (f *fakeSweepQueue) EnqueueSweep(context.Context) error {
	f.enqueued++
	return nil
}

func TestCreateHandlerEnqueuesSweep(t *testing.T) {
	store := &fakeAdminStore{id: uuid.New()}
	queue := &fakeSweepQueue{}
	h := &promo.Handler{Store: store, Validate: validator.New(), Tasks: queue}

	start := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	payload := map[string]any{
		"name":    "Flash Sale",
		"code":    "FLASH20",
		"kind":    "percentage",
		"percent": "20",
		"startAt": start,
		"endAt":   start.Add(48 * time.Hour),
		"status":  "active",
	}
	raw, _ := json.Marshal(payload)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/promotions", bytes.NewReader(raw))
	rr := httptest.NewRecorder()
	h.Create(rr, req)

	require.Equal(t, http.StatusCreated, rr.Code)
	require.Equal(t, 1, queue.enqueued)

	// a rejected payload must not reach the queue
	payload["endAt"] = start
	raw, _ = json.Marshal(payload)
	req = httptest.NewRequest(http.MethodPost, "/api/v1/admin/promotions", bytes.NewReader(raw))
	rr = httptest.NewRecorder()
	h.Create(rr, req)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Equal(t, 1, queue.enqueued)
}
