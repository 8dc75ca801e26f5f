package promo

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/justclothing/pricing-api/internal/obs"
	"github.com/justclothing/pricing-api/internal/pricing"
)

// ErrCodeNotFound is returned when no promotion carries the supplied code.
var ErrCodeNotFound = errors.New("promotion code not found")

// Promotion is a promotion row joined with the code it was looked up by.
type Promotion struct {
	ID             uuid.UUID
	Name           string
	CodeID         uuid.UUID
	CodeActive     bool
	CodeUsageLimit *int
	CodeUsedCount  int
	Rule           Rule
}

// Input carries a promotion definition for create and update operations.
type Input struct {
	Name           string
	Code           string
	Rule           Rule
	CodeUsageLimit *int
}

// Querier is the storage contract the service depends on.
type Querier interface {
	GetPromotionByCode(ctx context.Context, code string) (Promotion, error)
	CountUsageByCustomer(ctx context.Context, promotionID, customerID uuid.UUID) (int, error)
	RecordUsage(ctx context.Context, promotionID, codeID, orderID uuid.UUID, customerID *uuid.UUID, amount decimal.Decimal) (bool, error)
}

// Service evaluates and settles promotions against stored rules.
type Service struct {
	Q   Querier
	Now func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Preview is the outcome of evaluating a code against a cart.
type Preview struct {
	PromotionID  uuid.UUID       `json:"promotionId"`
	Name         string          `json:"name"`
	Code         string          `json:"code"`
	Kind         Kind            `json:"kind"`
	Discount     decimal.Decimal `json:"discount"`
	FreeShipping bool            `json:"freeShipping"`
}

// NormalizeCode canonicalises a promotion code for lookup and storage.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Preview evaluates a promotion code against the cart without recording usage.
// Declines surface as the engine's sentinel errors; an unknown code returns
// ErrCodeNotFound.
func (s *Service) Preview(ctx context.Context, code string, customerID *uuid.UUID, items pricing.Snapshot) (Preview, error) {
	p, err := s.Q.GetPromotionByCode(ctx, NormalizeCode(code))
	if err != nil {
		return Preview{}, err
	}
	if !p.CodeActive {
		return Preview{}, ErrNotActive
	}
	if p.CodeUsageLimit != nil && p.CodeUsedCount >= *p.CodeUsageLimit {
		return Preview{}, ErrNotActive
	}

	customerUsed := 0
	if customerID != nil && p.Rule.PerCustomerLimit != nil {
		customerUsed, err = s.Q.CountUsageByCustomer(ctx, p.ID, *customerID)
		if err != nil {
			return Preview{}, err
		}
	}

	result, err := Evaluate(p.Rule, items, customerUsed, s.now())
	recordEvaluation(p.Rule.Kind, err)
	if err != nil {
		return Preview{}, err
	}
	return Preview{
		PromotionID:  p.ID,
		Name:         p.Name,
		Code:         p.Rule.Code,
		Kind:         p.Rule.Kind,
		Discount:     result.Discount,
		FreeShipping: result.FreeShipping,
	}, nil
}

// Settle records that an order consumed the promotion. The call is idempotent
// per (promotion, order): replays return nil without touching counters. Usage
// row and counter increments commit together, so a failed settlement leaves
// nothing behind and a retry starts clean.
func (s *Service) Settle(ctx context.Context, code string, orderID uuid.UUID, customerID *uuid.UUID, amount decimal.Decimal) error {
	p, err := s.Q.GetPromotionByCode(ctx, NormalizeCode(code))
	if err != nil {
		return err
	}
	inserted, err := s.Q.RecordUsage(ctx, p.ID, p.CodeID, orderID, customerID, amount)
	if err != nil {
		recordSettlement("error")
		return err
	}
	if !inserted {
		recordSettlement("replay")
		return nil
	}
	recordSettlement("ok")
	return nil
}

// DeclineReason maps an evaluation error onto a stable API reason code.
// Unknown errors return an empty string.
func DeclineReason(err error) string {
	switch {
	case errors.Is(err, ErrCodeNotFound):
		return "CODE_NOT_FOUND"
	case errors.Is(err, ErrNotActive):
		return "NOT_ACTIVE"
	case errors.Is(err, ErrPerCustomerLimitReached):
		return "PER_CUSTOMER_LIMIT_REACHED"
	case errors.Is(err, ErrBelowMinimumOrder):
		return "BELOW_MINIMUM_ORDER"
	case errors.Is(err, ErrBelowMinimumQuantity):
		return "BELOW_MINIMUM_QUANTITY"
	default:
		return ""
	}
}

func recordEvaluation(kind Kind, err error) {
	if obs.PromoEvaluationTotal == nil {
		return
	}
	result := "applied"
	if err != nil {
		result = "declined"
	}
	obs.PromoEvaluationTotal.WithLabelValues(string(kind), result).Inc()
}

func recordSettlement(result string) {
	if obs.PromoSettlementTotal == nil {
		return
	}
	obs.PromoSettlementTotal.WithLabelValues(result).Inc()
}
