package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/justclothing/pricing-api/internal/promo"
)

// Promotions persists promotion rules, codes, and usage records.
type Promotions struct {
	Pool *pgxpool.Pool
}

// GetPromotionByCode loads a promotion joined with the code used to look it up.
func (p Promotions) GetPromotionByCode(ctx context.Context, code string) (promo.Promotion, error) {
	const query = `
		SELECT pr.id, pr.name, pr.kind,
		       pr.percent::text, pr.amount::text, pr.buy_qty, pr.get_qty,
		       pr.min_order_amount::text, pr.min_quantity,
		       pr.usage_limit, pr.per_customer_limit, pr.usage_count,
		       pr.start_at, pr.end_at, pr.status,
		       pc.id, pc.code, pc.active, pc.usage_limit, pc.used_count
		FROM promo_codes pc
		JOIN promotions pr ON pr.id = pc.promotion_id
		WHERE pc.code = $1`
	var (
		out             promo.Promotion
		percent, amount string
		minOrder        *string
	)
	err := p.Pool.QueryRow(ctx, query, code).Scan(
		&out.ID, &out.Name, &out.Rule.Kind,
		&percent, &amount, &out.Rule.BuyQty, &out.Rule.GetQty,
		&minOrder, &out.Rule.MinQuantity,
		&out.Rule.UsageLimit, &out.Rule.PerCustomerLimit, &out.Rule.UsedCount,
		&out.Rule.StartAt, &out.Rule.EndAt, &out.Rule.Status,
		&out.CodeID, &out.Rule.Code, &out.CodeActive, &out.CodeUsageLimit, &out.CodeUsedCount,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return promo.Promotion{}, promo.ErrCodeNotFound
		}
		return promo.Promotion{}, fmt.Errorf("repo: get promotion by code: %w", err)
	}
	if out.Rule.Percent, err = parseDec(percent); err != nil {
		return promo.Promotion{}, err
	}
	if out.Rule.Amount, err = parseDec(amount); err != nil {
		return promo.Promotion{}, err
	}
	if out.Rule.MinOrderAmount, err = parseDecPtr(minOrder); err != nil {
		return promo.Promotion{}, err
	}
	return out, nil
}

// CountUsageByCustomer counts settled usages for a customer on a promotion.
func (p Promotions) CountUsageByCustomer(ctx context.Context, promotionID, customerID uuid.UUID) (int, error) {
	const query = `
		SELECT COUNT(*) FROM promotion_usages
		WHERE promotion_id = $1 AND customer_id = $2`
	var count int
	if err := p.Pool.QueryRow(ctx, query, promotionID, customerID).Scan(&count); err != nil {
		return 0, fmt.Errorf("repo: count usage: %w", err)
	}
	return count, nil
}

// RecordUsage inserts a usage row and bumps the promotion and code counters in
// one transaction. It reports false without error when the (promotion, order)
// pair was already recorded, leaving the counters untouched, which makes
// settlement replays harmless.
func (p Promotions) RecordUsage(ctx context.Context, promotionID, codeID, orderID uuid.UUID, customerID *uuid.UUID, amount decimal.Decimal) (bool, error) {
	tx, err := p.Pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("repo: begin record usage: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	const insert = `
		INSERT INTO promotion_usages (promotion_id, order_id, customer_id, amount)
		VALUES ($1, $2, $3, $4::numeric)
		ON CONFLICT (promotion_id, order_id) DO NOTHING`
	tag, err := tx.Exec(ctx, insert, promotionID, orderID, customerID, decArg(amount))
	if err != nil {
		return false, fmt.Errorf("repo: insert usage: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}

	if _, err := tx.Exec(ctx,
		`UPDATE promotions SET usage_count = usage_count + 1, updated_at = now() WHERE id = $1`,
		promotionID,
	); err != nil {
		return false, fmt.Errorf("repo: increment promotion usage: %w", err)
	}
	if _, err := tx.Exec(ctx,
		`UPDATE promo_codes SET used_count = used_count + 1 WHERE id = $1`,
		codeID,
	); err != nil {
		return false, fmt.Errorf("repo: increment code usage: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("repo: commit record usage: %w", err)
	}
	return true, nil
}

// CreatePromotion inserts a promotion together with its redemption code.
func (p Promotions) CreatePromotion(ctx context.Context, in promo.Input) (uuid.UUID, error) {
	tx, err := p.Pool.Begin(ctx)
	if err != nil {
		return uuid.Nil, fmt.Errorf("repo: begin create promotion: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	const insertPromotion = `
		INSERT INTO promotions (
			name, kind, percent, amount, buy_qty, get_qty,
			min_order_amount, min_quantity, usage_limit, per_customer_limit,
			start_at, end_at, status
		)
		VALUES ($1, $2, $3::numeric, $4::numeric, $5, $6, $7::numeric, $8, $9, $10, $11, $12, $13)
		RETURNING id`
	var promotionID uuid.UUID
	if err := tx.QueryRow(ctx, insertPromotion,
		in.Name, in.Rule.Kind, decArg(in.Rule.Percent), decArg(in.Rule.Amount),
		in.Rule.BuyQty, in.Rule.GetQty,
		decPtrArg(in.Rule.MinOrderAmount), in.Rule.MinQuantity,
		in.Rule.UsageLimit, in.Rule.PerCustomerLimit,
		in.Rule.StartAt, in.Rule.EndAt, in.Rule.Status,
	).Scan(&promotionID); err != nil {
		return uuid.Nil, fmt.Errorf("repo: create promotion: %w", err)
	}

	const insertCode = `
		INSERT INTO promo_codes (promotion_id, code, active, usage_limit)
		VALUES ($1, $2, TRUE, $3)`
	if _, err := tx.Exec(ctx, insertCode, promotionID, promo.NormalizeCode(in.Code), in.CodeUsageLimit); err != nil {
		return uuid.Nil, fmt.Errorf("repo: create promo code: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return uuid.Nil, fmt.Errorf("repo: commit create promotion: %w", err)
	}
	return promotionID, nil
}

// UpdatePromotion rewrites the mutable fields of a promotion. It reports
// whether a row matched.
func (p Promotions) UpdatePromotion(ctx context.Context, id uuid.UUID, in promo.Input) (bool, error) {
	const query = `
		UPDATE promotions SET
			name = $2, kind = $3, percent = $4::numeric, amount = $5::numeric,
			buy_qty = $6, get_qty = $7,
			min_order_amount = $8::numeric, min_quantity = $9,
			usage_limit = $10, per_customer_limit = $11,
			start_at = $12, end_at = $13, status = $14,
			updated_at = now()
		WHERE id = $1`
	tag, err := p.Pool.Exec(ctx, query,
		id, in.Name, in.Rule.Kind, decArg(in.Rule.Percent), decArg(in.Rule.Amount),
		in.Rule.BuyQty, in.Rule.GetQty,
		decPtrArg(in.Rule.MinOrderAmount), in.Rule.MinQuantity,
		in.Rule.UsageLimit, in.Rule.PerCustomerLimit,
		in.Rule.StartAt, in.Rule.EndAt, in.Rule.Status,
	)
	if err != nil {
		return false, fmt.Errorf("repo: update promotion: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// ExpirePromotions marks active promotions whose window has closed.
func (p Promotions) ExpirePromotions(ctx context.Context) (int64, error) {
	const query = `
		UPDATE promotions SET status = 'expired', updated_at = now()
		WHERE status = 'active' AND end_at <= now()`
	tag, err := p.Pool.Exec(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("repo: expire promotions: %w", err)
	}
	return tag.RowsAffected(), nil
}

// CompletePromotions marks active promotions whose global quota is spent.
func (p Promotions) CompletePromotions(ctx context.Context) (int64, error) {
	const query = `
		UPDATE promotions SET status = 'completed', updated_at = now()
		WHERE status = 'active' AND usage_limit IS NOT NULL AND usage_count >= usage_limit`
	tag, err := p.Pool.Exec(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("repo: complete promotions: %w", err)
	}
	return tag.RowsAffected(), nil
}
