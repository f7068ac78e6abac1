package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"freshcart-api/models"
)

func (c *Connection) GetActiveCouponByCode(ctx context.Context, code string) (*models.Coupon, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var (
		coupon     models.Coupon
		validFrom  sql.NullTime
		validUntil sql.NullTime
	)
	err := c.db.QueryRowContext(ctx, `
		SELECT id, code, type, value, min_order_amount, max_discount,
		       usage_limit, usage_count, valid_from, valid_until, is_active
		FROM coupons
		WHERE code = ? AND is_active = 1
	`, code).Scan(
		&coupon.ID,
		&coupon.Code,
		&coupon.Type,
		&coupon.Value,
		&coupon.MinOrderAmount,
		&coupon.MaxDiscount,
		&coupon.UsageLimit,
		&coupon.UsageCount,
		&validFrom,
		&validUntil,
		&coupon.IsActive,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error getting coupon: %w", err)
	}

	coupon.ValidFrom = validFrom.Time
	coupon.ValidUntil = validUntil.Time
	return &coupon, nil
}

// IncrementCouponUsage counts one redemption per (coupon, order) pair. The
// redemption row and the counter are written in one transaction; a repeated
// call for the same order changes nothing and returns false.
func (c *Connection) IncrementCouponUsage(ctx context.Context, couponID, orderID string) (bool, error) {
	tx, err := c.BeginTransaction(ctx)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	result, err := tx.tx.ExecContext(ctx, `
		INSERT IGNORE INTO coupon_redemptions (coupon_id, order_id, redeemed_at)
		VALUES (?, ?, NOW())
	`, couponID, orderID)
	if err != nil {
		return false, fmt.Errorf("error recording redemption: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	if rows == 0 {
		return false, tx.Commit()
	}

	if _, err := tx.tx.ExecContext(ctx, `
		UPDATE coupons SET usage_count = usage_count + 1 WHERE id = ?
	`, couponID); err != nil {
		return false, fmt.Errorf("error incrementing coupon usage: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("error committing coupon usage: %w", err)
	}

	c.logger.Info("coupon usage recorded", zap.String("coupon_id", couponID), zap.String("order_id", orderID))
	return true, nil
}
