package coupon

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"freshcart-api/models"
	"freshcart-api/utils"
)

var hundred = decimal.NewFromInt(100)

// Evaluate applies the eligibility rules and discount computation to a coupon
// snapshot. It touches no store and has no side effects, so the same inputs
// always give the same result.
func Evaluate(c models.Coupon, subtotal decimal.Decimal, now time.Time) (models.AppliedCoupon, error) {
	if !c.IsActive {
		return models.AppliedCoupon{}, ErrNotFoundOrInactive
	}
	if !c.ValidUntil.IsZero() && now.After(c.ValidUntil) {
		return models.AppliedCoupon{}, ErrExpired
	}
	if !c.ValidFrom.IsZero() && now.Before(c.ValidFrom) {
		return models.AppliedCoupon{}, ErrNotYetValid
	}
	if c.MinOrderAmount.IsPositive() && subtotal.LessThan(c.MinOrderAmount) {
		return models.AppliedCoupon{}, &BelowMinimumError{MinOrderAmount: c.MinOrderAmount}
	}
	if c.UsageLimit > 0 && c.UsageCount >= c.UsageLimit {
		return models.AppliedCoupon{}, ErrLimitReached
	}

	discount := Discount(c, subtotal)

	return models.AppliedCoupon{
		Coupon:         c,
		DiscountAmount: discount,
		Message:        successMessage(c, discount),
	}, nil
}

// Discount computes the raw discount for a subtotal. Percentage discounts are
// capped at MaxDiscount when set; flat discounts never exceed the subtotal.
func Discount(c models.Coupon, subtotal decimal.Decimal) decimal.Decimal {
	var discount decimal.Decimal

	switch c.Type {
	case models.CouponPercentage:
		discount = subtotal.Mul(c.Value).Div(hundred)
		if c.MaxDiscount.IsPositive() && discount.GreaterThan(c.MaxDiscount) {
			discount = c.MaxDiscount
		}
	case models.CouponFlat:
		discount = c.Value
		if discount.GreaterThan(subtotal) {
			discount = subtotal
		}
	}

	if discount.IsNegative() {
		discount = decimal.Zero
	}
	return utils.Round(discount)
}

func successMessage(c models.Coupon, discount decimal.Decimal) string {
	if c.Type == models.CouponPercentage {
		return fmt.Sprintf("Coupon %s applied: %s%% off, you save %s", c.Code, c.Value.String(), utils.FormatRupees(discount))
	}
	return fmt.Sprintf("Coupon %s applied: you save %s", c.Code, utils.FormatRupees(discount))
}
