package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type CouponType string

const (
	CouponPercentage CouponType = "percentage"
	CouponFlat       CouponType = "flat"
)

// Coupon mirrors the coupons record. Zero MinOrderAmount, MaxDiscount and
// UsageLimit mean "no minimum", "uncapped" and "unlimited".
type Coupon struct {
	ID             string          `json:"id"`
	Code           string          `json:"code"`
	Type           CouponType      `json:"type"`
	Value          decimal.Decimal `json:"value"`
	MinOrderAmount decimal.Decimal `json:"min_order_amount"`
	MaxDiscount    decimal.Decimal `json:"max_discount"`
	UsageLimit     int             `json:"usage_limit"`
	UsageCount     int             `json:"usage_count"`
	ValidFrom      time.Time       `json:"valid_from"`
	ValidUntil     time.Time       `json:"valid_until"`
	IsActive       bool            `json:"is_active"`
}

// AppliedCoupon is the coupon snapshot taken at validation time plus the
// discount computed for one particular subtotal.
type AppliedCoupon struct {
	Coupon         Coupon          `json:"coupon"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	Message        string          `json:"message"`
}

type ApplyCouponRequest struct {
	Code string `json:"code"`
}
