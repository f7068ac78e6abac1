package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPlaced    OrderStatus = "placed"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusCancelled OrderStatus = "cancelled"
)

const PaymentMethodCOD = "cod"

type Address struct {
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	Email    string `json:"email,omitempty"`
	Line1    string `json:"line1"`
	Line2    string `json:"line2,omitempty"`
	Landmark string `json:"landmark,omitempty"`
	City     string `json:"city"`
	PinCode  string `json:"pin_code"`
}

// OrderPayload is what gets written to the order store: the cart, every
// computed amount, the coupon snapshot and the delivery address.
type OrderPayload struct {
	CheckoutID     string          `json:"checkout_id"`
	SessionID      string          `json:"-"`
	CustomerID     string          `json:"customer_id,omitempty"`
	Lines          []CartLine      `json:"lines"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	TotalWeightKg  decimal.Decimal `json:"total_weight_kg"`
	TotalPieces    int64           `json:"total_pieces"`
	DeliveryCharge decimal.Decimal `json:"delivery_charge"`
	Discount       decimal.Decimal `json:"discount"`
	GrandTotal     decimal.Decimal `json:"grand_total"`
	Coupon         *AppliedCoupon  `json:"coupon,omitempty"`
	Address        Address         `json:"address"`
	PaymentMethod  string          `json:"payment_method"`
	Notes          string          `json:"notes,omitempty"`
}

type Order struct {
	ID        string      `json:"id"`
	Status    OrderStatus `json:"status"`
	CreatedAt time.Time   `json:"created_at"`
	OrderPayload
}

type PlaceOrderRequest struct {
	CheckoutID    string  `json:"checkout_id"`
	Address       Address `json:"address"`
	PaymentMethod string  `json:"payment_method"`
	Notes         string  `json:"notes"`
}

// Quote is the priced view of the current session.
type Quote struct {
	Lines          []CartLine      `json:"lines"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	TotalWeightKg  decimal.Decimal `json:"total_weight_kg"`
	TotalPieces    int64           `json:"total_pieces"`
	DeliveryCharge decimal.Decimal `json:"delivery_charge"`
	Discount       decimal.Decimal `json:"discount"`
	GrandTotal     decimal.Decimal `json:"grand_total"`
	Coupon         *AppliedCoupon  `json:"coupon,omitempty"`
	CouponNotice   string          `json:"coupon_notice,omitempty"`
	PinCode        PinCodeStatus   `json:"pin_code"`
}
