package pricing

import (
	"github.com/shopspring/decimal"

	"freshcart-api/utils"
)

// ComputeGrandTotal is subtotal + delivery - discount, never below zero.
func ComputeGrandTotal(subtotal, deliveryCharge, discount decimal.Decimal) decimal.Decimal {
	total := subtotal.Add(deliveryCharge).Sub(discount)
	if total.IsNegative() {
		return decimal.Zero
	}
	return utils.Round(total)
}
