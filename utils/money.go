package utils

import "github.com/shopspring/decimal"

// Round rounds a rupee amount or a kg quantity to 2 decimal places.
func Round(value decimal.Decimal) decimal.Decimal {
	return value.Round(2)
}

// FormatRupees renders an amount the way it appears in messages and mail, e.g. "₹40.00".
func FormatRupees(value decimal.Decimal) string {
	return "₹" + value.StringFixed(2)
}
