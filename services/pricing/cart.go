package pricing

import (
	"github.com/shopspring/decimal"

	"freshcart-api/models"
	"freshcart-api/utils"
)

type Totals struct {
	Subtotal      decimal.Decimal
	TotalWeightKg decimal.Decimal
	TotalPieces   int64
}

// Aggregate folds cart lines into subtotal, weight and piece count. The
// subtotal is rounded once at the end, not per line.
func Aggregate(lines []models.CartLine) Totals {
	subtotal := decimal.Zero
	weight := decimal.Zero
	var pieces int64

	for _, line := range lines {
		subtotal = subtotal.Add(line.UnitPrice.Mul(line.Quantity))
		switch line.UnitKind {
		case models.UnitWeightKg:
			weight = weight.Add(line.Quantity)
		case models.UnitPiece:
			pieces += line.Quantity.IntPart()
		}
	}

	return Totals{
		Subtotal:      utils.Round(subtotal),
		TotalWeightKg: utils.Round(weight),
		TotalPieces:   pieces,
	}
}
