package pricing

import (
	"errors"

	"github.com/shopspring/decimal"

	"freshcart-api/models"
	"freshcart-api/utils"
)

var (
	// ErrRemoveLine signals that a decrement reached the unit floor and the
	// line must leave the cart instead of going to zero.
	ErrRemoveLine = errors.New("quantity below minimum, remove line")

	ErrInvalidQuantity = errors.New("invalid quantity")
	ErrUnknownUnit     = errors.New("unknown unit kind")
)

// Weight items move in half-kilo steps and never drop below half a kilo.
var (
	WeightStep  = decimal.RequireFromString("0.50")
	WeightFloor = decimal.RequireFromString("0.50")
	PieceStep   = decimal.NewFromInt(1)
	PieceFloor  = decimal.NewFromInt(1)
)

func stepAndFloor(kind models.UnitKind) (decimal.Decimal, decimal.Decimal, error) {
	switch kind {
	case models.UnitWeightKg:
		return WeightStep, WeightFloor, nil
	case models.UnitPiece:
		return PieceStep, PieceFloor, nil
	default:
		return decimal.Zero, decimal.Zero, ErrUnknownUnit
	}
}

// MinQuantity is the quantity a line starts with when added without one.
func MinQuantity(kind models.UnitKind) (decimal.Decimal, error) {
	_, floor, err := stepAndFloor(kind)
	return floor, err
}

// ClampIncrement returns the next quantity one step up. A current value below
// the floor is lifted to the floor first.
func ClampIncrement(current decimal.Decimal, kind models.UnitKind) (decimal.Decimal, error) {
	step, floor, err := stepAndFloor(kind)
	if err != nil {
		return decimal.Zero, err
	}
	if current.LessThan(floor) {
		return floor, nil
	}
	return utils.Round(current.Add(step)), nil
}

// ClampDecrement returns the next quantity one step down, or ErrRemoveLine when
// current is already at or below the floor.
func ClampDecrement(current decimal.Decimal, kind models.UnitKind) (decimal.Decimal, error) {
	step, floor, err := stepAndFloor(kind)
	if err != nil {
		return decimal.Zero, err
	}
	if current.LessThanOrEqual(floor) {
		return decimal.Zero, ErrRemoveLine
	}
	next := utils.Round(current.Sub(step))
	if next.LessThan(floor) {
		return floor, nil
	}
	return next, nil
}

// SetPieces validates a directly selected piece count.
func SetPieces(count int64) (decimal.Decimal, error) {
	if count < 1 {
		return decimal.Zero, ErrInvalidQuantity
	}
	return decimal.NewFromInt(count), nil
}

// NormalizeQuantity checks a client-supplied quantity against its unit regime:
// at least the floor and a whole number of steps.
func NormalizeQuantity(quantity decimal.Decimal, kind models.UnitKind) (decimal.Decimal, error) {
	step, floor, err := stepAndFloor(kind)
	if err != nil {
		return decimal.Zero, err
	}
	quantity = utils.Round(quantity)
	if quantity.LessThan(floor) {
		return decimal.Zero, ErrInvalidQuantity
	}
	if !quantity.Mod(step).IsZero() {
		return decimal.Zero, ErrInvalidQuantity
	}
	return quantity, nil
}
