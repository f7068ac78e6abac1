package models

import "github.com/shopspring/decimal"

// UnitKind tells whether a product is sold by weight or by the piece.
type UnitKind string

const (
	UnitWeightKg UnitKind = "weight_kg"
	UnitPiece    UnitKind = "piece"
)

func (k UnitKind) Valid() bool {
	return k == UnitWeightKg || k == UnitPiece
}

// CartLine is one product entry in the cart. UnitPrice is already the per-kg or
// per-piece rate; StrikePrice is display only.
type CartLine struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	Image       string           `json:"image,omitempty"`
	UnitKind    UnitKind         `json:"unit_kind"`
	Quantity    decimal.Decimal  `json:"quantity"`
	UnitPrice   decimal.Decimal  `json:"unit_price"`
	StrikePrice *decimal.Decimal `json:"strike_price,omitempty"`
}

type AddToCartRequest struct {
	ProductID string           `json:"product_id"`
	Quantity  *decimal.Decimal `json:"quantity,omitempty"`
}

type SetQuantityRequest struct {
	Quantity decimal.Decimal `json:"quantity"`
}

type CartResponse struct {
	Lines         []CartLine      `json:"lines"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	TotalWeightKg decimal.Decimal `json:"total_weight_kg"`
	TotalPieces   int64           `json:"total_pieces"`
}
