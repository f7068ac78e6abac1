package models

import "github.com/shopspring/decimal"

type Product struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Image       string           `json:"image"`
	Category    string           `json:"category"`
	UnitKind    UnitKind         `json:"unit_kind"`
	Price       decimal.Decimal  `json:"price"`
	StrikePrice *decimal.Decimal `json:"strike_price,omitempty"`
	IsActive    bool             `json:"is_active"`
}
