package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

const deliveryChargeKey = "delivery_charge"

func (c *Connection) GetDeliveryCharge(ctx context.Context) (decimal.Decimal, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var raw string
	err := c.db.QueryRowContext(ctx,
		`SELECT value FROM settings WHERE name = ?`, deliveryChargeKey).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, fmt.Errorf("setting %s not found", deliveryChargeKey)
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("error reading delivery charge: %w", err)
	}

	charge, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid delivery charge %q: %w", raw, err)
	}
	return charge, nil
}
