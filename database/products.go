package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"freshcart-api/models"
)

const productColumns = `id, name, description, image, category, unit_kind, price, strike_price, is_active`

func scanProduct(row interface{ Scan(...interface{}) error }) (*models.Product, error) {
	var (
		p      models.Product
		strike decimal.NullDecimal
	)
	if err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Image, &p.Category,
		&p.UnitKind, &p.Price, &strike, &p.IsActive); err != nil {
		return nil, err
	}
	if strike.Valid {
		p.StrikePrice = &strike.Decimal
	}
	return &p, nil
}

func (c *Connection) ListProducts(ctx context.Context) ([]models.Product, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := c.db.QueryContext(ctx, `
		SELECT `+productColumns+`
		FROM products
		WHERE is_active = 1
		ORDER BY category, name
	`)
	if err != nil {
		return nil, fmt.Errorf("error listing products: %w", err)
	}
	defer rows.Close()

	products := []models.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, *p)
	}
	return products, rows.Err()
}

// GetProduct returns active products only.
func (c *Connection) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	p, err := scanProduct(c.db.QueryRowContext(ctx, `
		SELECT `+productColumns+`
		FROM products
		WHERE id = ? AND is_active = 1
	`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error getting product: %w", err)
	}
	return p, nil
}
