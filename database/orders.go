package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"freshcart-api/models"
)

// PlaceOrder allocates the order number and writes the order in one
// transaction. A checkout ID that already has an order yields
// models.ErrDuplicateCheckout.
func (c *Connection) PlaceOrder(ctx context.Context, payload *models.OrderPayload) (*models.Order, error) {
	tx, err := c.BeginTransaction(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	id, err := tx.NextOrderID(ctx, now)
	if err != nil {
		return nil, err
	}

	order := &models.Order{
		ID:           id,
		Status:       models.OrderStatusPlaced,
		CreatedAt:    now,
		OrderPayload: *payload,
	}
	if err := tx.SaveOrder(ctx, order); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit order: %w", err)
	}

	c.logger.Info("order saved", zap.String("order_id", id), zap.String("checkout_id", payload.CheckoutID))
	return order, nil
}

const orderColumns = `id, status, session_id, created_at, payload`

func scanOrder(row interface{ Scan(...interface{}) error }) (*models.Order, error) {
	var (
		order     models.Order
		sessionID string
		payload   []byte
	)
	if err := row.Scan(&order.ID, &order.Status, &sessionID, &order.CreatedAt, &payload); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(payload, &order.OrderPayload); err != nil {
		return nil, fmt.Errorf("error decoding order payload: %w", err)
	}
	order.SessionID = sessionID
	return &order, nil
}

func (c *Connection) GetOrderByCheckoutID(ctx context.Context, checkoutID string) (*models.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	order, err := scanOrder(c.db.QueryRowContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE checkout_id = ?`, checkoutID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error getting order by checkout: %w", err)
	}
	return order, nil
}

func (c *Connection) GetOrderByID(ctx context.Context, id string) (*models.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	order, err := scanOrder(c.db.QueryRowContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error getting order: %w", err)
	}
	return order, nil
}

func (c *Connection) ListOrdersByCustomer(ctx context.Context, customerID string, limit int) ([]models.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := c.db.QueryContext(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE customer_id = ?
		ORDER BY created_at DESC
		LIMIT ?
	`, customerID, limit)
	if err != nil {
		return nil, fmt.Errorf("error listing orders: %w", err)
	}
	defer rows.Close()

	orders := []models.Order{}
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *order)
	}
	return orders, rows.Err()
}
