package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"freshcart-api/models"
	"freshcart-api/utils"
)

type Transaction struct {
	tx *sql.Tx
}

func (t *Transaction) Commit() error {
	return t.tx.Commit()
}

func (t *Transaction) Rollback() error {
	return t.tx.Rollback()
}

// NextOrderID bumps the per-day counter row and formats the result as
// ORD-YYYYMMDD-NNNN. The counter is updated atomically by MySQL, so
// concurrent transactions never see the same sequence number.
func (t *Transaction) NextOrderID(ctx context.Context, day time.Time) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	key := utils.OrderDateKey(day)
	result, err := t.tx.ExecContext(ctx, `
		INSERT INTO order_counters (day, seq)
		VALUES (?, LAST_INSERT_ID(1))
		ON DUPLICATE KEY UPDATE seq = LAST_INSERT_ID(seq + 1)
	`, key)
	if err != nil {
		return "", fmt.Errorf("failed to allocate order number: %w", err)
	}

	seq, err := result.LastInsertId()
	if err != nil {
		return "", fmt.Errorf("failed to read order number: %w", err)
	}

	return fmt.Sprintf("ORD-%s-%04d", key, seq), nil
}

func (t *Transaction) SaveOrder(ctx context.Context, order *models.Order) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	payload, err := json.Marshal(order.OrderPayload)
	if err != nil {
		return fmt.Errorf("failed to encode order payload: %w", err)
	}

	var customerID sql.NullString
	if order.CustomerID != "" {
		customerID = sql.NullString{String: order.CustomerID, Valid: true}
	}
	var couponCode sql.NullString
	if order.Coupon != nil {
		couponCode = sql.NullString{String: order.Coupon.Coupon.Code, Valid: true}
	}

	_, err = t.tx.ExecContext(ctx, `
		INSERT INTO orders (
			id, checkout_id, session_id, customer_id, status,
			subtotal, delivery_charge, discount, grand_total,
			coupon_code, payment_method, pin_code, payload, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		order.ID,
		order.CheckoutID,
		order.SessionID,
		customerID,
		order.Status,
		order.Subtotal,
		order.DeliveryCharge,
		order.Discount,
		order.GrandTotal,
		couponCode,
		order.PaymentMethod,
		order.Address.PinCode,
		payload,
		order.CreatedAt,
	)
	if err != nil {
		if isDuplicateKey(err) {
			return models.ErrDuplicateCheckout
		}
		return fmt.Errorf("failed to save order: %w", err)
	}
	return nil
}
