package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"freshcart-api/models"
)

// LookupPinCode returns models.ErrRecordNotFound for unknown and inactive codes.
func (c *Connection) LookupPinCode(ctx context.Context, pinCode string) (*models.PinCodeRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var rec models.PinCodeRecord
	err := c.db.QueryRowContext(ctx, `
		SELECT pin_code, area, is_active
		FROM pin_codes
		WHERE pin_code = ? AND is_active = 1
	`, pinCode).Scan(&rec.PinCode, &rec.Area, &rec.IsActive)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error looking up pin code: %w", err)
	}
	return &rec, nil
}

func (c *Connection) CreateDeliveryRequest(ctx context.Context, req *models.DeliveryRequest) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	_, err := c.db.ExecContext(ctx, `
		INSERT INTO delivery_requests (
			id, pin_code, area, name, phone, email, message, created_at, processed
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, 0)
	`,
		req.ID,
		req.PinCode,
		nullString(req.Area),
		req.Name,
		req.Phone,
		nullString(req.Email),
		nullString(req.Message),
		req.CreatedAt,
	)
	if err != nil {
		return "", fmt.Errorf("error creating delivery request: %w", err)
	}
	return req.ID, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
