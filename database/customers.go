package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"freshcart-api/models"
)

func (c *Connection) CreateCustomer(ctx context.Context, customer *models.Customer) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	_, err := c.db.ExecContext(ctx, `
		INSERT INTO customers (id, name, email, phone, password_hash, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, customer.ID, customer.Name, customer.Email, customer.Phone, customer.PasswordHash, customer.CreatedAt)
	if err != nil {
		if isDuplicateKey(err) {
			return models.ErrEmailTaken
		}
		return fmt.Errorf("error creating customer: %w", err)
	}
	return nil
}

const customerColumns = `id, name, email, phone, password_hash, default_address, created_at`

func (c *Connection) getCustomer(ctx context.Context, where string, arg interface{}) (*models.Customer, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var (
		cust    models.Customer
		address []byte
	)
	err := c.db.QueryRowContext(ctx,
		`SELECT `+customerColumns+` FROM customers WHERE `+where+` = ?`, arg).Scan(
		&cust.ID, &cust.Name, &cust.Email, &cust.Phone, &cust.PasswordHash, &address, &cust.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error getting customer: %w", err)
	}

	if len(address) > 0 {
		var a models.Address
		if err := json.Unmarshal(address, &a); err != nil {
			c.logger.Warn("ignoring unreadable default address", zap.String("customer_id", cust.ID), zap.Error(err))
		} else {
			cust.DefaultAddress = &a
		}
	}
	return &cust, nil
}

func (c *Connection) GetCustomerByEmail(ctx context.Context, email string) (*models.Customer, error) {
	return c.getCustomer(ctx, "email", email)
}

func (c *Connection) GetCustomerByID(ctx context.Context, id string) (*models.Customer, error) {
	return c.getCustomer(ctx, "id", id)
}

func (c *Connection) UpdateDefaultAddress(ctx context.Context, customerID string, address models.Address) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	data, err := json.Marshal(address)
	if err != nil {
		return fmt.Errorf("error encoding address: %w", err)
	}

	if _, err := c.db.ExecContext(ctx,
		`UPDATE customers SET default_address = ? WHERE id = ?`, data, customerID); err != nil {
		return fmt.Errorf("error updating default address: %w", err)
	}
	return nil
}
