package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	"go.uber.org/zap"
)

const (
	queryTimeout = 10 * time.Second
	lockTimeout  = 5 * time.Second
)

type DatabaseConfig struct {
	Host     string
	User     string
	Password string
	DBName   string
}

type Connection struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewConnection(config DatabaseConfig, logger *zap.Logger) (*Connection, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s)/%s?parseTime=true",
		config.User, config.Password, config.Host, config.DBName)

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)

	conn := NewConnectionWithDB(db, logger)

	if err := conn.ensureConnection(); err != nil {
		db.Close()
		return nil, err
	}

	return conn, nil
}

// NewConnectionWithDB wraps an already opened handle.
func NewConnectionWithDB(db *sql.DB, logger *zap.Logger) *Connection {
	return &Connection{db: db, logger: logger}
}

func (c *Connection) ensureConnection() error {
	for retries := 0; retries < 3; retries++ {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := c.db.PingContext(ctx)
		cancel()

		if err == nil {
			return nil
		}

		c.logger.Warn("database ping failed", zap.Int("attempt", retries+1), zap.Error(err))
		time.Sleep(time.Second * time.Duration(retries+1))
	}
	return fmt.Errorf("failed to establish database connection after 3 attempts")
}

func (c *Connection) Close() error {
	return c.db.Close()
}

func (c *Connection) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return c.db.PingContext(ctx)
}

func (c *Connection) BeginTransaction(ctx context.Context) (*Transaction, error) {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return &Transaction{tx: tx}, nil
}

// LockCheckout takes a short-lived lock on a checkout ID so two submissions
// of the same checkout cannot write concurrently. Stale locks expire after
// five minutes.
func (c *Connection) LockCheckout(ctx context.Context, checkoutID string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, lockTimeout)
	defer cancel()

	result, err := c.db.ExecContext(ctx, `
		INSERT INTO checkout_locks (checkout_id, locked_at)
		VALUES (?, NOW())
		ON DUPLICATE KEY UPDATE
		locked_at = IF(locked_at < NOW() - INTERVAL 5 MINUTE, NOW(), locked_at)
	`, checkoutID)
	if err != nil {
		return false, fmt.Errorf("error acquiring lock: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	return rows > 0, nil
}

func (c *Connection) ReleaseLock(ctx context.Context, checkoutID string) error {
	ctx, cancel := context.WithTimeout(ctx, lockTimeout)
	defer cancel()

	_, err := c.db.ExecContext(ctx, `
		DELETE FROM checkout_locks
		WHERE checkout_id = ?
	`, checkoutID)
	if err != nil {
		return fmt.Errorf("error releasing lock: %w", err)
	}

	return nil
}

const mysqlDuplicateEntry = 1062

func isDuplicateKey(err error) bool {
	var myErr *mysql.MySQLError
	return errors.As(err, &myErr) && myErr.Number == mysqlDuplicateEntry
}
