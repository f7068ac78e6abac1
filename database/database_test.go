package database

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"freshcart-api/models"
)

func newMock(t *testing.T) (*Connection, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewConnectionWithDB(db, zap.NewNop()), mock
}

func samplePayload() *models.OrderPayload {
	return &models.OrderPayload{
		CheckoutID: "chk-1",
		Lines: []models.CartLine{
			{ID: "tomato", Name: "Tomato", UnitKind: models.UnitWeightKg, Quantity: decimal.RequireFromString("0.5"), UnitPrice: decimal.NewFromInt(40)},
		},
		Subtotal:      decimal.NewFromInt(20),
		GrandTotal:    decimal.NewFromInt(20),
		Address:       models.Address{Name: "Asha", PinCode: "560001"},
		PaymentMethod: models.PaymentMethodCOD,
	}
}

func TestPlaceOrderAllocatesDailyNumber(t *testing.T) {
	conn, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO order_counters")).
		WithArgs(sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(7, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO orders")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	order, err := conn.PlaceOrder(context.Background(), samplePayload())

	require.NoError(t, err)
	assert.Regexp(t, `^ORD-\d{8}-0007$`, order.ID)
	assert.Equal(t, models.OrderStatusPlaced, order.Status)
	assert.Equal(t, "chk-1", order.CheckoutID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPlaceOrderDuplicateCheckout(t *testing.T) {
	conn, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO order_counters")).
		WillReturnResult(sqlmock.NewResult(8, 2))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO orders")).
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})
	mock.ExpectRollback()

	_, err := conn.PlaceOrder(context.Background(), samplePayload())

	assert.ErrorIs(t, err, models.ErrDuplicateCheckout)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetOrderByCheckoutID(t *testing.T) {
	conn, mock := newMock(t)
	payload := `{"checkout_id":"chk-1","lines":[],"subtotal":"20","grand_total":"20","total_weight_kg":"0","total_pieces":0,"delivery_charge":"0","discount":"0","address":{"name":"Asha","phone":"","line1":"","city":"","pin_code":"560001"},"payment_method":"cod"}`

	mock.ExpectQuery(regexp.QuoteMeta("FROM orders WHERE checkout_id = ?")).
		WithArgs("chk-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "status", "session_id", "created_at", "payload"}).
			AddRow("ORD-20240615-0001", "placed", "sess-a", time.Now(), []byte(payload)))
	mock.ExpectQuery(regexp.QuoteMeta("FROM orders WHERE checkout_id = ?")).
		WithArgs("chk-2").
		WillReturnRows(sqlmock.NewRows([]string{"id", "status", "session_id", "created_at", "payload"}))

	order, err := conn.GetOrderByCheckoutID(context.Background(), "chk-1")
	require.NoError(t, err)
	assert.Equal(t, "ORD-20240615-0001", order.ID)
	assert.Equal(t, "sess-a", order.SessionID)
	assert.Equal(t, "560001", order.Address.PinCode)
	assert.True(t, order.Subtotal.Equal(decimal.NewFromInt(20)))

	_, err = conn.GetOrderByCheckoutID(context.Background(), "chk-2")
	assert.ErrorIs(t, err, models.ErrRecordNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetActiveCouponByCode(t *testing.T) {
	conn, mock := newMock(t)
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	until := time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)

	cols := []string{"id", "code", "type", "value", "min_order_amount", "max_discount",
		"usage_limit", "usage_count", "valid_from", "valid_until", "is_active"}
	mock.ExpectQuery(regexp.QuoteMeta("FROM coupons")).
		WithArgs("FRESH10").
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow("c1", "FRESH10", "percentage", "10.00", "0.00", "40.00", 5, 2, from, until, true))
	mock.ExpectQuery(regexp.QuoteMeta("FROM coupons")).
		WithArgs("GONE").
		WillReturnRows(sqlmock.NewRows(cols))

	c, err := conn.GetActiveCouponByCode(context.Background(), "FRESH10")
	require.NoError(t, err)
	assert.Equal(t, models.CouponPercentage, c.Type)
	assert.Equal(t, "40.00", c.MaxDiscount.StringFixed(2))
	assert.Equal(t, 5, c.UsageLimit)
	assert.Equal(t, until, c.ValidUntil)

	_, err = conn.GetActiveCouponByCode(context.Background(), "GONE")
	assert.ErrorIs(t, err, models.ErrRecordNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIncrementCouponUsageOncePerOrder(t *testing.T) {
	conn, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT IGNORE INTO coupon_redemptions")).
		WithArgs("c1", "ORD-20240615-0001").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE coupons SET usage_count = usage_count + 1")).
		WithArgs("c1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT IGNORE INTO coupon_redemptions")).
		WithArgs("c1", "ORD-20240615-0001").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	applied, err := conn.IncrementCouponUsage(context.Background(), "c1", "ORD-20240615-0001")
	require.NoError(t, err)
	assert.True(t, applied)

	applied, err = conn.IncrementCouponUsage(context.Background(), "c1", "ORD-20240615-0001")
	require.NoError(t, err)
	assert.False(t, applied)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetDeliveryCharge(t *testing.T) {
	conn, mock := newMock(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT value FROM settings")).
		WithArgs("delivery_charge").
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow("25.50"))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT value FROM settings")).
		WithArgs("delivery_charge").
		WillReturnRows(sqlmock.NewRows([]string{"value"}))

	charge, err := conn.GetDeliveryCharge(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "25.50", charge.StringFixed(2))

	_, err = conn.GetDeliveryCharge(context.Background())
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLookupPinCodeAndDeliveryRequest(t *testing.T) {
	conn, mock := newMock(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM pin_codes")).
		WithArgs("560001").
		WillReturnRows(sqlmock.NewRows([]string{"pin_code", "area", "is_active"}).AddRow("560001", "MG Road", true))
	mock.ExpectQuery(regexp.QuoteMeta("FROM pin_codes")).
		WithArgs("560099").
		WillReturnRows(sqlmock.NewRows([]string{"pin_code", "area", "is_active"}))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO delivery_requests")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	rec, err := conn.LookupPinCode(context.Background(), "560001")
	require.NoError(t, err)
	assert.Equal(t, "MG Road", rec.Area)

	_, err = conn.LookupPinCode(context.Background(), "560099")
	assert.ErrorIs(t, err, models.ErrRecordNotFound)

	id, err := conn.CreateDeliveryRequest(context.Background(), &models.DeliveryRequest{
		ID: "req-1", PinCode: "123456", Name: "Asha", Phone: "9876543210", CreatedAt: time.Now(),
	})
	require.NoError(t, err)
	assert.Equal(t, "req-1", id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLockCheckout(t *testing.T) {
	conn, mock := newMock(t)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO checkout_locks")).
		WithArgs("chk-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO checkout_locks")).
		WithArgs("chk-1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM checkout_locks")).
		WithArgs("chk-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	ok, err := conn.LockCheckout(context.Background(), "chk-1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = conn.LockCheckout(context.Background(), "chk-1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, conn.ReleaseLock(context.Background(), "chk-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetCustomerByEmailWithAddress(t *testing.T) {
	conn, mock := newMock(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM customers WHERE email = ?")).
		WithArgs("asha@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email", "phone", "password_hash", "default_address", "created_at"}).
			AddRow("cust-1", "Asha", "asha@example.com", "9876543210", "hash", []byte(`{"name":"Asha","pin_code":"560001"}`), time.Now()))

	cust, err := conn.GetCustomerByEmail(context.Background(), "asha@example.com")
	require.NoError(t, err)
	require.NotNil(t, cust.DefaultAddress)
	assert.Equal(t, "560001", cust.DefaultAddress.PinCode)
	assert.NoError(t, mock.ExpectationsWereMet())
}
