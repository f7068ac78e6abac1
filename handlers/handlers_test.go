package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"freshcart-api/models"
	"freshcart-api/services/auth"
	"freshcart-api/services/session"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

type stubTokens struct{}

func (stubTokens) ValidateToken(token string) (*models.AuthUser, error) {
	switch token {
	case "alice":
		return &models.AuthUser{CustomerID: "cust-alice", Name: "Alice"}, nil
	case "bob":
		return &models.AuthUser{CustomerID: "cust-bob", Name: "Bob"}, nil
	}
	return nil, auth.ErrInvalidToken
}

type stubCatalog struct {
	products map[string]models.Product
}

func (s *stubCatalog) ListProducts(context.Context) ([]models.Product, error) {
	var out []models.Product
	for _, p := range s.products {
		out = append(out, p)
	}
	return out, nil
}

func (s *stubCatalog) GetProduct(_ context.Context, id string) (*models.Product, error) {
	p, ok := s.products[id]
	if !ok {
		return nil, models.ErrRecordNotFound
	}
	return &p, nil
}

type stubCheckout struct {
	placedFor string
}

func (s *stubCheckout) Quote(_ context.Context, sess *session.Session) (*models.Quote, error) {
	t := sess.Totals()
	return &models.Quote{Lines: sess.Snapshot().Lines, Subtotal: t.Subtotal, GrandTotal: t.Subtotal}, nil
}

func (s *stubCheckout) ApplyCoupon(_ context.Context, _ *session.Session, code string) (*models.AppliedCoupon, error) {
	if code != "FRESH10" {
		return nil, models.NewValidationError("Invalid or inactive coupon code", nil)
	}
	return &models.AppliedCoupon{Coupon: models.Coupon{Code: code}, DiscountAmount: dec("22"), Message: "Coupon applied"}, nil
}

func (s *stubCheckout) RemoveCoupon(ctx context.Context, sess *session.Session) error {
	return sess.ClearCoupon(ctx)
}

func (s *stubCheckout) CheckPinCode(_ context.Context, _ *session.Session, raw string) (models.PinCodeStatus, error) {
	if raw == "599999" {
		return models.PinCodeStatus{State: models.PinChecking, PinCode: raw}, models.NewExternalError(errors.New("timeout"))
	}
	return models.PinCodeStatus{State: models.PinValid, PinCode: raw, Area: "MG Road"}, nil
}

func (s *stubCheckout) RequestDelivery(_ context.Context, _ *session.Session, in models.CreateDeliveryRequest) (*models.DeliveryRequest, error) {
	return &models.DeliveryRequest{ID: "req-1", PinCode: in.PinCode, Name: in.Name, Phone: in.Phone}, nil
}

func (s *stubCheckout) PlaceOrder(_ context.Context, sess *session.Session, req models.PlaceOrderRequest) (*models.Order, error) {
	snap := sess.Snapshot()
	s.placedFor = snap.CustomerID
	return &models.Order{
		ID:           "ORD-20240615-0001",
		Status:       models.OrderStatusPlaced,
		OrderPayload: models.OrderPayload{CheckoutID: req.CheckoutID, CustomerID: snap.CustomerID, Lines: snap.Lines},
	}, nil
}

type stubOrders struct {
	orders map[string]models.Order
}

func (s *stubOrders) GetOrderByID(_ context.Context, id string) (*models.Order, error) {
	o, ok := s.orders[id]
	if !ok {
		return nil, models.ErrRecordNotFound
	}
	return &o, nil
}

func (s *stubOrders) ListOrdersByCustomer(_ context.Context, customerID string, limit int) ([]models.Order, error) {
	var out []models.Order
	for _, o := range s.orders {
		if o.CustomerID == customerID && len(out) < limit {
			out = append(out, o)
		}
	}
	return out, nil
}

type stubAuth struct{}

func (stubAuth) Register(context.Context, models.RegisterRequest) (*models.AuthResponse, error) {
	return nil, models.NewConflictError("An account with this email already exists", models.ErrEmailTaken)
}

func (stubAuth) Authenticate(context.Context, string, string) (*models.AuthResponse, error) {
	return nil, auth.ErrInvalidCredentials
}

func (stubAuth) RefreshToken(context.Context, string) (*models.AuthResponse, error) {
	return nil, auth.ErrTokenExpired
}

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

type testEnv struct {
	handler  http.Handler
	checkout *stubCheckout
	cookies  []*http.Cookie
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := zap.NewNop()

	catalog := &stubCatalog{products: map[string]models.Product{
		"tomato":  {ID: "tomato", Name: "Tomato", UnitKind: models.UnitWeightKg, Price: dec("40"), IsActive: true},
		"coconut": {ID: "coconut", Name: "Coconut", UnitKind: models.UnitPiece, Price: dec("35"), IsActive: true},
		"mango":   {ID: "mango", Name: "Mango", UnitKind: models.UnitPiece, Price: dec("60"), IsActive: false},
	}}
	orders := &stubOrders{orders: map[string]models.Order{
		"ORD-1": {ID: "ORD-1", OrderPayload: models.OrderPayload{CustomerID: "cust-alice"}},
		"ORD-2": {ID: "ORD-2", OrderPayload: models.OrderPayload{CustomerID: "cust-bob"}},
	}}

	manager := session.NewManager(session.NewMemoryStore(), logger)
	resolver := NewSessionResolver(NewCookieStore(CookieOptions{Secret: "test-secret", MaxAge: time.Hour}), manager, logger)
	svc := &stubCheckout{}

	return &testEnv{
		checkout: svc,
		handler: NewRouter(Routes{
			Products: NewProductHandler(catalog, logger),
			Cart:     NewCartHandler(resolver, catalog, logger),
			Checkout: NewCheckoutHandler(resolver, svc, logger),
			Orders:   NewOrderHandler(resolver, svc, orders, logger),
			Auth:     NewAuthHandler(stubAuth{}, logger),
			Health:   NewHealthHandler(stubPinger{}, stubPinger{err: errors.New("refused")}),
			Tokens:   stubTokens{},
			Logger:   logger,
		}),
	}
}

// do sends a request carrying the cookies from earlier responses.
func (e *testEnv) do(t *testing.T, method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for _, c := range e.cookies {
		req.AddCookie(c)
	}

	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	if set := rec.Result().Cookies(); len(set) > 0 {
		e.cookies = set
	}
	return rec
}

type cartBody struct {
	Status  string              `json:"status"`
	Message string              `json:"message"`
	Data    models.CartResponse `json:"data"`
}

func decodeCart(t *testing.T, rec *httptest.ResponseRecorder) cartBody {
	t.Helper()
	var body cartBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestCartFlow(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/cart/items", map[string]string{"product_id": "tomato"}, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.NotEmpty(t, env.cookies, "session cookie should be issued")
	cart := decodeCart(t, rec)
	require.Len(t, cart.Data.Lines, 1)
	assert.True(t, cart.Data.Lines[0].Quantity.Equal(dec("0.5")))
	assert.True(t, cart.Data.Subtotal.Equal(dec("20")))

	rec = env.do(t, http.MethodPost, "/api/cart/items/tomato/increment", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decodeCart(t, rec).Data.TotalWeightKg.Equal(dec("1")))

	rec = env.do(t, http.MethodPost, "/api/cart/items", map[string]interface{}{"product_id": "coconut", "quantity": "3"}, "")
	require.Equal(t, http.StatusCreated, rec.Code)
	cart = decodeCart(t, rec)
	assert.Equal(t, int64(3), cart.Data.TotalPieces)
	assert.True(t, cart.Data.Subtotal.Equal(dec("145")))

	rec = env.do(t, http.MethodGet, "/api/cart", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeCart(t, rec).Data.Lines, 2)

	env.do(t, http.MethodPost, "/api/cart/items/tomato/decrement", nil, "")
	rec = env.do(t, http.MethodPost, "/api/cart/items/tomato/decrement", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	cart = decodeCart(t, rec)
	assert.Equal(t, "Item removed from cart", cart.Message)
	assert.Len(t, cart.Data.Lines, 1)

	rec = env.do(t, http.MethodDelete, "/api/cart", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decodeCart(t, rec).Data.Lines)
}

func TestCartIsPerSession(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, http.MethodPost, "/api/cart/items", map[string]string{"product_id": "coconut"}, "")

	other := newTestEnv(t)
	rec := other.do(t, http.MethodGet, "/api/cart", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decodeCart(t, rec).Data.Lines)
}

func TestCartRejections(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/cart/items", map[string]string{"product_id": "durian"}, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/cart/items", map[string]string{"product_id": "mango"}, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/cart/items", map[string]interface{}{"product_id": "tomato", "quantity": "0.3"}, "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	env.do(t, http.MethodPost, "/api/cart/items", map[string]string{"product_id": "coconut"}, "")
	rec = env.do(t, http.MethodPut, "/api/cart/items/coconut", map[string]string{"quantity": "2.5"}, "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = env.do(t, http.MethodPut, "/api/cart/items/coconut", map[string]string{"quantity": "4"}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(4), decodeCart(t, rec).Data.TotalPieces)

	rec = env.do(t, http.MethodDelete, "/api/cart/items/tomato", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestApplyCoupon(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/coupons/apply", map[string]string{"code": "NOPE"}, "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid or inactive coupon code")

	rec = env.do(t, http.MethodPost, "/api/coupons/apply", map[string]string{"code": "FRESH10"}, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Coupon applied")

	rec = env.do(t, http.MethodDelete, "/api/coupons/applied", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCheckPinCodeKeepsStatusOnFailure(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/pincodes/599999", nil, "")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body struct {
		Status string               `json:"status"`
		Data   models.PinCodeStatus `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "error", body.Status)
	assert.Equal(t, models.PinChecking, body.Data.State)

	rec = env.do(t, http.MethodGet, "/api/pincodes/560001", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "MG Road")
}

func TestPlaceOrderBindsAuthenticatedCustomer(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, http.MethodPost, "/api/cart/items", map[string]string{"product_id": "coconut"}, "")

	rec := env.do(t, http.MethodPost, "/api/orders", models.PlaceOrderRequest{CheckoutID: "chk-1"}, "alice")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "cust-alice", env.checkout.placedFor)
}

func TestOrderHistoryRequiresOwner(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/orders", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/orders", nil, "alice")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ORD-1")
	assert.NotContains(t, rec.Body.String(), "ORD-2")

	rec = env.do(t, http.MethodGet, "/api/orders/ORD-2", nil, "alice")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/orders/ORD-2", nil, "bob")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/orders?limit=zero", nil, "bob")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAuthEndpoints(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/auth/login", models.AuthRequest{Email: "a@b.test", Password: "wrong-pass"}, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/auth/register", models.RegisterRequest{Name: "A", Email: "a@b.test", Password: "long-enough"}, "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/auth/refresh", models.RefreshTokenRequest{RefreshToken: "x"}, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "Refresh token expired")

	rec = env.do(t, http.MethodGet, "/api/auth/me", nil, "bob")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "cust-bob")
}

func TestHealthReportsDegraded(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/health", nil, "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body healthStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "degraded", body.Status)
	assert.Equal(t, "connected", body.Database)
	assert.Equal(t, "error", body.Redis)
}

func TestGenerateCheckoutID(t *testing.T) {
	env := newTestEnv(t)

	first := env.do(t, http.MethodGet, "/api/checkout/id", nil, "")
	second := env.do(t, http.MethodGet, "/api/checkout/id", nil, "")
	require.Equal(t, http.StatusOK, first.Code)
	assert.NotEqual(t, first.Body.String(), second.Body.String())
}

func TestRequestDeliveryAndProducts(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/delivery-requests", models.CreateDeliveryRequest{
		PinCode: "560099", Name: "Ravi", Phone: "9876543210",
	}, "")
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), "req-1")

	rec = env.do(t, http.MethodGet, "/api/products", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Tomato")

	rec = env.do(t, http.MethodGet, "/api/products/durian", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
