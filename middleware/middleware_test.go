package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"freshcart-api/models"
	"freshcart-api/services/auth"
)

type stubTokens struct{}

func (stubTokens) ValidateToken(token string) (*models.AuthUser, error) {
	switch token {
	case "good":
		return &models.AuthUser{CustomerID: "cust-1"}, nil
	case "old":
		return nil, auth.ErrTokenExpired
	default:
		return nil, errors.New("bad")
	}
}

func whoAmI(w http.ResponseWriter, r *http.Request) {
	if u := GetUserFromContext(r.Context()); u != nil {
		w.Write([]byte(u.CustomerID))
		return
	}
	w.Write([]byte("anonymous"))
}

func TestAuthMiddleware(t *testing.T) {
	h := AuthMiddleware(stubTokens{}, zap.NewNop())(http.HandlerFunc(whoAmI))

	tests := []struct {
		header string
		status int
		body   string
	}{
		{"", http.StatusUnauthorized, "Missing authorization header"},
		{"Token good", http.StatusUnauthorized, "Invalid authorization header format"},
		{"Bearer old", http.StatusUnauthorized, "Token expired"},
		{"Bearer good", http.StatusOK, "cust-1"},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/api/orders", nil)
		if tt.header != "" {
			req.Header.Set("Authorization", tt.header)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		assert.Equal(t, tt.status, rec.Code, tt.header)
		assert.Contains(t, rec.Body.String(), tt.body)
	}
}

func TestOptionalAuth(t *testing.T) {
	h := OptionalAuth(stubTokens{})(http.HandlerFunc(whoAmI))

	req := httptest.NewRequest(http.MethodGet, "/api/cart", nil)
	req.Header.Set("Authorization", "Bearer nope")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "anonymous", rec.Body.String())

	req.Header.Set("Authorization", "Bearer good")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "cust-1", rec.Body.String())
}

func TestRateLimiterBlocksAfterLimit(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	rl := NewRateLimiter(client, zap.NewNop())
	h := rl.RateLimitMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	limit := defaultConfigs["/api/delivery-requests"].Requests
	for i := 0; i < limit; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/delivery-requests", nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, "request %d", i)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/delivery-requests", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))

	other := httptest.NewRequest(http.MethodPost, "/api/delivery-requests", nil)
	other.Header.Set("X-Forwarded-For", "10.0.0.9")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, other)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequestLoggerSetsRequestID(t *testing.T) {
	var seen string
	h := RequestLogger(zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "abc-123", seen)
	assert.Equal(t, "abc-123", rec.Header().Get("X-Request-ID"))
}

func TestCORSPreflight(t *testing.T) {
	h := CORS("https://shop.example")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("preflight reached handler")
	}))

	req := httptest.NewRequest(http.MethodOptions, "/api/cart", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "https://shop.example", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
}
