package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"freshcart-api/models"
)

type RateLimiter struct {
	client  *redis.Client
	logger  *zap.Logger
	configs map[string]RateLimitConfig
}

type RateLimitConfig struct {
	Requests int
	Window   time.Duration
	Message  string
}

var defaultConfigs = map[string]RateLimitConfig{
	"/api/auth/login": {
		Requests: 5,
		Window:   time.Minute * 15,
		Message:  "Too many login attempts. Please try again in 15 minutes.",
	},
	"/api/auth/register": {
		Requests: 5,
		Window:   time.Hour,
		Message:  "Too many sign-ups from this address. Please try again later.",
	},
	"/api/auth/refresh": {
		Requests: 10,
		Window:   time.Minute * 5,
		Message:  "Too many token refresh attempts. Please wait 5 minutes.",
	},
	"/api/coupons/apply": {
		Requests: 10,
		Window:   time.Minute * 5,
		Message:  "Too many coupon attempts. Please wait a few minutes.",
	},
	"/api/delivery-requests": {
		Requests: 3,
		Window:   time.Hour,
		Message:  "You have already sent several delivery requests. Please try again later.",
	},
	"/api/orders": {
		Requests: 10,
		Window:   time.Minute * 10,
		Message:  "Too many orders placed. Please wait a few minutes.",
	},
	"default": {
		Requests: 120,
		Window:   time.Minute,
		Message:  "Rate limit exceeded. Please slow down your requests.",
	},
}

func NewRateLimiter(client *redis.Client, logger *zap.Logger) *RateLimiter {
	return &RateLimiter{client: client, logger: logger, configs: defaultConfigs}
}

func (rl *RateLimiter) RateLimitMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodOptions || r.Method == http.MethodGet {
				next.ServeHTTP(w, r)
				return
			}

			config := rl.getConfigForEndpoint(r.URL.Path)
			key := fmt.Sprintf("rate_limit:%s:%s", getClientIP(r), r.URL.Path)

			allowed, remaining, resetTime, err := rl.checkRateLimit(r.Context(), key, config)
			if err != nil {
				rl.logger.Warn("rate limit check failed, allowing request", zap.Error(err))
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(config.Requests))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(resetTime.Unix(), 10))

			if !allowed {
				rl.logger.Info("rate limit exceeded", zap.String("key", key))

				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("Retry-After", strconv.FormatInt(int64(time.Until(resetTime).Seconds()), 10))
				w.WriteHeader(http.StatusTooManyRequests)
				json.NewEncoder(w).Encode(models.APIResponse{
					Status:  "error",
					Message: config.Message,
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func (rl *RateLimiter) getConfigForEndpoint(path string) RateLimitConfig {
	if config, exists := rl.configs[path]; exists {
		return config
	}
	return rl.configs["default"]
}

// Sliding log per key: one sorted-set member per request, scored by its
// timestamp in milliseconds.
const rateLimitScript = `
local key = KEYS[1]
local window_start = tonumber(ARGV[1])
local limit = tonumber(ARGV[2])
local now = tonumber(ARGV[3])
local member = ARGV[4]
local ttl = tonumber(ARGV[5])

redis.call('ZREMRANGEBYSCORE', key, 0, window_start - 1)

local current_count = redis.call('ZCARD', key)

if current_count < limit then
    redis.call('ZADD', key, now, member)
    redis.call('EXPIRE', key, ttl)
    return {1, limit - current_count - 1}
else
    return {0, 0}
end
`

func (rl *RateLimiter) checkRateLimit(ctx context.Context, key string, config RateLimitConfig) (bool, int, time.Time, error) {
	now := time.Now()
	windowStart := now.Add(-config.Window)
	ttl := int64(config.Window.Seconds()) + 1

	result, err := rl.client.Eval(ctx, rateLimitScript, []string{key},
		windowStart.UnixMilli(), config.Requests, now.UnixMilli(), strconv.FormatInt(now.UnixNano(), 10), ttl).Result()
	if err != nil {
		return false, 0, time.Time{}, err
	}

	values, ok := result.([]interface{})
	if !ok || len(values) != 2 {
		return false, 0, time.Time{}, fmt.Errorf("unexpected redis result format")
	}

	allowed, ok1 := values[0].(int64)
	remaining, ok2 := values[1].(int64)
	if !ok1 || !ok2 {
		return false, 0, time.Time{}, fmt.Errorf("failed to parse redis result")
	}

	return allowed == 1, int(remaining), now.Add(config.Window), nil
}

func getClientIP(r *http.Request) string {
	if ip := r.Header.Get("X-Forwarded-For"); ip != "" {
		ips := strings.Split(ip, ",")
		return strings.TrimSpace(ips[0])
	}

	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}

	ip := r.RemoteAddr
	if idx := strings.LastIndex(ip, ":"); idx != -1 {
		ip = ip[:idx]
	}
	return ip
}

func SecurityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		if strings.HasPrefix(r.URL.Path, "/api/") {
			w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
			w.Header().Set("Pragma", "no-cache")
			w.Header().Set("Expires", "0")
		}

		next.ServeHTTP(w, r)
	})
}
