package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"freshcart-api/database"
	"freshcart-api/services/email"
)

type Config struct {
	Server   ServerConfig
	Database database.DatabaseConfig
	Redis    RedisConfig
	SMTP     email.SMTPConfig
	Session  SessionConfig
	JWT      JWTConfig
	Store    StoreConfig
}

type ServerConfig struct {
	Port          string
	AllowedOrigin string
	Env           string
	LogLevel      string
}

type RedisConfig struct {
	URL               string
	WorkerConcurrency int
}

type SessionConfig struct {
	Secret string
	Domain string
	MaxAge time.Duration
	Secure bool
}

type JWTConfig struct {
	Secret string
	Issuer string
}

type StoreConfig struct {
	PinPrefix     string
	OperatorEmail string
}

// Load reads .env when present and then the process environment. Warnings are
// returned rather than logged because the logger is built from this config.
func Load() (*Config, []string) {
	var warnings []string
	if err := godotenv.Load(); err != nil {
		warnings = append(warnings, "no .env file loaded: "+err.Error())
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:          getEnv("SERVER_PORT", "8080"),
			AllowedOrigin: os.Getenv("ALLOWED_ORIGIN"),
			Env:           getEnv("APP_ENV", "development"),
			LogLevel:      getEnv("LOG_LEVEL", "info"),
		},
		Database: database.DatabaseConfig{
			Host:     os.Getenv("DB_HOST"),
			User:     os.Getenv("DB_USER"),
			Password: os.Getenv("DB_PASSWORD"),
			DBName:   os.Getenv("DB_NAME"),
		},
		Redis: RedisConfig{
			URL:               os.Getenv("REDIS_URL"),
			WorkerConcurrency: getInt("WORKER_CONCURRENCY", 2),
		},
		SMTP: email.SMTPConfig{
			Host:          os.Getenv("SMTP_HOST"),
			Port:          getEnv("SMTP_PORT", "587"),
			Username:      os.Getenv("SMTP_USER"),
			Password:      os.Getenv("SMTP_PASSWORD"),
			From:          os.Getenv("SMTP_FROM"),
			FromName:      getEnv("SMTP_FROM_NAME", "FreshCart"),
			SkipTLSVerify: getBool("SMTP_SKIP_TLS_VERIFY", false),
		},
		Session: SessionConfig{
			Secret: os.Getenv("SESSION_SECRET"),
			Domain: os.Getenv("SESSION_DOMAIN"),
			MaxAge: getDuration("SESSION_MAX_AGE", 30*24*time.Hour),
			Secure: getBool("SESSION_SECURE", false),
		},
		JWT: JWTConfig{
			Secret: os.Getenv("JWT_SECRET"),
			Issuer: getEnv("JWT_ISSUER", "freshcart-api"),
		},
		Store: StoreConfig{
			PinPrefix:     getEnv("PIN_CODE_PREFIX", "5"),
			OperatorEmail: os.Getenv("OPERATOR_EMAIL"),
		},
	}

	if cfg.Redis.URL == "" {
		cfg.Redis.URL = "redis://localhost:6379/0"
		warnings = append(warnings, "REDIS_URL not set, using default: "+cfg.Redis.URL)
	}
	if cfg.SMTP.From == "" {
		cfg.SMTP.From = cfg.SMTP.Username
	}

	if cfg.Redis.WorkerConcurrency < 1 {
		cfg.Redis.WorkerConcurrency = 1
	} else if cfg.Redis.WorkerConcurrency > 8 {
		cfg.Redis.WorkerConcurrency = 8
	}

	return cfg, warnings
}

// Validate reports every missing mandatory setting at once.
func (c *Config) Validate() error {
	var missing []string
	if c.Database.Host == "" {
		missing = append(missing, "DB_HOST")
	}
	if c.Database.DBName == "" {
		missing = append(missing, "DB_NAME")
	}
	if c.Session.Secret == "" {
		missing = append(missing, "SESSION_SECRET")
	}
	if c.JWT.Secret == "" {
		missing = append(missing, "JWT_SECRET")
	}
	if len(missing) > 0 {
		return errors.New("missing required configuration: " + strings.Join(missing, ", "))
	}
	if len(c.JWT.Secret) < 32 {
		return errors.New("JWT_SECRET must be at least 32 characters")
	}
	return nil
}

// LogFields is the loggable view of the config. Secrets are left out.
func (c *Config) LogFields() []zap.Field {
	return []zap.Field{
		zap.String("env", c.Server.Env),
		zap.String("port", c.Server.Port),
		zap.String("db_host", c.Database.Host),
		zap.String("db_name", c.Database.DBName),
		zap.String("smtp_host", c.SMTP.Host),
		zap.Int("worker_concurrency", c.Redis.WorkerConcurrency),
		zap.String("pin_prefix", c.Store.PinPrefix),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

func getBool(key string, fallback bool) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v, err := time.ParseDuration(os.Getenv(key))
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}
