// Package config reads the market's settings from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env      string
	LogLevel string

	HTTPPort           string
	RequestTimeout     time.Duration
	ShutdownTimeout    time.Duration
	MaxRequestBodySize int64
	RateLimitPerMinute int

	MongoURI      string
	MongoDBName   string
	MigrationsDir string

	RedisAddr      string
	RedisPassword  string
	RedisDB        int
	CartTTL        time.Duration
	IdempotencyTTL time.Duration

	KafkaBrokers []string

	JWTSecret string

	PaymentTimeout        time.Duration
	PaymentApprovePercent int
	PaymentLatency        time.Duration
}

// Load reads a .env file from the working directory when present, then the
// process environment. Variables already set win over the file.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv()
}

func FromEnv() (*Config, error) {
	cfg := &Config{
		Env:                getEnv("APP_ENV", "production"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		HTTPPort:           getEnv("HTTP_PORT", "5000"),
		MaxRequestBodySize: 1 << 20, // 1MB
		MongoURI:           getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDBName:        getEnv("MONGO_DB_NAME", "healthy_market"),
		MigrationsDir:      getEnv("MIGRATIONS_DIR", "internal/repository/migrations"),
		RedisAddr:          getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:      getEnv("REDIS_PASSWORD", ""),
		KafkaBrokers:       getList("KAFKA_BROKERS", ""),
		JWTSecret:          os.Getenv("JWT_SECRET"),
	}

	var err error
	if cfg.RequestTimeout, err = getDuration("REQUEST_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.ShutdownTimeout, err = getDuration("SHUTDOWN_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.CartTTL, err = getDuration("CART_TTL", 30*24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.IdempotencyTTL, err = getDuration("IDEMPOTENCY_TTL", 10*time.Minute); err != nil {
		return nil, err
	}
	if cfg.PaymentTimeout, err = getDuration("PAYMENT_TIMEOUT", 5*time.Second); err != nil {
		return nil, err
	}
	if cfg.PaymentLatency, err = getDuration("PAYMENT_LATENCY", 0); err != nil {
		return nil, err
	}
	if cfg.RateLimitPerMinute, err = getInt("RATE_LIMIT_PER_MINUTE", 60); err != nil {
		return nil, err
	}
	if cfg.RedisDB, err = getInt("REDIS_DB", 0); err != nil {
		return nil, err
	}
	if cfg.PaymentApprovePercent, err = getInt("PAYMENT_APPROVE_PERCENT", 100); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ValidateServe checks the settings only the API server needs.
func (c *Config) ValidateServe() error {
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	return nil
}

func (c *Config) validate() error {
	if c.RateLimitPerMinute <= 0 {
		return errors.New("RATE_LIMIT_PER_MINUTE must be positive")
	}
	if c.PaymentApprovePercent < 0 || c.PaymentApprovePercent > 100 {
		return errors.New("PAYMENT_APPROVE_PERCENT must be between 0 and 100")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return v, nil
}

func getDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return v, nil
}

// getList splits a comma separated value, dropping blanks.
func getList(key, defaultValue string) []string {
	var out []string
	for _, part := range strings.Split(getEnv(key, defaultValue), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
