package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	defaultAppName        = "PaystackWalletService"
	defaultAppEnv         = "development"
	defaultPort           = "3001"
	defaultLogLevel       = "info"
	defaultShutdownDelay  = 10 * time.Second
	defaultIdempotencyTTL = 24 * time.Hour
	defaultGatewayTimeout = 15 * time.Second
	defaultDedupWindow    = 60 * time.Second
	defaultPendingMaxAge  = 24 * time.Hour
	defaultPaystackURL    = "https://api.paystack.co"
	defaultDepositMin     = "100"
	defaultDepositMax     = "10000000"
)

// Config captures application runtime configuration loaded from environment variables.
type Config struct {
	AppName        string
	AppEnv         string
	Port           string
	LogLevel       string
	DatabaseURL    string
	RedisURL       string
	ShutdownPeriod time.Duration
	IdempotencyTTL time.Duration

	PaystackSecretKey  string
	PaystackBaseURL    string
	GatewayTimeout     time.Duration
	DepositCallbackURL string

	DepositMin         decimal.Decimal
	DepositMax         decimal.Decimal
	DepositDedupWindow time.Duration
	PendingMaxAge      time.Duration
}

// Load reads configuration values from the environment and populates a Config instance.
func Load() (Config, error) {
	cfg := Config{
		AppName:            getEnv("APP_NAME", defaultAppName),
		AppEnv:             getEnv("APP_ENV", defaultAppEnv),
		Port:               getEnv("PORT", defaultPort),
		LogLevel:           strings.ToLower(getEnv("LOG_LEVEL", defaultLogLevel)),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		RedisURL:           os.Getenv("REDIS_URL"),
		ShutdownPeriod:     defaultShutdownDelay,
		IdempotencyTTL:     defaultIdempotencyTTL,
		PaystackSecretKey:  os.Getenv("PAYSTACK_SECRET_KEY"),
		PaystackBaseURL:    getEnv("PAYSTACK_BASE_URL", defaultPaystackURL),
		GatewayTimeout:     defaultGatewayTimeout,
		DepositCallbackURL: getEnv("DEPOSIT_CALLBACK_URL", "http://localhost:3001/api/v1/wallet/deposit/callback"),
		DepositDedupWindow: defaultDedupWindow,
		PendingMaxAge:      defaultPendingMaxAge,
	}

	if v := os.Getenv("SHUTDOWN_TIMEOUT_SECONDS"); v != "" {
		seconds, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid SHUTDOWN_TIMEOUT_SECONDS: %w", err)
		}
		cfg.ShutdownPeriod = time.Duration(seconds) * time.Second
	}

	if v := os.Getenv("IDEMPOTENCY_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid IDEMPOTENCY_TTL: %w", err)
		}
		cfg.IdempotencyTTL = d
	}

	if v := os.Getenv("GATEWAY_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid GATEWAY_TIMEOUT: %w", err)
		}
		cfg.GatewayTimeout = d
	}

	if v := os.Getenv("DEPOSIT_DEDUP_WINDOW"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid DEPOSIT_DEDUP_WINDOW: %w", err)
		}
		cfg.DepositDedupWindow = d
	}

	if v := os.Getenv("PENDING_MAX_AGE"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid PENDING_MAX_AGE: %w", err)
		}
		cfg.PendingMaxAge = d
	}

	var err error
	cfg.DepositMin, err = decimal.NewFromString(getEnv("DEPOSIT_MIN", defaultDepositMin))
	if err != nil {
		return Config{}, fmt.Errorf("invalid DEPOSIT_MIN: %w", err)
	}
	cfg.DepositMax, err = decimal.NewFromString(getEnv("DEPOSIT_MAX", defaultDepositMax))
	if err != nil {
		return Config{}, fmt.Errorf("invalid DEPOSIT_MAX: %w", err)
	}

	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("DATABASE_URL must be set")
	}

	if cfg.RedisURL == "" {
		return Config{}, fmt.Errorf("REDIS_URL must be set")
	}

	if cfg.PaystackSecretKey == "" && !cfg.IsDev() {
		return Config{}, fmt.Errorf("PAYSTACK_SECRET_KEY must be set when APP_ENV=%s", cfg.AppEnv)
	}

	return cfg, nil
}

// Address returns the listen address in the format Fiber expects.
func (c Config) Address() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return fmt.Sprintf(":%s", c.Port)
}

// IsDev reports whether the service runs in a development environment.
func (c Config) IsDev() bool {
	switch strings.ToLower(c.AppEnv) {
	case "dev", "development", "local":
		return true
	default:
		return false
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
