package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"
)

type Config struct {
	Port        string
	LogLevel    string
	DBURL       string
	DBMaxConns  int
	StoreDriver string

	// RedisURL enables the HTTP idempotency cache when set.
	RedisURL           string
	IdempotencyTTL     time.Duration
	MaxRetries         int
	TransferFeeRate    decimal.Decimal
	ShutdownTimeout    time.Duration
	CORSAllowedOrigins []string
	RunMigrations      bool
}

func LoadConfig() (*Config, error) {
	_ = godotenv.Load("config.env")

	v := viper.New()
	v.SetDefault("APP_PORT", "8080")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "")
	v.SetDefault("DB_NAME", "ledger")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("DB_MAX_CONNS", 8)
	v.SetDefault("STORE_DRIVER", StoreDriverPostgres)
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("IDEMPOTENCY_TTL", "24h")
	v.SetDefault("LEDGER_MAX_RETRIES", 3)
	v.SetDefault("TRANSFER_FEE_RATE", "0.015")
	v.SetDefault("SHUTDOWN_TIMEOUT", "10s")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "*")
	v.SetDefault("RUN_MIGRATIONS", true)
	v.AutomaticEnv()

	cfg := &Config{
		Port:          v.GetString("APP_PORT"),
		LogLevel:      v.GetString("LOG_LEVEL"),
		DBURL:         v.GetString("DATABASE_URL"),
		DBMaxConns:    v.GetInt("DB_MAX_CONNS"),
		StoreDriver:   strings.ToLower(v.GetString("STORE_DRIVER")),
		RedisURL:      v.GetString("REDIS_URL"),
		MaxRetries:    v.GetInt("LEDGER_MAX_RETRIES"),
		RunMigrations: v.GetBool("RUN_MIGRATIONS"),
	}
	if cfg.DBURL == "" {
		cfg.DBURL = fmt.Sprintf(
			"postgres://%s:%s@%s:%s/%s",
			v.GetString("DB_USER"),
			v.GetString("DB_PASSWORD"),
			v.GetString("DB_HOST"),
			v.GetString("DB_PORT"),
			v.GetString("DB_NAME"),
		)
	}
	if cfg.StoreDriver != StoreDriverPostgres && cfg.StoreDriver != StoreDriverMemory {
		return nil, fmt.Errorf("unsupported STORE_DRIVER %q", cfg.StoreDriver)
	}
	if cfg.DBMaxConns <= 0 {
		cfg.DBMaxConns = 8
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 1
	}

	var err error
	if cfg.IdempotencyTTL, err = time.ParseDuration(v.GetString("IDEMPOTENCY_TTL")); err != nil {
		return nil, fmt.Errorf("invalid IDEMPOTENCY_TTL: %w", err)
	}
	if cfg.ShutdownTimeout, err = time.ParseDuration(v.GetString("SHUTDOWN_TIMEOUT")); err != nil {
		return nil, fmt.Errorf("invalid SHUTDOWN_TIMEOUT: %w", err)
	}
	if cfg.TransferFeeRate, err = decimal.NewFromString(v.GetString("TRANSFER_FEE_RATE")); err != nil {
		return nil, fmt.Errorf("invalid TRANSFER_FEE_RATE: %w", err)
	}
	if cfg.TransferFeeRate.IsNegative() {
		return nil, fmt.Errorf("TRANSFER_FEE_RATE must not be negative, got %s", cfg.TransferFeeRate)
	}

	for _, origin := range strings.Split(v.GetString("CORS_ALLOWED_ORIGINS"), ",") {
		if o := strings.TrimSpace(origin); o != "" {
			cfg.CORSAllowedOrigins = append(cfg.CORSAllowedOrigins, o)
		}
	}
	return cfg, nil
}
