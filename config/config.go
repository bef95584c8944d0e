// Package config provides configuration loading and validation.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure.
type Config struct {
	Server      Server       `yaml:"server"`
	Auth        Auth         `yaml:"auth"`
	Store       Store        `yaml:"store"`
	RateLimit   RateLimit    `yaml:"rate_limit"`
	Billing     Billing      `yaml:"billing"`
	Identity    Identity     `yaml:"identity"`
	Tiers       []TierConfig `yaml:"tiers"`
	DefaultTier string       `yaml:"default_tier"`
	CORS        CORS         `yaml:"cors"`
	Logging     Logging      `yaml:"logging"`
	Metrics     Metrics      `yaml:"metrics"`
}

// Server configures the HTTP server.
type Server struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// Auth configures how the principal and tier are extracted from a
// request. Use "jwt" to verify a bearer token locally or "header" to
// trust headers set by an authenticating proxy in front of the service.
type Auth struct {
	Mode            string `yaml:"mode"` // "jwt" or "header"
	JWTSecret       string `yaml:"jwt_secret,omitempty"`
	PrincipalHeader string `yaml:"principal_header"`
	TierHeader      string `yaml:"tier_header"`
	EmailHeader     string `yaml:"email_header"`
}

// Store configures the key-value store backing usage records and
// rate-limit buckets.
type Store struct {
	Driver string      `yaml:"driver"` // "memory", "sqlite", or "redis"
	SQLite SQLiteStore `yaml:"sqlite,omitempty"`
	Redis  RedisStore  `yaml:"redis,omitempty"`
}

// SQLiteStore configures the sqlite driver.
type SQLiteStore struct {
	Path string `yaml:"path"`
}

// RedisStore configures the redis driver.
type RedisStore struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password,omitempty"`
	DB       int    `yaml:"db"`
}

// RateLimit configures the per-minute fixed-window limiter.
type RateLimit struct {
	PerMinute int `yaml:"per_minute"`
}

// Billing configures the payment provider. Use "none" or "stripe".
type Billing struct {
	Mode          string `yaml:"mode"`
	StripeKey     string `yaml:"stripe_key,omitempty"`
	WebhookSecret string `yaml:"webhook_secret,omitempty"`
	SuccessURL    string `yaml:"success_url,omitempty"`
	CancelURL     string `yaml:"cancel_url,omitempty"`
	ReturnURL     string `yaml:"return_url,omitempty"`
}

// Identity configures the identity-provider metadata writer that
// entitlement sync targets. Use "none" or "clerk".
type Identity struct {
	Mode    string `yaml:"mode"`
	BaseURL string `yaml:"base_url,omitempty"`
	APIKey  string `yaml:"api_key,omitempty"`
}

// TierConfig configures one subscription tier. RequestsPerMonth of -1
// means unlimited.
type TierConfig struct {
	ID               string `yaml:"id"`
	Name             string `yaml:"name"`
	PriceMonthly     int64  `yaml:"price_monthly"` // cents
	RequestsPerMonth int64  `yaml:"requests_per_month"`
	StripePriceID    string `yaml:"stripe_price_id,omitempty"`
}

// CORS configures the allowed browser origins.
type CORS struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// Logging configures logging.
type Logging struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "json" or "console"
}

// Metrics configures Prometheus metrics.
type Metrics struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Load reads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	// Expand environment variables
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// LoadFromEnv creates configuration entirely from environment
// variables. Useful for Docker deployments where no config file is
// mounted.
//
// Environment variables:
//
//	METERGATE_SERVER_HOST        - Server host (default: 0.0.0.0)
//	METERGATE_SERVER_PORT        - Server port (default: 8080)
//	METERGATE_AUTH_MODE          - Auth mode: jwt or header (default: header)
//	METERGATE_AUTH_JWT_SECRET    - HMAC secret for jwt mode
//	METERGATE_STORE_DRIVER       - Store driver: memory, sqlite, or redis
//	METERGATE_STORE_SQLITE_PATH  - SQLite path (default: metergate.db)
//	METERGATE_STORE_REDIS_ADDR   - Redis address (default: localhost:6379)
//	METERGATE_RATELIMIT_PER_MINUTE - Per-minute request limit (default: 100)
//	METERGATE_BILLING_MODE       - Billing mode: none or stripe (default: none)
//	METERGATE_BILLING_STRIPE_KEY - Stripe secret key
//	METERGATE_IDENTITY_MODE      - Identity mode: none or clerk (default: none)
//	METERGATE_LOG_LEVEL          - Log level (default: info)
//	METERGATE_LOG_FORMAT         - Log format: json or console (default: json)
//	METERGATE_METRICS_ENABLED    - Enable /metrics endpoint (default: false)
func LoadFromEnv() (*Config, error) {
	var cfg Config

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// LoadWithFallback tries to load from file, falls back to environment
// variables.
func LoadWithFallback(path string) (*Config, error) {
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
	}
	return LoadFromEnv()
}

// applyEnvOverrides applies METERGATE_* environment variables to the
// config. Environment variables always override file-based
// configuration.
func applyEnvOverrides(cfg *Config) {
	// Server configuration
	if v := os.Getenv("METERGATE_SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("METERGATE_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("METERGATE_SERVER_READ_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Server.ReadTimeout = d
		}
	}
	if v := os.Getenv("METERGATE_SERVER_WRITE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Server.WriteTimeout = d
		}
	}

	// Auth configuration
	if v := os.Getenv("METERGATE_AUTH_MODE"); v != "" {
		cfg.Auth.Mode = v
	}
	if v := os.Getenv("METERGATE_AUTH_JWT_SECRET"); v != "" {
		cfg.Auth.JWTSecret = v
	}

	// Store configuration
	if v := os.Getenv("METERGATE_STORE_DRIVER"); v != "" {
		cfg.Store.Driver = v
	}
	if v := os.Getenv("METERGATE_STORE_SQLITE_PATH"); v != "" {
		cfg.Store.SQLite.Path = v
	}
	if v := os.Getenv("METERGATE_STORE_REDIS_ADDR"); v != "" {
		cfg.Store.Redis.Addr = v
	}
	if v := os.Getenv("METERGATE_STORE_REDIS_PASSWORD"); v != "" {
		cfg.Store.Redis.Password = v
	}
	if v := os.Getenv("METERGATE_STORE_REDIS_DB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Store.Redis.DB = n
		}
	}

	// Rate limit configuration
	if v := os.Getenv("METERGATE_RATELIMIT_PER_MINUTE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.RateLimit.PerMinute = n
		}
	}

	// Billing configuration
	if v := os.Getenv("METERGATE_BILLING_MODE"); v != "" {
		cfg.Billing.Mode = v
	}
	if v := os.Getenv("METERGATE_BILLING_STRIPE_KEY"); v != "" {
		cfg.Billing.StripeKey = v
	}
	if v := os.Getenv("METERGATE_BILLING_WEBHOOK_SECRET"); v != "" {
		cfg.Billing.WebhookSecret = v
	}

	// Identity configuration
	if v := os.Getenv("METERGATE_IDENTITY_MODE"); v != "" {
		cfg.Identity.Mode = v
	}
	if v := os.Getenv("METERGATE_IDENTITY_BASE_URL"); v != "" {
		cfg.Identity.BaseURL = v
	}
	if v := os.Getenv("METERGATE_IDENTITY_API_KEY"); v != "" {
		cfg.Identity.APIKey = v
	}

	// Logging configuration
	if v := os.Getenv("METERGATE_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("METERGATE_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}

	// Metrics configuration
	if v := os.Getenv("METERGATE_METRICS_ENABLED"); v != "" {
		cfg.Metrics.Enabled = parseBool(v)
	}
	if v := os.Getenv("METERGATE_METRICS_PATH"); v != "" {
		cfg.Metrics.Path = v
	}
}

// parseBool parses a boolean from common string values.
func parseBool(v string) bool {
	v = strings.ToLower(strings.TrimSpace(v))
	return v == "true" || v == "1" || v == "yes" || v == "on"
}

func setDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 30 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 60 * time.Second
	}

	if cfg.Auth.Mode == "" {
		cfg.Auth.Mode = "header"
	}
	if cfg.Auth.PrincipalHeader == "" {
		cfg.Auth.PrincipalHeader = "X-User-Id"
	}
	if cfg.Auth.TierHeader == "" {
		cfg.Auth.TierHeader = "X-User-Tier"
	}
	if cfg.Auth.EmailHeader == "" {
		cfg.Auth.EmailHeader = "X-User-Email"
	}

	if cfg.Store.Driver == "" {
		cfg.Store.Driver = "memory"
	}
	if cfg.Store.SQLite.Path == "" {
		cfg.Store.SQLite.Path = "metergate.db"
	}
	if cfg.Store.Redis.Addr == "" {
		cfg.Store.Redis.Addr = "localhost:6379"
	}

	if cfg.RateLimit.PerMinute == 0 {
		cfg.RateLimit.PerMinute = 100
	}

	if cfg.Billing.Mode == "" {
		cfg.Billing.Mode = "none"
	}
	if cfg.Identity.Mode == "" {
		cfg.Identity.Mode = "none"
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}

	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}

	// Default tier table if none configured
	if len(cfg.Tiers) == 0 {
		cfg.Tiers = []TierConfig{
			{ID: "free", Name: "Free", RequestsPerMonth: 100},
			{ID: "pro", Name: "Pro", PriceMonthly: 2900, RequestsPerMonth: 10000},
			{ID: "developer", Name: "Developer", PriceMonthly: 9900, RequestsPerMonth: -1},
		}
	}
	if cfg.DefaultTier == "" {
		cfg.DefaultTier = "free"
	}
}

func validate(cfg *Config) error {
	validAuthModes := map[string]bool{"jwt": true, "header": true}
	if !validAuthModes[cfg.Auth.Mode] {
		return fmt.Errorf("auth.mode must be 'jwt' or 'header', got %q", cfg.Auth.Mode)
	}
	if cfg.Auth.Mode == "jwt" && cfg.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required when auth.mode is 'jwt'")
	}

	validDrivers := map[string]bool{"memory": true, "sqlite": true, "redis": true}
	if !validDrivers[cfg.Store.Driver] {
		return fmt.Errorf("store.driver must be one of: memory, sqlite, redis, got %q", cfg.Store.Driver)
	}

	if cfg.RateLimit.PerMinute < 0 {
		return fmt.Errorf("rate_limit.per_minute must be positive, got %d", cfg.RateLimit.PerMinute)
	}

	validBillingModes := map[string]bool{"none": true, "stripe": true}
	if !validBillingModes[cfg.Billing.Mode] {
		return fmt.Errorf("billing.mode must be 'none' or 'stripe', got %q", cfg.Billing.Mode)
	}
	if cfg.Billing.Mode == "stripe" {
		var missing []string
		if cfg.Billing.StripeKey == "" {
			missing = append(missing, "billing.stripe_key")
		}
		if cfg.Billing.WebhookSecret == "" {
			missing = append(missing, "billing.webhook_secret")
		}
		if len(missing) > 0 {
			return fmt.Errorf("billing.mode is 'stripe' but required settings are missing: %s", strings.Join(missing, ", "))
		}
	}

	validIdentityModes := map[string]bool{"none": true, "clerk": true}
	if !validIdentityModes[cfg.Identity.Mode] {
		return fmt.Errorf("identity.mode must be 'none' or 'clerk', got %q", cfg.Identity.Mode)
	}
	if cfg.Identity.Mode == "clerk" && cfg.Identity.APIKey == "" {
		return fmt.Errorf("identity.api_key is required when identity.mode is 'clerk'")
	}

	seen := make(map[string]bool)
	for i, t := range cfg.Tiers {
		if t.ID == "" {
			return fmt.Errorf("tiers[%d].id is required", i)
		}
		if seen[t.ID] {
			return fmt.Errorf("tiers[%d]: duplicate tier id %q", i, t.ID)
		}
		seen[t.ID] = true
		if t.RequestsPerMonth < -1 {
			return fmt.Errorf("tiers[%d].requests_per_month must be >= 0 or -1 for unlimited", i)
		}
	}
	if !seen[cfg.DefaultTier] {
		return fmt.Errorf("default_tier %q is not in the tier table", cfg.DefaultTier)
	}

	return nil
}
