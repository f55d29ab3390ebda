package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Store backends understood by STORE_BACKEND
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreRedis    = "redis"
)

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	Port           string
	Env            string
	LogFormat      string
	AllowedOrigins []string

	// Ledger network
	Network            string
	NetworksConfigPath string
	HorizonURL         string
	HorizonRPS         float64

	// Secure store configuration
	StoreBackend    string
	DatabaseURL     string
	RedisURL        string
	RedisPassword   string
	VaultPassphrase string

	// JWT configuration
	JWTSecret string

	// Cache lifetimes
	ExistenceTTL time.Duration
	AssetsTTL    time.Duration
	PaymentsTTL  time.Duration
	ContactsTTL  time.Duration
	KYCTTL       time.Duration

	// Refresh policy
	MinRefreshInterval  time.Duration
	AutoRefreshInterval time.Duration
	DashboardIdleTTL    time.Duration
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Port:               getEnv("PORT", "8080"),
		Env:                getEnv("ENV", "development"),
		LogFormat:          getEnv("LOG_FORMAT", ""),
		AllowedOrigins:     getEnvAsList("ALLOWED_ORIGINS", []string{"http://localhost:5173", "http://localhost:5174"}),
		Network:            getEnv("NETWORK", "testnet"),
		NetworksConfigPath: getEnv("NETWORKS_CONFIG_PATH", ""),
		HorizonURL:         getEnv("HORIZON_URL", ""),
		HorizonRPS:         getEnvAsFloat("HORIZON_RPS", 10),
		StoreBackend:       getEnv("STORE_BACKEND", StoreMemory),
		DatabaseURL:        getEnv("DATABASE_URL", ""),
		RedisURL:           getEnv("REDIS_URL", "localhost:6379"),
		RedisPassword:      getEnv("REDIS_PASSWORD", ""),
		VaultPassphrase:    getEnv("VAULT_PASSPHRASE", ""),
		JWTSecret:          getEnv("JWT_SECRET", ""),

		ExistenceTTL: getEnvAsDuration("EXISTENCE_TTL", 60*time.Second),
		AssetsTTL:    getEnvAsDuration("ASSETS_TTL", 30*time.Second),
		PaymentsTTL:  getEnvAsDuration("PAYMENTS_TTL", 20*time.Second),
		ContactsTTL:  getEnvAsDuration("CONTACTS_TTL", 300*time.Second),
		KYCTTL:       getEnvAsDuration("KYC_TTL", 180*time.Second),

		MinRefreshInterval:  getEnvAsDuration("MIN_REFRESH_INTERVAL", 2*time.Second),
		AutoRefreshInterval: getEnvAsDuration("AUTO_REFRESH_INTERVAL", time.Minute),
		DashboardIdleTTL:    getEnvAsDuration("DASHBOARD_IDLE_TTL", 30*time.Minute),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate ensures all required configuration is present
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}

	if len(c.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 characters long")
	}

	if c.VaultPassphrase == "" {
		return fmt.Errorf("VAULT_PASSPHRASE is required")
	}

	switch c.StoreBackend {
	case StoreMemory:
		if c.IsProduction() {
			return fmt.Errorf("STORE_BACKEND=memory is not allowed in production")
		}
	case StorePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for STORE_BACKEND=postgres")
		}
	case StoreRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("REDIS_URL is required for STORE_BACKEND=redis")
		}
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend)
	}

	if c.HorizonRPS <= 0 {
		return fmt.Errorf("HORIZON_RPS must be positive")
	}

	for name, ttl := range map[string]time.Duration{
		"EXISTENCE_TTL": c.ExistenceTTL,
		"ASSETS_TTL":    c.AssetsTTL,
		"PAYMENTS_TTL":  c.PaymentsTTL,
		"CONTACTS_TTL":  c.ContactsTTL,
		"KYC_TTL":       c.KYCTTL,
	} {
		if ttl <= 0 {
			return fmt.Errorf("%s must be positive", name)
		}
	}

	return nil
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsList splits a comma separated variable, dropping empty items
func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

// getEnvAsFloat gets an environment variable as a float with a default value
func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// getEnvAsDuration accepts Go durations ("45s") or plain seconds ("45")
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}
