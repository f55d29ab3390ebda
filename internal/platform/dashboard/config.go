package dashboard

import (
	"fmt"
	"time"

	"github.com/kislikjeka/walletsync/internal/platform/account"
	"github.com/kislikjeka/walletsync/internal/platform/cache"
)

// Config holds configuration for a dashboard
type Config struct {
	// MinRefreshInterval is the quiet period after a completed FetchAll during
	// which further FetchAll calls are dropped
	MinRefreshInterval time.Duration

	// TTL holds the cache lifetime of every resource
	TTL cache.TTLConfig

	// Existence, when set, is shared by every dashboard built with this
	// config. Otherwise each dashboard remembers only its own address.
	Existence *account.ExistenceCache
}

// DefaultConfig returns the default dashboard configuration
func DefaultConfig() *Config {
	return &Config{
		MinRefreshInterval: 2 * time.Second,
		TTL:                cache.DefaultTTLConfig(),
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.MinRefreshInterval < 0 {
		return fmt.Errorf("min refresh interval cannot be negative")
	}
	return c.TTL.Validate()
}

// RefresherConfig holds configuration for the background refresher
type RefresherConfig struct {
	// Interval is how often every live dashboard is refreshed
	Interval time.Duration

	// Concurrency is the max number of dashboards refreshed at once
	Concurrency int

	// Enabled determines if background refresh runs at all
	Enabled bool
}

// DefaultRefresherConfig returns the default refresher configuration
func DefaultRefresherConfig() *RefresherConfig {
	return &RefresherConfig{
		Interval:    time.Minute,
		Concurrency: 4,
		Enabled:     true,
	}
}

// Validate fills in defaults for unset values
func (c *RefresherConfig) Validate() error {
	if c.Interval <= 0 {
		c.Interval = time.Minute
	}
	if c.Concurrency <= 0 {
		c.Concurrency = 4
	}
	return nil
}
