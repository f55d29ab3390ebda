package account

import (
	"context"
	"errors"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/singleflight"

	"github.com/kislikjeka/walletsync/internal/platform/cache"
	"github.com/kislikjeka/walletsync/internal/platform/telemetry"
	"github.com/kislikjeka/walletsync/pkg/logger"
)

const existenceResource = "existence"

// ExistenceConfig configures an ExistenceCache
type ExistenceConfig struct {
	// TTL applies to both positive and negative answers
	TTL time.Duration

	// Size bounds the number of addresses remembered
	Size int
}

// DefaultExistenceConfig returns the default existence cache settings
func DefaultExistenceConfig() ExistenceConfig {
	return ExistenceConfig{
		TTL:  cache.DefaultTTLConfig().Existence,
		Size: 1024,
	}
}

// Validate validates the configuration
func (c ExistenceConfig) Validate() error {
	if c.TTL <= 0 {
		return fmt.Errorf("existence ttl must be positive")
	}
	if c.Size <= 0 {
		return fmt.Errorf("existence cache size must be positive")
	}
	return nil
}

// ExistenceCache remembers whether accounts exist on the ledger.
//
// Resolve never fails: a transport error is cached as "does not exist" for
// the full TTL. Concurrent misses for one address share a single ledger call,
// which is detached from the callers' cancellation. An answer cut short by
// cancellation is returned as false but never cached.
type ExistenceCache struct {
	client  Client
	ttl     time.Duration
	clock   clockwork.Clock
	entries *lru.Cache
	group   singleflight.Group
	metrics telemetry.Collector
	logger  *logger.Logger
}

// NewExistenceCache creates an ExistenceCache
func NewExistenceCache(client Client, cfg ExistenceConfig, clock clockwork.Clock, metrics telemetry.Collector, log *logger.Logger) (*ExistenceCache, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	entries, err := lru.New(cfg.Size)
	if err != nil {
		return nil, fmt.Errorf("failed to create existence cache: %w", err)
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if metrics == nil {
		metrics = telemetry.Noop()
	}
	if log == nil {
		log = logger.Discard()
	}

	return &ExistenceCache{
		client:  client,
		ttl:     cfg.TTL,
		clock:   clock,
		entries: entries,
		metrics: metrics,
		logger:  log.WithComponent("existence_cache"),
	}, nil
}

// Resolve returns whether address exists, consulting the ledger on a miss
func (c *ExistenceCache) Resolve(ctx context.Context, address string) bool {
	if exists, ok := c.lookup(address); ok {
		c.metrics.CacheHit(existenceResource)
		return exists
	}
	c.metrics.CacheMiss(existenceResource)

	v, _, _ := c.group.Do(address, func() (interface{}, error) {
		// another caller may have filled the entry while we waited on the group
		if exists, ok := c.lookup(address); ok {
			return exists, nil
		}

		callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cache.DefaultLoadTimeout)
		defer cancel()

		start := c.clock.Now()
		exists, err := c.client.AccountExists(callCtx, address)
		elapsed := c.clock.Since(start)
		if errors.Is(err, context.Canceled) {
			c.logger.Warn("account existence check cancelled", "address", address)
			c.metrics.FetchCompleted(existenceResource, telemetry.OutcomeError, elapsed)
			return false, nil
		}
		if err != nil {
			c.logger.Warn("account existence check failed, treating as not found",
				"address", address,
				"error", err,
			)
			c.metrics.FetchCompleted(existenceResource, telemetry.OutcomeError, elapsed)
			exists = false
		} else {
			c.metrics.FetchCompleted(existenceResource, telemetry.OutcomeSuccess, elapsed)
		}

		c.entries.Add(address, cache.NewEntry(exists, c.clock.Now(), c.ttl))
		return exists, nil
	})

	return v.(bool)
}

// Invalidate forgets the answer for address
func (c *ExistenceCache) Invalidate(address string) {
	c.entries.Remove(address)
}

func (c *ExistenceCache) lookup(address string) (bool, bool) {
	v, ok := c.entries.Get(address)
	if !ok {
		return false, false
	}
	entry := v.(*cache.Entry[bool])
	if entry.IsExpired(c.clock.Now()) {
		c.entries.Remove(address)
		return false, false
	}
	return entry.Data, true
}
