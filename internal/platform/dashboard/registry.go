package dashboard

import (
	"fmt"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/kislikjeka/walletsync/pkg/logger"
)

// Factory builds the dashboard of an account
type Factory func(address string) (*Dashboard, error)

// Registry keeps one dashboard per account address and forgets dashboards
// nobody has asked for within the idle TTL
type Registry struct {
	factory Factory
	items   *gocache.Cache
	logger  *logger.Logger

	mu sync.Mutex
}

// NewRegistry creates a registry whose dashboards expire after idleTTL without use
func NewRegistry(factory Factory, idleTTL time.Duration, log *logger.Logger) *Registry {
	if log == nil {
		log = logger.Discard()
	}
	cleanup := idleTTL / 2
	if cleanup <= 0 {
		cleanup = time.Minute
	}

	r := &Registry{
		factory: factory,
		items:   gocache.New(idleTTL, cleanup),
		logger:  log.WithComponent("dashboard_registry"),
	}
	r.items.OnEvicted(func(address string, _ interface{}) {
		r.logger.Debug("dashboard evicted", "account", address)
	})
	return r
}

// Get returns the dashboard of address, creating it on first use. Every call
// restarts the idle timer.
func (r *Registry) Get(address string) (*Dashboard, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if v, ok := r.items.Get(address); ok {
		d := v.(*Dashboard)
		r.items.SetDefault(address, d)
		return d, nil
	}

	d, err := r.factory(address)
	if err != nil {
		return nil, fmt.Errorf("failed to create dashboard: %w", err)
	}
	r.items.SetDefault(address, d)
	r.logger.Debug("dashboard created", "account", address)
	return d, nil
}

// Snapshot returns every live dashboard
func (r *Registry) Snapshot() []*Dashboard {
	items := r.items.Items()
	out := make([]*Dashboard, 0, len(items))
	for _, item := range items {
		out = append(out, item.Object.(*Dashboard))
	}
	return out
}

// Len returns the number of live dashboards
func (r *Registry) Len() int {
	return r.items.ItemCount()
}
