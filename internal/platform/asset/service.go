// Package asset keeps the account's balances cached and published.
package asset

import (
	"context"

	"github.com/kislikjeka/walletsync/internal/platform/account"
	"github.com/kislikjeka/walletsync/internal/platform/cache"
	"github.com/kislikjeka/walletsync/internal/platform/state"
	"github.com/kislikjeka/walletsync/pkg/logger"
)

// Resource is the name the manager publishes its changes under
const Resource = "assets"

// Manager owns the asset balances of one account
type Manager struct {
	address   string
	client    account.Client
	existence *account.ExistenceCache
	resource  *cache.Resource[[]account.AssetBalance]
	logger    *logger.Logger
}

// NewManager creates a Manager for address. Balances are cached for ttl.
func NewManager(address string, client account.Client, existence *account.ExistenceCache, ttl cache.TTLConfig, opts cache.Options) *Manager {
	opts = opts.WithDefaults()
	log := opts.Logger.WithComponent("asset_manager")

	return &Manager{
		address:   address,
		client:    client,
		existence: existence,
		logger:    log,
		resource: cache.NewResource(cache.ResourceConfig[[]account.AssetBalance]{
			Name:     Resource,
			TTL:      ttl.Assets,
			Clock:    opts.Clock,
			Notifier: opts.Notifier,
			Metrics:  opts.Metrics,
			Logger:   log,
			Outcome:  account.Outcome,
		}),
	}
}

// Fetch refreshes balances unless a fetch is running or the cache is fresh.
// It blocks until its own ledger call completes and never returns an error:
// failures are published as a Failed state.
func (m *Manager) Fetch(ctx context.Context) {
	m.resource.Refresh(ctx, m.load)
}

// FetchAndWait is Fetch followed by Await
func (m *Manager) FetchAndWait(ctx context.Context) error {
	m.Fetch(ctx)
	return m.Await(ctx)
}

// Await blocks until the fetch running at call time completes
func (m *Manager) Await(ctx context.Context) error {
	return m.resource.Await(ctx)
}

// State returns the published balances
func (m *Manager) State() state.DataState[[]account.AssetBalance] {
	return m.resource.State()
}

// ClearCache drops cached balances and the account's existence answer so the
// next Fetch goes to the ledger
func (m *Manager) ClearCache() {
	m.resource.Invalidate()
	m.existence.Invalidate(m.address)
	m.logger.Debug("asset cache cleared")
}

func (m *Manager) load(ctx context.Context) ([]account.AssetBalance, error) {
	if !m.existence.Resolve(ctx, m.address) {
		return nil, account.ErrAccountNotFound
	}

	balances, err := m.client.GetBalances(ctx, m.address)
	if err != nil {
		return nil, account.NewFetchError(Resource, err)
	}
	if balances == nil {
		balances = []account.AssetBalance{}
	}
	return balances, nil
}
