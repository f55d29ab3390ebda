// Package payment keeps the account's payment history cached and published,
// annotated with names from the contact book.
package payment

import (
	"context"
	"sync"

	"github.com/kislikjeka/walletsync/internal/platform/account"
	"github.com/kislikjeka/walletsync/internal/platform/cache"
	"github.com/kislikjeka/walletsync/internal/platform/state"
	"github.com/kislikjeka/walletsync/pkg/logger"
)

// Resource is the name the manager publishes its changes under
const Resource = "payments"

// Manager owns the payment history of one account
type Manager struct {
	address   string
	client    account.Client
	existence *account.ExistenceCache
	resource  *cache.Resource[[]account.PaymentRecord]
	logger    *logger.Logger

	mu       sync.RWMutex
	contacts ContactIndex
}

// NewManager creates a Manager for address
func NewManager(address string, client account.Client, existence *account.ExistenceCache, ttl cache.TTLConfig, opts cache.Options) *Manager {
	opts = opts.WithDefaults()
	m := &Manager{
		address:   address,
		client:    client,
		existence: existence,
		logger:    opts.Logger.WithComponent("payment_manager"),
	}

	m.resource = cache.NewResource(cache.ResourceConfig[[]account.PaymentRecord]{
		Name:     Resource,
		TTL:      ttl.Payments,
		Clock:    opts.Clock,
		Notifier: opts.Notifier,
		Metrics:  opts.Metrics,
		Logger:   m.logger,
		Finalize: m.annotate,
		Outcome:  account.Outcome,
	})

	return m
}

// LinkContacts sets the index used to name counterparties. Passing nil unlinks it.
func (m *Manager) LinkContacts(idx ContactIndex) {
	m.mu.Lock()
	m.contacts = idx
	m.mu.Unlock()
}

// Fetch refreshes payments unless a fetch is running or the cache is fresh.
// Failures are published, never returned.
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

// State returns the published payments
func (m *Manager) State() state.DataState[[]account.PaymentRecord] {
	return m.resource.State()
}

// ClearCache drops cached payments and the account's existence answer
func (m *Manager) ClearCache() {
	m.resource.Invalidate()
	m.existence.Invalidate(m.address)
	m.logger.Debug("payment cache cleared")
}

// Reannotate rewrites counterparty names of the cached and published payments
// from the current contact index. It never calls the ledger.
func (m *Manager) Reannotate() {
	m.resource.Transform(m.annotate)
}

func (m *Manager) load(ctx context.Context) ([]account.PaymentRecord, error) {
	if !m.existence.Resolve(ctx, m.address) {
		return nil, account.ErrAccountNotFound
	}

	records, err := m.client.GetPayments(ctx, m.address)
	if err != nil {
		return nil, account.NewFetchError(Resource, err)
	}
	if records == nil {
		records = []account.PaymentRecord{}
	}
	return records, nil
}

// annotate returns a copy of records with contact names filled in.
// A record whose counterparty is not a contact gets an empty name.
func (m *Manager) annotate(records []account.PaymentRecord) []account.PaymentRecord {
	m.mu.RLock()
	idx := m.contacts
	m.mu.RUnlock()

	out := make([]account.PaymentRecord, len(records))
	for i, r := range records {
		r.CounterpartyContactName = ""
		if idx != nil {
			if name, ok := idx.NameFor(r.CounterpartyAddress); ok {
				r.CounterpartyContactName = name
			}
		}
		out[i] = r
	}
	return out
}
