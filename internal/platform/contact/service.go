package contact

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/kislikjeka/walletsync/internal/platform/cache"
	"github.com/kislikjeka/walletsync/internal/platform/state"
	apperrors "github.com/kislikjeka/walletsync/internal/shared/errors"
	"github.com/kislikjeka/walletsync/pkg/logger"
)

// Resource is the name the manager publishes its changes under
const Resource = "contacts"

// Manager owns the contact book of one account.
//
// Loads and mutations are serialized. Every mutation reads the full book from
// the store, changes it, writes it back, and then reloads so the published
// state always reflects what was persisted.
type Manager struct {
	store    Store
	resource *cache.Resource[[]Contact]
	logger   *logger.Logger

	mu sync.Mutex

	idxMu     sync.RWMutex
	byID      map[uuid.UUID]Contact
	byAddress map[string]Contact
}

// NewManager creates a Manager backed by store
func NewManager(store Store, ttl cache.TTLConfig, opts cache.Options) *Manager {
	opts = opts.WithDefaults()
	log := opts.Logger.WithComponent("contact_manager")

	return &Manager{
		store:     store,
		logger:    log,
		byID:      make(map[uuid.UUID]Contact),
		byAddress: make(map[string]Contact),
		resource: cache.NewResource(cache.ResourceConfig[[]Contact]{
			Name:     Resource,
			TTL:      ttl.Contacts,
			Clock:    opts.Clock,
			Notifier: opts.Notifier,
			Metrics:  opts.Metrics,
			Logger:   log,
		}),
	}
}

// Load publishes the contact book, reading the store only when the cache is
// stale. Failures are published, never returned.
func (m *Manager) Load(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_ = m.reload(ctx)
}

// State returns the published contact book
func (m *Manager) State() state.DataState[[]Contact] {
	return m.resource.State()
}

// NameFor returns the name of the contact saved for address
func (m *Manager) NameFor(address string) (string, bool) {
	m.idxMu.RLock()
	defer m.idxMu.RUnlock()
	c, ok := m.byAddress[address]
	return c.Name, ok
}

// FindByID looks up a contact in the index
func (m *Manager) FindByID(id uuid.UUID) (Contact, bool) {
	m.idxMu.RLock()
	defer m.idxMu.RUnlock()
	c, ok := m.byID[id]
	return c, ok
}

// FindByAccountAddress looks up a contact by its account address in the index
func (m *Manager) FindByAccountAddress(address string) (Contact, bool) {
	m.idxMu.RLock()
	defer m.idxMu.RUnlock()
	c, ok := m.byAddress[strings.TrimSpace(address)]
	return c, ok
}

// Add saves a new contact
func (m *Manager) Add(ctx context.Context, name, address string) (Contact, error) {
	created := New(name, address)
	if err := created.Validate(); err != nil {
		return Contact{}, err
	}

	err := m.mutate(ctx, "add", func(contacts []Contact) ([]Contact, error) {
		if indexOfAddress(contacts, created.AccountAddress) >= 0 {
			return nil, ErrDuplicateAddress
		}
		return append(contacts, created), nil
	}, func() {
		m.indexAdd(created)
	})
	if err != nil {
		return Contact{}, err
	}

	return created, nil
}

// Update replaces the name and address of contact id. The contact keeps its id
// and moves to the end of the book.
func (m *Manager) Update(ctx context.Context, id uuid.UUID, name, address string) (Contact, error) {
	updated := Contact{
		ID:             id,
		Name:           strings.TrimSpace(name),
		AccountAddress: strings.TrimSpace(address),
	}
	if err := updated.Validate(); err != nil {
		return Contact{}, err
	}

	var previous Contact
	err := m.mutate(ctx, "update", func(contacts []Contact) ([]Contact, error) {
		i := indexOfID(contacts, id)
		if i < 0 {
			return nil, ErrContactNotFound
		}
		if j := indexOfAddress(contacts, updated.AccountAddress); j >= 0 && j != i {
			return nil, ErrDuplicateAddress
		}
		previous = contacts[i]

		out := append(contacts[:i:i], contacts[i+1:]...)
		return append(out, updated), nil
	}, func() {
		m.indexRemove(previous)
		m.indexAdd(updated)
	})
	if err != nil {
		return Contact{}, err
	}

	return updated, nil
}

// Delete removes contact id
func (m *Manager) Delete(ctx context.Context, id uuid.UUID) error {
	var removed Contact
	return m.mutate(ctx, "delete", func(contacts []Contact) ([]Contact, error) {
		i := indexOfID(contacts, id)
		if i < 0 {
			return nil, ErrContactNotFound
		}
		removed = contacts[i]
		return append(contacts[:i:i], contacts[i+1:]...), nil
	}, func() {
		m.indexRemove(removed)
	})
}

// DeleteMany removes every listed contact in one store write. Unknown ids are skipped.
func (m *Manager) DeleteMany(ctx context.Context, ids []uuid.UUID) error {
	drop := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}

	var removed []Contact
	return m.mutate(ctx, "delete_many", func(contacts []Contact) ([]Contact, error) {
		kept := make([]Contact, 0, len(contacts))
		for _, c := range contacts {
			if drop[c.ID] {
				removed = append(removed, c)
				continue
			}
			kept = append(kept, c)
		}
		return kept, nil
	}, func() {
		for _, c := range removed {
			m.indexRemove(c)
		}
	})
}

// mutate runs one read-modify-write cycle against the store. apply edits the
// full book; index applies the same change to the lookup indexes once the
// write succeeded. A mutation only succeeds once the reload after the write
// is published as Loaded.
func (m *Manager) mutate(ctx context.Context, op string, apply func([]Contact) ([]Contact, error), index func()) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	contacts, err := m.store.LoadContacts(ctx)
	if err != nil {
		m.logger.Error("failed to read contacts", "op", op, "error", err)
		return apperrors.Persistence("load", err)
	}

	next, err := apply(append([]Contact(nil), contacts...))
	if err != nil {
		return err
	}

	if err := m.store.SaveContacts(ctx, next); err != nil {
		m.logger.Error("failed to save contacts", "op", op, "error", err)
		return apperrors.Persistence("save", err)
	}

	m.resource.Invalidate()

	m.idxMu.Lock()
	index()
	m.idxMu.Unlock()

	if err := m.reload(ctx); err != nil {
		m.logger.Error("failed to reload contacts after write", "op", op, "error", err)
		return apperrors.Persistence("load", err)
	}
	m.logger.Debug("contacts mutated", "op", op, "count", len(next))
	return nil
}

// reload must be called with m.mu held. It returns the load error when the
// published state is not Loaded afterwards.
func (m *Manager) reload(ctx context.Context) error {
	m.resource.Refresh(ctx, m.load)

	s := m.resource.State()
	if !s.IsLoaded() {
		if err := s.Err(); err != nil {
			return err
		}
		return fmt.Errorf("contacts not loaded: %s", s.Phase())
	}
	m.rebuildIndex(s.Data())
	return nil
}

func (m *Manager) load(ctx context.Context) ([]Contact, error) {
	contacts, err := m.store.LoadContacts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load contacts: %w", apperrors.Persistence("load", err))
	}
	if contacts == nil {
		contacts = []Contact{}
	}
	return contacts, nil
}

func (m *Manager) rebuildIndex(contacts []Contact) {
	byID := make(map[uuid.UUID]Contact, len(contacts))
	byAddress := make(map[string]Contact, len(contacts))
	for _, c := range contacts {
		byID[c.ID] = c
		byAddress[c.AccountAddress] = c
	}

	m.idxMu.Lock()
	m.byID = byID
	m.byAddress = byAddress
	m.idxMu.Unlock()
}

// indexAdd and indexRemove must be called with idxMu held
func (m *Manager) indexAdd(c Contact) {
	m.byID[c.ID] = c
	m.byAddress[c.AccountAddress] = c
}

func (m *Manager) indexRemove(c Contact) {
	delete(m.byID, c.ID)
	delete(m.byAddress, c.AccountAddress)
}

func indexOfID(contacts []Contact, id uuid.UUID) int {
	for i, c := range contacts {
		if c.ID == id {
			return i
		}
	}
	return -1
}

func indexOfAddress(contacts []Contact, address string) int {
	for i, c := range contacts {
		if c.AccountAddress == address {
			return i
		}
	}
	return -1
}
