package kyc

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/kislikjeka/walletsync/internal/platform/cache"
	"github.com/kislikjeka/walletsync/internal/platform/state"
	apperrors "github.com/kislikjeka/walletsync/internal/shared/errors"
	"github.com/kislikjeka/walletsync/pkg/logger"
)

// Resource is the name the manager publishes its changes under
const Resource = "kyc"

// Manager owns the KYC fields of one account. Loads and mutations are
// serialized; every mutation is a full read-modify-write of the store
// followed by a reload.
type Manager struct {
	store    Store
	resource *cache.Resource[[]Entry]
	logger   *logger.Logger

	mu sync.Mutex

	idxMu   sync.RWMutex
	byField map[string]Entry
}

// NewManager creates a Manager backed by store
func NewManager(store Store, ttl cache.TTLConfig, opts cache.Options) *Manager {
	opts = opts.WithDefaults()
	log := opts.Logger.WithComponent("kyc_manager")

	return &Manager{
		store:   store,
		logger:  log,
		byField: make(map[string]Entry),
		resource: cache.NewResource(cache.ResourceConfig[[]Entry]{
			Name:     Resource,
			TTL:      ttl.KYC,
			Clock:    opts.Clock,
			Notifier: opts.Notifier,
			Metrics:  opts.Metrics,
			Logger:   log,
		}),
	}
}

// Load publishes the KYC set, reading the store only when the cache is stale
func (m *Manager) Load(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_ = m.reload(ctx)
}

// State returns the published KYC set
func (m *Manager) State() state.DataState[[]Entry] {
	return m.resource.State()
}

// FindByFieldID returns the entry for fieldID
func (m *Manager) FindByFieldID(fieldID string) (Entry, bool) {
	m.idxMu.RLock()
	defer m.idxMu.RUnlock()
	e, ok := m.byField[strings.TrimSpace(fieldID)]
	return e, ok
}

// Upsert sets the value of a field, adding it when missing
func (m *Manager) Upsert(ctx context.Context, fieldID, value string) error {
	entry := NewEntry(fieldID, value)
	if err := entry.Validate(); err != nil {
		return err
	}

	return m.mutate(ctx, "upsert", func(entries []Entry) ([]Entry, error) {
		return upsert(entries, entry), nil
	}, func() {
		m.byField[entry.FieldID] = entry
	})
}

// Update changes the value of an existing field
func (m *Manager) Update(ctx context.Context, fieldID, value string) error {
	entry := NewEntry(fieldID, value)
	if err := entry.Validate(); err != nil {
		return err
	}

	return m.mutate(ctx, "update", func(entries []Entry) ([]Entry, error) {
		i := indexOf(entries, entry.FieldID)
		if i < 0 {
			return nil, ErrEntryNotFound
		}
		entries[i] = entry
		return entries, nil
	}, func() {
		m.byField[entry.FieldID] = entry
	})
}

// UpdateMany upserts every entry in one store write. When a field appears
// more than once the last value wins.
func (m *Manager) UpdateMany(ctx context.Context, batch []Entry) error {
	normalized := make([]Entry, len(batch))
	for i, e := range batch {
		normalized[i] = NewEntry(e.FieldID, e.Value)
		if err := normalized[i].Validate(); err != nil {
			return fmt.Errorf("entry %d: %w", i, err)
		}
	}

	return m.mutate(ctx, "update_many", func(entries []Entry) ([]Entry, error) {
		for _, e := range normalized {
			entries = upsert(entries, e)
		}
		return entries, nil
	}, func() {
		for _, e := range normalized {
			m.byField[e.FieldID] = e
		}
	})
}

// Delete removes a field
func (m *Manager) Delete(ctx context.Context, fieldID string) error {
	fieldID = strings.TrimSpace(fieldID)
	if fieldID == "" {
		return ErrMissingFieldID
	}

	return m.mutate(ctx, "delete", func(entries []Entry) ([]Entry, error) {
		i := indexOf(entries, fieldID)
		if i < 0 {
			return nil, ErrEntryNotFound
		}
		return append(entries[:i:i], entries[i+1:]...), nil
	}, func() {
		delete(m.byField, fieldID)
	})
}

// Clear removes every field
func (m *Manager) Clear(ctx context.Context) error {
	return m.mutate(ctx, "clear", func([]Entry) ([]Entry, error) {
		return []Entry{}, nil
	}, func() {
		m.byField = make(map[string]Entry)
	})
}

func (m *Manager) mutate(ctx context.Context, op string, apply func([]Entry) ([]Entry, error), index func()) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	entries, err := m.store.LoadKyc(ctx)
	if err != nil {
		m.logger.Error("failed to read kyc fields", "op", op, "error", err)
		return apperrors.Persistence("load", err)
	}

	next, err := apply(append([]Entry(nil), entries...))
	if err != nil {
		return err
	}

	if err := m.store.SaveKyc(ctx, next); err != nil {
		m.logger.Error("failed to save kyc fields", "op", op, "error", err)
		return apperrors.Persistence("save", err)
	}

	m.resource.Invalidate()

	m.idxMu.Lock()
	index()
	m.idxMu.Unlock()

	if err := m.reload(ctx); err != nil {
		m.logger.Error("failed to reload kyc fields after write", "op", op, "error", err)
		return apperrors.Persistence("load", err)
	}
	m.logger.Debug("kyc fields mutated", "op", op, "count", len(next))
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
		return fmt.Errorf("kyc fields not loaded: %s", s.Phase())
	}

	idx := make(map[string]Entry, len(s.Data()))
	for _, e := range s.Data() {
		idx[e.FieldID] = e
	}
	m.idxMu.Lock()
	m.byField = idx
	m.idxMu.Unlock()
	return nil
}

func (m *Manager) load(ctx context.Context) ([]Entry, error) {
	entries, err := m.store.LoadKyc(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load kyc fields: %w", apperrors.Persistence("load", err))
	}
	if entries == nil {
		entries = []Entry{}
	}
	return entries, nil
}

func upsert(entries []Entry, e Entry) []Entry {
	if i := indexOf(entries, e.FieldID); i >= 0 {
		entries[i] = e
		return entries
	}
	return append(entries, e)
}

func indexOf(entries []Entry, fieldID string) int {
	for i, e := range entries {
		if e.FieldID == fieldID {
			return i
		}
	}
	return -1
}
