// Package dashboard ties the per-resource managers of one account together:
// throttled parallel refresh of ledger data, contact and KYC access, and a
// single change feed for readers.
package dashboard

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/kislikjeka/walletsync/internal/platform/account"
	"github.com/kislikjeka/walletsync/internal/platform/asset"
	"github.com/kislikjeka/walletsync/internal/platform/cache"
	"github.com/kislikjeka/walletsync/internal/platform/contact"
	"github.com/kislikjeka/walletsync/internal/platform/kyc"
	"github.com/kislikjeka/walletsync/internal/platform/payment"
	"github.com/kislikjeka/walletsync/internal/platform/state"
	"github.com/kislikjeka/walletsync/pkg/logger"
)

// Dashboard is the read surface and refresh trigger for one account
type Dashboard struct {
	address  string
	assets   *asset.Manager
	payments *payment.Manager
	contacts *contact.Manager
	kyc      *kyc.Manager
	notifier *state.Notifier
	opts     cache.Options
	logger   *logger.Logger

	minInterval time.Duration

	mu            sync.Mutex
	lastCompleted time.Time
}

// New builds a dashboard for address. The asset and payment managers share
// one existence cache, cfg.Existence when set, and payments are annotated
// from the contact book.
func New(address string, client account.Client, contacts contact.Store, kycStore kyc.Store, cfg *Config, opts cache.Options) (*Dashboard, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid dashboard config: %w", err)
	}

	if opts.Notifier == nil {
		opts.Notifier = state.NewNotifier()
	}
	opts = opts.WithDefaults()
	opts.Logger = opts.Logger.WithField("account", address)

	existence := cfg.Existence
	if existence == nil {
		var err error
		existence, err = account.NewExistenceCache(client, account.ExistenceConfig{
			TTL:  cfg.TTL.Existence,
			Size: 1,
		}, opts.Clock, opts.Metrics, opts.Logger)
		if err != nil {
			return nil, err
		}
	}

	d := &Dashboard{
		address:     address,
		assets:      asset.NewManager(address, client, existence, cfg.TTL, opts),
		payments:    payment.NewManager(address, client, existence, cfg.TTL, opts),
		contacts:    contact.NewManager(contacts, cfg.TTL, opts),
		kyc:         kyc.NewManager(kycStore, cfg.TTL, opts),
		notifier:    opts.Notifier,
		opts:        opts,
		logger:      opts.Logger.WithComponent("dashboard"),
		minInterval: cfg.MinRefreshInterval,
	}
	d.payments.LinkContacts(d.contacts)

	return d, nil
}

// Address returns the account this dashboard serves
func (d *Dashboard) Address() string {
	return d.address
}

// FetchAll refreshes assets and payments in parallel and waits for both.
// A call within MinRefreshInterval of the previous completed FetchAll is
// dropped and reported as false. One resource failing never stops the other;
// failures are published on the resource's state.
func (d *Dashboard) FetchAll(ctx context.Context) bool {
	d.mu.Lock()
	if !d.lastCompleted.IsZero() && d.opts.Clock.Since(d.lastCompleted) < d.minInterval {
		d.mu.Unlock()
		d.opts.Metrics.RefreshThrottled()
		d.logger.Debug("refresh throttled")
		return false
	}
	d.mu.Unlock()

	start := d.opts.Clock.Now()

	var g errgroup.Group
	g.Go(func() error {
		return d.assets.FetchAndWait(ctx)
	})
	g.Go(func() error {
		return d.payments.FetchAndWait(ctx)
	})
	if err := g.Wait(); err != nil {
		d.logger.Debug("stopped waiting for refresh", "error", err)
	}

	d.mu.Lock()
	d.lastCompleted = d.opts.Clock.Now()
	d.mu.Unlock()

	d.logger.Debug("refresh completed",
		"duration_ms", d.opts.Clock.Since(start).Milliseconds(),
		"assets", d.assets.State().Phase().String(),
		"payments", d.payments.State().Phase().String(),
	)
	return true
}

// ForceRefreshAll drops cached assets, payments and the existence answer,
// lifts the throttle and runs FetchAll. A fetch already in flight is not
// duplicated.
func (d *Dashboard) ForceRefreshAll(ctx context.Context) {
	d.assets.ClearCache()
	d.payments.ClearCache()

	d.mu.Lock()
	d.lastCompleted = time.Time{}
	d.mu.Unlock()

	d.FetchAll(ctx)
}

// LoadContacts loads the contact book and renames payment counterparties
func (d *Dashboard) LoadContacts(ctx context.Context) {
	d.contacts.Load(ctx)
	d.payments.Reannotate()
}

// LoadKycData loads the KYC fields
func (d *Dashboard) LoadKycData(ctx context.Context) {
	d.kyc.Load(ctx)
}

// Read projections

func (d *Dashboard) Assets() state.DataState[[]account.AssetBalance] {
	return d.assets.State()
}

func (d *Dashboard) Payments() state.DataState[[]account.PaymentRecord] {
	return d.payments.State()
}

func (d *Dashboard) Contacts() state.DataState[[]contact.Contact] {
	return d.contacts.State()
}

func (d *Dashboard) Kyc() state.DataState[[]kyc.Entry] {
	return d.kyc.State()
}

// Subscribe returns a feed of state changes across all resources of the
// dashboard and a func to stop it
func (d *Dashboard) Subscribe(buffer int) (<-chan state.Change, func()) {
	return d.notifier.Subscribe(buffer)
}

// Contact pass-throughs. Successful mutations re-annotate payments.

func (d *Dashboard) AddContact(ctx context.Context, name, address string) (contact.Contact, error) {
	c, err := d.contacts.Add(ctx, name, address)
	if err != nil {
		return contact.Contact{}, err
	}
	d.payments.Reannotate()
	return c, nil
}

func (d *Dashboard) UpdateContact(ctx context.Context, id uuid.UUID, name, address string) (contact.Contact, error) {
	c, err := d.contacts.Update(ctx, id, name, address)
	if err != nil {
		return contact.Contact{}, err
	}
	d.payments.Reannotate()
	return c, nil
}

func (d *Dashboard) DeleteContact(ctx context.Context, id uuid.UUID) error {
	if err := d.contacts.Delete(ctx, id); err != nil {
		return err
	}
	d.payments.Reannotate()
	return nil
}

func (d *Dashboard) DeleteContacts(ctx context.Context, ids []uuid.UUID) error {
	if err := d.contacts.DeleteMany(ctx, ids); err != nil {
		return err
	}
	d.payments.Reannotate()
	return nil
}

func (d *Dashboard) FindContactByID(id uuid.UUID) (contact.Contact, bool) {
	return d.contacts.FindByID(id)
}

func (d *Dashboard) FindContactByAddress(address string) (contact.Contact, bool) {
	return d.contacts.FindByAccountAddress(address)
}

// KYC pass-throughs

func (d *Dashboard) UpsertKyc(ctx context.Context, fieldID, value string) error {
	return d.kyc.Upsert(ctx, fieldID, value)
}

func (d *Dashboard) UpdateKyc(ctx context.Context, fieldID, value string) error {
	return d.kyc.Update(ctx, fieldID, value)
}

func (d *Dashboard) UpdateKycMany(ctx context.Context, entries []kyc.Entry) error {
	return d.kyc.UpdateMany(ctx, entries)
}

func (d *Dashboard) DeleteKyc(ctx context.Context, fieldID string) error {
	return d.kyc.Delete(ctx, fieldID)
}

func (d *Dashboard) ClearKyc(ctx context.Context) error {
	return d.kyc.Clear(ctx)
}

func (d *Dashboard) FindKycField(fieldID string) (kyc.Entry, bool) {
	return d.kyc.FindByFieldID(fieldID)
}
