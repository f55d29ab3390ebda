package dashboard_test

import (
	"context"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/kislikjeka/walletsync/internal/platform/account"
	"github.com/kislikjeka/walletsync/internal/platform/cache"
	"github.com/kislikjeka/walletsync/internal/platform/contact"
	"github.com/kislikjeka/walletsync/internal/platform/dashboard"
	"github.com/kislikjeka/walletsync/internal/platform/kyc"
)

const (
	testAddress = "GBRPYHIL2CI3FNQ4BXLFMNDLFJUNPU2HY3ZMFSHONUCEOASW7QC7OX2H"
	aliceAddr   = "GALICEALICEALICEALICEALICEALICEALICEALICEALICEALICEALIC"
)

type MockClient struct {
	mock.Mock
}

var _ account.Client = (*MockClient)(nil)

func (m *MockClient) AccountExists(ctx context.Context, address string) (bool, error) {
	args := m.Called(ctx, address)
	return args.Bool(0), args.Error(1)
}

func (m *MockClient) GetBalances(ctx context.Context, address string) ([]account.AssetBalance, error) {
	args := m.Called(ctx, address)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]account.AssetBalance), args.Error(1)
}

func (m *MockClient) GetPayments(ctx context.Context, address string) ([]account.PaymentRecord, error) {
	args := m.Called(ctx, address)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]account.PaymentRecord), args.Error(1)
}

// ctxClient is a funded ledger that fails every call made with a done context
type ctxClient struct{}

func (ctxClient) AccountExists(ctx context.Context, address string) (bool, error) {
	return ctx.Err() == nil, ctx.Err()
}

func (ctxClient) GetBalances(ctx context.Context, address string) ([]account.AssetBalance, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return balances(), nil
}

func (ctxClient) GetPayments(ctx context.Context, address string) ([]account.PaymentRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return payments(), nil
}

// memoryStore keeps contacts and KYC fields in memory
type memoryStore struct {
	mu       sync.Mutex
	contacts []contact.Contact
	entries  []kyc.Entry
}

var (
	_ contact.Store = (*memoryStore)(nil)
	_ kyc.Store     = (*memoryStore)(nil)
)

func (s *memoryStore) LoadContacts(ctx context.Context) ([]contact.Contact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]contact.Contact(nil), s.contacts...), nil
}

func (s *memoryStore) SaveContacts(ctx context.Context, contacts []contact.Contact) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.contacts = append([]contact.Contact(nil), contacts...)
	return nil
}

func (s *memoryStore) LoadKyc(ctx context.Context) ([]kyc.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]kyc.Entry(nil), s.entries...), nil
}

func (s *memoryStore) SaveKyc(ctx context.Context, entries []kyc.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append([]kyc.Entry(nil), entries...)
	return nil
}

func balances() []account.AssetBalance {
	return []account.AssetBalance{{
		AssetID: account.NativeAssetID,
		Code:    "XLM",
		Balance: big.NewInt(1_000_000_000),
	}}
}

func payments() []account.PaymentRecord {
	return []account.PaymentRecord{{
		ID:                  "p1",
		Asset:               account.NativeAssetID,
		Amount:              big.NewInt(50_000_000),
		Direction:           account.DirectionReceived,
		CounterpartyAddress: aliceAddr,
		CreatedAt:           time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC),
	}}
}

func fundedClient() *MockClient {
	client := new(MockClient)
	client.On("AccountExists", mock.Anything, testAddress).Return(true, nil)
	client.On("GetBalances", mock.Anything, testAddress).Return(balances(), nil)
	client.On("GetPayments", mock.Anything, testAddress).Return(payments(), nil)
	return client
}

func newDashboard(t *testing.T, client account.Client, store *memoryStore) (*dashboard.Dashboard, clockwork.FakeClock) {
	t.Helper()
	if store == nil {
		store = &memoryStore{}
	}
	clock := clockwork.NewFakeClock()
	d, err := dashboard.New(testAddress, client, store, store, dashboard.DefaultConfig(), cache.Options{Clock: clock})
	require.NoError(t, err)
	return d, clock
}

func cacheOptions() cache.Options {
	return cache.Options{Clock: clockwork.NewFakeClock()}
}
