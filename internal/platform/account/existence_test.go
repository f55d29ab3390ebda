package account_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/kislikjeka/walletsync/internal/platform/account"
	"github.com/kislikjeka/walletsync/internal/platform/telemetry"
)

const testAddress = "GBRPYHIL2CI3FNQ4BXLFMNDLFJUNPU2HY3ZMFSHONUCEOASW7QC7OX2H"

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

func newExistence(t *testing.T, client account.Client, clock clockwork.Clock) *account.ExistenceCache {
	t.Helper()
	c, err := account.NewExistenceCache(client, account.DefaultExistenceConfig(), clock, telemetry.Noop(), nil)
	require.NoError(t, err)
	return c
}

func TestExistenceCache_CachesPositiveAnswer(t *testing.T) {
	client := new(MockClient)
	client.On("AccountExists", mock.Anything, testAddress).Return(true, nil).Once()

	c := newExistence(t, client, clockwork.NewFakeClock())

	assert.True(t, c.Resolve(context.Background(), testAddress))
	assert.True(t, c.Resolve(context.Background(), testAddress))
	client.AssertNumberOfCalls(t, "AccountExists", 1)
}

func TestExistenceCache_CachesNegativeAnswer(t *testing.T) {
	client := new(MockClient)
	client.On("AccountExists", mock.Anything, testAddress).Return(false, nil).Once()

	c := newExistence(t, client, clockwork.NewFakeClock())

	assert.False(t, c.Resolve(context.Background(), testAddress))
	assert.False(t, c.Resolve(context.Background(), testAddress))
	client.AssertNumberOfCalls(t, "AccountExists", 1)
}

func TestExistenceCache_TransportErrorCachedAsFalse(t *testing.T) {
	client := new(MockClient)
	client.On("AccountExists", mock.Anything, testAddress).Return(false, errors.New("connection reset")).Once()

	clock := clockwork.NewFakeClock()
	c := newExistence(t, client, clock)

	assert.False(t, c.Resolve(context.Background(), testAddress))

	clock.Advance(59 * time.Second)
	assert.False(t, c.Resolve(context.Background(), testAddress))
	client.AssertNumberOfCalls(t, "AccountExists", 1)
}

func TestExistenceCache_CallerCancellationDoesNotReachLedger(t *testing.T) {
	var ledgerErr error
	client := new(MockClient)
	client.On("AccountExists", mock.Anything, testAddress).
		Run(func(args mock.Arguments) { ledgerErr = args.Get(0).(context.Context).Err() }).
		Return(true, nil).Once()

	c := newExistence(t, client, clockwork.NewFakeClock())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.True(t, c.Resolve(ctx, testAddress))
	assert.NoError(t, ledgerErr)

	// the answer is cached for everyone else
	assert.True(t, c.Resolve(context.Background(), testAddress))
	client.AssertNumberOfCalls(t, "AccountExists", 1)
}

func TestExistenceCache_CancelledAnswerNotCached(t *testing.T) {
	client := new(MockClient)
	client.On("AccountExists", mock.Anything, testAddress).Return(false, context.Canceled).Once()
	client.On("AccountExists", mock.Anything, testAddress).Return(true, nil).Once()

	c := newExistence(t, client, clockwork.NewFakeClock())

	assert.False(t, c.Resolve(context.Background(), testAddress))
	assert.True(t, c.Resolve(context.Background(), testAddress))
	client.AssertNumberOfCalls(t, "AccountExists", 2)
}

func TestExistenceCache_ExpiresAfterTTL(t *testing.T) {
	client := new(MockClient)
	client.On("AccountExists", mock.Anything, testAddress).Return(false, nil).Once()
	client.On("AccountExists", mock.Anything, testAddress).Return(true, nil).Once()

	clock := clockwork.NewFakeClock()
	c := newExistence(t, client, clock)

	assert.False(t, c.Resolve(context.Background(), testAddress))

	clock.Advance(61 * time.Second)
	assert.True(t, c.Resolve(context.Background(), testAddress))
	client.AssertNumberOfCalls(t, "AccountExists", 2)
}

func TestExistenceCache_Invalidate(t *testing.T) {
	client := new(MockClient)
	client.On("AccountExists", mock.Anything, testAddress).Return(false, nil).Once()
	client.On("AccountExists", mock.Anything, testAddress).Return(true, nil).Once()

	c := newExistence(t, client, clockwork.NewFakeClock())

	assert.False(t, c.Resolve(context.Background(), testAddress))
	c.Invalidate(testAddress)
	assert.True(t, c.Resolve(context.Background(), testAddress))
}

func TestExistenceCache_ConcurrentMissesShareOneCall(t *testing.T) {
	release := make(chan struct{})
	client := new(MockClient)
	client.On("AccountExists", mock.Anything, testAddress).
		Run(func(mock.Arguments) { <-release }).
		Return(true, nil).Once()

	c := newExistence(t, client, clockwork.NewFakeClock())

	var wg sync.WaitGroup
	results := make([]bool, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = c.Resolve(context.Background(), testAddress)
		}(i)
	}

	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	for _, r := range results {
		assert.True(t, r)
	}
	client.AssertNumberOfCalls(t, "AccountExists", 1)
}

func TestExistenceConfig_Validate(t *testing.T) {
	cfg := account.DefaultExistenceConfig()
	require.NoError(t, cfg.Validate())

	cfg.Size = 0
	assert.Error(t, cfg.Validate())

	_, err := account.NewExistenceCache(new(MockClient), cfg, nil, nil, nil)
	assert.Error(t, err)
}
