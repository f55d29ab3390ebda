package cache_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kislikjeka/walletsync/internal/platform/cache"
	"github.com/kislikjeka/walletsync/internal/platform/state"
)

func newResource(clock clockwork.Clock, ttl time.Duration) *cache.Resource[[]string] {
	return cache.NewResource(cache.ResourceConfig[[]string]{
		Name:  "test",
		TTL:   ttl,
		Clock: clock,
	})
}

func countingLoader(calls *atomic.Int32, data []string, err error) cache.LoadFunc[[]string] {
	return func(ctx context.Context) ([]string, error) {
		calls.Add(1)
		return data, err
	}
}

func TestEntry_IsExpired(t *testing.T) {
	captured := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	e := cache.NewEntry("x", captured, 30*time.Second)

	assert.False(t, e.IsExpired(captured))
	assert.False(t, e.IsExpired(captured.Add(30*time.Second)), "boundary is still fresh")
	assert.True(t, e.IsExpired(captured.Add(30*time.Second+time.Nanosecond)))

	replaced := e.WithData("y")
	assert.Equal(t, "y", replaced.Data)
	assert.Equal(t, captured, replaced.CapturedAt)
	assert.Equal(t, e.TTL, replaced.TTL)
}

func TestTTLConfig_Defaults(t *testing.T) {
	cfg := cache.DefaultTTLConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 60*time.Second, cfg.Existence)
	assert.Equal(t, 30*time.Second, cfg.Assets)
	assert.Equal(t, 20*time.Second, cfg.Payments)
	assert.Equal(t, 300*time.Second, cfg.Contacts)
	assert.Equal(t, 180*time.Second, cfg.KYC)

	cfg.Payments = 0
	assert.Error(t, cfg.Validate())
}

func TestResource_CacheHitAvoidsLoad(t *testing.T) {
	clock := clockwork.NewFakeClock()
	r := newResource(clock, 30*time.Second)

	var calls atomic.Int32
	load := countingLoader(&calls, []string{"a"}, nil)

	r.Refresh(context.Background(), load)
	require.Equal(t, int32(1), calls.Load())
	assert.True(t, r.State().IsLoaded())

	clock.Advance(10 * time.Second)
	r.Refresh(context.Background(), load)

	assert.Equal(t, int32(1), calls.Load())
	assert.True(t, r.State().IsLoaded())
	assert.Equal(t, []string{"a"}, r.State().Data())
}

func TestResource_ExpiredEntryReloads(t *testing.T) {
	clock := clockwork.NewFakeClock()
	r := newResource(clock, 30*time.Second)

	var calls atomic.Int32
	r.Refresh(context.Background(), countingLoader(&calls, []string{"a"}, nil))

	clock.Advance(31 * time.Second)
	r.Refresh(context.Background(), countingLoader(&calls, []string{"b"}, nil))

	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, []string{"b"}, r.State().Data())
}

func TestResource_FailureIsNotCached(t *testing.T) {
	clock := clockwork.NewFakeClock()
	r := newResource(clock, 30*time.Second)
	boom := errors.New("boom")

	var calls atomic.Int32
	r.Refresh(context.Background(), countingLoader(&calls, nil, boom))

	s := r.State()
	assert.Equal(t, state.PhaseFailed, s.Phase())
	assert.ErrorIs(t, s.Err(), boom)
	assert.False(t, s.HasData())

	r.Refresh(context.Background(), countingLoader(&calls, []string{"ok"}, nil))
	assert.Equal(t, int32(2), calls.Load())
	assert.True(t, r.State().IsLoaded())
	assert.NoError(t, r.State().Err())
}

func TestResource_FailureKeepsLastGoodData(t *testing.T) {
	clock := clockwork.NewFakeClock()
	r := newResource(clock, time.Second)

	var calls atomic.Int32
	r.Refresh(context.Background(), countingLoader(&calls, []string{"good"}, nil))

	clock.Advance(2 * time.Second)
	r.Refresh(context.Background(), countingLoader(&calls, nil, errors.New("down")))

	s := r.State()
	assert.Equal(t, state.PhaseFailed, s.Phase())
	assert.True(t, s.HasData())
	assert.Equal(t, []string{"good"}, s.Data())
}

func TestResource_ConcurrentRefreshLoadsOnce(t *testing.T) {
	r := newResource(clockwork.NewFakeClock(), 30*time.Second)

	release := make(chan struct{})
	started := make(chan struct{})
	var calls atomic.Int32
	load := func(ctx context.Context) ([]string, error) {
		if calls.Add(1) == 1 {
			close(started)
		}
		<-release
		return []string{"a"}, nil
	}

	go r.Refresh(context.Background(), load)
	<-started
	assert.True(t, r.State().IsLoading())
	assert.True(t, r.InFlight())

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.Refresh(context.Background(), load)
		}()
	}
	wg.Wait()

	close(release)
	require.NoError(t, r.Await(context.Background()))

	assert.Equal(t, int32(1), calls.Load())
	assert.True(t, r.State().IsLoaded())
	assert.False(t, r.InFlight())
}

func TestResource_AwaitHonoursContext(t *testing.T) {
	r := newResource(clockwork.NewFakeClock(), 30*time.Second)
	assert.NoError(t, r.Await(context.Background()), "nothing in flight")

	release := make(chan struct{})
	started := make(chan struct{})
	go r.Refresh(context.Background(), func(ctx context.Context) ([]string, error) {
		close(started)
		<-release
		return nil, nil
	})
	<-started

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, r.Await(ctx), context.Canceled)

	close(release)
	assert.NoError(t, r.Await(context.Background()))
}

type ctxKey struct{}

func TestResource_LoadIgnoresCallerCancellation(t *testing.T) {
	r := newResource(clockwork.NewFakeClock(), 30*time.Second)

	ctx, cancel := context.WithCancel(context.WithValue(context.Background(), ctxKey{}, "req-1"))
	cancel()

	var loadErr error
	var value any
	r.Refresh(ctx, func(ctx context.Context) ([]string, error) {
		loadErr = ctx.Err()
		value = ctx.Value(ctxKey{})
		return []string{"a"}, loadErr
	})

	assert.NoError(t, loadErr)
	assert.Equal(t, "req-1", value)
	assert.True(t, r.State().IsLoaded())
}

func TestResource_LoadTimeout(t *testing.T) {
	r := cache.NewResource(cache.ResourceConfig[[]string]{
		Name:    "test",
		TTL:     30 * time.Second,
		Timeout: 10 * time.Millisecond,
		Clock:   clockwork.NewFakeClock(),
	})

	r.Refresh(context.Background(), func(ctx context.Context) ([]string, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})

	require.Equal(t, state.PhaseFailed, r.State().Phase())
	assert.ErrorIs(t, r.State().Err(), context.DeadlineExceeded)
	assert.False(t, r.InFlight())
}

func TestResource_InvalidateForcesLoad(t *testing.T) {
	r := newResource(clockwork.NewFakeClock(), time.Hour)

	var calls atomic.Int32
	load := countingLoader(&calls, []string{"a"}, nil)

	r.Refresh(context.Background(), load)
	r.Invalidate()
	assert.True(t, r.State().IsLoaded(), "published state survives invalidation")

	r.Refresh(context.Background(), load)
	assert.Equal(t, int32(2), calls.Load())
}

func TestResource_FinalizeAndTransform(t *testing.T) {
	clock := clockwork.NewFakeClock()
	suffix := "-1"
	r := cache.NewResource(cache.ResourceConfig[[]string]{
		Name:  "test",
		TTL:   time.Hour,
		Clock: clock,
		Finalize: func(in []string) []string {
			out := make([]string, len(in))
			for i, s := range in {
				out[i] = s + suffix
			}
			return out
		},
	})

	var calls atomic.Int32
	r.Refresh(context.Background(), countingLoader(&calls, []string{"a"}, nil))
	assert.Equal(t, []string{"a-1"}, r.State().Data())

	r.Transform(func(in []string) []string { return append([]string{}, in[0]+"!") })
	assert.Equal(t, []string{"a-1!"}, r.State().Data())
	assert.True(t, r.State().IsLoaded())

	// cached entry was rewritten too
	r.Refresh(context.Background(), countingLoader(&calls, []string{"z"}, nil))
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, []string{"a-1!"}, r.State().Data())
}

func TestResource_TransformWithoutDataIsNoop(t *testing.T) {
	r := newResource(clockwork.NewFakeClock(), time.Hour)

	called := false
	r.Transform(func(in []string) []string {
		called = true
		return in
	})

	assert.False(t, called)
	assert.Equal(t, state.PhaseIdle, r.State().Phase())
}

func TestResource_PublishesChanges(t *testing.T) {
	n := state.NewNotifier()
	ch, unsubscribe := n.Subscribe(8)
	defer unsubscribe()

	r := cache.NewResource(cache.ResourceConfig[[]string]{
		Name:     "assets",
		TTL:      time.Hour,
		Clock:    clockwork.NewFakeClock(),
		Notifier: n,
	})
	r.Refresh(context.Background(), func(ctx context.Context) ([]string, error) { return nil, nil })

	first := <-ch
	second := <-ch
	assert.Equal(t, state.Change{Resource: "assets", Phase: state.PhaseLoading}, first)
	assert.Equal(t, state.Change{Resource: "assets", Phase: state.PhaseLoaded}, second)
}
