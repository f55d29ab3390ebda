package cache

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/kislikjeka/walletsync/internal/platform/state"
	"github.com/kislikjeka/walletsync/internal/platform/telemetry"
	"github.com/kislikjeka/walletsync/pkg/logger"
)

// LoadFunc produces a fresh value for a resource
type LoadFunc[T any] func(ctx context.Context) (T, error)

// DefaultLoadTimeout bounds a single load when ResourceConfig.Timeout is unset
const DefaultLoadTimeout = 30 * time.Second

// ResourceConfig configures a Resource
type ResourceConfig[T any] struct {
	// Name labels logs, metrics and state change events
	Name string

	// TTL is the lifetime of a successful load
	TTL time.Duration

	// Timeout bounds one load. Defaults to DefaultLoadTimeout.
	Timeout time.Duration

	// Clock defaults to the real clock
	Clock clockwork.Clock

	// Notifier receives state changes, may be nil
	Notifier *state.Notifier

	// Metrics defaults to telemetry.Noop()
	Metrics telemetry.Collector

	// Logger defaults to a discarding logger
	Logger *logger.Logger

	// Finalize, if set, rewrites a successful load right before it is cached
	// and published. It runs under the resource lock.
	Finalize func(T) T

	// Outcome maps a load error to a telemetry outcome. Defaults to OutcomeError.
	Outcome func(error) string
}

// Resource owns the cache entry, in-flight flag and published state of one
// resource. At most one load runs at a time; failures are never cached.
type Resource[T any] struct {
	name     string
	ttl      time.Duration
	timeout  time.Duration
	clock    clockwork.Clock
	cell     *state.Cell[T]
	metrics  telemetry.Collector
	logger   *logger.Logger
	finalize func(T) T
	outcome  func(error) string

	mu       sync.Mutex
	entry    *Entry[T]
	inflight chan struct{}
}

// NewResource creates an Idle resource
func NewResource[T any](cfg ResourceConfig[T]) *Resource[T] {
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = telemetry.Noop()
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Discard()
	}
	if cfg.Outcome == nil {
		cfg.Outcome = func(error) string { return telemetry.OutcomeError }
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultLoadTimeout
	}

	return &Resource[T]{
		name:     cfg.Name,
		ttl:      cfg.TTL,
		timeout:  cfg.Timeout,
		clock:    cfg.Clock,
		cell:     state.NewCell[T](cfg.Name, cfg.Notifier),
		metrics:  cfg.Metrics,
		logger:   cfg.Logger.WithField("resource", cfg.Name),
		finalize: cfg.Finalize,
		outcome:  cfg.Outcome,
	}
}

// State returns the last published state
func (r *Resource[T]) State() state.DataState[T] {
	return r.cell.Get()
}

// Refresh runs one fetch cycle:
//   - a load already in flight makes this call a no-op;
//   - a fresh entry is republished as Loaded without calling load;
//   - otherwise load runs and its result is cached (success) or published as
//     Failed without touching the cache (failure).
//
// Refresh blocks until its own load finishes. Callers that hit the in-flight
// branch can use Await to wait for the running cycle.
//
// The load keeps ctx values but not its cancellation: once started it runs to
// completion or to the resource timeout, whatever happens to the caller.
func (r *Resource[T]) Refresh(ctx context.Context, load LoadFunc[T]) {
	r.mu.Lock()
	if r.inflight != nil {
		r.mu.Unlock()
		r.logger.Debug("load already in flight, skipping")
		return
	}
	if r.entry != nil && !r.entry.IsExpired(r.clock.Now()) {
		r.cell.Set(state.Loaded(r.entry.Data))
		r.mu.Unlock()
		r.metrics.CacheHit(r.name)
		r.logger.Debug("cache hit")
		return
	}

	done := make(chan struct{})
	r.inflight = done
	r.cell.Update(func(s state.DataState[T]) state.DataState[T] { return s.ToLoading() })
	r.mu.Unlock()

	r.metrics.CacheMiss(r.name)

	defer func() {
		r.mu.Lock()
		r.inflight = nil
		r.mu.Unlock()
		close(done)
	}()

	loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
	defer cancel()

	start := r.clock.Now()
	data, err := load(loadCtx)
	elapsed := r.clock.Since(start)

	r.mu.Lock()
	defer r.mu.Unlock()

	if err != nil {
		r.cell.Update(func(s state.DataState[T]) state.DataState[T] { return s.ToFailed(err) })
		r.metrics.FetchCompleted(r.name, r.outcome(err), elapsed)
		r.logger.Warn("load failed", "error", err, "duration_ms", elapsed.Milliseconds())
		return
	}

	if r.finalize != nil {
		data = r.finalize(data)
	}
	r.entry = NewEntry(data, r.clock.Now(), r.ttl)
	r.cell.Set(state.Loaded(data))
	r.metrics.FetchCompleted(r.name, telemetry.OutcomeSuccess, elapsed)
	r.logger.Debug("load completed", "duration_ms", elapsed.Milliseconds())
}

// Await blocks until the load in flight at call time finishes, or ctx is done.
// It returns immediately when nothing is in flight.
func (r *Resource[T]) Await(ctx context.Context) error {
	r.mu.Lock()
	done := r.inflight
	r.mu.Unlock()

	if done == nil {
		return nil
	}

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// InFlight reports whether a load is running
func (r *Resource[T]) InFlight() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.inflight != nil
}

// Invalidate drops the cached entry. Published state is left as is.
func (r *Resource[T]) Invalidate() {
	r.mu.Lock()
	r.entry = nil
	r.mu.Unlock()
}

// Transform rewrites the cached entry and the published payload with fn,
// keeping the capture time and the phase. It never loads.
func (r *Resource[T]) Transform(fn func(T) T) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.entry != nil {
		r.entry = r.entry.WithData(fn(r.entry.Data))
	}

	current := r.cell.Get()
	if current.HasData() {
		r.cell.Set(current.WithData(fn(current.Data())))
	}
}
