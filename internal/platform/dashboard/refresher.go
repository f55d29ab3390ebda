package dashboard

import (
	"context"
	"sync"

	"github.com/jonboulle/clockwork"

	"github.com/kislikjeka/walletsync/pkg/logger"
)

// Refresher periodically runs FetchAll on every live dashboard
type Refresher struct {
	config   *RefresherConfig
	registry *Registry
	clock    clockwork.Clock
	logger   *logger.Logger

	mu     sync.Mutex
	stopCh chan struct{}
	done   chan struct{}
}

// NewRefresher creates a refresher over registry
func NewRefresher(config *RefresherConfig, registry *Registry, clock clockwork.Clock, log *logger.Logger) *Refresher {
	if config == nil {
		config = DefaultRefresherConfig()
	}
	_ = config.Validate()
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if log == nil {
		log = logger.Discard()
	}

	return &Refresher{
		config:   config,
		registry: registry,
		clock:    clock,
		logger:   log.WithComponent("refresher"),
	}
}

// Run blocks, refreshing dashboards every interval until ctx is done or Stop
// is called. It returns only after every refresh it started has finished. A
// stopped refresher can be run again.
func (r *Refresher) Run(ctx context.Context) {
	if !r.config.Enabled {
		r.logger.Info("background refresh is disabled")
		return
	}

	r.mu.Lock()
	if r.done != nil {
		r.mu.Unlock()
		return
	}
	stopCh := make(chan struct{})
	done := make(chan struct{})
	r.stopCh, r.done = stopCh, done
	r.mu.Unlock()

	var wg sync.WaitGroup
	defer func() {
		wg.Wait()
		r.mu.Lock()
		r.stopCh, r.done = nil, nil
		r.mu.Unlock()
		close(done)
	}()

	r.logger.Info("starting background refresh",
		"interval", r.config.Interval,
		"concurrency", r.config.Concurrency)

	ticker := r.clock.NewTicker(r.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("background refresh stopping (context done)")
			return
		case <-stopCh:
			r.logger.Info("background refresh stopping (stop signal)")
			return
		case <-ticker.Chan():
			r.refreshAll(ctx, stopCh, &wg)
		}
	}
}

// Stop signals Run to return and waits until it has
func (r *Refresher) Stop() {
	r.mu.Lock()
	stopCh, done := r.stopCh, r.done
	if done == nil {
		r.mu.Unlock()
		return
	}
	select {
	case <-stopCh:
	default:
		close(stopCh)
	}
	r.mu.Unlock()

	<-done
}

// refreshAll runs on the Run goroutine, which alone adds to wg
func (r *Refresher) refreshAll(ctx context.Context, stopCh <-chan struct{}, wg *sync.WaitGroup) {
	dashboards := r.registry.Snapshot()
	if len(dashboards) == 0 {
		r.logger.Debug("no dashboards to refresh")
		return
	}

	r.logger.Debug("refreshing dashboards", "count", len(dashboards))

	sem := make(chan struct{}, r.config.Concurrency)

	for _, d := range dashboards {
		select {
		case <-ctx.Done():
			return
		case <-stopCh:
			return
		case sem <- struct{}{}:
		}

		wg.Add(1)
		go func(d *Dashboard) {
			defer wg.Done()
			defer func() { <-sem }()

			if !d.FetchAll(ctx) {
				r.logger.Debug("dashboard refresh throttled", "account", d.Address())
			}
		}(d)
	}
}
