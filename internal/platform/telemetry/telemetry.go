package telemetry

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Fetch outcomes reported to FetchCompleted
const (
	OutcomeSuccess  = "success"
	OutcomeNotFound = "account_not_found"
	OutcomeError    = "error"
)

// Collector receives cache and refresh events from the managers.
//
// Calls happen inline on the fetch path, so implementations must be cheap
// and must never block.
type Collector interface {
	CacheHit(resource string)
	CacheMiss(resource string)
	FetchCompleted(resource, outcome string, d time.Duration)
	RefreshThrottled()
}

type noopCollector struct{}

// Noop returns a collector that discards all events.
func Noop() Collector {
	return noopCollector{}
}

func (noopCollector) CacheHit(string)                              {}
func (noopCollector) CacheMiss(string)                             {}
func (noopCollector) FetchCompleted(string, string, time.Duration) {}
func (noopCollector) RefreshThrottled()                            {}

// PrometheusCollector exposes cache and refresh counters via Prometheus.
type PrometheusCollector struct {
	lookups   *prometheus.CounterVec
	fetches   *prometheus.HistogramVec
	throttled prometheus.Counter
}

// NewPrometheusCollector registers the metrics with reg, reusing collectors that
// are already registered there.
func NewPrometheusCollector(reg prometheus.Registerer) (*PrometheusCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	lookups, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "walletsync_cache_lookups_total",
		Help: "Cache lookups per resource, split by hit or miss.",
	}, []string{"resource", "result"}))
	if err != nil {
		return nil, err
	}

	fetches, err := register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "walletsync_fetch_duration_seconds",
		Help:    "Duration of resource loads that reached the ledger or secure store.",
		Buckets: prometheus.DefBuckets,
	}, []string{"resource", "outcome"}))
	if err != nil {
		return nil, err
	}

	throttled, err := register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "walletsync_refresh_throttled_total",
		Help: "Dashboard refresh requests dropped by the minimum refresh interval.",
	}))
	if err != nil {
		return nil, err
	}

	return &PrometheusCollector{
		lookups:   lookups,
		fetches:   fetches,
		throttled: throttled,
	}, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		var zero C
		return zero, err
	}
	return c, nil
}

// CacheHit counts a lookup served from cache.
func (p *PrometheusCollector) CacheHit(resource string) {
	if p == nil {
		return
	}
	p.lookups.WithLabelValues(resource, "hit").Inc()
}

// CacheMiss counts a lookup that had to load.
func (p *PrometheusCollector) CacheMiss(resource string) {
	if p == nil {
		return
	}
	p.lookups.WithLabelValues(resource, "miss").Inc()
}

// FetchCompleted observes the duration of a load by outcome.
func (p *PrometheusCollector) FetchCompleted(resource, outcome string, d time.Duration) {
	if p == nil {
		return
	}
	p.fetches.WithLabelValues(resource, outcome).Observe(d.Seconds())
}

// RefreshThrottled counts a dropped dashboard refresh.
func (p *PrometheusCollector) RefreshThrottled() {
	if p == nil {
		return
	}
	p.throttled.Inc()
}
