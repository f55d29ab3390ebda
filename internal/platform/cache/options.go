package cache

import (
	"github.com/jonboulle/clockwork"

	"github.com/kislikjeka/walletsync/internal/platform/state"
	"github.com/kislikjeka/walletsync/internal/platform/telemetry"
	"github.com/kislikjeka/walletsync/pkg/logger"
)

// Options are the collaborators every manager of one dashboard shares.
// Zero values fall back to the real clock, no notifications, no metrics and
// a discarding logger.
type Options struct {
	Clock    clockwork.Clock
	Notifier *state.Notifier
	Metrics  telemetry.Collector
	Logger   *logger.Logger
}

// WithDefaults fills unset fields
func (o Options) WithDefaults() Options {
	if o.Clock == nil {
		o.Clock = clockwork.NewRealClock()
	}
	if o.Metrics == nil {
		o.Metrics = telemetry.Noop()
	}
	if o.Logger == nil {
		o.Logger = logger.Discard()
	}
	return o
}
