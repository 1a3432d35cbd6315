package transition

import (
	"time"

	"go.uber.org/zap"
)

type options struct {
	scheduler Scheduler
	timeout   time.Duration
	logger    *zap.Logger
	metrics   *Metrics
}

// Option customises a Controller.
type Option func(*options)

// WithTimeout sets the fallback delay; non-positive values keep DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithScheduler replaces the timer source.
func WithScheduler(s Scheduler) Option {
	return func(o *options) { o.scheduler = s }
}

// WithLogger sets the logger; the default discards output.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithMetrics sets the instruments to record to.
func WithMetrics(m *Metrics) Option {
	return func(o *options) { o.metrics = m }
}

func buildOptions(opts []Option) options {
	o := options{timeout: DefaultTimeout}
	for _, opt := range opts {
		opt(&o)
	}
	if o.scheduler == nil {
		o.scheduler = SystemScheduler{}
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	return o
}
