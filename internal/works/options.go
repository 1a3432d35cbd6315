package works

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type options struct {
	logger  *zap.Logger
	metrics *Metrics
	tracer  trace.Tracer
}

// Option customises a Resolver or Aggregator.
type Option func(*options)

// WithLogger sets the logger; the default discards output.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithMetrics sets the instruments to record to.
func WithMetrics(m *Metrics) Option {
	return func(o *options) { o.metrics = m }
}

func buildOptions(opts []Option) options {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	if o.tracer == nil {
		o.tracer = otel.Tracer(instrumentationName)
	}
	return o
}
