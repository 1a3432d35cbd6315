package works

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

const instrumentationName = "github.com/bakushin-github/bakushin.dev/internal/works"

// Metrics groups the aggregation instruments. A nil *Metrics records nothing.
type Metrics struct {
	pages    metric.Int64Counter
	items    metric.Int64Histogram
	failures metric.Int64Counter
	resolved metric.Int64Counter
}

// NewMetrics registers the instruments on meter, or on the global provider when nil.
func NewMetrics(meter metric.Meter, logger *zap.Logger) *Metrics {
	if meter == nil {
		meter = otel.GetMeterProvider().Meter(instrumentationName)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Metrics{}
	var err error
	if m.pages, err = meter.Int64Counter("works.aggregate.pages",
		metric.WithDescription("Upstream pages fetched during aggregation")); err != nil {
		logger.Warn("works: unable to register metric", zap.String("metric", "works.aggregate.pages"), zap.Error(err))
	}
	if m.items, err = meter.Int64Histogram("works.aggregate.items",
		metric.WithDescription("Items returned by one aggregation pass")); err != nil {
		logger.Warn("works: unable to register metric", zap.String("metric", "works.aggregate.items"), zap.Error(err))
	}
	if m.failures, err = meter.Int64Counter("works.aggregate.failures",
		metric.WithDescription("Page fetches that ended an aggregation early")); err != nil {
		logger.Warn("works: unable to register metric", zap.String("metric", "works.aggregate.failures"), zap.Error(err))
	}
	if m.resolved, err = meter.Int64Counter("works.schema.resolved",
		metric.WithDescription("Schema resolutions by variant")); err != nil {
		logger.Warn("works: unable to register metric", zap.String("metric", "works.schema.resolved"), zap.Error(err))
	}
	return m
}

func (m *Metrics) pageFetched(ctx context.Context, v Variant) {
	if m == nil || m.pages == nil {
		return
	}
	m.pages.Add(ctx, 1, metric.WithAttributes(attribute.String("variant", v.String())))
}

func (m *Metrics) aggregated(ctx context.Context, v Variant, n int, partial bool) {
	if m == nil || m.items == nil {
		return
	}
	m.items.Record(ctx, int64(n), metric.WithAttributes(
		attribute.String("variant", v.String()),
		attribute.Bool("partial", partial),
	))
}

func (m *Metrics) failed(ctx context.Context, v Variant) {
	if m == nil || m.failures == nil {
		return
	}
	m.failures.Add(ctx, 1, metric.WithAttributes(attribute.String("variant", v.String())))
}

func (m *Metrics) resolvedVariant(ctx context.Context, v Variant) {
	if m == nil || m.resolved == nil {
		return
	}
	m.resolved.Add(ctx, 1, metric.WithAttributes(attribute.String("variant", v.String())))
}
