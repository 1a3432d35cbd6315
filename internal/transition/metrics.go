package transition

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

const instrumentationName = "github.com/bakushin-github/bakushin.dev/internal/transition"

// Metrics counts completed navigations. A nil *Metrics records nothing.
type Metrics struct {
	completedTotal metric.Int64Counter
}

// NewMetrics registers the instruments on meter, or on the global provider when nil.
func NewMetrics(meter metric.Meter, logger *zap.Logger) *Metrics {
	if meter == nil {
		meter = otel.GetMeterProvider().Meter(instrumentationName)
	}
	counter, err := meter.Int64Counter("works.navigation.completed",
		metric.WithDescription("Card navigations by completing trigger"))
	if err != nil {
		if logger != nil {
			logger.Warn("transition: unable to register metric", zap.Error(err))
		}
		return &Metrics{}
	}
	return &Metrics{completedTotal: counter}
}

func (m *Metrics) completed(ctx context.Context, t Trigger) {
	if m == nil || m.completedTotal == nil {
		return
	}
	m.completedTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("trigger", t.String())))
}
