package telemetry

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	promexporter "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// ErrUnknownExporter is returned for exporter names Init does not support.
var ErrUnknownExporter = errors.New("telemetry: unknown exporter")

// Options selects exporters and the service identity.
type Options struct {
	ServiceName    string
	ServiceVersion string
	// MetricExporter is "prometheus" or "none".
	MetricExporter string
	// TraceExporter is "stdout" or "none".
	TraceExporter string
}

// Providers holds the meter and tracer providers built by Init.
type Providers struct {
	MeterProvider  metric.MeterProvider
	TracerProvider trace.TracerProvider

	metricsHandler http.Handler
	shutdown       []func(context.Context) error
}

// Init builds the providers and installs them as the OpenTelemetry globals.
// With both exporters set to "none" the globals keep their no-op defaults.
func Init(_ context.Context, opts Options) (*Providers, error) {
	if opts.ServiceName == "" {
		opts.ServiceName = "works"
	}
	res := resource.NewWithAttributes("",
		attribute.String("service.name", opts.ServiceName),
		attribute.String("service.version", opts.ServiceVersion),
	)

	p := &Providers{
		MeterProvider:  otel.GetMeterProvider(),
		TracerProvider: otel.GetTracerProvider(),
	}

	switch opts.MetricExporter {
	case "", "none":
	case "prometheus":
		registry := prometheus.NewRegistry()
		exporter, err := promexporter.New(promexporter.WithRegisterer(registry))
		if err != nil {
			return nil, fmt.Errorf("create prometheus exporter: %w", err)
		}
		mp := sdkmetric.NewMeterProvider(
			sdkmetric.WithResource(res),
			sdkmetric.WithReader(exporter),
		)
		p.MeterProvider = mp
		p.metricsHandler = promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
		p.shutdown = append(p.shutdown, mp.Shutdown)
		otel.SetMeterProvider(mp)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownExporter, opts.MetricExporter)
	}

	switch opts.TraceExporter {
	case "", "none":
	case "stdout":
		exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			return nil, fmt.Errorf("create stdout trace exporter: %w", err)
		}
		tp := sdktrace.NewTracerProvider(
			sdktrace.WithBatcher(exporter),
			sdktrace.WithResource(res),
		)
		p.TracerProvider = tp
		p.shutdown = append(p.shutdown, tp.Shutdown)
		otel.SetTracerProvider(tp)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownExporter, opts.TraceExporter)
	}

	return p, nil
}

// MetricsHandler serves the Prometheus exposition, or nil when metrics are disabled.
func (p *Providers) MetricsHandler() http.Handler {
	if p == nil {
		return nil
	}
	return p.metricsHandler
}

// Shutdown flushes and stops every provider Init created.
func (p *Providers) Shutdown(ctx context.Context) error {
	if p == nil {
		return nil
	}
	var errs []error
	for _, fn := range p.shutdown {
		if err := fn(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
