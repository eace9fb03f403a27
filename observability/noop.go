package observability

import (
	"context"

	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

var (
	_ Provider = (*provider)(nil)
	_ Provider = (*noopProvider)(nil)
)

// noopProvider is returned for a disabled config. The connector still
// records through it; nothing is kept.
type noopProvider struct{}

func newNoopProvider() *noopProvider {
	return &noopProvider{}
}

func (*noopProvider) TracerProvider() trace.TracerProvider {
	return tracenoop.NewTracerProvider()
}

func (*noopProvider) MeterProvider() metric.MeterProvider {
	return metricnoop.NewMeterProvider()
}

func (*noopProvider) Shutdown(context.Context) error { return nil }

func (*noopProvider) ForceFlush(context.Context) error { return nil }
