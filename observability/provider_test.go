package observability

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric/noop"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// restoreGlobals puts back the otel globals NewProvider replaces
func restoreGlobals(t *testing.T) {
	t.Helper()
	tp := otel.GetTracerProvider()
	mp := otel.GetMeterProvider()
	prop := otel.GetTextMapPropagator()
	t.Cleanup(func() {
		otel.SetTracerProvider(tp)
		otel.SetMeterProvider(mp)
		otel.SetTextMapPropagator(prop)
	})
}

func TestNewProviderDisabled(t *testing.T) {
	p, err := NewProvider(&Config{Enabled: false})
	require.NoError(t, err)

	_, ok := p.(*noopProvider)
	assert.True(t, ok)
	assert.IsType(t, tracenoop.TracerProvider{}, p.TracerProvider())
	assert.IsType(t, noop.MeterProvider{}, p.MeterProvider())
	assert.NoError(t, p.ForceFlush(context.Background()))
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestNewProviderValidation(t *testing.T) {
	tests := []struct {
		name string
		cfg  *Config
		want error
	}{
		{name: "nil config", cfg: nil, want: ErrNilConfig},
		{name: "missing service name", cfg: &Config{Enabled: true}, want: ErrMissingServiceName},
		{name: "sample rate too high", cfg: &Config{Enabled: true, Service: ServiceConfig{Name: "svc"}, Trace: TraceConfig{SampleRate: 1.5}}, want: ErrInvalidSampleRate},
		{name: "negative sample rate", cfg: &Config{Enabled: true, Service: ServiceConfig{Name: "svc"}, Trace: TraceConfig{SampleRate: -0.1}}, want: ErrInvalidSampleRate},
		{name: "unknown exporter", cfg: &Config{Enabled: true, Service: ServiceConfig{Name: "svc"}, Exporter: "otlp"}, want: ErrInvalidExporter},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewProvider(tt.cfg)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()

	assert.Equal(t, EnvironmentDevelopment, cfg.Environment)
	assert.Equal(t, ExporterStdout, cfg.Exporter)
	assert.InDelta(t, 1.0, cfg.Trace.SampleRate, 0)
	assert.Equal(t, 30*time.Second, cfg.Metrics.Interval)
}

func TestNewProviderStdoutExport(t *testing.T) {
	restoreGlobals(t)

	var buf bytes.Buffer
	p, err := NewProvider(&Config{
		Enabled: true,
		Service: ServiceConfig{Name: "speech-gateway", Version: "1.2.3"},
		Writer:  &buf,
	})
	require.NoError(t, err)
	assert.Same(t, p.TracerProvider(), otel.GetTracerProvider())

	_, span := otel.Tracer("test").Start(context.Background(), "synthesize")
	span.End()

	counter, err := otel.Meter("test").Int64Counter("speech.test.calls")
	require.NoError(t, err)
	counter.Add(context.Background(), 1)

	require.NoError(t, Shutdown(p, time.Second))

	out := buf.String()
	assert.Contains(t, out, "synthesize")
	assert.Contains(t, out, "speech-gateway")
	assert.Contains(t, out, "speech.test.calls")
}

func TestNewProviderNoneExporter(t *testing.T) {
	restoreGlobals(t)

	var buf bytes.Buffer
	p, err := NewProvider(&Config{
		Enabled:  true,
		Service:  ServiceConfig{Name: "speech-gateway"},
		Exporter: ExporterNone,
		Writer:   &buf,
	})
	require.NoError(t, err)

	_, span := p.TracerProvider().Tracer("test").Start(context.Background(), "synthesize")
	span.End()

	require.NoError(t, p.ForceFlush(context.Background()))
	require.NoError(t, p.Shutdown(context.Background()))
	assert.Empty(t, buf.String())
}

func TestShutdownHelpers(t *testing.T) {
	assert.NoError(t, Shutdown(nil, 0))
	assert.NoError(t, Shutdown(newNoopProvider(), 0))
	assert.NotPanics(t, func() { MustShutdown(newNoopProvider(), time.Second) })
}

func TestMustNewProviderPanicsOnInvalidConfig(t *testing.T) {
	assert.Panics(t, func() {
		MustNewProvider(&Config{Enabled: true})
	})
}
