// Package observability installs the OpenTelemetry providers that the
// speech connector reports spans and metrics through.
package observability

import (
	"io"
	"time"
)

const (
	// ExporterStdout writes telemetry to stdout (for local development).
	ExporterStdout = "stdout"

	// ExporterNone keeps providers installed but exports nothing.
	ExporterNone = "none"

	// EnvironmentDevelopment is the default environment name.
	EnvironmentDevelopment = "development"

	defaultSampleRate     = 1.0
	defaultMetricInterval = 30 * time.Second
)

// Config defines the configuration for observability features.
type Config struct {
	// Enabled controls whether observability is active.
	// When false, NewProvider returns no-op providers.
	Enabled bool `koanf:"enabled"`

	Service     ServiceConfig `koanf:"service"`
	Environment string        `koanf:"environment"`

	// Exporter selects where telemetry goes: stdout or none.
	Exporter string `koanf:"exporter"`

	Trace   TraceConfig   `koanf:"trace"`
	Metrics MetricsConfig `koanf:"metrics"`

	// Writer overrides stdout for the stdout exporter. Not loaded from config.
	Writer io.Writer `koanf:"-"`
}

// ServiceConfig identifies the reporting service.
type ServiceConfig struct {
	Name    string `koanf:"name"`
	Version string `koanf:"version"`
}

// TraceConfig controls span sampling.
type TraceConfig struct {
	// SampleRate is the fraction of traces kept, from 0.0 to 1.0.
	SampleRate float64 `koanf:"samplerate"`
}

// MetricsConfig controls metric export.
type MetricsConfig struct {
	// Interval is how often metrics are exported.
	Interval time.Duration `koanf:"interval"`
}

// ApplyDefaults fills unset fields. A zero sample rate means "sample all".
func (c *Config) ApplyDefaults() {
	if c.Environment == "" {
		c.Environment = EnvironmentDevelopment
	}
	if c.Exporter == "" {
		c.Exporter = ExporterStdout
	}
	if c.Trace.SampleRate == 0 {
		c.Trace.SampleRate = defaultSampleRate
	}
	if c.Metrics.Interval <= 0 {
		c.Metrics.Interval = defaultMetricInterval
	}
}

// Validate checks an enabled configuration. Disabled configurations are
// always valid.
func (c *Config) Validate() error {
	if c == nil {
		return ErrNilConfig
	}
	if !c.Enabled {
		return nil
	}
	if c.Service.Name == "" {
		return ErrMissingServiceName
	}
	if c.Trace.SampleRate < 0 || c.Trace.SampleRate > 1 {
		return ErrInvalidSampleRate
	}
	if c.Exporter != ExporterStdout && c.Exporter != ExporterNone {
		return ErrInvalidExporter
	}
	return nil
}
