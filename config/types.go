package config

import (
	"time"

	"github.com/knadh/koanf/v2"

	"github.com/gaborage/go-bricks-speech/observability"
)

// Config is the root configuration of a speech connector process.
// The koanf instance is kept for access to keys not modeled here.
type Config struct {
	Connector ConnectorConfig `koanf:"connector" json:"connector" yaml:"connector" toml:"connector"`
	Log       LogConfig       `koanf:"log" json:"log" yaml:"log" toml:"log"`

	Observability observability.Config `koanf:"observability" json:"observability" yaml:"observability" toml:"observability"`

	k *koanf.Koanf `json:"-" yaml:"-" toml:"-"`
}

// ConnectorConfig holds the pooled HTTP connector settings.
type ConnectorConfig struct {
	Max     MaxConfig        `koanf:"max" json:"max" yaml:"max" toml:"max"`
	Timeout TimeoutConfig    `koanf:"timeout" json:"timeout" yaml:"timeout" toml:"timeout"`
	Retry   RetryConfig      `koanf:"retry" json:"retry" yaml:"retry" toml:"retry"`
	Rate    RateConfig       `koanf:"rate" json:"rate" yaml:"rate" toml:"rate"`
	Log     PayloadLogConfig `koanf:"log" json:"log" yaml:"log" toml:"log"`
	Trace   TraceConfig      `koanf:"trace" json:"trace" yaml:"trace" toml:"trace"`
}

// MaxConfig bounds the connection pool.
type MaxConfig struct {
	// Connections caps concurrently leased connections across all routes.
	Connections int `koanf:"connections" json:"connections" yaml:"connections" toml:"connections" validate:"min=1,max=10000"`
}

// TimeoutConfig holds dial and per-read timeouts. Zero disables a timeout.
type TimeoutConfig struct {
	Connect time.Duration `koanf:"connect" json:"connect" yaml:"connect" toml:"connect" validate:"min=0s"`
	Socket  time.Duration `koanf:"socket" json:"socket" yaml:"socket" toml:"socket" validate:"min=0s"`
}

// RetryConfig holds the automatic retry budget for transient I/O failures.
type RetryConfig struct {
	Count int `koanf:"count" json:"count" yaml:"count" toml:"count" validate:"min=0,max=100"`
}

// RateConfig throttles dispatches per second. Limit 0 disables throttling.
type RateConfig struct {
	Limit float64 `koanf:"limit" json:"limit" yaml:"limit" toml:"limit" validate:"min=0"`
	Burst int     `koanf:"burst" json:"burst" yaml:"burst" toml:"burst" validate:"min=1"`
}

// PayloadLogConfig controls debug logging of request and response bodies.
type PayloadLogConfig struct {
	Payloads bool `koanf:"payloads" json:"payloads" yaml:"payloads" toml:"payloads"`
	MaxBytes int  `koanf:"maxbytes" json:"maxbytes" yaml:"maxbytes" toml:"maxbytes" validate:"min=0"`
}

// TraceConfig names the correlation id header.
type TraceConfig struct {
	Header string `koanf:"header" json:"header" yaml:"header" toml:"header" validate:"required"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string `koanf:"level" json:"level" yaml:"level" toml:"level" validate:"oneof=trace debug info warn error"`
	Pretty bool   `koanf:"pretty" json:"pretty" yaml:"pretty" toml:"pretty"`
}

// Koanf exposes the underlying koanf instance.
func (c *Config) Koanf() *koanf.Koanf {
	return c.k
}
