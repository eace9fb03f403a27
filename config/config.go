// Package config loads connector settings with koanf from built-in defaults,
// an optional yaml or toml file and SPEECH_ prefixed environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	envprovider "github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is stripped from environment variables before mapping
// SPEECH_CONNECTOR_MAX_CONNECTIONS to connector.max.connections.
const EnvPrefix = "SPEECH_"

// Supported file formats
const (
	FormatYAML = "yaml"
	FormatTOML = "toml"
)

// Load loads configuration with priority:
// 1. Environment variables (highest priority)
// 2. The file at path, when path is set and the file exists
// 3. Default values (lowest priority)
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := loadDefaults(k); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path != "" {
		parser, err := parserFor(strings.TrimPrefix(filepath.Ext(path), "."))
		if err != nil {
			return nil, err
		}
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), parser); err != nil {
				return nil, fmt.Errorf("failed to load %s: %w", path, err)
			}
		} else if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to stat %s: %w", path, err)
		}
	}

	return finish(k)
}

// LoadBytes loads configuration from an in-memory document of the given
// format on top of the defaults; environment variables still win.
func LoadBytes(data []byte, format string) (*Config, error) {
	k := koanf.New(".")

	if err := loadDefaults(k); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	parser, err := parserFor(format)
	if err != nil {
		return nil, err
	}
	if err := k.Load(rawbytes.Provider(data), parser); err != nil {
		return nil, fmt.Errorf("failed to parse %s config: %w", format, err)
	}

	return finish(k)
}

func finish(k *koanf.Koanf) (*Config, error) {
	if err := k.Load(envprovider.Provider(".", envprovider.Opt{
		Prefix: EnvPrefix,
		TransformFunc: func(key, value string) (string, any) {
			key = strings.TrimPrefix(key, EnvPrefix)
			return strings.ReplaceAll(strings.ToLower(key), "_", "."), value
		},
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.k = k

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if err := cfg.Observability.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func parserFor(format string) (koanf.Parser, error) {
	switch strings.ToLower(format) {
	case FormatYAML, "yml":
		return yaml.Parser(), nil
	case FormatTOML:
		return TOMLParser(), nil
	default:
		return nil, NewInvalidFieldError("format", fmt.Sprintf("unsupported config format %q", format),
			[]string{FormatYAML, FormatTOML})
	}
}

func loadDefaults(k *koanf.Koanf) error {
	defaults := map[string]any{
		"connector.max.connections": 50,
		"connector.timeout.connect": "3s",
		"connector.timeout.socket":  "5s",
		"connector.retry.count":     2,
		"connector.rate.limit":      0,
		"connector.rate.burst":      1,
		"connector.log.payloads":    false,
		"connector.log.maxbytes":    1024,
		"connector.trace.header":    "X-Request-ID",

		"log.level":  "info",
		"log.pretty": false,

		"observability.enabled":          false,
		"observability.service.name":     "speech-connector",
		"observability.environment":      "development",
		"observability.exporter":         "stdout",
		"observability.trace.samplerate": 1.0,
		"observability.metrics.interval": "30s",
	}

	return k.Load(confmap.Provider(defaults, "."), nil)
}
