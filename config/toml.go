package config

import (
	"github.com/knadh/koanf/v2"
	"github.com/pelletier/go-toml/v2"
)

// tomlParser implements koanf.Parser on top of go-toml.
type tomlParser struct{}

// TOMLParser returns a koanf parser for toml documents.
func TOMLParser() koanf.Parser {
	return &tomlParser{}
}

func (p *tomlParser) Unmarshal(b []byte) (map[string]any, error) {
	var out map[string]any
	if err := toml.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = map[string]any{}
	}
	return out, nil
}

func (p *tomlParser) Marshal(o map[string]any) ([]byte, error) {
	return toml.Marshal(o)
}
