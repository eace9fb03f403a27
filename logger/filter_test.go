package logger

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
)

const maskedValue = "[MASKED]"

func TestFilterString(t *testing.T) {
	f := NewSensitiveDataFilter(&FilterConfig{
		SensitiveFields: []string{"password", "signa"},
		MaskValue:       maskedValue,
	})

	tests := []struct {
		name     string
		key      string
		value    string
		expected string
	}{
		{name: "plain field", key: "engine_type", value: "sms16k", expected: "sms16k"},
		{name: "exact match", key: "signa", value: "abc", expected: maskedValue},
		{name: "case insensitive contains", key: "DB_PASSWORD", value: "p", expected: maskedValue},
		{name: "empty sensitive value untouched", key: "password", value: "", expected: ""},
		{
			name:     "url password masked",
			key:      "password_url",
			value:    "https://user:pw@api.example.com/v1?x=1",
			expected: "https://user:" + maskedValue + "@api.example.com/v1?x=1",
		},
		{
			name:     "url without password kept",
			key:      "password_url",
			value:    "https://api.example.com/v1",
			expected: "https://api.example.com/v1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, f.FilterString(tt.key, tt.value))
		})
	}
}

func TestFilterValue(t *testing.T) {
	f := NewSensitiveDataFilter(nil)

	t.Run("nested map", func(t *testing.T) {
		in := map[string]any{
			"outer": map[string]any{"secret": "s", "lang": "cn"},
		}
		out := f.FilterValue("payload", in).(map[string]any)
		inner := out["outer"].(map[string]any)
		assert.Equal(t, DefaultMaskValue, inner["secret"])
		assert.Equal(t, "cn", inner["lang"])
	})

	t.Run("url values", func(t *testing.T) {
		in := url.Values{"signa": {"a", "b"}, "ts": {"1615"}}
		out := f.FilterValue("form", in).(url.Values)
		assert.Equal(t, []string{DefaultMaskValue, DefaultMaskValue}, out["signa"])
		assert.Equal(t, []string{"1615"}, out["ts"])
	})

	t.Run("sensitive key masks non string", func(t *testing.T) {
		assert.Equal(t, DefaultMaskValue, f.FilterValue("token", 42))
	})

	t.Run("other types pass through", func(t *testing.T) {
		assert.Equal(t, 42, f.FilterValue("count", 42))
		assert.Nil(t, f.FilterValue("count", nil))
	})
}

func TestFilterFields(t *testing.T) {
	f := NewSensitiveDataFilter(&FilterConfig{SensitiveFields: []string{"auth"}})

	out := f.FilterFields(map[string]any{"authorization": "Bearer x", "host": "h"})
	assert.Equal(t, DefaultMaskValue, out["authorization"])
	assert.Equal(t, "h", out["host"])
}

func TestDefaultFilterConfigCoversSigningParams(t *testing.T) {
	cfg := DefaultFilterConfig()
	assert.Contains(t, cfg.SensitiveFields, "signa")
	assert.Contains(t, cfg.SensitiveFields, "api_key")
	assert.Equal(t, DefaultMaskValue, cfg.MaskValue)
}
