package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testMessage = "test message"

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	return entry
}

func TestNewWithWriterLevels(t *testing.T) {
	tests := []struct {
		name          string
		level         string
		expectedLevel zerolog.Level
	}{
		{name: "info", level: "info", expectedLevel: zerolog.InfoLevel},
		{name: "debug", level: "debug", expectedLevel: zerolog.DebugLevel},
		{name: "warn", level: "warn", expectedLevel: zerolog.WarnLevel},
		{name: "error", level: "error", expectedLevel: zerolog.ErrorLevel},
		{name: "invalid defaults to info", level: "loud", expectedLevel: zerolog.InfoLevel},
		{name: "empty defaults to info", level: "", expectedLevel: zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := NewWithWriter(&bytes.Buffer{}, tt.level, false, nil)
			assert.Equal(t, tt.expectedLevel, l.Level())
		})
	}
}

func TestLogEventFields(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, "debug", false, nil)

	l.Info().
		Str("url", "https://api.example.com/v1/asr").
		Int("status", 200).
		Int64("call_count", 3).
		Bool("retried", true).
		Dur("elapsed", 1500*time.Millisecond).
		Err(errors.New("boom")).
		Msg(testMessage)

	entry := decodeLine(t, &buf)
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, testMessage, entry["message"])
	assert.Equal(t, "https://api.example.com/v1/asr", entry["url"])
	assert.Equal(t, float64(200), entry["status"])
	assert.Equal(t, float64(3), entry["call_count"])
	assert.Equal(t, true, entry["retried"])
	assert.Equal(t, "boom", entry["error"])
	assert.Contains(t, entry, "time")
	assert.Contains(t, entry, "caller")
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, "warn", false, nil)

	l.Info().Msg("dropped")
	l.Debug().Msg("dropped too")
	assert.Zero(t, buf.Len())

	l.Warn().Msg("kept")
	entry := decodeLine(t, &buf)
	assert.Equal(t, "warn", entry["level"])
}

func TestSensitiveStringFieldsAreMasked(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, "info", false, nil)

	l.Info().Str("signa", "c2lnbmF0dXJl").Str("appid", "5f0a").Msg(testMessage)

	entry := decodeLine(t, &buf)
	assert.Equal(t, DefaultMaskValue, entry["signa"])
	assert.Equal(t, "5f0a", entry["appid"])
}

func TestInterfaceParamsAreMasked(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, "info", false, nil)

	params := map[string]string{"slice_id": "aaaaaaaaaaaa", "api_key": "k-123"}
	l.Info().Interface("params", params).Msg(testMessage)

	entry := decodeLine(t, &buf)
	logged, ok := entry["params"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "aaaaaaaaaaaa", logged["slice_id"])
	assert.Equal(t, DefaultMaskValue, logged["api_key"])
	assert.Equal(t, "k-123", params["api_key"], "caller map must not be mutated")
}

func TestWithFields(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, "info", false, nil)

	child := l.WithFields(map[string]any{"component": "speech", "token": "abc"})
	child.Info().Msg(testMessage)

	entry := decodeLine(t, &buf)
	assert.Equal(t, "speech", entry["component"])
	assert.Equal(t, DefaultMaskValue, entry["token"])
}

func TestWithContext(t *testing.T) {
	l := NewWithWriter(&bytes.Buffer{}, "info", false, nil)

	t.Run("non context value returns same logger", func(t *testing.T) {
		assert.Same(t, l, l.WithContext("not a context"))
	})

	t.Run("context without logger returns same logger", func(t *testing.T) {
		assert.Same(t, l, l.WithContext(context.Background()))
	})

	t.Run("context logger is used", func(t *testing.T) {
		var buf bytes.Buffer
		zl := zerolog.New(&buf)
		ctx := zl.WithContext(context.Background())

		derived := l.WithContext(ctx)
		assert.NotSame(t, l, derived)

		derived.Info().Msg(testMessage)
		assert.Contains(t, buf.String(), testMessage)
	})
}

func TestNopDiscards(t *testing.T) {
	l := Nop()
	assert.NotPanics(t, func() {
		l.Error().Err(errors.New("x")).Msg("nothing")
	})
}

func TestPrettyOutput(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, "info", true, nil)
	l.Info().Msg(testMessage)

	assert.Contains(t, buf.String(), testMessage)
	assert.NotContains(t, buf.String(), `"message"`)
}
