package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rafaeljc/mimir/internal/config"
)

func testAppConfig(format, level string) *config.AppConfig {
	return &config.AppConfig{
		Name:        "mimir-test",
		Version:     "v0.0.0-test",
		Environment: "development",
		LogLevel:    level,
		LogFormat:   format,
	}
}

func TestNewWithWriter(t *testing.T) {
	t.Run("Should panic when config is nil", func(t *testing.T) {
		assert.Panics(t, func() {
			NewWithWriter(nil, &bytes.Buffer{})
		})
	})

	t.Run("Should emit JSON with the global service attributes", func(t *testing.T) {
		// Arrange
		var buf bytes.Buffer
		log := NewWithWriter(testAppConfig("json", "info"), &buf)

		// Act
		log.Info("hello")

		// Assert
		var entry map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
		assert.Equal(t, "hello", entry["msg"])
		assert.Equal(t, "mimir-test", entry["service"])
		assert.Equal(t, "v0.0.0-test", entry["version"])
		assert.Equal(t, "development", entry["env"])
	})

	t.Run("Should emit human-readable output in text format", func(t *testing.T) {
		var buf bytes.Buffer
		log := NewWithWriter(testAppConfig("text", "info"), &buf)

		log.Info("hello")

		out := buf.String()
		assert.Contains(t, out, "level=INFO")
		assert.Contains(t, out, "msg=hello")
		assert.Contains(t, out, "service=mimir-test")
	})

	t.Run("Should default to JSON for unknown formats", func(t *testing.T) {
		var buf bytes.Buffer
		log := NewWithWriter(testAppConfig("yaml", "info"), &buf)

		log.Info("hello")

		assert.True(t, strings.HasPrefix(strings.TrimSpace(buf.String()), "{"))
	})

	t.Run("Should filter records below the configured level", func(t *testing.T) {
		var buf bytes.Buffer
		log := NewWithWriter(testAppConfig("json", "warn"), &buf)

		log.Info("dropped")
		log.Warn("kept")

		out := buf.String()
		assert.NotContains(t, out, "dropped")
		assert.Contains(t, out, "kept")
	})
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  slog.Level
	}{
		{
			name:  "Should parse lowercase debug",
			input: "debug",
			want:  slog.LevelDebug,
		},
		{
			name:  "Should parse mixed-case warn",
			input: "Warn",
			want:  slog.LevelWarn,
		},
		{
			name:  "Should parse error",
			input: "ERROR",
			want:  slog.LevelError,
		},
		{
			name:  "Should fall back to info for unknown values",
			input: "super-critical",
			want:  slog.LevelInfo,
		},
		{
			name:  "Should fall back to info when empty",
			input: "",
			want:  slog.LevelInfo,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, parseLevel(tt.input))
		})
	}
}
