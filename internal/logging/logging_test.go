package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unklstewy/flightpath/pkg/config"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"debug", slog.LevelDebug, false},
		{"INFO", slog.LevelInfo, false},
		{"", slog.LevelInfo, false},
		{"warn", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"loud", slog.LevelInfo, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNew(t *testing.T) {
	t.Run("Writes JSON records to the log file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "logs", "flightpath.log")
		l, err := New(config.LoggingConfig{Level: "info", File: path, MaxSizeMB: 1}, "test", nil)
		require.NoError(t, err)

		l.Warn("discarding telemetry line", slog.String("reason", "field_count"))
		require.NoError(t, l.Close())

		data, err := os.ReadFile(path)
		require.NoError(t, err)

		var found bool
		for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
			var rec map[string]any
			require.NoError(t, json.Unmarshal([]byte(line), &rec))
			assert.Equal(t, "test", rec["app"])
			if rec["msg"] == "discarding telemetry line" {
				found = true
				assert.Equal(t, "field_count", rec["reason"])
				assert.Equal(t, "WARN", rec["level"])
			}
		}
		assert.True(t, found, "Expected warning in log file")
	})

	t.Run("Mirror receives text records at the configured level", func(t *testing.T) {
		var buf bytes.Buffer
		l, err := New(config.LoggingConfig{Level: "warn"}, "test", &buf)
		require.NoError(t, err)

		l.Info("not shown")
		l.Error("serial port lost", slog.String("port", "/dev/ttyUSB0"))

		out := buf.String()
		assert.NotContains(t, out, "not shown")
		assert.Contains(t, out, "serial port lost")
		assert.Contains(t, out, "port=/dev/ttyUSB0")
		assert.NotContains(t, out, "time=")
	})

	t.Run("File and mirror both receive records", func(t *testing.T) {
		var buf bytes.Buffer
		path := filepath.Join(t.TempDir(), "both.log")
		l, err := New(config.LoggingConfig{Level: "info", File: path}, "test", &buf)
		require.NoError(t, err)

		l.With(slog.String("component", "session")).Info("trajectory cleared")
		require.NoError(t, l.Close())

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(data), `"component":"session"`)
		assert.Contains(t, buf.String(), "component=session")
	})

	t.Run("Groups and levels apply to every handler", func(t *testing.T) {
		var buf bytes.Buffer
		path := filepath.Join(t.TempDir(), "grouped.log")
		l, err := New(config.LoggingConfig{Level: "info", File: path}, "test", &buf)
		require.NoError(t, err)

		l.WithGroup("serial").Info("port open", slog.Int("baud", 115200))
		l.Debug("below threshold")
		require.NoError(t, l.Close())

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(data), `"serial":{"baud":115200}`)
		assert.NotContains(t, string(data), "below threshold")
		assert.Contains(t, buf.String(), "serial.baud=115200")
		assert.NotContains(t, buf.String(), "below threshold")
	})

	t.Run("Invalid level is rejected", func(t *testing.T) {
		_, err := New(config.LoggingConfig{Level: "chatty"}, "test", nil)
		assert.Error(t, err)
	})

	t.Run("Discard logger closes cleanly", func(t *testing.T) {
		l := Discard()
		l.Info("ignored")
		assert.NoError(t, l.Close())
	})
}
