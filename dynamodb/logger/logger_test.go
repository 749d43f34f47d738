package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ badger.Logger = BadgerLogger{}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"info", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"loud", slog.LevelInfo},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.in))
		})
	}
}

func TestLevelFromVerbosity(t *testing.T) {
	assert.Equal(t, "warn", LevelFromVerbosity(0))
	assert.Equal(t, "info", LevelFromVerbosity(1))
	assert.Equal(t, "debug", LevelFromVerbosity(2))
	assert.Equal(t, "debug", LevelFromVerbosity(5))
}

func TestNew(t *testing.T) {
	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		log := New(Config{Level: "info", Format: "json"}, &buf)
		log.Debug("hidden")
		log.Info("shown", "table", "users")

		var entry map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
		assert.Equal(t, "shown", entry["msg"])
		assert.Equal(t, "users", entry["table"])
	})

	t.Run("text", func(t *testing.T) {
		var buf bytes.Buffer
		log := New(Config{Level: "warn"}, &buf)
		log.Info("hidden")
		log.Warn("careful")
		assert.Contains(t, buf.String(), "msg=careful")
		assert.NotContains(t, buf.String(), "hidden")
	})
}

func TestBadgerLogger(t *testing.T) {
	var buf bytes.Buffer
	bl := BadgerLogger{L: New(Config{Level: "debug"}, &buf)}
	bl.Warningf("compaction %d\n", 3)
	assert.Contains(t, buf.String(), `msg="compaction 3"`)
	assert.Contains(t, buf.String(), "component=badger")
}
