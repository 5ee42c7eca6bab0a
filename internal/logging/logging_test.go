package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"evalgo.org/qosd/internal/config"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"WARN", slog.LevelWarn},
		{"error", slog.LevelError},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := ParseLevel("trace")
	assert.Error(t, err)
}

func TestNew_FileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "qosd.log")

	logger, closeFn, err := New(config.LoggingConfig{Level: "info", Format: "json", Output: path})
	require.NoError(t, err)

	logger.Debug("hidden")
	logger.Info("bootstrap step done", "step", "cos-map")
	require.NoError(t, closeFn())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"bootstrap step done"`)
	assert.Contains(t, string(data), `"step":"cos-map"`)
	assert.NotContains(t, string(data), "hidden")
}

func TestNew_StandardStreams(t *testing.T) {
	for _, out := range []string{"stdout", "stderr", ""} {
		logger, closeFn, err := New(config.LoggingConfig{Level: "warn", Format: "text", Output: out})
		require.NoError(t, err)
		assert.NotNil(t, logger)
		assert.NoError(t, closeFn())
	}
}

func TestNew_RejectsUnknownFormat(t *testing.T) {
	_, _, err := New(config.LoggingConfig{Level: "info", Format: "xml"})
	assert.Error(t, err)
}

func TestDiscard(t *testing.T) {
	assert.NotPanics(t, func() { Discard().Error("dropped") })
}
