package config

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupLoggerDualOutput(t *testing.T) {
	var stderr, file bytes.Buffer
	logger := SetupLoggerWithWriters(&stderr, &file, slog.LevelInfo)

	logger.Info("send committed", "session_id", "s-1")

	assert.Contains(t, stderr.String(), "send committed")
	assert.Contains(t, stderr.String(), "session_id=s-1")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(file.Bytes(), &entry))
	assert.Equal(t, "send committed", entry["msg"])
	assert.Equal(t, "s-1", entry["session_id"])
}

func TestSetupLoggerRespectsLevel(t *testing.T) {
	var stderr, file bytes.Buffer
	logger := SetupLoggerWithWriters(&stderr, &file, slog.LevelWarn)

	logger.Debug("noise")
	logger.Info("still noise")
	logger.Warn("signal")

	out := stderr.String()
	assert.NotContains(t, out, "noise")
	assert.Contains(t, out, "signal")
	assert.Equal(t, 1, strings.Count(file.String(), "\n"))
}

func TestSetupLoggerFileTarget(t *testing.T) {
	path := filepath.Join(t.TempDir(), "legalis.log")
	logger, cleanup := SetupLogger(path, slog.LevelInfo)
	require.NotNil(t, logger)

	logger.Info("hello")
	require.NoError(t, cleanup())
}

func TestSetupLoggerWithoutFile(t *testing.T) {
	logger, cleanup := SetupLogger("", slog.LevelInfo)
	require.NotNil(t, logger)
	require.NoError(t, cleanup())
}
