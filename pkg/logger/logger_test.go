package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLoggerJSON(t *testing.T) {
	var buf bytes.Buffer
	log, err := newLogger(Config{Level: "debug", Format: "json", Timezone: "UTC"}, &buf)
	require.NoError(t, err)

	log.Debug("Processed due items")
	require.NoError(t, log.Sync())

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "debug", entry["level"])
	assert.Equal(t, "Processed due items", entry["message"])
	assert.NotEmpty(t, entry["caller"])
}

func TestNewLoggerLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	log, err := newLogger(Config{Level: "warn", Format: "json"}, &buf)
	require.NoError(t, err)

	log.Info("hidden")
	log.Warn("shown")
	require.NoError(t, log.Sync())

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestNewLoggerInvalidLevel(t *testing.T) {
	_, err := NewLogger(Config{Level: "loud"})
	assert.Error(t, err)
}

func TestNewLoggerWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "leadloom.log")
	var buf bytes.Buffer
	log, err := newLogger(Config{Format: "console", Filename: path, MaxSizeMB: 1}, &buf)
	require.NoError(t, err)

	log.Info("Scheduler started")
	require.NoError(t, log.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), `"message":"Scheduler started"`))
	assert.Contains(t, buf.String(), "Scheduler started")
}
