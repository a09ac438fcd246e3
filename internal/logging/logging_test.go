package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer

	logger, err := New("debug", "json", &buf)
	require.NoError(t, err)

	logger.Debug("Skipped frames to catch up", zap.Int("skipped", 3))
	require.NoError(t, logger.Sync())

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))

	assert.Equal(t, "debug", entry["level"])
	assert.Equal(t, "Skipped frames to catch up", entry["msg"])
	assert.Equal(t, float64(3), entry["skipped"])
	assert.Contains(t, entry, "time")
}

func TestNewConsoleFiltersByLevel(t *testing.T) {
	var buf bytes.Buffer

	logger, err := New("WARN", "console", &buf)
	require.NoError(t, err)

	logger.Info("hidden")
	logger.Warn("Render target lost during render")
	require.NoError(t, logger.Sync())

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "WARN")
	assert.Contains(t, out, "Render target lost during render")
}

func TestNewRejectsInvalidInput(t *testing.T) {
	_, err := New("chatty", "console", nil)
	assert.Error(t, err)

	_, err = New("info", "xml", nil)
	assert.Error(t, err)

	assert.True(t, ValidLevel("error"))
	assert.False(t, ValidLevel("chatty"))
	assert.True(t, ValidFormat("JSON"))
	assert.False(t, ValidFormat("xml"))
}
