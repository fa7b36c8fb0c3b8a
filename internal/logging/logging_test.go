package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, "warn")

	logger.Info("hidden")
	logger.Warn("quote discarded", "pair", "USD/EUR")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "quote discarded")
	assert.Contains(t, out, "pair=USD/EUR")
}

func TestNewUnknownLevelDefaultsToInfo(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, "chatty")

	logger.Debug("debug line")
	logger.Info("info line")

	assert.NotContains(t, buf.String(), "debug line")
	assert.Contains(t, buf.String(), "info line")
}

func TestOpenFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data")

	logger, closer, err := OpenFile(dir, "debug")
	require.NoError(t, err)
	logger.Info("workflow started", "step", "select")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(filepath.Join(dir, LogFileName))
	require.NoError(t, err)
	assert.Contains(t, string(data), "workflow started")
}
