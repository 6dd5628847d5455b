package logger

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestBuildJSON(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "log.json")
	log, err := build(true, false, path)
	require.NoError(t, err)

	log.Debug("hidden prompt")
	log.Info("match finished", zap.String(FieldSchema, "flat-8"))
	require.NoError(t, log.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "match finished", entry["step"])
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "flat-8", entry[FieldSchema])
}

func TestBuildDebugConsole(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "log.txt")
	log, err := build(false, true, path)
	require.NoError(t, err)

	log.Debug("model request")
	require.NoError(t, log.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "debug")
	assert.Contains(t, string(data), "model request")
}
