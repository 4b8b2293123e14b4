package logging

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWritesJSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")

	logger, closer, err := New(Config{Level: "info", Format: "json", Output: path})
	require.NoError(t, err)

	logger.Debug().Msg("hidden")
	logger.Info().Str("model", "(1,0,0)").Msg("fitted")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(data, &entry), "expected exactly one JSON line, got %q", data)
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "fitted", entry["message"])
	assert.Equal(t, "(1,0,0)", entry["model"])
	assert.Contains(t, entry, "time")
}

func TestNewDefaults(t *testing.T) {
	logger, closer, err := New(Config{})
	require.NoError(t, err)
	assert.NoError(t, closer.Close())
	assert.Equal(t, "info", logger.GetLevel().String())
}

func TestNewInvalidLevel(t *testing.T) {
	_, _, err := New(Config{Level: "loud"})
	assert.Error(t, err)
}
