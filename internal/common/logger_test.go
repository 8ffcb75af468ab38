package common

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger_ConsoleAndFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	logger := NewLogger(LoggingConfig{
		Level:   "debug",
		Outputs: []string{"console", "file"},
		File:    filepath.Join(dir, "harvester.log"),
	})
	require.NotNil(t, logger)
	logger.Info().Str("ticker", "2330").Msg("logger ready")
	assert.DirExists(t, dir)
}

func TestNewSilentLogger(t *testing.T) {
	logger := NewSilentLogger()
	require.NotNil(t, logger)
	logger.Error().Msg("dropped")
}
