package internal

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupLogging_WritesToFile(t *testing.T) {
	// given
	previous := log.Logger
	previousLevel := zerolog.GlobalLevel()
	t.Cleanup(func() {
		log.Logger = previous
		zerolog.SetGlobalLevel(previousLevel)
	})
	file := filepath.Join(t.TempDir(), "server.log")

	// when
	require.NoError(t, SetupLogging(LogConfig{Level: "warn", File: file, MaxSizeMB: 1}))
	log.Info().Msg("hidden")
	log.Warn().Str("fingerprint", "abc").Msg("visible")

	// then
	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "hidden")
	assert.Contains(t, string(data), `"fingerprint":"abc"`)
}

func TestSetupLogging_RejectsUnknownLevel(t *testing.T) {
	assert.Error(t, SetupLogging(LogConfig{Level: "chatty"}))
}
