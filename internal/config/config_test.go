package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agentlink/internal/config"
)

func TestDefault_IsValid(t *testing.T) {
	require.NoError(t, config.Default().Validate())
}

func TestLoad_MissingPathReturnsDefaults(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)
}

func TestLoad_OverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agentlink.toml")
	require.NoError(t, os.WriteFile(path, []byte(
		"handshake_timeout_seconds = 10\nsession_ttl_seconds = 60\n"), 0o600))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, 10, cfg.HandshakeTimeoutSeconds)
	assert.Equal(t, 60, cfg.SessionTTLSeconds)
	assert.Equal(t, config.Default().SequenceWindow, cfg.SequenceWindow)
}

func TestLoad_RejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agentlink.toml")
	require.NoError(t, os.WriteFile(path, []byte("handshake_timeout_seconds = 0\n"), 0o600))

	_, err := config.Load(path)
	assert.Error(t, err)
}

func TestValidate_ReplayWindowCoversTolerance(t *testing.T) {
	cfg := config.Default()
	cfg.ReplayWindowSeconds = cfg.TimestampToleranceSeconds
	assert.Error(t, cfg.Validate())
}
