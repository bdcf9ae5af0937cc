package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecute_VersionCommand(t *testing.T) {
	rootCmd.SetArgs([]string{"version"})
	var out bytes.Buffer
	rootCmd.SetOut(&out)

	err := Execute(BuildInfo{Version: "v1.0.0-test", Commit: "abc123", Date: "2026-07-31"})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "v1.0.0-test")
	assert.Contains(t, out.String(), "abc123")
}

func TestLoadConfig_DefaultsWhenNoConfigPath(t *testing.T) {
	configPath = ""
	require.NoError(t, loadConfig())
	assert.Equal(t, "mainnet", cfg.Network)
}

func TestLoadConfig_MissingFileFallsBackToDefaults(t *testing.T) {
	configPath = "/nonexistent/path/walletcore.yaml"
	defer func() { configPath = "" }()

	require.NoError(t, loadConfig())
	assert.Equal(t, "mainnet", cfg.Network)
}

func TestExitCode_ReflectsErrorKind(t *testing.T) {
	assert.NotPanics(t, func() { ExitCode(assert.AnError) })
}
