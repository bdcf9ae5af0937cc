package config_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aibtc/wallet-core/internal/config"
)

func TestDefaults(t *testing.T) {
	t.Parallel()

	cfg := config.Defaults()
	assert.Equal(t, "mainnet", cfg.Network)
	assert.Equal(t, 15, cfg.Security.AutoLockTimeoutMinutes)
	assert.Equal(t, 120, cfg.X402.SettlementTimeoutSeconds)
	assert.Equal(t, 60, cfg.X402.DedupTTLSeconds)
	assert.Equal(t, 5, cfg.Quoter.PoolReadTimeoutSeconds)
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	cfg := config.Defaults()
	cfg.Network = "testnet"
	cfg.Security.AutoLockTimeoutMinutes = 30

	require.NoError(t, config.Save(cfg, path))

	loaded, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "testnet", loaded.Network)
	assert.Equal(t, 30, loaded.Security.AutoLockTimeoutMinutes)
}
