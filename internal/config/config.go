// Package config provides typed configuration for wallet-core. The core
// never reads environment variables itself — a hosting process loads
// this struct (from YAML, flags, or anywhere else) and passes it in.
package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration for a wallet-core instance.
type Config struct {
	Version     int               `yaml:"version"`
	Network     string            `yaml:"network"` // "mainnet" or "testnet"
	StorageRoot string            `yaml:"storage_root"`
	Security    SecurityConfig    `yaml:"security"`
	X402        X402Config        `yaml:"x402"`
	Quoter      QuoterConfig      `yaml:"quoter"`
	StacksAPI   StacksAPIConfig   `yaml:"stacks_api"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// SecurityConfig controls encryption and session parameters.
type SecurityConfig struct {
	EncryptionProfile     string `yaml:"encryption_profile"` // "argon2id" or "pbkdf2"
	AutoLockTimeoutMinutes int   `yaml:"auto_lock_timeout_minutes"`
}

// X402Config controls the x402 payment engine.
type X402Config struct {
	SettlementTimeoutSeconds int `yaml:"settlement_timeout_seconds"`
	DedupTTLSeconds          int `yaml:"dedup_ttl_seconds"`
}

// QuoterConfig controls the price-impact quoter.
type QuoterConfig struct {
	PoolReadTimeoutSeconds int `yaml:"pool_read_timeout_seconds"`
}

// StacksAPIConfig configures the Hiro/mempool.space API client.
type StacksAPIConfig struct {
	BaseURL              string `yaml:"base_url"`
	MempoolPollIntervalS int    `yaml:"mempool_poll_interval_seconds"`
	MempoolPollTimeoutS  int    `yaml:"mempool_poll_timeout_seconds"`
}

// LoggingConfig controls the structured logger.
type LoggingConfig struct {
	Level string `yaml:"level"` // "off", "error", "debug"
	File  string `yaml:"file"`
}

// Defaults returns the default configuration, matching the invariants
// named in the external interfaces (15-minute auto-lock, 120s x402
// settlement timeout, 60s dedup window, 5s pool-read timeout, 30s mempool
// poll interval bounded by 2h).
func Defaults() *Config {
	return &Config{
		Version:     1,
		Network:     "mainnet",
		StorageRoot: "~/.aibtc",
		Security: SecurityConfig{
			EncryptionProfile:      "argon2id",
			AutoLockTimeoutMinutes: 15,
		},
		X402: X402Config{
			SettlementTimeoutSeconds: 120,
			DedupTTLSeconds:          60,
		},
		Quoter: QuoterConfig{
			PoolReadTimeoutSeconds: 5,
		},
		StacksAPI: StacksAPIConfig{
			BaseURL:              "https://api.hiro.so",
			MempoolPollIntervalS: 30,
			MempoolPollTimeoutS:  7200,
		},
		Logging: LoggingConfig{
			Level: "error",
			File:  "~/.aibtc/wallet-core.log",
		},
	}
}

// Load reads and parses a YAML configuration file, starting from Defaults()
// so a partial file only overrides what it specifies.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path) //nolint:gosec // G304: path is supplied by the hosting process, not untrusted input
	if err != nil {
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save writes cfg to path as YAML.
func Save(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600) //nolint:gosec // G306: keystore-adjacent config, owner-only is intentional
}
