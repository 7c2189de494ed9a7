package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v2"
)

// LedgerConfig stores common ledger configuration across all ledger types
type LedgerConfig struct {
	// --- Ledger Type Selection ---
	LedgerType string `yaml:"ledger_type"` // "chainmaker", "memory"

	// --- Common Behavior Configuration ---
	// Retry settings cover SDK connection establishment only. A submission
	// is attempted exactly once; resubmission is a user action.
	RetryLimit     int `yaml:"retry_limit"`
	RetryInterval  int `yaml:"retry_interval"`
	TimeoutSeconds int `yaml:"timeout_seconds"`

	// --- Chain-specific Configuration ---
	// This will be loaded separately based on ledger type
	ChainSpecific any `yaml:"-"`
}

// LoadLedgerConfig loads ledger configuration from the specified YAML file path
func LoadLedgerConfig(path string) (*LedgerConfig, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("unable to get absolute path of config file: %w", err)
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", absPath, err)
	}

	var cfg LedgerConfig
	err = yaml.Unmarshal(data, &cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to parse YAML config file: %w", err)
	}

	if cfg.TimeoutSeconds <= 0 {
		cfg.TimeoutSeconds = 15
	}

	return &cfg, nil
}
