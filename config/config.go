package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// Config represents the complete application configuration
type Config struct {
	Registry *RegistryConfig
	Verifier *VerifierConfig
	Ledger   *LedgerConfig
}

// LoadConfig loads all configuration files from a directory
func LoadConfig(configDir string) (*Config, error) {
	absDir, err := filepath.Abs(configDir)
	if err != nil {
		return nil, fmt.Errorf("unable to get absolute path of config directory: %w", err)
	}

	config := &Config{}

	// Load registry service config
	registryPath := filepath.Join(absDir, "registry.defaults.yml")
	if _, err := os.Stat(registryPath); err == nil {
		registryCfg, err := LoadRegistryConfig(registryPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load registry config: %w", err)
		}
		config.Registry = registryCfg
	}

	// Load verifier config
	verifierPath := filepath.Join(absDir, "verifier.defaults.yml")
	if _, err := os.Stat(verifierPath); err == nil {
		verifierCfg, err := LoadVerifierConfig(verifierPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load verifier config: %w", err)
		}
		config.Verifier = verifierCfg
	}

	// Load ledger client config
	ledgerPath := filepath.Join(absDir, "ledger_client.yml")
	if _, err := os.Stat(ledgerPath); err == nil {
		ledgerCfg, err := LoadLedgerConfig(ledgerPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load ledger client config: %w", err)
		}
		config.Ledger = ledgerCfg
	}

	return config, nil
}
