package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

// HttpServerConfig defines HTTP server configuration
type HttpServerConfig struct {
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	IdleTimeout    time.Duration `yaml:"idle_timeout"`
	MaxHeaderBytes int           `yaml:"max_header_bytes"`
}

// WalletConfig selects the signing identity for submissions
type WalletConfig struct {
	Address string `yaml:"address"` // canonical 0x-prefixed identity
}

// RegistryConfig defines all configurations required for the registry service
type RegistryConfig struct {
	HttpListenAddr string `yaml:"http_listen_addr"`

	Database      DatabaseConfig      `yaml:"database"`       // Use unified DatabaseConfig
	KafkaProducer KafkaProducerConfig `yaml:"kafka_producer"` // Committed-record announcements
	HttpServer    HttpServerConfig    `yaml:"http_server"`
	Wallet        WalletConfig        `yaml:"wallet"`

	// Snapshot key the registry blob is stored under
	SnapshotKey string `yaml:"snapshot_key"`

	// Upload ceiling in bytes for attached files
	MaxUploadBytes int64 `yaml:"max_upload_bytes"`

	// Ledger Client Configuration
	LedgerClientConfigPath string `yaml:"ledger_client_config_path"`
}

// LoadRegistryConfig loads registry service configuration from the specified YAML file path
func LoadRegistryConfig(path string) (*RegistryConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read registry config file '%s': %w", path, err)
	}

	var cfg RegistryConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse registry YAML config file: %w", err)
	}

	// Set defaults for database configuration
	cfg.Database.SetDefaults()

	// An empty DSN means the in-memory store fallback; only a configured
	// database needs to validate.
	if cfg.Database.DSN != "" {
		if err := cfg.Database.Validate(); err != nil {
			return nil, fmt.Errorf("invalid database configuration: %w", err)
		}
	}

	if cfg.HttpListenAddr == "" {
		cfg.HttpListenAddr = ":8080"
		fmt.Printf("Warning: http_listen_addr not set, defaulting to %s\n", cfg.HttpListenAddr)
	}
	if cfg.SnapshotKey == "" {
		cfg.SnapshotKey = "registry"
		fmt.Printf("Warning: snapshot_key not set, defaulting to %s\n", cfg.SnapshotKey)
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 100 << 20
		fmt.Printf("Warning: max_upload_bytes not set, defaulting to %d\n", cfg.MaxUploadBytes)
	}

	return &cfg, nil
}
