package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

// WorkerConfig defines configuration for verifier worker processing
type WorkerConfig struct {
	Concurrency        int    `yaml:"concurrency"`          // Number of concurrent workers per consumer
	BatchSize          int    `yaml:"batch_size"`           // Number of events per batch
	BatchTimeout       string `yaml:"batch_timeout"`        // Maximum wait time for batch
	ConsumerRetryDelay string `yaml:"consumer_retry_delay"` // Delay when consumer encounters errors
	LedgerTimeout      string `yaml:"ledger_timeout"`       // Timeout for ledger lookups
}

// SetDefaults sets reasonable default values for worker configuration
func (c *WorkerConfig) SetDefaults() {
	if c.Concurrency <= 0 {
		c.Concurrency = 1
		fmt.Printf("Warning: worker.concurrency not set or invalid, defaulting to %d\n", c.Concurrency)
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 50
		fmt.Printf("Warning: worker.batch_size not set or invalid, defaulting to %d\n", c.BatchSize)
	}
	if c.BatchTimeout == "" {
		c.BatchTimeout = "1s"
		fmt.Printf("Warning: worker.batch_timeout not set, defaulting to %s\n", c.BatchTimeout)
	}
	if c.ConsumerRetryDelay == "" {
		c.ConsumerRetryDelay = "5s"
		fmt.Printf("Warning: worker.consumer_retry_delay not set, defaulting to %s\n", c.ConsumerRetryDelay)
	}
	if c.LedgerTimeout == "" {
		c.LedgerTimeout = "15s"
		fmt.Printf("Warning: worker.ledger_timeout not set, defaulting to %s\n", c.LedgerTimeout)
	}
}

// VerifierConfig defines all configuration for the Verifier Engine
type VerifierConfig struct {
	// Database Configuration - using unified DatabaseConfig
	Database DatabaseConfig `yaml:"database"`

	// Snapshot key the registry blob is stored under
	SnapshotKey string `yaml:"snapshot_key"`

	// Kafka Consumer Configuration
	KafkaConsumer KafkaConsumerConfig `yaml:"kafka_consumer"`

	// Worker Configuration
	Worker WorkerConfig `yaml:"worker"`

	// Ledger Client Configuration
	LedgerClientConfigPath string `yaml:"ledger_client_config_path"`
}

// LoadVerifierConfig loads configuration from the specified YAML file path
func LoadVerifierConfig(path string) (*VerifierConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", path, err)
	}

	var cfg VerifierConfig
	err = yaml.Unmarshal(data, &cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to parse YAML config file: %w", err)
	}

	// Set default values for all configurations
	cfg.Database.SetDefaults()
	cfg.KafkaConsumer.SetDefaults()
	cfg.Worker.SetDefaults()

	// An empty DSN means the in-memory store fallback; only a configured
	// database needs to validate.
	if cfg.Database.DSN != "" {
		if err := cfg.Database.Validate(); err != nil {
			return nil, fmt.Errorf("invalid database configuration: %w", err)
		}
	}

	if cfg.SnapshotKey == "" {
		cfg.SnapshotKey = "registry"
		fmt.Printf("Warning: snapshot_key not set, defaulting to %s\n", cfg.SnapshotKey)
	}

	return &cfg, nil
}
