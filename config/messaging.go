package config

import (
	"fmt"
	"time"
)

// KafkaConsumerConfig defines configuration for Kafka event consumer
type KafkaConsumerConfig struct {
	Brokers           []string `yaml:"brokers"`             // e.g., ["kafka1:9092", "kafka2:9092"]
	Topic             string   `yaml:"topic"`               // Topic to consume from
	GroupID           string   `yaml:"group_id"`            // Consumer group ID
	Count             int      `yaml:"count"`               // Number of consumers to create
	SessionTimeout    string   `yaml:"session_timeout"`     // Kafka session timeout
	HeartbeatInterval string   `yaml:"heartbeat_interval"`  // Kafka heartbeat interval
	MaxProcessingTime string   `yaml:"max_processing_time"` // Maximum time for processing an event
	AutoOffsetReset   string   `yaml:"auto_offset_reset"`   // earliest/latest
	EnableAutoCommit  bool     `yaml:"enable_auto_commit"`  // Enable auto offset commit
}

// SetDefaults sets reasonable default values for Kafka consumer configuration
func (c *KafkaConsumerConfig) SetDefaults() {
	if c.Count <= 0 {
		c.Count = 1
		fmt.Printf("Warning: kafka_consumer.count not set or invalid, defaulting to %d\n", c.Count)
	}
	if c.SessionTimeout == "" {
		c.SessionTimeout = "30s"
		fmt.Printf("Warning: kafka_consumer.session_timeout not set, defaulting to %s\n", c.SessionTimeout)
	}
	if c.HeartbeatInterval == "" {
		c.HeartbeatInterval = "3s"
		fmt.Printf("Warning: kafka_consumer.heartbeat_interval not set, defaulting to %s\n", c.HeartbeatInterval)
	}
	if c.MaxProcessingTime == "" {
		c.MaxProcessingTime = "5m"
		fmt.Printf("Warning: kafka_consumer.max_processing_time not set, defaulting to %s\n", c.MaxProcessingTime)
	}
	if c.AutoOffsetReset == "" {
		c.AutoOffsetReset = "earliest"
		fmt.Printf("Warning: kafka_consumer.auto_offset_reset not set, defaulting to %s\n", c.AutoOffsetReset)
	}
}

// KafkaProducerConfig defines configuration for Kafka event producer
type KafkaProducerConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`

	// Batch processing settings
	BatchSize    int           `yaml:"batch_size"`
	BatchTimeout time.Duration `yaml:"batch_timeout"`
	BatchBytes   int           `yaml:"batch_bytes"`

	// Reliability settings
	RequiredAcks string `yaml:"required_acks"`
	Async        bool   `yaml:"async"`

	// Performance settings
	WriteTimeout time.Duration `yaml:"write_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
}

// Enabled reports whether the producer has enough configuration to connect.
func (c *KafkaProducerConfig) Enabled() bool {
	return len(c.Brokers) > 0 && c.Topic != ""
}
