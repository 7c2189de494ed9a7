package producer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/segmentio/kafka-go"
	"rstamp/config"
	"rstamp/internal/models"
)

// KafkaProducer implements the Producer interface
type KafkaProducer struct {
	writer *kafka.Writer
	logger *log.Logger
	topic  string
}

// NewKafkaProducer creates a new KafkaProducer
func NewKafkaProducer(cfg config.KafkaProducerConfig, logger *log.Logger) (*KafkaProducer, error) {
	if len(cfg.Brokers) == 0 || cfg.Topic == "" {
		return nil, errors.New("kafka producer configuration incomplete: both brokers and topic are required")
	}

	// Set defaults for batch settings if not configured
	batchSize := cfg.BatchSize
	if batchSize == 0 {
		batchSize = 100 // Default batch size
	}

	batchTimeout := cfg.BatchTimeout
	if batchTimeout == 0 {
		batchTimeout = 100 * time.Millisecond // Default batch timeout
	}

	batchBytes := cfg.BatchBytes
	if batchBytes == 0 {
		batchBytes = 5 * 1024 * 1024 // Default 5MB
	}

	// Parse required_acks setting
	var requiredAcks kafka.RequiredAcks
	switch cfg.RequiredAcks {
	case "none":
		requiredAcks = kafka.RequireNone
	case "one":
		requiredAcks = kafka.RequireOne
	case "all":
		requiredAcks = kafka.RequireAll
	default:
		requiredAcks = kafka.RequireOne // Default to wait for leader
	}

	// Set async default if not configured
	asyncMode := cfg.Async
	if !cfg.Async && cfg.RequiredAcks == "" {
		asyncMode = true // Default to async mode
	}

	// Set timeouts if not configured
	writeTimeout := cfg.WriteTimeout
	if writeTimeout == 0 {
		writeTimeout = 5 * time.Second
	}

	readTimeout := cfg.ReadTimeout
	if readTimeout == 0 {
		readTimeout = 5 * time.Second
	}

	// Configure Kafka Writer
	w := &kafka.Writer{
		Addr:     kafka.TCP(cfg.Brokers...),
		Topic:    cfg.Topic,
		Balancer: &kafka.LeastBytes{},

		BatchSize:    batchSize,
		BatchTimeout: batchTimeout,
		BatchBytes:   int64(batchBytes),

		// Reliability settings
		RequiredAcks: requiredAcks,
		Async:        asyncMode,

		// Performance settings
		WriteTimeout: writeTimeout,
		ReadTimeout:  readTimeout,

		// Error handling
		ErrorLogger: kafka.LoggerFunc(func(msg string, args ...interface{}) {
			logger.Printf("Kafka Writer Error: "+msg, args...)
		}),
	}

	logger.Printf("Kafka producer created, connected to Brokers: %v, Topic: %s", cfg.Brokers, cfg.Topic)

	return &KafkaProducer{
		writer: w,
		logger: logger,
		topic:  cfg.Topic,
	}, nil
}

// Publish sends a single record event
func (p *KafkaProducer) Publish(ctx context.Context, ev *models.RecordEvent) error {
	evBytes, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to serialize record event: %w", err)
	}

	kafkaMsg := kafka.Message{
		// Key drives partitioning, using the researcher address keeps events
		// for one record on one partition
		Key:   []byte(ev.ResearcherAddress),
		Value: evBytes,
	}

	// Send message
	err = p.writer.WriteMessages(ctx, kafkaMsg)
	if err != nil {
		// This error is usually local errors like buffer full or context cancellation
		p.logger.Printf("Failed to send Kafka message to buffer (EventID: %s): %v", ev.EventID, err)
		return fmt.Errorf("failed to write to Kafka buffer: %w", err)
	}

	return nil
}

// PublishBatch sends record events in batch to the configured topic
func (p *KafkaProducer) PublishBatch(ctx context.Context, evs []*models.RecordEvent) error {
	if len(evs) == 0 {
		return nil
	}

	kafkaMsgs := make([]kafka.Message, len(evs))
	for i, ev := range evs {
		evBytes, err := json.Marshal(ev)
		if err != nil {
			return fmt.Errorf("failed to serialize record event (EventID: %s): %w", ev.EventID, err)
		}

		kafkaMsgs[i] = kafka.Message{
			Key:   []byte(ev.ResearcherAddress),
			Value: evBytes,
		}
	}

	// Send messages in batch
	err := p.writer.WriteMessages(ctx, kafkaMsgs...)
	if err != nil {
		p.logger.Printf("Failed to send Kafka messages in batch (count: %d): %v", len(evs), err)
		return fmt.Errorf("failed to batch write to Kafka buffer: %w", err)
	}

	p.logger.Printf("Successfully added %d Kafka messages to send queue (Topic: %s)", len(evs), p.topic)
	return nil
}

// Close closes the producer
func (p *KafkaProducer) Close() error {
	p.logger.Println("Closing Kafka producer (and flushing buffer)...")
	return p.writer.Close() // Close will attempt to send remaining messages in buffer
}

var _ Producer = (*KafkaProducer)(nil) // Compile-time interface check
