package producer

import (
	"context"
	"rstamp/internal/models"
)

// Producer defines the interface for record event producers
type Producer interface {
	// Publish sends a single record event to the configured topic
	Publish(ctx context.Context, ev *models.RecordEvent) error

	// PublishBatch sends record events in batch to the configured topic
	PublishBatch(ctx context.Context, evs []*models.RecordEvent) error

	// Close closes the producer connection
	Close() error
}
