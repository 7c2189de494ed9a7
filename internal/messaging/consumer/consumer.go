package consumer

import (
	"context"
	"rstamp/internal/models"
)

// Consumer defines the interface for record event consumers.
type Consumer interface {
	// Consume blocks until an event is received or the context is cancelled.
	// It returns the event, an acknowledgement callback, and any error that occurred.
	// The ack callback: ack(true) for successful processing (event will be deleted);
	// ack(false) for temporary failure (event will be redelivered).
	Consume(ctx context.Context) (ev *models.RecordEvent, ack func(success bool), err error)

	// Close gracefully shuts down the consumer connection.
	Close() error
}
