package producer

import (
	"context"
	"log"

	"rstamp/internal/models"
)

// MockProducer logs events instead of publishing them. Used when no broker
// is configured, so local development works without a Kafka deployment.
type MockProducer struct {
	logger *log.Logger

	// Published collects everything passed to Publish/PublishBatch so tests
	// can assert on the emitted events.
	Published []*models.RecordEvent
}

// NewMockProducer creates a MockProducer.
func NewMockProducer(logger *log.Logger) *MockProducer {
	logger.Println("[MockProducer] Initialized (events will be logged, not published)")
	return &MockProducer{logger: logger}
}

// Publish records the event and logs it.
func (m *MockProducer) Publish(ctx context.Context, ev *models.RecordEvent) error {
	m.Published = append(m.Published, ev)
	m.logger.Printf("[MockProducer] Publish: event_id=%s kind=%s researcher=%s", ev.EventID, ev.Kind, ev.ResearcherAddress)
	return nil
}

// PublishBatch records the events and logs them.
func (m *MockProducer) PublishBatch(ctx context.Context, evs []*models.RecordEvent) error {
	for _, ev := range evs {
		if err := m.Publish(ctx, ev); err != nil {
			return err
		}
	}
	return nil
}

// Close is a no-op.
func (m *MockProducer) Close() error {
	m.logger.Println("[MockProducer] Closing...")
	return nil
}

var _ Producer = (*MockProducer)(nil)
