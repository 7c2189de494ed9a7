package consumer

import (
	"context"
	"errors"
	"log"
	"time"

	"rstamp/internal/models"
)

// MockConsumer uses fixed predefined events for testing.
type MockConsumer struct {
	logger *log.Logger
	events chan *models.RecordEvent
}

// PredefinedEvents stores the events to be simulated.
var PredefinedEvents []*models.RecordEvent

// init generates fixed test data when the package is loaded.
func init() {
	PredefinedEvents = make([]*models.RecordEvent, 0, 3)

	ev1 := &models.RecordEvent{
		EventID:           "a1b1c1d1-e1f1-1111-2222-1234567890ab",
		Kind:              models.EventVerified,
		ResearcherAddress: "0x1a2b3c4d5e6f7a8b9c0d1e2f3a4b5c6d7e8f9a0b1c2d3e4f5a6b7c8d9e0f1a2b",
		DataHash:          "0x9f86d081884c7d659a2feaa0c55ad015a3bf4f1b2b0b822cd15d6c15b0f00a08",
		VerifiedTimestamp: time.Now().Unix() - 60,
		EmittedTimestamp:  time.Now().UTC().Format(time.RFC3339Nano),
	}
	PredefinedEvents = append(PredefinedEvents, ev1)

	ev2 := &models.RecordEvent{
		EventID:           "a2b2c2d2-e2f2-3333-4444-abcdef123456",
		Kind:              models.EventVerified,
		ResearcherAddress: "0xb1c2d3e4f5a6b7c8d9e0f1a2b3c4d5e6f7a8b9c0d1e2f3a4b5c6d7e8f9a0b1c2",
		DataHash:          "0x60303ae22b998861bce3b28f33eec1be758a213c86c93c076dbe9f558c11c752",
		VerifiedTimestamp: time.Now().Unix() - 30,
		EmittedTimestamp:  time.Now().UTC().Format(time.RFC3339Nano),
	}
	PredefinedEvents = append(PredefinedEvents, ev2)

	// Event 3 targets the same researcher as event 1 (simulates a re-delivered
	// verification for an already-verified record)
	ev3 := &models.RecordEvent{
		EventID:           "a3b3c3d3-e3f3-5555-6666-fedcba654321",
		Kind:              models.EventVerified,
		ResearcherAddress: "0x1a2b3c4d5e6f7a8b9c0d1e2f3a4b5c6d7e8f9a0b1c2d3e4f5a6b7c8d9e0f1a2b",
		DataHash:          "0x9f86d081884c7d659a2feaa0c55ad015a3bf4f1b2b0b822cd15d6c15b0f00a08",
		VerifiedTimestamp: time.Now().Unix(),
		EmittedTimestamp:  time.Now().UTC().Format(time.RFC3339Nano),
	}
	PredefinedEvents = append(PredefinedEvents, ev3)
}

// NewMockConsumer creates a MockConsumer and loads predefined events.
func NewMockConsumer(logger *log.Logger) *MockConsumer {
	mc := &MockConsumer{
		logger: logger,
		events: make(chan *models.RecordEvent, len(PredefinedEvents)+5),
	}
	logger.Println("[MockConsumer] Initializing with predefined events...")
	for _, ev := range PredefinedEvents {
		mc.events <- ev
		logger.Printf("[MockConsumer] Added predefined event: event_id=%s", ev.EventID)
	}
	logger.Println("[MockConsumer] Predefined events loaded")
	return mc
}

// Consume reads predefined events from the channel.
func (m *MockConsumer) Consume(ctx context.Context) (ev *models.RecordEvent, ack func(success bool), err error) {
	m.logger.Println("[MockConsumer] Waiting for event...")
	select {
	case <-ctx.Done():
		m.logger.Println("[MockConsumer] Context cancelled, stopping consumption")
		return nil, nil, ctx.Err()
	case ev := <-m.events:
		if ev == nil {
			m.logger.Println("[MockConsumer] Event channel closed")
			return nil, nil, errors.New("event channel closed")
		}
		m.logger.Printf("[MockConsumer] Consumed event: event_id=%s", ev.EventID)

		ackCallback := func(success bool) {
			if success {
				m.logger.Printf("[MockConsumer] ACK received for event: event_id=%s", ev.EventID)
			} else {
				m.logger.Printf("[MockConsumer] NACK received for event: event_id=%s. Re-queueing (mock)", ev.EventID)
				select {
				case m.events <- ev:
					m.logger.Printf("[MockConsumer] Event re-queued: event_id=%s", ev.EventID)
				default:
					m.logger.Printf("[MockConsumer] Warning: Failed to re-queue event (channel full?): event_id=%s", ev.EventID)
				}
			}
		}
		return ev, ackCallback, nil
	}
}

// Close closes the event channel.
func (m *MockConsumer) Close() error {
	m.logger.Println("[MockConsumer] Closing...")
	close(m.events)
	return nil
}

var _ Consumer = (*MockConsumer)(nil)
