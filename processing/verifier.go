package verifier

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"rstamp/config"
	"rstamp/internal/messaging/consumer"
	"rstamp/internal/models"
	"rstamp/ledger/gateway"
	"rstamp/registry/cache"
)

// Verifier consumes verification events in batches and applies them to the
// registry cache, cross-checking each event against the ledger.
type Verifier struct {
	workerConfig       config.WorkerConfig
	batchTimeout       time.Duration // Parsed from workerConfig.BatchTimeout
	consumerRetryDelay time.Duration // Parsed from workerConfig.ConsumerRetryDelay
	ledgerTimeout      time.Duration // Parsed from workerConfig.LedgerTimeout

	logger   *log.Logger
	cache    *cache.Cache
	consumer consumer.Consumer
	gateway  *gateway.Gateway
}

// New creates a new Verifier instance
func New(cfg config.WorkerConfig, logger *log.Logger, c *cache.Cache, cons consumer.Consumer, gw *gateway.Gateway) *Verifier {
	// Add default safeguards if needed, though config should handle it
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}

	// Parse time duration strings
	batchTimeout, err := time.ParseDuration(cfg.BatchTimeout)
	if err != nil {
		logger.Printf("Warning: Invalid batch_timeout '%s', using default 1s", cfg.BatchTimeout)
		batchTimeout = 1 * time.Second
	}

	consumerRetryDelay, err := time.ParseDuration(cfg.ConsumerRetryDelay)
	if err != nil {
		logger.Printf("Warning: Invalid consumer_retry_delay '%s', using default 5s", cfg.ConsumerRetryDelay)
		consumerRetryDelay = 5 * time.Second
	}

	ledgerTimeout, err := time.ParseDuration(cfg.LedgerTimeout)
	if err != nil {
		logger.Printf("Warning: Invalid ledger_timeout '%s', using default 15s", cfg.LedgerTimeout)
		ledgerTimeout = 15 * time.Second
	}

	return &Verifier{
		workerConfig:       cfg,
		batchTimeout:       batchTimeout,
		consumerRetryDelay: consumerRetryDelay,
		ledgerTimeout:      ledgerTimeout,
		logger:             logger,
		cache:              c,
		consumer:           cons,
		gateway:            gw,
	}
}

// Run starts the worker pool
func (v *Verifier) Run(ctx context.Context) {
	v.logger.Printf("Starting verifier pool with concurrency: %d, BatchSize: %d, BatchTimeout: %s",
		v.workerConfig.Concurrency, v.workerConfig.BatchSize, v.batchTimeout)
	var wg sync.WaitGroup
	for i := 0; i < v.workerConfig.Concurrency; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			v.logger.Printf("Verifier worker %d started", workerID)
			v.processEventsInBatch(ctx, workerID)
			v.logger.Printf("Verifier worker %d stopped", workerID)
		}(i + 1)
	}
	wg.Wait()
	v.logger.Println("Verifier pool stopped.")
}

// processEventsInBatch is the main loop for a worker goroutine
func (v *Verifier) processEventsInBatch(ctx context.Context, workerID int) {
	batchEvents := make([]*models.RecordEvent, 0, v.workerConfig.BatchSize)
	kafkaAcks := make([]func(success bool), 0, v.workerConfig.BatchSize)
	batchTimer := time.NewTimer(0) // Start with stopped timer
	if !batchTimer.Stop() {
		select {
		case <-batchTimer.C:
		default:
		}
	}

	// Helper function to submit batch
	processBatch := func() {
		if len(batchEvents) == 0 {
			return
		}

		// Stop and drain timer
		if !batchTimer.Stop() {
			select {
			case <-batchTimer.C:
			default:
			}
		}

		// Execute batch processing
		v.processAndAckBatch(ctx, workerID, batchEvents, kafkaAcks)

		// Reset for next batch
		batchEvents = make([]*models.RecordEvent, 0, v.workerConfig.BatchSize)
		kafkaAcks = make([]func(success bool), 0, v.workerConfig.BatchSize)
	}

	for {
		select {
		case <-ctx.Done():
			v.logger.Printf("Verifier worker %d: Context cancelled, stopping.", workerID)
			if len(kafkaAcks) > 0 {
				for _, ack := range kafkaAcks {
					ack(false)
				}
			}
			return

		case <-batchTimer.C:
			// Batch timeout reached
			processBatch()

		default:
			consumeCtx, consumeCancel := context.WithTimeout(ctx, 100*time.Millisecond)
			ev, ack, err := v.consumer.Consume(consumeCtx)
			consumeCancel()

			if err != nil {
				if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
					continue
				}
				// Only log real consumer errors
				v.logger.Printf("Verifier worker %d: Consumer error: %v", workerID, err)
				time.Sleep(v.consumerRetryDelay)
				continue
			}

			// Successfully got event
			if ev != nil {
				// Start batch timer on first event
				if len(batchEvents) == 0 {
					batchTimer.Reset(v.batchTimeout)
				}

				batchEvents = append(batchEvents, ev)
				kafkaAcks = append(kafkaAcks, ack)

				// Process immediately if batch is full
				if len(batchEvents) >= v.workerConfig.BatchSize {
					processBatch()
				}
			}
		}
	}
}

// processAndAckBatch handles processing and Kafka acknowledgement
func (v *Verifier) processAndAckBatch(ctx context.Context, workerID int, batch []*models.RecordEvent, acks []func(success bool)) {
	processingErr := v.handleBatch(ctx, batch)

	if processingErr != nil {
		// Ledger unavailable -> Nack ALL events so they are redelivered
		v.logger.Printf("Verifier worker %d: Batch failed: %v (nacking %d events)", workerID, processingErr, len(acks))
		for _, ack := range acks {
			ack(false)
		}
	} else {
		for _, ack := range acks {
			ack(true)
		}
	}
}

func (v *Verifier) handleBatch(ctx context.Context, batch []*models.RecordEvent) error {
	if len(batch) == 0 {
		return nil
	}
	batchStart := time.Now()

	// Collapse the batch to one event per researcher address. Events are
	// keyed by address on the topic, so the last one in the batch wins.
	latest := make(map[string]*models.RecordEvent, len(batch))
	for _, ev := range batch {
		if ev.Kind != models.EventVerified {
			// Committed events are the registry service's own announcements;
			// the verifier only acts on verification events.
			continue
		}
		if ev.ResearcherAddress == "" {
			v.logger.Printf("Verifier: Discarding event without researcher address (event_id %s)", ev.EventID)
			continue
		}
		latest[ev.ResearcherAddress] = ev
	}
	if len(latest) == 0 {
		return nil // Nothing actionable, ack the batch
	}

	applied := 0
	skipped := 0
	var ledgerDuration time.Duration

	for address, ev := range latest {
		rec, found := v.cache.FindByAddress(address)
		if !found {
			// The verification may have outrun the commit announcement.
			// Consult the ledger before giving up.
			lookupCtx, cancel := context.WithTimeout(ctx, v.ledgerTimeout)
			ledgerStart := time.Now()
			ledgerRec, err := v.gateway.Record(lookupCtx, address)
			ledgerDuration += time.Since(ledgerStart)
			cancel()
			if err != nil {
				return fmt.Errorf("ledger lookup failed for %s: %w", address, err)
			}
			if ledgerRec == nil {
				v.logger.Printf("Verifier: No record on ledger for %s (event_id %s), discarding event", address, ev.EventID)
				skipped++
				continue
			}
			rec = models.ResearchRecord{
				ID:                ledgerRec.ResearcherAddress,
				ResearcherAddress: ledgerRec.ResearcherAddress,
				DataHash:          ledgerRec.DataHash,
				SubmissionTime:    ledgerRec.SubmissionTime,
				Description:       ledgerRec.Description,
			}
		}

		if rec.DataHash != ev.DataHash {
			v.logger.Printf("Verifier: Hash mismatch for %s (event %s vs record %s), discarding event %s",
				address, ev.DataHash, rec.DataHash, ev.EventID)
			skipped++
			continue
		}

		if rec.IsVerified {
			// Re-delivered verification, nothing to change
			skipped++
			continue
		}

		verifiedAt := ev.VerifiedTimestamp
		if verifiedAt == 0 {
			verifiedAt = time.Now().Unix()
		}
		rec.IsVerified = true
		rec.VerifiedAt = verifiedAt

		v.cache.Upsert(ctx, rec)
		applied++
	}

	totalTime := time.Since(batchStart)
	v.logger.Printf("Verifier batch: size=%d, unique=%d, applied=%d, skipped=%d, ledger=%v, total=%v",
		len(batch), len(latest), applied, skipped, ledgerDuration, totalTime)

	return nil // Ack the batch
}
