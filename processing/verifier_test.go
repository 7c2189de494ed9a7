package verifier

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rstamp/config"
	"rstamp/internal/models"
	"rstamp/ledger/client/memory"
	"rstamp/ledger/gateway"
	"rstamp/registry/cache"
	"rstamp/storage"
)

var testLogger = log.New(io.Discard, "", 0)

const (
	addr = "0x1a2b3c4d5e6f7a8b9c0d1e2f3a4b5c6d7e8f9a0b1c2d3e4f5a6b7c8d9e0f1a2b"
	hash = "0x9f86d081884c7d659a2feaa0c55ad015a3bf4f1b2b0b822cd15d6c15b0f00a08"
)

func workerConfig() config.WorkerConfig {
	cfg := config.WorkerConfig{}
	cfg.SetDefaults()
	return cfg
}

func newFixture(t *testing.T) (*Verifier, *cache.Cache, *memory.Ledger) {
	t.Helper()
	ledger := memory.NewLedger(testLogger)
	ledger.Clock = func() int64 { return 1000 }
	gw := gateway.New(ledger, testLogger)
	c := cache.New(context.Background(), storage.NewMemoryStore(), "registry", testLogger)
	v := New(workerConfig(), testLogger, c, nil, gw)
	return v, c, ledger
}

func committedRecord() models.ResearchRecord {
	return models.ResearchRecord{
		ID:                addr,
		ResearcherAddress: addr,
		DataHash:          hash,
		SubmissionTime:    1000,
		Description:       "Genome sequencing result batch",
	}
}

func verifiedEvent(verifiedAt int64) *models.RecordEvent {
	return &models.RecordEvent{
		EventID:           "ev-1",
		Kind:              models.EventVerified,
		ResearcherAddress: addr,
		DataHash:          hash,
		VerifiedTimestamp: verifiedAt,
	}
}

func TestHandleBatchMarksRecordVerified(t *testing.T) {
	v, c, _ := newFixture(t)
	c.Upsert(context.Background(), committedRecord())

	err := v.handleBatch(context.Background(), []*models.RecordEvent{verifiedEvent(1060)})
	require.NoError(t, err)

	rec, ok := c.FindByAddress(addr)
	require.True(t, ok)
	assert.True(t, rec.IsVerified)
	assert.EqualValues(t, 1060, rec.VerifiedAt)

	stats := c.Statistics()
	assert.Equal(t, 1, stats.VerifiedSubmissions)
	assert.EqualValues(t, 60, stats.AverageVerificationTime)
}

func TestHandleBatchFallsBackToLedger(t *testing.T) {
	v, c, ledger := newFixture(t)

	// Record exists on the ledger but was never announced to this cache
	_, err := ledger.SubmitRecord(context.Background(), addr, hash, "desc text")
	require.NoError(t, err)
	require.Equal(t, 0, c.Len())

	err = v.handleBatch(context.Background(), []*models.RecordEvent{verifiedEvent(1090)})
	require.NoError(t, err)

	rec, ok := c.FindByAddress(addr)
	require.True(t, ok, "record backfilled from the ledger")
	assert.True(t, rec.IsVerified)
	assert.EqualValues(t, 1090, rec.VerifiedAt)
	assert.EqualValues(t, 1000, rec.SubmissionTime)
}

func TestHandleBatchDiscardsUnknownRecord(t *testing.T) {
	v, c, _ := newFixture(t)

	// Neither cache nor ledger knows this address: drop, don't fail
	err := v.handleBatch(context.Background(), []*models.RecordEvent{verifiedEvent(1060)})
	require.NoError(t, err)
	assert.Equal(t, 0, c.Len())
}

func TestHandleBatchDiscardsHashMismatch(t *testing.T) {
	v, c, _ := newFixture(t)
	c.Upsert(context.Background(), committedRecord())

	ev := verifiedEvent(1060)
	ev.DataHash = "0x60303ae22b998861bce3b28f33eec1be758a213c86c93c076dbe9f558c11c752"

	err := v.handleBatch(context.Background(), []*models.RecordEvent{ev})
	require.NoError(t, err)

	rec, _ := c.FindByAddress(addr)
	assert.False(t, rec.IsVerified, "mismatched event must not verify the record")
}

func TestHandleBatchIgnoresCommittedEvents(t *testing.T) {
	v, c, _ := newFixture(t)
	c.Upsert(context.Background(), committedRecord())

	ev := verifiedEvent(1060)
	ev.Kind = models.EventCommitted

	err := v.handleBatch(context.Background(), []*models.RecordEvent{ev})
	require.NoError(t, err)

	rec, _ := c.FindByAddress(addr)
	assert.False(t, rec.IsVerified)
}

func TestHandleBatchRedeliveryIsIdempotent(t *testing.T) {
	v, c, _ := newFixture(t)
	c.Upsert(context.Background(), committedRecord())

	require.NoError(t, v.handleBatch(context.Background(), []*models.RecordEvent{verifiedEvent(1060)}))
	require.NoError(t, v.handleBatch(context.Background(), []*models.RecordEvent{verifiedEvent(1090)}))

	rec, _ := c.FindByAddress(addr)
	assert.EqualValues(t, 1060, rec.VerifiedAt, "a redelivered verification does not move the timestamp")
	assert.Equal(t, 1, c.Statistics().VerifiedSubmissions)
}

func TestHandleBatchCollapsesDuplicateAddresses(t *testing.T) {
	v, c, _ := newFixture(t)
	c.Upsert(context.Background(), committedRecord())

	// Two events for the same address in one batch; the later one wins
	first := verifiedEvent(1030)
	second := verifiedEvent(1060)
	second.EventID = "ev-2"

	err := v.handleBatch(context.Background(), []*models.RecordEvent{first, second})
	require.NoError(t, err)

	rec, _ := c.FindByAddress(addr)
	assert.EqualValues(t, 1060, rec.VerifiedAt)
}

func TestHandleBatchNacksOnLedgerFailure(t *testing.T) {
	v, c, ledger := newFixture(t)
	ledger.Unavailable = errors.New("connection refused")

	// Cache miss forces a ledger lookup, which fails
	err := v.handleBatch(context.Background(), []*models.RecordEvent{verifiedEvent(1060)})
	assert.Error(t, err, "a transport failure must surface so the batch is nacked")
	assert.Equal(t, 0, c.Len())
}
