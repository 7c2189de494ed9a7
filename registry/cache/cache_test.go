package cache

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rstamp/internal/models"
	"rstamp/storage"
)

const snapshotKey = "registry"

var testLogger = log.New(io.Discard, "", 0)

func newTestCache(t *testing.T) (*Cache, *storage.MemoryStore) {
	t.Helper()
	store := storage.NewMemoryStore()
	return New(context.Background(), store, snapshotKey, testLogger), store
}

func record(addr string, submitted int64) models.ResearchRecord {
	return models.ResearchRecord{
		ID:                addr,
		ResearcherAddress: addr,
		DataHash:          "0x9f86d081884c7d659a2feaa0c55ad015a3bf4f1b2b0b822cd15d6c15b0f00a08",
		SubmissionTime:    submitted,
		Description:       "Genome sequencing result batch",
	}
}

func verified(addr string, submitted, verifiedAt int64) models.ResearchRecord {
	rec := record(addr, submitted)
	rec.IsVerified = true
	rec.VerifiedAt = verifiedAt
	return rec
}

func TestUpsertAndFind(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	rec := record("0xaaa1", 100)
	c.Upsert(ctx, rec)

	got, ok := c.Find(rec.ID)
	require.True(t, ok)
	assert.Equal(t, rec, got)

	got, ok = c.FindByAddress(rec.ResearcherAddress)
	require.True(t, ok)
	assert.Equal(t, rec, got)

	_, ok = c.Find("missing")
	assert.False(t, ok)
	assert.Equal(t, 1, c.Len())
}

func TestUpsertReplacesRecordForSameAddress(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	c.Upsert(ctx, verified("0xaaa1", 100, 160))

	// Same address confirmed again under the same id with new content
	replacement := record("0xaaa1", 200)
	replacement.DataHash = "0x60303ae22b998861bce3b28f33eec1be758a213c86c93c076dbe9f558c11c752"
	c.Upsert(ctx, replacement)

	assert.Equal(t, 1, c.Len(), "replacement must not append")
	got, ok := c.FindByAddress("0xaaa1")
	require.True(t, ok)
	assert.Equal(t, replacement, got)

	stats := c.Statistics()
	assert.Equal(t, 1, stats.TotalSubmissions)
	assert.Equal(t, 0, stats.VerifiedSubmissions, "verified contribution of the replaced record is backed out")
	assert.EqualValues(t, 0, stats.AverageVerificationTime)
}

func TestUpsertIdenticalRecordIsNoOp(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	rec := verified("0xaaa1", 100, 150)
	c.Upsert(ctx, rec)
	before := c.Statistics()

	c.Upsert(ctx, rec)
	assert.Equal(t, before, c.Statistics(), "redundant upsert leaves statistics untouched")
	assert.Equal(t, 1, c.Len())
}

func TestStatisticsIncrementalMatchesRecompute(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	c.Upsert(ctx, verified("0xaaa1", 100, 160)) // 60s
	c.Upsert(ctx, verified("0xbbb2", 200, 230)) // 30s
	c.Upsert(ctx, record("0xccc3", 300))        // unverified

	// Flip one record to verified via upsert
	flipped := verified("0xccc3", 300, 390) // 90s
	c.Upsert(ctx, flipped)

	c.Remove(ctx, "0xbbb2")

	incremental := c.Statistics()
	recomputed := c.RecomputeStatistics()
	assert.Equal(t, recomputed, incremental, "incremental counters must match a from-scratch recompute")

	assert.Equal(t, 2, incremental.TotalSubmissions)
	assert.Equal(t, 2, incremental.VerifiedSubmissions)
	assert.Equal(t, 2, incremental.ActiveResearchers)
	assert.EqualValues(t, (60+90)/2, incremental.AverageVerificationTime)
}

func TestVerificationFlipAdjustsAverage(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	c.Upsert(ctx, record("0xaaa1", 100))
	stats := c.Statistics()
	assert.Equal(t, 0, stats.VerifiedSubmissions)
	assert.EqualValues(t, 0, stats.AverageVerificationTime)

	c.Upsert(ctx, verified("0xaaa1", 100, 400))
	stats = c.Statistics()
	assert.Equal(t, 1, stats.VerifiedSubmissions)
	assert.EqualValues(t, 300, stats.AverageVerificationTime)
}

func TestVerificationBeforeSubmissionCountsZero(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	// A verification timestamp at or before submission contributes zero
	// duration rather than a negative one.
	c.Upsert(ctx, verified("0xaaa1", 500, 400))

	stats := c.Statistics()
	assert.Equal(t, 1, stats.VerifiedSubmissions)
	assert.EqualValues(t, 0, stats.AverageVerificationTime)
}

func TestRemoveSymmetric(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	empty := c.Statistics()
	c.Upsert(ctx, verified("0xaaa1", 100, 160))
	c.Remove(ctx, "0xaaa1")

	assert.Equal(t, empty, c.Statistics(), "remove undoes the upsert exactly")
	assert.Equal(t, 0, c.Len())
	_, ok := c.FindByAddress("0xaaa1")
	assert.False(t, ok)

	// Removing an unknown id is a no-op
	c.Remove(ctx, "0xmissing")
	assert.Equal(t, empty, c.Statistics())
}

func TestSearchCaseInsensitive(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	recA := record("0xAbCdEf01", 100)
	recB := record("0xffff02", 200)
	recB.DataHash = "0x60303AE22B998861BCE3B28F33EEC1BE758A213C86C93C076DBE9F558C11C752"
	c.Upsert(ctx, recA)
	c.Upsert(ctx, recB)

	byAddr := c.Search("abcdef")
	require.Len(t, byAddr, 1)
	assert.Equal(t, recA.ID, byAddr[0].ID)

	byHash := c.Search("60303ae2")
	require.Len(t, byHash, 1)
	assert.Equal(t, recB.ID, byHash[0].ID)

	assert.Empty(t, c.Search("nomatch"), "no match yields an empty slice")

	all := c.Search("0x")
	require.Len(t, all, 2)
	assert.Equal(t, recB.ID, all[0].ID, "results are sorted most recent first")
}

func TestRecentLimit(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	c.Upsert(ctx, record("0xaaa1", 100))
	c.Upsert(ctx, record("0xbbb2", 300))
	c.Upsert(ctx, record("0xccc3", 200))

	recent := c.Recent(2)
	require.Len(t, recent, 2)
	assert.Equal(t, "0xbbb2", recent[0].ID)
	assert.Equal(t, "0xccc3", recent[1].ID)

	assert.Len(t, c.Recent(0), 3, "non-positive limit returns everything")
}

func TestSnapshotRoundTrip(t *testing.T) {
	store := storage.NewMemoryStore()
	ctx := context.Background()

	c1 := New(ctx, store, snapshotKey, testLogger)
	c1.Upsert(ctx, verified("0xaaa1", 100, 160))
	c1.Upsert(ctx, record("0xbbb2", 200))

	c2 := New(ctx, store, snapshotKey, testLogger)
	assert.Equal(t, 2, c2.Len())
	assert.Equal(t, c1.Statistics(), c2.Statistics())

	got, ok := c2.FindByAddress("0xaaa1")
	require.True(t, ok)
	assert.True(t, got.IsVerified)
}

func TestCorruptSnapshotStartsEmpty(t *testing.T) {
	store := storage.NewMemoryStore()
	store.Put(snapshotKey, []byte("{not json"))

	c := New(context.Background(), store, snapshotKey, testLogger)
	assert.Equal(t, 0, c.Len())
	assert.Equal(t, models.Statistics{}, c.Statistics(), "corrupt blob resets to empty, not an error")
}

func TestDriftedSnapshotStatisticsRecomputed(t *testing.T) {
	store := storage.NewMemoryStore()
	blob, err := json.Marshal(snapshot{
		Records: []models.ResearchRecord{verified("0xaaa1", 100, 160)},
		// Stored statistics disagree with the record set on purpose
		Statistics: models.Statistics{TotalSubmissions: 9, VerifiedSubmissions: 9},
	})
	require.NoError(t, err)
	store.Put(snapshotKey, blob)

	c := New(context.Background(), store, snapshotKey, testLogger)
	stats := c.Statistics()
	assert.Equal(t, 1, stats.TotalSubmissions, "recomputed values win over drifted persisted ones")
	assert.Equal(t, 1, stats.VerifiedSubmissions)
	assert.EqualValues(t, 60, stats.AverageVerificationTime)
}

func TestPersistIsBestEffort(t *testing.T) {
	store := storage.NewMemoryStore()
	store.SaveErr = errors.New("disk full")
	ctx := context.Background()

	c := New(ctx, store, snapshotKey, testLogger)
	c.Upsert(ctx, record("0xaaa1", 100))

	// The in-memory mutation survives the failed save
	assert.Equal(t, 1, c.Len())
	_, ok := c.FindByAddress("0xaaa1")
	assert.True(t, ok)
}
