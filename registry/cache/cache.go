// Package cache holds the authoritative local view of ledger-confirmed
// research records and their derived statistics. Record and statistics
// changes are applied as one step under a single lock, so readers never
// observe a partially-applied mutation.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"sort"
	"strings"
	"sync"

	"rstamp/internal/faults"
	"rstamp/internal/models"
	"rstamp/storage"
)

// snapshot is the persisted round-trip format: the full record set plus the
// statistics that were current when it was written.
type snapshot struct {
	Records    []models.ResearchRecord `json:"records"`
	Statistics models.Statistics       `json:"statistics"`
}

// Cache is the registry cache. It is the sole writer of Statistics.
type Cache struct {
	mu      sync.RWMutex
	records map[string]models.ResearchRecord // keyed by record id
	byAddr  map[string]string                // researcher address -> record id

	// Incremental statistics bookkeeping. Recomputable from the record set
	// at any time; never an independent source of truth.
	verified        int
	verifiedDurSum  int64

	store  storage.Store
	key    string
	logger *log.Logger
}

// New creates a Cache and loads any persisted snapshot. A missing blob
// starts empty; a corrupt blob also starts empty and is logged as an
// integrity condition instead of failing initialization.
func New(ctx context.Context, store storage.Store, key string, logger *log.Logger) *Cache {
	c := &Cache{
		records: make(map[string]models.ResearchRecord),
		byAddr:  make(map[string]string),
		store:   store,
		key:     key,
		logger:  logger,
	}

	blob, err := store.Load(ctx, key)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		logger.Printf("Cache: no persisted registry under key '%s', starting empty", key)
		return c
	case err != nil:
		logger.Printf("Cache: failed to load persisted registry: %v, starting empty", err)
		return c
	}

	var snap snapshot
	if err := json.Unmarshal(blob, &snap); err != nil {
		ierr := faults.Integrity(err, "persisted registry blob under key '%s' is corrupt", key)
		logger.Printf("Cache: %v, starting empty", ierr)
		return c
	}

	for _, rec := range snap.Records {
		c.records[rec.ID] = rec
		c.byAddr[rec.ResearcherAddress] = rec.ID
	}
	c.rebuildCountersLocked()
	if got := c.statisticsLocked(); got != snap.Statistics {
		logger.Printf("Cache: persisted statistics drifted (stored %+v, recomputed %+v), using recomputed", snap.Statistics, got)
	}
	logger.Printf("Cache: loaded %d records from persisted registry", len(c.records))
	return c
}

// Upsert inserts or replaces a record and adjusts statistics by the delta.
// A later confirmation for an address already present under a different id
// replaces that record rather than appending. Calling it redundantly with an
// identical record leaves statistics untouched.
func (c *Cache) Upsert(ctx context.Context, rec models.ResearchRecord) {
	c.mu.Lock()

	// One confirmed record per address: drop any record the same address
	// holds under another id before inserting.
	if prevID, ok := c.byAddr[rec.ResearcherAddress]; ok && prevID != rec.ID {
		if prev, ok := c.records[prevID]; ok {
			c.retireLocked(prev)
		}
	}

	if old, existed := c.records[rec.ID]; existed {
		if old == rec {
			c.mu.Unlock()
			return
		}
		c.retireLocked(old)
	}

	c.records[rec.ID] = rec
	c.byAddr[rec.ResearcherAddress] = rec.ID
	if rec.IsVerified {
		c.verified++
		c.verifiedDurSum += verificationDuration(rec)
	}

	blob := c.encodeLocked()
	c.mu.Unlock()

	c.persist(ctx, blob)
}

// Remove deletes a record by id, decrementing statistics symmetrically.
// Removing an unknown id is a no-op.
func (c *Cache) Remove(ctx context.Context, id string) {
	c.mu.Lock()
	rec, ok := c.records[id]
	if !ok {
		c.mu.Unlock()
		return
	}
	c.retireLocked(rec)
	blob := c.encodeLocked()
	c.mu.Unlock()

	c.persist(ctx, blob)
}

// retireLocked removes rec from both indexes and backs its contribution out
// of the counters. Caller holds the write lock.
func (c *Cache) retireLocked(rec models.ResearchRecord) {
	delete(c.records, rec.ID)
	if c.byAddr[rec.ResearcherAddress] == rec.ID {
		delete(c.byAddr, rec.ResearcherAddress)
	}
	if rec.IsVerified {
		c.verified--
		c.verifiedDurSum -= verificationDuration(rec)
	}
}

// Find returns the record stored under id.
func (c *Cache) Find(id string) (models.ResearchRecord, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	rec, ok := c.records[id]
	return rec, ok
}

// FindByAddress returns the confirmed record for a researcher address.
func (c *Cache) FindByAddress(address string) (models.ResearchRecord, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	id, ok := c.byAddr[address]
	if !ok {
		return models.ResearchRecord{}, false
	}
	rec, ok := c.records[id]
	return rec, ok
}

// Search returns every record whose researcher address or data hash contains
// term, case-insensitively. No matches yields an empty slice, not an error.
func (c *Cache) Search(term string) []models.ResearchRecord {
	needle := strings.ToLower(term)

	c.mu.RLock()
	defer c.mu.RUnlock()

	matches := make([]models.ResearchRecord, 0)
	for _, rec := range c.records {
		if strings.Contains(strings.ToLower(rec.ResearcherAddress), needle) ||
			strings.Contains(strings.ToLower(rec.DataHash), needle) {
			matches = append(matches, rec)
		}
	}
	sortBySubmissionTimeDesc(matches)
	return matches
}

// Recent returns up to limit records, most recent submission first.
// A non-positive limit returns all records.
func (c *Cache) Recent(limit int) []models.ResearchRecord {
	c.mu.RLock()
	out := make([]models.ResearchRecord, 0, len(c.records))
	for _, rec := range c.records {
		out = append(out, rec)
	}
	c.mu.RUnlock()

	sortBySubmissionTimeDesc(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Len returns the number of records held.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.records)
}

// Statistics returns the incrementally maintained aggregate.
func (c *Cache) Statistics() models.Statistics {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.statisticsLocked()
}

// RecomputeStatistics rebuilds all statistics fields from the record set
// from scratch, resets the incremental counters to the recomputed values,
// and returns the result. Exists to detect and correct drift.
func (c *Cache) RecomputeStatistics() models.Statistics {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rebuildCountersLocked()
	return c.statisticsLocked()
}

func (c *Cache) statisticsLocked() models.Statistics {
	stats := models.Statistics{
		TotalSubmissions:    len(c.records),
		VerifiedSubmissions: c.verified,
		ActiveResearchers:   len(c.byAddr),
	}
	if c.verified > 0 {
		stats.AverageVerificationTime = c.verifiedDurSum / int64(c.verified)
	}
	return stats
}

func (c *Cache) rebuildCountersLocked() {
	c.verified = 0
	c.verifiedDurSum = 0
	for _, rec := range c.records {
		if rec.IsVerified {
			c.verified++
			c.verifiedDurSum += verificationDuration(rec)
		}
	}
}

func (c *Cache) encodeLocked() []byte {
	recs := make([]models.ResearchRecord, 0, len(c.records))
	for _, rec := range c.records {
		recs = append(recs, rec)
	}
	sortBySubmissionTimeDesc(recs)
	blob, err := json.Marshal(snapshot{Records: recs, Statistics: c.statisticsLocked()})
	if err != nil {
		// Records are plain data; marshalling cannot realistically fail.
		c.logger.Printf("Cache: failed to encode registry snapshot: %v", err)
		return nil
	}
	return blob
}

// persist writes the snapshot best-effort. A failed save is surfaced in the
// log but never rolls back the in-memory mutation.
func (c *Cache) persist(ctx context.Context, blob []byte) {
	if blob == nil {
		return
	}
	if err := c.store.Save(ctx, c.key, blob); err != nil {
		c.logger.Printf("Cache: failed to persist registry snapshot: %v", err)
	}
}

func verificationDuration(rec models.ResearchRecord) int64 {
	if rec.VerifiedAt <= rec.SubmissionTime {
		return 0
	}
	return rec.VerifiedAt - rec.SubmissionTime
}

func sortBySubmissionTimeDesc(recs []models.ResearchRecord) {
	sort.Slice(recs, func(i, j int) bool {
		if recs[i].SubmissionTime != recs[j].SubmissionTime {
			return recs[i].SubmissionTime > recs[j].SubmissionTime
		}
		return recs[i].ID < recs[j].ID
	})
}
