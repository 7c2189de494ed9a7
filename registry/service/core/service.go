package service

import (
	"context"
	"io"
	"log"
	"sync"
	"time"

	"rstamp/internal/faults"
	"rstamp/internal/hashing"
	"rstamp/internal/messaging/producer"
	"rstamp/internal/models"
	"rstamp/ledger/gateway"
	"rstamp/pipeline"
	"rstamp/registry/cache"

	"github.com/google/uuid"
)

// Session is one user's submission workflow. Each session owns its own
// pipeline; the cache and ledger gateway are shared across sessions.
type Session struct {
	ID        string
	Pipeline  *pipeline.Pipeline
	CreatedAt time.Time
}

// Service encapsulates the core business logic of the registry service
type Service struct {
	engine   *hashing.Engine
	gateway  *gateway.Gateway
	cache    *cache.Cache
	wallet   pipeline.Wallet
	producer producer.Producer
	logger   *log.Logger

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewService creates a new Service instance
func NewService(engine *hashing.Engine, gw *gateway.Gateway, c *cache.Cache, w pipeline.Wallet, p producer.Producer, l *log.Logger) *Service {
	return &Service{
		engine:   engine,
		gateway:  gw,
		cache:    c,
		wallet:   w,
		producer: p,
		logger:   l,
		sessions: make(map[string]*Session),
	}
}

// NewSession creates a submission session with a fresh pipeline
func (s *Service) NewSession() *Session {
	sess := &Session{
		ID:        uuid.NewString(),
		Pipeline:  pipeline.New(s.engine, s.gateway, s.cache, s.wallet, s.logger),
		CreatedAt: time.Now(),
	}

	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()

	s.logger.Printf("Service: Created session %s", sess.ID)
	return sess
}

// Session returns the session for the given id
func (s *Service) Session(id string) (*Session, error) {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	s.mu.Unlock()
	if !ok {
		return nil, faults.Validation("unknown session '%s'", id)
	}
	return sess, nil
}

// CloseSession discards a session and its draft
func (s *Service) CloseSession(id string) {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()
	if ok {
		sess.Pipeline.Reset()
		s.logger.Printf("Service: Closed session %s", id)
	}
}

// SetDescription updates the draft description for a session
func (s *Service) SetDescription(sessionID, description string) error {
	sess, err := s.Session(sessionID)
	if err != nil {
		return err
	}
	return sess.Pipeline.SetDescription(description)
}

// EnterHash sets a precomputed fingerprint on the session draft
func (s *Service) EnterHash(sessionID, hash string) error {
	sess, err := s.Session(sessionID)
	if err != nil {
		return err
	}
	return sess.Pipeline.EnterHash(hash)
}

// AttachFile streams an upload through the hashing engine into the draft
func (s *Service) AttachFile(ctx context.Context, sessionID, name string, r io.Reader, size int64) error {
	sess, err := s.Session(sessionID)
	if err != nil {
		return err
	}
	return sess.Pipeline.AttachFile(ctx, name, r, size)
}

// ClearFile discards the session's attached file
func (s *Service) ClearFile(sessionID string) error {
	sess, err := s.Session(sessionID)
	if err != nil {
		return err
	}
	sess.Pipeline.ClearFile()
	return nil
}

// Acknowledge clears a failed submission so the user can correct and retry
func (s *Service) Acknowledge(sessionID string) error {
	sess, err := s.Session(sessionID)
	if err != nil {
		return err
	}
	sess.Pipeline.Acknowledge()
	return nil
}

// Submit runs the session's draft through the submission pipeline. On a
// confirmed commit it announces the new record on the event topic; the
// announcement is best-effort and never fails the submission.
func (s *Service) Submit(ctx context.Context, sessionID string) (*models.ResearchRecord, error) {
	sess, err := s.Session(sessionID)
	if err != nil {
		return nil, err
	}

	rec, err := sess.Pipeline.Submit(ctx)
	if err != nil {
		return nil, err
	}

	ev := &models.RecordEvent{
		EventID:           uuid.NewString(),
		Kind:              models.EventCommitted,
		ResearcherAddress: rec.ResearcherAddress,
		DataHash:          rec.DataHash,
		EmittedTimestamp:  time.Now().UTC().Format(time.RFC3339Nano),
	}
	if pubErr := s.producer.Publish(ctx, ev); pubErr != nil {
		s.logger.Printf("Service: Failed to announce committed record for %s: %v", rec.ResearcherAddress, pubErr)
	}

	return rec, nil
}

// Record looks up a record by researcher address, falling back to the
// ledger when the local cache has no entry
func (s *Service) Record(ctx context.Context, address string) (*models.ResearchRecord, error) {
	if address == "" {
		return nil, faults.Validation("researcher address is required")
	}

	if rec, ok := s.cache.FindByAddress(address); ok {
		return &rec, nil
	}

	ledgerRec, err := s.gateway.Record(ctx, address)
	if err != nil {
		return nil, faults.Transport(err, "ledger lookup failed")
	}
	if ledgerRec == nil {
		return nil, nil
	}

	rec := models.ResearchRecord{
		ID:                ledgerRec.ResearcherAddress,
		ResearcherAddress: ledgerRec.ResearcherAddress,
		DataHash:          ledgerRec.DataHash,
		SubmissionTime:    ledgerRec.SubmissionTime,
		Description:       ledgerRec.Description,
		IsVerified:        ledgerRec.IsVerified,
	}

	// Backfill the cache so the next lookup is local
	s.cache.Upsert(ctx, rec)

	return &rec, nil
}

// Search returns records whose address or fingerprint contains the term
func (s *Service) Search(term string) []models.ResearchRecord {
	return s.cache.Search(term)
}

// Recent returns the most recently submitted records
func (s *Service) Recent(limit int) []models.ResearchRecord {
	return s.cache.Recent(limit)
}

// Statistics returns the registry aggregate
func (s *Service) Statistics() models.Statistics {
	return s.cache.Statistics()
}

// LedgerTotal returns the submission count reported by the ledger itself.
// Used to cross-check the cache against the source of truth.
func (s *Service) LedgerTotal(ctx context.Context) (uint64, error) {
	total, err := s.gateway.TotalCount(ctx)
	if err != nil {
		return 0, faults.Transport(err, "ledger count lookup failed")
	}
	return total, nil
}

// FundIdentity requests dev-net funding for a researcher address
func (s *Service) FundIdentity(ctx context.Context, address string) (bool, error) {
	if address == "" {
		return false, faults.Validation("researcher address is required")
	}
	funded, err := s.gateway.FundIdentity(ctx, address)
	if err != nil {
		return false, faults.Transport(err, "funding request failed")
	}
	return funded, nil
}

// Close gracefully shuts down the service
func (s *Service) Close() {
	if err := s.producer.Close(); err != nil {
		s.logger.Printf("Service: Failed to close producer: %v", err)
	}
}

// SessionCount reports the number of live sessions, used by the health endpoint
func (s *Service) SessionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
