// Package memory provides an in-process ledger for dev networks and tests.
// It enforces the same business rules as the registry contract: at most one
// confirmed record per identity, confirmation timestamps assigned by the
// ledger, never the client.
package memory

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"rstamp/ledger/types"
)

// Ledger is an in-memory LedgerClient implementation.
type Ledger struct {
	mu      sync.Mutex
	records map[string]types.LedgerRecord // keyed by researcher address
	logger  *log.Logger

	// Clock supplies confirmation timestamps. Tests may replace it.
	Clock func() int64

	// Unavailable, when set, makes every call fail with a transport-level
	// error. Used to simulate an unreachable network.
	Unavailable error
}

// NewLedger creates an empty dev-network ledger.
func NewLedger(logger *log.Logger) *Ledger {
	logger.Println("[MemoryLedger] Initializing in-process dev network...")
	return &Ledger{
		records: make(map[string]types.LedgerRecord),
		logger:  logger,
		Clock:   func() int64 { return time.Now().Unix() },
	}
}

// SubmitRecord applies the contract rules locally. Duplicate identities are
// rejected in the receipt, matching the on-chain behavior.
func (l *Ledger) SubmitRecord(ctx context.Context, address, dataHash, description string) (*types.SubmissionReceipt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.Unavailable != nil {
		return nil, fmt.Errorf("dev network unreachable: %w", l.Unavailable)
	}

	txID := uuid.NewString()
	if address == "" || dataHash == "" {
		return &types.SubmissionReceipt{
			TransactionID: txID,
			ErrorKind:     types.ErrorRejected,
			Message:       "address and data hash are required",
		}, nil
	}
	if _, exists := l.records[address]; exists {
		l.logger.Printf("[MemoryLedger] Rejecting duplicate submission for %s", address)
		return &types.SubmissionReceipt{
			TransactionID: txID,
			ErrorKind:     types.ErrorAlreadySubmitted,
			Message:       fmt.Sprintf("identity %s already has a confirmed record", address),
		}, nil
	}

	confirmed := l.Clock()
	l.records[address] = types.LedgerRecord{
		ResearcherAddress: address,
		DataHash:          dataHash,
		SubmissionTime:    confirmed,
		Description:       description,
	}
	l.logger.Printf("[MemoryLedger] Confirmed submission for %s at %d (tx: %s)", address, confirmed, txID)

	return &types.SubmissionReceipt{
		Success:            true,
		ConfirmedTimestamp: confirmed,
		TransactionID:      txID,
	}, nil
}

// GetRecord returns (nil, nil) when the address has no record.
func (l *Ledger) GetRecord(ctx context.Context, address string) (*types.LedgerRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.Unavailable != nil {
		return nil, fmt.Errorf("dev network unreachable: %w", l.Unavailable)
	}
	rec, ok := l.records[address]
	if !ok {
		return nil, nil
	}
	out := rec
	return &out, nil
}

// GetTotalCount returns the number of confirmed submissions.
func (l *Ledger) GetTotalCount(ctx context.Context) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.Unavailable != nil {
		return 0, fmt.Errorf("dev network unreachable: %w", l.Unavailable)
	}
	return uint64(len(l.records)), nil
}

// FundIdentity succeeds whenever the dev network is reachable.
func (l *Ledger) FundIdentity(ctx context.Context, address string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.Unavailable != nil {
		return false, fmt.Errorf("dev network unreachable: %w", l.Unavailable)
	}
	l.logger.Printf("[MemoryLedger] Funded identity %s", address)
	return true, nil
}

// MarkVerified flips the verification flag for an address. Stands in for the
// external verification authority on dev networks.
func (l *Ledger) MarkVerified(address string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	rec, ok := l.records[address]
	if !ok {
		return false
	}
	rec.IsVerified = true
	l.records[address] = rec
	return true
}

// Close releases nothing but satisfies the client interface.
func (l *Ledger) Close() error {
	l.logger.Println("[MemoryLedger] Closing...")
	return nil
}

// Config returns nil; the dev network has no chain-specific configuration.
func (l *Ledger) Config() any { return nil }
