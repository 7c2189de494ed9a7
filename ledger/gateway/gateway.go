// Package gateway adapts pipeline intents to the ledger client and
// normalizes every outcome into a SubmissionReceipt. It performs exactly one
// submission attempt per call; the ledger is not replay-safe, so retries are
// always a new user action.
package gateway

import (
	"context"
	"log"

	client "rstamp/ledger/client"
	"rstamp/ledger/types"
)

// Gateway wraps a LedgerClient behind the adapter contract.
type Gateway struct {
	client client.LedgerClient
	logger *log.Logger
}

// New creates a Gateway over an initialized ledger client.
func New(c client.LedgerClient, logger *log.Logger) *Gateway {
	return &Gateway{client: c, logger: logger}
}

// Submit performs one submission attempt and folds transport failures into
// the receipt so callers handle a single result shape.
func (g *Gateway) Submit(ctx context.Context, address, dataHash, description string) *types.SubmissionReceipt {
	receipt, err := g.client.SubmitRecord(ctx, address, dataHash, description)
	if err != nil {
		g.logger.Printf("Gateway: submission attempt for %s failed in transit: %v", address, err)
		return &types.SubmissionReceipt{
			ErrorKind: types.ErrorTransport,
			Message:   err.Error(),
		}
	}
	if !receipt.Success {
		g.logger.Printf("Gateway: ledger rejected submission for %s: %s (%s)", address, receipt.ErrorKind, receipt.Message)
	}
	return receipt
}

// Record is the read-only fetch-by-address passthrough. A missing record is
// (nil, nil); an error is a genuine transport failure.
func (g *Gateway) Record(ctx context.Context, address string) (*types.LedgerRecord, error) {
	return g.client.GetRecord(ctx, address)
}

// TotalCount is the read-only total-submissions passthrough.
func (g *Gateway) TotalCount(ctx context.Context) (uint64, error) {
	return g.client.GetTotalCount(ctx)
}

// FundIdentity requests dev-network funding for an address.
func (g *Gateway) FundIdentity(ctx context.Context, address string) (bool, error) {
	return g.client.FundIdentity(ctx, address)
}
