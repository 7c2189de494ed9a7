package ledger

import (
	"context"
	"rstamp/ledger/types"
)

// LedgerClient defines the generic interface for interactions with the
// research registry ledger. This interface is ledger-agnostic and can be
// implemented by different chain clients.
type LedgerClient interface {
	// SubmitRecord submits one research fingerprint to the ledger. Business
	// rejections (duplicate identity, contract validation) are reported in
	// the receipt with Success=false; an error return means the attempt
	// itself could not complete (transport failure).
	SubmitRecord(ctx context.Context, address, dataHash, description string) (*types.SubmissionReceipt, error)

	// GetRecord fetches the confirmed record for an address. A missing
	// record returns (nil, nil); an error means the query itself failed.
	GetRecord(ctx context.Context, address string) (*types.LedgerRecord, error)

	// GetTotalCount returns the total number of confirmed submissions.
	GetTotalCount(ctx context.Context) (uint64, error)

	// FundIdentity requests dev-network funding for an address. Returns
	// false on networks without a faucet.
	FundIdentity(ctx context.Context, address string) (bool, error)

	// Close closes the ledger client and releases resources.
	Close() error

	// Config returns the configuration associated with the client
	Config() any // Return any to accommodate different config types
}
