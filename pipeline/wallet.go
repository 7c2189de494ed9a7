package pipeline

import "context"

// Wallet is the key-custody collaborator. The pipeline treats a missing
// identity as a validation failure, never a crash; it performs no key
// management of its own.
type Wallet interface {
	// ActiveIdentity returns the authenticated researcher address, or ""
	// when no identity is connected.
	ActiveIdentity(ctx context.Context) (string, error)

	// AuthorizeSubmission signs the submission payload with the active
	// identity's key.
	AuthorizeSubmission(ctx context.Context, payload []byte) ([]byte, error)
}

// StaticWallet is the dev-network wallet: a fixed address with pass-through
// authorization. The memory ledger does its own signing, so the payload is
// returned as-is.
type StaticWallet struct {
	Address string
}

func (w *StaticWallet) ActiveIdentity(ctx context.Context) (string, error) {
	return w.Address, nil
}

func (w *StaticWallet) AuthorizeSubmission(ctx context.Context, payload []byte) ([]byte, error) {
	return payload, nil
}

var _ Wallet = (*StaticWallet)(nil)
