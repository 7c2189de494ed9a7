// Package storage defines the durable key-value medium used by the registry
// cache for persistence. Failures on Load degrade the caller to an empty
// state; failures on Save are surfaced but never roll back in-memory state.
package storage

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Load when no blob exists for a key. Callers
// must treat it as a distinguishable condition, not a transport failure.
var ErrNotFound = errors.New("storage: key not found")

// Store is the durable storage collaborator interface.
type Store interface {
	// Load returns the blob stored under key, or ErrNotFound.
	Load(ctx context.Context, key string) ([]byte, error)

	// Save writes blob under key, replacing any previous value.
	Save(ctx context.Context, key string, blob []byte) error

	// Close releases the underlying resources.
	Close()
}
