package storage

import (
	"context"
	"sync"
)

// MemoryStore keeps blobs in a map. Used when no database is configured and
// throughout the tests.
type MemoryStore struct {
	mu    sync.Mutex
	blobs map[string][]byte

	// SaveErr, when set, makes every Save fail with it. Tests use this to
	// exercise the best-effort persistence policy.
	SaveErr error
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blobs: make(map[string][]byte)}
}

// Load returns the blob stored under key, or ErrNotFound.
func (s *MemoryStore) Load(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	blob, ok := s.blobs[key]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]byte, len(blob))
	copy(out, blob)
	return out, nil
}

// Save stores a copy of blob under key.
func (s *MemoryStore) Save(ctx context.Context, key string, blob []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.SaveErr != nil {
		return s.SaveErr
	}
	stored := make([]byte, len(blob))
	copy(stored, blob)
	s.blobs[key] = stored
	return nil
}

// Put seeds a blob directly, bypassing SaveErr. Test helper.
func (s *MemoryStore) Put(key string, blob []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[key] = blob
}

// Close releases nothing but satisfies the Store interface.
func (s *MemoryStore) Close() {}

var _ Store = (*MemoryStore)(nil) // Compile-time interface check
