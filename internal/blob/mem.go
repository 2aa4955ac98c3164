package blob

import (
	"context"
	"sync"
)

// MemStore is an in-memory Store for tests and the wasm build, where no
// filesystem is available.
type MemStore struct {
	mu    sync.RWMutex
	blobs map[string]Blob
}

func NewMemStore() *MemStore {
	return &MemStore{blobs: make(map[string]Blob)}
}

func (s *MemStore) Put(_ context.Context, b Blob) error {
	if err := checkID(b.ID); err != nil {
		return err
	}
	data := make([]byte, len(b.Data))
	copy(data, b.Data)
	b.Data = data

	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[b.ID] = b
	return nil
}

func (s *MemStore) Get(_ context.Context, id string) (Blob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.blobs[id]
	if !ok {
		return Blob{}, ErrNotFound
	}
	return b, nil
}

func (s *MemStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.blobs[id]; !ok {
		return ErrNotFound
	}
	delete(s.blobs, id)
	return nil
}
