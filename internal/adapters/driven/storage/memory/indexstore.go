package memory

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

// Ensure IndexStore implements the interface.
var _ driven.IndexStore = (*IndexStore)(nil)

type userArtifacts struct {
	vectors []byte
	chunks  []domain.Chunk
	hasIdx  bool
	ledger  domain.Ledger
	broken  bool
	sources map[string][]byte
}

// IndexStore is an in-memory implementation of driven.IndexStore.
// Stored values are copied on the way in and out.
type IndexStore struct {
	mu    sync.RWMutex
	users map[string]*userArtifacts
}

// NewIndexStore creates an empty store.
func NewIndexStore() *IndexStore {
	return &IndexStore{users: make(map[string]*userArtifacts)}
}

func (s *IndexStore) user(id string) *userArtifacts {
	u, ok := s.users[id]
	if !ok {
		u = &userArtifacts{sources: make(map[string][]byte)}
		s.users[id] = u
	}
	return u
}

// LoadVectors returns the encoded vector index.
func (s *IndexStore) LoadVectors(_ context.Context, userID string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[userID]
	if !ok || u.vectors == nil {
		return nil, fmt.Errorf("vectors: %w", domain.ErrNotFound)
	}
	return append([]byte(nil), u.vectors...), nil
}

// SaveVectors replaces the encoded vector index.
func (s *IndexStore) SaveVectors(_ context.Context, userID string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user(userID).vectors = append([]byte{}, data...)
	return nil
}

// LoadChunks returns the ordered chunk list.
func (s *IndexStore) LoadChunks(_ context.Context, userID string) ([]domain.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[userID]
	if !ok || !u.hasIdx {
		return nil, fmt.Errorf("chunks: %w", domain.ErrNotFound)
	}
	return append([]domain.Chunk(nil), u.chunks...), nil
}

// SaveChunks replaces the ordered chunk list.
func (s *IndexStore) SaveChunks(_ context.Context, userID string, chunks []domain.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.user(userID)
	u.chunks = append([]domain.Chunk(nil), chunks...)
	u.hasIdx = true
	return nil
}

// LoadLedger returns the ledger.
func (s *IndexStore) LoadLedger(_ context.Context, userID string) (domain.Ledger, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[userID]
	if !ok {
		return domain.Ledger{}, nil
	}
	if u.broken {
		return nil, fmt.Errorf("parse ledger: %w", domain.ErrIndexCorrupt)
	}
	return append(domain.Ledger{}, u.ledger...), nil
}

// SaveLedger replaces the ledger.
func (s *IndexStore) SaveLedger(_ context.Context, userID string, ledger domain.Ledger) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.user(userID)
	u.ledger = append(domain.Ledger{}, ledger...)
	u.broken = false
	return nil
}

// ClearIndex deletes the vector and chunk artifacts.
func (s *IndexStore) ClearIndex(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[userID]; ok {
		u.vectors, u.chunks, u.hasIdx = nil, nil, false
	}
	return nil
}

// SaveSource stores an uploaded file.
func (s *IndexStore) SaveSource(_ context.Context, userID, filename string, r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("read upload: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user(userID).sources[filename] = data
	return nil
}

// ReadSource returns the bytes of an uploaded file.
func (s *IndexStore) ReadSource(_ context.Context, userID, filename string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if u, ok := s.users[userID]; ok {
		if data, ok := u.sources[filename]; ok {
			return append([]byte(nil), data...), nil
		}
	}
	return nil, fmt.Errorf("source %s: %w", filename, domain.ErrNotFound)
}

// RemoveSource deletes an uploaded file.
func (s *IndexStore) RemoveSource(_ context.Context, userID, filename string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[userID]; ok {
		delete(u.sources, filename)
	}
	return nil
}

// ListSources returns the user's uploaded file names, sorted.
func (s *IndexStore) ListSources(_ context.Context, userID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[userID]
	if !ok {
		return nil, nil
	}
	names := make([]string, 0, len(u.sources))
	for name := range u.sources {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Users lists users with stored state in sorted order.
func (s *IndexStore) Users(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.users))
	for id := range s.users {
		out = append(out, id)
	}
	sort.Strings(out)
	return out, nil
}

// Corrupt overwrites the stored vectors with data. Tests use it to
// simulate damaged artifacts.
func (s *IndexStore) Corrupt(userID string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user(userID).vectors = data
}

// CorruptLedger makes the ledger unreadable until it is next saved. Tests
// use it to simulate a damaged metadata file.
func (s *IndexStore) CorruptLedger(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user(userID).broken = true
}
