package store

import (
	"context"
	"sync"
	"time"
)

// Compile-time check to verify that MemoryStore implements ConfigRepository.
var _ ConfigRepository = (*MemoryStore)(nil)

// MemoryStore is an in-memory ConfigRepository for tests and single-node
// deployments without PostgreSQL.
type MemoryStore struct {
	mu      sync.RWMutex
	configs map[string]*ProfileConfig
}

// NewMemoryStore creates an empty in-memory repository.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{configs: make(map[string]*ProfileConfig)}
}

// GetConfig implements ConfigRepository.
func (s *MemoryStore) GetConfig(_ context.Context, realm string) (*ProfileConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	pc, ok := s.configs[realm]
	if !ok {
		return nil, ErrNotFound
	}

	out := *pc
	return &out, nil
}

// SetConfig implements ConfigRepository.
func (s *MemoryStore) SetConfig(_ context.Context, realm string, document *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if document == nil {
		delete(s.configs, realm)
		return nil
	}

	now := time.Now().UTC()
	if existing, ok := s.configs[realm]; ok {
		existing.Document = *document
		existing.Version++
		existing.UpdatedAt = now
		return nil
	}

	s.configs[realm] = &ProfileConfig{
		Realm:     realm,
		Document:  *document,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return nil
}

// ListVersions implements ConfigRepository.
func (s *MemoryStore) ListVersions(_ context.Context) (map[string]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	versions := make(map[string]int64, len(s.configs))
	for realm, pc := range s.configs {
		versions[realm] = pc.Version
	}
	return versions, nil
}
