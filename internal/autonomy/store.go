package autonomy

import (
	"context"
	"sync"
)

// Store provides the gateway's read/write access to per-user autonomy
// policies. Get must return a usable policy for every user: unknown users
// fall back to the default preset.
type Store interface {
	Get(ctx context.Context, userID string) (Policy, error)
	Put(ctx context.Context, userID string, p Policy) error
}

// MemoryStore is an in-process Store for tests and single-node deployments
// without Postgres.
type MemoryStore struct {
	mu       sync.RWMutex
	policies map[string]Policy
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{policies: make(map[string]Policy)}
}

func (s *MemoryStore) Get(_ context.Context, userID string) (Policy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if p, ok := s.policies[userID]; ok {
		return p, nil
	}
	return DefaultPolicy(), nil
}

func (s *MemoryStore) Put(_ context.Context, userID string, p Policy) error {
	if err := p.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.policies[userID] = p
	return nil
}
