package storage

import (
	"context"
	"sync"
)

// MemoryStore keeps sets in process memory.
type MemoryStore struct {
	mu   sync.RWMutex
	sets map[string][]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sets: make(map[string][]string)}
}

func (s *MemoryStore) ReplaceSet(ctx context.Context, key string, members []string) error {
	unique := uniqueMembers(members)
	s.mu.Lock()
	s.sets[key] = unique
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) SetMembers(ctx context.Context, key string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	members := s.sets[key]
	out := make([]string, len(members))
	copy(out, members)
	return out, nil
}
