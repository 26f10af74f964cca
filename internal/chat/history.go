package chat

import (
	"context"
	"sync"
)

// HistoryStore persists per-persona conversation history. A missing
// conversation loads as an empty history, not an error.
type HistoryStore interface {
	Load(ctx context.Context, personaID string) ([]Message, error)
	Append(ctx context.Context, personaID string, msgs ...Message) ([]Message, error)
	Clear(ctx context.Context, personaID string) error
}

// MemoryHistoryStore keeps conversations in process memory. It backs
// single-node deployments and tests.
type MemoryHistoryStore struct {
	mu       sync.RWMutex
	byPersona map[string][]Message
}

// NewMemoryHistoryStore creates an empty in-memory history store.
func NewMemoryHistoryStore() *MemoryHistoryStore {
	return &MemoryHistoryStore{byPersona: make(map[string][]Message)}
}

func (s *MemoryHistoryStore) Load(_ context.Context, personaID string) ([]Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stored := s.byPersona[personaID]
	out := make([]Message, len(stored))
	copy(out, stored)
	return out, nil
}

func (s *MemoryHistoryStore) Append(_ context.Context, personaID string, msgs ...Message) ([]Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byPersona[personaID] = append(s.byPersona[personaID], msgs...)
	out := make([]Message, len(s.byPersona[personaID]))
	copy(out, s.byPersona[personaID])
	return out, nil
}

func (s *MemoryHistoryStore) Clear(_ context.Context, personaID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.byPersona, personaID)
	return nil
}
