package conversation

import (
	"context"
	"sync"

	"CoinMentor/internal/domain/models"
)

// MemoryStore keeps conversation history per advisor in process memory.
type MemoryStore struct {
	mu       sync.RWMutex
	messages map[string][]models.Message
}

// NewMemoryStore creates an in-memory conversation store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		messages: make(map[string][]models.Message),
	}
}

func (s *MemoryStore) Get(_ context.Context, advisor string) ([]models.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history := s.messages[advisor]
	out := make([]models.Message, len(history))
	copy(out, history)
	return out, nil
}

func (s *MemoryStore) Append(_ context.Context, advisor string, msgs ...models.Message) error {
	if len(msgs) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.messages[advisor] = append(s.messages[advisor], msgs...)
	return nil
}

func (s *MemoryStore) Reset(_ context.Context, advisor string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.messages, advisor)
	return nil
}

func (s *MemoryStore) ResetAll(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.messages = make(map[string][]models.Message)
	return nil
}
