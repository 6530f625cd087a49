package memory

import (
	"context"
	"sync"

	"github.com/custodia-labs/ragline/internal/core/domain"
	"github.com/custodia-labs/ragline/internal/core/ports/driven"
)

// Ensure ConversationStore implements the interface.
var _ driven.ConversationStore = (*ConversationStore)(nil)

// ConversationStore keeps conversations in memory, bounded per conversation.
type ConversationStore struct {
	mu       sync.RWMutex
	maxTurns int
	turns    map[string][]domain.ConversationTurn
}

// NewConversationStore creates a store keeping at most maxTurns turns per
// conversation. Zero means unbounded.
func NewConversationStore(maxTurns int) *ConversationStore {
	return &ConversationStore{
		maxTurns: maxTurns,
		turns:    make(map[string][]domain.ConversationTurn),
	}
}

// Append adds a turn, dropping the oldest beyond the bound.
func (s *ConversationStore) Append(_ context.Context, turn domain.ConversationTurn) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	turns := append(s.turns[turn.ConversationID], turn)
	if s.maxTurns > 0 && len(turns) > s.maxTurns {
		turns = append([]domain.ConversationTurn(nil), turns[len(turns)-s.maxTurns:]...)
	}
	s.turns[turn.ConversationID] = turns
	return nil
}

// Recent returns the latest turns, oldest first.
func (s *ConversationStore) Recent(
	_ context.Context, conversationID string, limit int,
) ([]domain.ConversationTurn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	turns := s.turns[conversationID]
	if limit > 0 && len(turns) > limit {
		turns = turns[len(turns)-limit:]
	}
	return append([]domain.ConversationTurn{}, turns...), nil
}

// Delete removes a conversation.
func (s *ConversationStore) Delete(_ context.Context, conversationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.turns, conversationID)
	return nil
}

// Close is a no-op.
func (s *ConversationStore) Close() error {
	return nil
}
