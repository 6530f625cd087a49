package driven

import (
	"context"

	"github.com/custodia-labs/ragline/internal/core/domain"
)

// ConversationStore persists conversation turns between requests.
type ConversationStore interface {
	// Append adds a turn to its conversation.
	Append(ctx context.Context, turn domain.ConversationTurn) error

	// Recent returns up to limit of the latest turns, oldest first.
	// An unknown conversation returns an empty slice, not an error.
	Recent(ctx context.Context, conversationID string, limit int) ([]domain.ConversationTurn, error)

	// Delete removes a conversation.
	Delete(ctx context.Context, conversationID string) error

	// Close releases resources.
	Close() error
}
