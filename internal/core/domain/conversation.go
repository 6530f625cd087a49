package domain

import "time"

// Message roles used in conversation history.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// HistoryMessage is a prior message supplied with a query.
type HistoryMessage struct {
	// Role is one of "user" or "assistant".
	Role string `json:"role"`

	// Content is the message text.
	Content string `json:"content"`
}

// ConversationTurn is one question with its retrieved context and answer.
type ConversationTurn struct {
	// ID uniquely identifies this turn.
	ID string `json:"id"`

	// ConversationID groups turns of the same conversation.
	ConversationID string `json:"conversation_id"`

	// Query is the user question.
	Query string `json:"query"`

	// Retrieved is the ranked context used for the answer.
	Retrieved []RetrievalResult `json:"retrieved"`

	// Answer is the generated (or fallback) answer text.
	Answer string `json:"answer"`

	// Citations map prompt labels to sources.
	Citations []Citation `json:"citations"`

	// GroundedOnContext is false when the answer was produced without context.
	GroundedOnContext bool `json:"grounded_on_context"`

	// Timestamp is when the turn completed.
	Timestamp time.Time `json:"timestamp"`
}

// AsHistory converts a turn into the user/assistant message pair.
func (t ConversationTurn) AsHistory() []HistoryMessage {
	return []HistoryMessage{
		{Role: RoleUser, Content: t.Query},
		{Role: RoleAssistant, Content: t.Answer},
	}
}
