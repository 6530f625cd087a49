// Package messages defines Bubbletea message types for the chat TUI.
package messages

import (
	"github.com/custodia-labs/ragline/internal/core/domain"
)

// QuestionSubmitted is sent when the user presses enter on a non-empty input.
type QuestionSubmitted struct {
	Question string
}

// AnswerReceived carries the result of one query back to the model.
type AnswerReceived struct {
	Question string
	Turn     *domain.ConversationTurn
	Err      error
}

// StatsLoaded carries vector store statistics shown in the header.
type StatsLoaded struct {
	Stats *domain.IndexStats
	Err   error
}

// ConversationReset is sent when the user starts a new conversation.
type ConversationReset struct{}

// ViewType identifies which view is currently active.
type ViewType int

const (
	// ViewChat is the transcript and input.
	ViewChat ViewType = iota
	// ViewHelp lists keybindings.
	ViewHelp
)

// String returns the string representation of the view type.
func (v ViewType) String() string {
	switch v {
	case ViewChat:
		return "chat"
	case ViewHelp:
		return "help"
	default:
		return "unknown"
	}
}

// ViewChanged is sent when navigating between views.
type ViewChanged struct {
	View ViewType
}

// ErrorOccurred signals that an error happened.
type ErrorOccurred struct {
	Err error
}
