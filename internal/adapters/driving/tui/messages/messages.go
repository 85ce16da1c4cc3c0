// Package messages defines Bubbletea message types for the chat TUI.
package messages

import (
	"github.com/custodia-labs/kacey/internal/core/domain"
)

// ViewType identifies which view is currently active.
type ViewType int

const (
	// ViewChat is the transcript and question input.
	ViewChat ViewType = iota
	// ViewConversations lists past conversations.
	ViewConversations
)

// String returns the string representation of the view type.
func (v ViewType) String() string {
	switch v {
	case ViewChat:
		return "chat"
	case ViewConversations:
		return "conversations"
	default:
		return "unknown"
	}
}

// ViewChanged is sent when navigating between views.
type ViewChanged struct {
	View ViewType
}

// QuestionSubmitted is sent when the user sends a question.
type QuestionSubmitted struct {
	Question string
}

// TokenReceived carries one streamed fragment of the answer being generated.
type TokenReceived struct {
	Token string
}

// AnswerCompleted carries the outcome of a chat turn.
type AnswerCompleted struct {
	Reply *domain.ChatReply
	Err   error
}

// ConversationsLoaded carries the list of past conversations.
type ConversationsLoaded struct {
	Conversations []domain.Conversation
	Err           error
}

// ConversationSelected is sent when a past conversation is picked.
type ConversationSelected struct {
	Conversation domain.Conversation
}

// HistoryLoaded carries the messages of a resumed conversation.
type HistoryLoaded struct {
	ConversationID string
	Messages       []domain.Message
	Err            error
}

// ErrorOccurred signals that an error happened.
type ErrorOccurred struct {
	Err error
}
