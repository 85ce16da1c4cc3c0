package driven

import (
	"context"

	"github.com/custodia-labs/kacey/internal/core/domain"
)

// ConversationStore persists chat sessions and their messages.
type ConversationStore interface {
	// SaveConversation inserts or updates a conversation.
	SaveConversation(ctx context.Context, conv *domain.Conversation) error

	// GetConversation retrieves a conversation. Returns domain.ErrNotFound if absent.
	GetConversation(ctx context.Context, id string) (*domain.Conversation, error)

	// ListConversations returns conversations, most recently updated first.
	ListConversations(ctx context.Context) ([]domain.Conversation, error)

	// AppendMessage stores a message at the end of its conversation.
	AppendMessage(ctx context.Context, msg *domain.Message) error

	// ListMessages returns a conversation's messages in chronological order.
	ListMessages(ctx context.Context, conversationID string) ([]domain.Message, error)
}
