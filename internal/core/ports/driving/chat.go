package driving

import (
	"context"

	"github.com/custodia-labs/kacey/internal/core/domain"
)

// AskRequest is one chat turn.
type AskRequest struct {
	// ConversationID continues an existing conversation. Empty starts a new one.
	ConversationID string

	// Question is the new user message.
	Question string

	// ScopeID scopes a new conversation. Ignored when continuing one.
	ScopeID string

	// OnToken, when set, streams the reply as it is generated.
	OnToken func(string) error
}

// ChatService runs chat turns against the knowledge base.
type ChatService interface {
	// Ask persists the question, retrieves context, composes an answer and
	// persists the reply. Retrieval failures degrade to an empty context and
	// generation failures to a fallback reply; the question is never lost.
	Ask(ctx context.Context, req AskRequest) (*domain.ChatReply, error)

	// History returns a conversation's messages in order.
	History(ctx context.Context, conversationID string) ([]domain.Message, error)

	// Conversations lists chat sessions, most recent first.
	Conversations(ctx context.Context) ([]domain.Conversation, error)
}
