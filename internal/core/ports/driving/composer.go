package driving

import (
	"context"

	"github.com/custodia-labs/kacey/internal/core/domain"
)

// AnswerComposer produces grounded answers from retrieved context.
type AnswerComposer interface {
	// Compose issues one generation call over history, whose last entry is
	// the new user turn, with chunks as numbered sources.
	Compose(ctx context.Context, history []domain.ConversationTurn, chunks []domain.ContextChunk) (*domain.ComposedAnswer, error)

	// ComposeStream is Compose with the reply delivered incrementally to onToken.
	ComposeStream(
		ctx context.Context,
		history []domain.ConversationTurn,
		chunks []domain.ContextChunk,
		onToken func(string) error,
	) (*domain.ComposedAnswer, error)
}
