package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/custodia-labs/kacey/internal/core/domain"
	"github.com/custodia-labs/kacey/internal/core/ports/driven"
	"github.com/custodia-labs/kacey/internal/core/ports/driving"
	"github.com/custodia-labs/kacey/internal/logger"
)

// Ensure ChatService implements the interface.
var _ driving.ChatService = (*ChatService)(nil)

// maxTitleRunes bounds conversation titles derived from the first question.
const maxTitleRunes = 60

// ChatService runs one retrieval-augmented chat turn at a time and keeps the
// conversation history.
type ChatService struct {
	conversations driven.ConversationStore
	retrieval     driving.RetrievalService
	composer      driving.AnswerComposer
	limit         int

	now   func() time.Time
	newID func() string
}

// NewChatService creates a chat service. limit is the number of chunks
// retrieved per turn; zero means domain.DefaultRetrievalLimit.
func NewChatService(
	conversations driven.ConversationStore,
	retrieval driving.RetrievalService,
	composer driving.AnswerComposer,
	limit int,
) *ChatService {
	if limit <= 0 {
		limit = domain.DefaultRetrievalLimit
	}
	return &ChatService{
		conversations: conversations,
		retrieval:     retrieval,
		composer:      composer,
		limit:         limit,
		now:           func() time.Time { return time.Now().UTC() },
		newID:         uuid.NewString,
	}
}

// Ask answers one question.
//
// The user message is persisted before anything else can fail. A retrieval
// failure degrades to composing without context; a generation failure
// persists domain.FallbackAnswer as the assistant reply.
func (s *ChatService) Ask(ctx context.Context, req driving.AskRequest) (*domain.ChatReply, error) {
	logger.Section("Chat")

	question := strings.TrimSpace(req.Question)
	if question == "" {
		return nil, fmt.Errorf("%w: question is empty", domain.ErrInvalidInput)
	}

	conv, prior, err := s.openConversation(ctx, req.ConversationID, req.ScopeID, question)
	if err != nil {
		return nil, err
	}

	userMsg := &domain.Message{
		ID:             s.newID(),
		ConversationID: conv.ID,
		Role:           domain.RoleUser,
		Content:        question,
		CreatedAt:      s.now(),
	}
	if err := s.conversations.AppendMessage(ctx, userMsg); err != nil {
		return nil, fmt.Errorf("save user message: %w", err)
	}

	reply := &domain.ChatReply{Conversation: conv, UserMessage: userMsg}

	results, err := s.retrieval.Retrieve(ctx, question, s.limit, conv.ScopeID)
	if err != nil {
		if ctx.Err() != nil {
			return reply, ctx.Err()
		}
		logger.Warn("Retrieval failed, answering without context: %v", err)
		reply.RetrievalDegraded = true
		results = nil
	}
	logger.Debug("Context: %d chunks", len(results))

	history := make([]domain.ConversationTurn, 0, len(prior)+1)
	for _, m := range prior {
		if m.Role == domain.RoleUser || m.Role == domain.RoleAssistant {
			history = append(history, m.Turn())
		}
	}
	history = append(history, userMsg.Turn())

	chunks := domain.ContextFromResults(results)
	var answer *domain.ComposedAnswer
	if req.OnToken != nil {
		answer, err = s.composer.ComposeStream(ctx, history, chunks, req.OnToken)
	} else {
		answer, err = s.composer.Compose(ctx, history, chunks)
	}
	if err != nil {
		if !errors.Is(err, domain.ErrGenerationFailure) {
			return reply, fmt.Errorf("compose answer: %w", err)
		}
		logger.Warn("Generation failed, storing fallback reply: %v", err)
		reply.GenerationFailed = true
		answer = &domain.ComposedAnswer{Message: domain.FallbackAnswer, Sources: []domain.Metadata{}}
	}
	reply.Answer = answer

	assistantMsg := &domain.Message{
		ID:             s.newID(),
		ConversationID: conv.ID,
		Role:           domain.RoleAssistant,
		Content:        answer.Message,
		Sources:        answer.Sources,
		Confidence:     answer.Confidence,
		CreatedAt:      s.now(),
	}
	// A cancelled request still records the reply it already produced.
	if err := s.conversations.AppendMessage(context.WithoutCancel(ctx), assistantMsg); err != nil {
		return reply, fmt.Errorf("save assistant message: %w", err)
	}
	reply.AssistantMessage = assistantMsg

	conv.UpdatedAt = assistantMsg.CreatedAt
	if err := s.conversations.SaveConversation(context.WithoutCancel(ctx), conv); err != nil {
		logger.Warn("Updating conversation %s timestamp: %v", conv.ID, err)
	}

	return reply, nil
}

// History returns a conversation's messages in order.
func (s *ChatService) History(ctx context.Context, conversationID string) ([]domain.Message, error) {
	if _, err := s.conversations.GetConversation(ctx, conversationID); err != nil {
		return nil, err
	}
	return s.conversations.ListMessages(ctx, conversationID)
}

// Conversations lists chat sessions, most recent first.
func (s *ChatService) Conversations(ctx context.Context) ([]domain.Conversation, error) {
	return s.conversations.ListConversations(ctx)
}

// openConversation loads an existing conversation with its messages, or
// creates a new one scoped to scopeID.
func (s *ChatService) openConversation(
	ctx context.Context, id, scopeID, question string,
) (*domain.Conversation, []domain.Message, error) {
	if id != "" {
		conv, err := s.conversations.GetConversation(ctx, id)
		if err != nil {
			return nil, nil, fmt.Errorf("load conversation %s: %w", id, err)
		}
		prior, err := s.conversations.ListMessages(ctx, id)
		if err != nil {
			return nil, nil, fmt.Errorf("load messages: %w", err)
		}
		return conv, prior, nil
	}

	now := s.now()
	conv := &domain.Conversation{
		ID:        s.newID(),
		Title:     conversationTitle(question),
		ScopeID:   scopeID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.conversations.SaveConversation(ctx, conv); err != nil {
		return nil, nil, fmt.Errorf("create conversation: %w", err)
	}
	logger.Debug("Started conversation %s (scope %q)", conv.ID, scopeID)
	return conv, nil, nil
}

// conversationTitle shortens the opening question to a title.
func conversationTitle(question string) string {
	title := strings.Join(strings.Fields(question), " ")
	if utf8.RuneCountInString(title) <= maxTitleRunes {
		return title
	}
	runes := []rune(title)
	return strings.TrimSpace(string(runes[:maxTitleRunes-3])) + "..."
}
