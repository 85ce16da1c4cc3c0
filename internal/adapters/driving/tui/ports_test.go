package tui

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/custodia-labs/kacey/internal/core/domain"
	"github.com/custodia-labs/kacey/internal/core/ports/driving"
)

// MockChatService implements driving.ChatService for testing.
type MockChatService struct {
	AskFunc           func(ctx context.Context, req driving.AskRequest) (*domain.ChatReply, error)
	HistoryFunc       func(ctx context.Context, conversationID string) ([]domain.Message, error)
	ConversationsFunc func(ctx context.Context) ([]domain.Conversation, error)
}

func (m *MockChatService) Ask(ctx context.Context, req driving.AskRequest) (*domain.ChatReply, error) {
	if m.AskFunc != nil {
		return m.AskFunc(ctx, req)
	}
	return &domain.ChatReply{
		Conversation: &domain.Conversation{ID: "conv"},
		Answer:       &domain.ComposedAnswer{Message: "answer", Sources: []domain.Metadata{}},
	}, nil
}

func (m *MockChatService) History(ctx context.Context, conversationID string) ([]domain.Message, error) {
	if m.HistoryFunc != nil {
		return m.HistoryFunc(ctx, conversationID)
	}
	return nil, nil
}

func (m *MockChatService) Conversations(ctx context.Context) ([]domain.Conversation, error) {
	if m.ConversationsFunc != nil {
		return m.ConversationsFunc(ctx)
	}
	return nil, nil
}

func TestPorts_Validate(t *testing.T) {
	assert.NoError(t, (&Ports{Chat: &MockChatService{}}).Validate())
	assert.ErrorIs(t, (&Ports{}).Validate(), ErrMissingChatService)

	var nilPorts *Ports
	assert.ErrorIs(t, nilPorts.Validate(), ErrMissingChatService)
}

func TestErrMissingChatService_Message(t *testing.T) {
	assert.Contains(t, ErrMissingChatService.Error(), "chat service")
}
