package tui

import (
	"context"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/kacey/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/kacey/internal/core/domain"
)

func newTestApp(t *testing.T, chat *MockChatService) *App {
	t.Helper()
	app, err := NewApp(&Ports{Chat: chat}, "ops")
	require.NoError(t, err)
	app.SetDimensions(100, 30)
	return app
}

func TestNewApp(t *testing.T) {
	app, err := NewApp(&Ports{Chat: &MockChatService{}}, "")

	require.NoError(t, err)
	assert.Equal(t, messages.ViewChat, app.CurrentView())
	assert.False(t, app.Ready())
	assert.Equal(t, "Initialising...", app.View())
}

func TestNewApp_InvalidPorts(t *testing.T) {
	app, err := NewApp(&Ports{}, "")

	assert.ErrorIs(t, err, ErrMissingChatService)
	assert.Nil(t, app)
}

func TestApp_WithContext(t *testing.T) {
	type ctxKey struct{}
	ctx := context.WithValue(context.Background(), ctxKey{}, "v")

	var seen context.Context
	chat := &MockChatService{HistoryFunc: func(ctx context.Context, _ string) ([]domain.Message, error) {
		seen = ctx
		return nil, nil
	}}
	app := newTestApp(t, chat).WithContext(ctx)

	_, cmd := app.Update(messages.ConversationSelected{Conversation: domain.Conversation{ID: "c1"}})
	require.NotNil(t, cmd)
	cmd()

	assert.Equal(t, "v", seen.Value(ctxKey{}))
}

func TestApp_Init(t *testing.T) {
	app := newTestApp(t, &MockChatService{})
	assert.NotNil(t, app.Init())
}

func TestApp_WindowSize(t *testing.T) {
	app, err := NewApp(&Ports{Chat: &MockChatService{}}, "")
	require.NoError(t, err)

	app.Update(tea.WindowSizeMsg{Width: 120, Height: 40})

	assert.True(t, app.Ready())
	assert.Contains(t, app.View(), "Kacey")
}

func TestApp_CtrlCQuits(t *testing.T) {
	app := newTestApp(t, &MockChatService{})

	_, cmd := app.Update(tea.KeyMsg{Type: tea.KeyCtrlC})

	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestApp_ConversationsRoundTrip(t *testing.T) {
	chat := &MockChatService{
		ConversationsFunc: func(context.Context) ([]domain.Conversation, error) {
			return []domain.Conversation{{ID: "c1", Title: "Release process", ScopeID: "eng"}}, nil
		},
		HistoryFunc: func(_ context.Context, id string) ([]domain.Message, error) {
			return []domain.Message{
				{ConversationID: id, Role: domain.RoleUser, Content: "How do we release?"},
				{ConversationID: id, Role: domain.RoleAssistant, Content: "Tag main."},
			}, nil
		},
	}
	app := newTestApp(t, chat)

	// ctrl+o from the chat view asks for the conversation list.
	_, cmd := app.Update(tea.KeyMsg{Type: tea.KeyCtrlO})
	require.NotNil(t, cmd)
	_, cmd = app.Update(cmd())
	assert.Equal(t, messages.ViewConversations, app.CurrentView())

	require.NotNil(t, cmd)
	app.Update(cmd())
	assert.Contains(t, app.View(), "Release process")

	_, cmd = app.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	_, cmd = app.Update(cmd())
	assert.Equal(t, messages.ViewChat, app.CurrentView())

	require.NotNil(t, cmd)
	app.Update(cmd())
	assert.Equal(t, "c1", app.ChatView().ConversationID())
	assert.Equal(t, "eng", app.ChatView().ScopeID())
	assert.Contains(t, app.View(), "Tag main.")
}

func TestApp_EscReturnsToChat(t *testing.T) {
	app := newTestApp(t, &MockChatService{})
	app.Update(messages.ViewChanged{View: messages.ViewConversations})

	_, cmd := app.Update(tea.KeyMsg{Type: tea.KeyEsc})
	require.NotNil(t, cmd)
	app.Update(cmd())

	assert.Equal(t, messages.ViewChat, app.CurrentView())
}

func TestApp_AnswerRoutedWhileBrowsing(t *testing.T) {
	app := newTestApp(t, &MockChatService{})
	app.Update(messages.ViewChanged{View: messages.ViewConversations})

	app.Update(messages.AnswerCompleted{Reply: &domain.ChatReply{
		Conversation: &domain.Conversation{ID: "late"},
		Answer:       &domain.ComposedAnswer{Message: "done"},
	}})

	assert.Equal(t, "late", app.ChatView().ConversationID())
}
