package chat

import (
	"context"
	"errors"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/kacey/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/kacey/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/kacey/internal/core/domain"
	"github.com/custodia-labs/kacey/internal/core/ports/driving"
)

func newTestView(chat driving.ChatService, scope string) *View {
	v := NewView(nil, nil, chat, scope)
	v.SetDimensions(100, 40)
	return v
}

// ask types question, presses enter and feeds the streamed messages back
// into the view until the turn completes.
func ask(t *testing.T, v *View, question string) {
	t.Helper()
	v.Input().SetValue(question)
	v, cmd := v.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)

	for v.Busy() {
		wait := v.waitForStream()
		require.NotNil(t, wait)
		msg := wait()
		if msg == nil {
			break
		}
		v, _ = v.Update(msg)
	}
}

func groundedReply(convID string) *domain.ChatReply {
	src := domain.NewChunkMetadata("Expense Policy", domain.ArtifactTypePDF)
	src[domain.MetaSimilarity] = 0.91
	return &domain.ChatReply{
		Conversation: &domain.Conversation{ID: convID, Title: "Expenses"},
		Answer: &domain.ComposedAnswer{
			Message:    "Managers approve expenses [Source 1].",
			Sources:    []domain.Metadata{src},
			Confidence: domain.DefaultConfidence,
		},
	}
}

func TestChatView_StreamsAnswer(t *testing.T) {
	chat := &mockChat{reply: groundedReply("conv-1"), tokens: []string{"Managers ", "approve ", "expenses [Source 1]."}}
	v := newTestView(chat, "")

	ask(t, v, "Who approves expenses?")

	entries := v.Transcript().Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "Who approves expenses?", entries[0].Content)
	assert.Equal(t, "Managers approve expenses [Source 1].", entries[1].Content)
	assert.Len(t, entries[1].Sources, 1)
	assert.False(t, entries[1].Pending)

	assert.Equal(t, "conv-1", v.ConversationID())
	assert.Equal(t, status.StateReady, v.statusbar.State())
	assert.Equal(t, "Expenses", v.statusbar.Message())
	assert.Empty(t, v.Input().Value())
	assert.Contains(t, v.View(), "[1] Expense Policy (0.91)")
}

func TestChatView_ContinuesConversation(t *testing.T) {
	chat := &mockChat{reply: groundedReply("conv-1")}
	v := newTestView(chat, "finance")

	ask(t, v, "first")
	ask(t, v, "second")

	reqs := chat.requests()
	require.Len(t, reqs, 2)
	assert.Empty(t, reqs[0].ConversationID)
	assert.Equal(t, "finance", reqs[0].ScopeID)
	assert.Equal(t, "conv-1", reqs[1].ConversationID)
	assert.Len(t, v.Transcript().Entries(), 4)
}

func TestChatView_IgnoresEmptyQuestion(t *testing.T) {
	chat := &mockChat{}
	v := newTestView(chat, "")

	v.Input().SetValue("   ")
	_, cmd := v.Update(tea.KeyMsg{Type: tea.KeyEnter})

	assert.Nil(t, cmd)
	assert.False(t, v.Busy())
	assert.Empty(t, chat.requests())
}

func TestChatView_OneTurnAtATime(t *testing.T) {
	chat := &mockChat{reply: groundedReply("conv-1"), block: make(chan struct{})}
	v := newTestView(chat, "")

	v.Input().SetValue("first")
	v.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.True(t, v.Busy())

	v.Input().SetValue("second")
	_, cmd := v.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd)
	assert.Equal(t, "second", v.Input().Value())

	close(chat.block)
	for v.Busy() {
		if msg := v.waitForStream()(); msg != nil {
			v.Update(msg)
		}
	}
	assert.Len(t, chat.requests(), 1)
}

func TestChatView_DegradedReplies(t *testing.T) {
	tests := []struct {
		name  string
		reply *domain.ChatReply
		note  string
	}{
		{
			name: "generation failed",
			reply: &domain.ChatReply{
				Conversation:     &domain.Conversation{ID: "c"},
				Answer:           &domain.ComposedAnswer{Message: domain.FallbackAnswer, Sources: []domain.Metadata{}},
				GenerationFailed: true,
			},
			note: noteGenerationFailed,
		},
		{
			name: "retrieval degraded",
			reply: &domain.ChatReply{
				Conversation:      &domain.Conversation{ID: "c"},
				Answer:            &domain.ComposedAnswer{Message: "General answer.", Sources: []domain.Metadata{}},
				RetrievalDegraded: true,
			},
			note: noteRetrievalFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := newTestView(&mockChat{reply: tt.reply}, "")

			ask(t, v, "q")

			last := v.Transcript().Entries()[1]
			assert.Equal(t, tt.reply.Answer.Message, last.Content)
			assert.Equal(t, tt.note, last.Note)
			assert.Equal(t, status.StateDegraded, v.statusbar.State())
		})
	}
}

func TestChatView_AskError(t *testing.T) {
	v := newTestView(&mockChat{err: domain.ErrInvalidInput}, "")

	ask(t, v, "q")

	assert.ErrorIs(t, v.Err(), domain.ErrInvalidInput)
	assert.Equal(t, status.StateError, v.statusbar.State())
	assert.Contains(t, v.Transcript().Entries()[1].Note, "Error:")
	assert.False(t, v.Busy())
}

func TestChatView_NoChatService(t *testing.T) {
	v := newTestView(nil, "")
	v.Input().SetValue("q")

	_, cmd := v.Update(tea.KeyMsg{Type: tea.KeyEnter})

	assert.Nil(t, cmd)
	assert.ErrorIs(t, v.Err(), ErrNoChatService)
}

func TestChatView_NewConversation(t *testing.T) {
	v := newTestView(&mockChat{reply: groundedReply("conv-1")}, "ops")
	ask(t, v, "q")

	v.Update(tea.KeyMsg{Type: tea.KeyCtrlN})

	assert.Empty(t, v.ConversationID())
	assert.Empty(t, v.Transcript().Entries())
	assert.Equal(t, "ops", v.ScopeID())
}

func TestChatView_OpenConversations(t *testing.T) {
	v := newTestView(&mockChat{}, "")

	_, cmd := v.Update(tea.KeyMsg{Type: tea.KeyCtrlO})

	require.NotNil(t, cmd)
	assert.Equal(t, messages.ViewChanged{View: messages.ViewConversations}, cmd())
}

func TestChatView_ToggleSources(t *testing.T) {
	v := newTestView(&mockChat{reply: groundedReply("conv-1")}, "")
	ask(t, v, "q")

	v.Update(tea.KeyMsg{Type: tea.KeyCtrlS})
	assert.NotContains(t, v.View(), "Expense Policy")
	assert.Equal(t, "Sources hidden", v.statusbar.Message())

	v.Update(tea.KeyMsg{Type: tea.KeyCtrlS})
	assert.Contains(t, v.View(), "Expense Policy")
}

func TestChatView_Resume(t *testing.T) {
	chat := &mockChat{
		reply: groundedReply("conv-7"),
		history: []domain.Message{
			{Role: domain.RoleUser, Content: "Where is the VPN guide?"},
			{Role: domain.RoleAssistant, Content: "In the IT wiki."},
		},
	}
	v := newTestView(chat, "")

	cmd := v.Resume(domain.Conversation{ID: "conv-7", Title: "VPN", ScopeID: "it"})
	require.NotNil(t, cmd)
	v.Update(cmd())

	assert.Equal(t, "conv-7", v.ConversationID())
	assert.Equal(t, "it", v.ScopeID())
	assert.Len(t, v.Transcript().Entries(), 2)

	ask(t, v, "And the MFA policy?")
	reqs := chat.requests()
	assert.Equal(t, "conv-7", reqs[0].ConversationID)
	assert.Equal(t, "it", reqs[0].ScopeID)
}

func TestChatView_ResumeError(t *testing.T) {
	v := newTestView(&mockChat{err: domain.ErrNotFound}, "")

	v.Update(v.Resume(domain.Conversation{ID: "gone"})())

	assert.ErrorIs(t, v.Err(), domain.ErrNotFound)
}

func TestChatView_NotReady(t *testing.T) {
	v := NewView(nil, nil, &mockChat{}, "")

	assert.Equal(t, "Initialising...", v.View())
	assert.False(t, v.Ready())
}

// --- Mock implementations ---

type mockChat struct {
	reply   *domain.ChatReply
	tokens  []string
	history []domain.Message
	err     error
	block   chan struct{}

	mu   sync.Mutex
	reqs []driving.AskRequest
}

func (m *mockChat) Ask(_ context.Context, req driving.AskRequest) (*domain.ChatReply, error) {
	m.mu.Lock()
	m.reqs = append(m.reqs, req)
	m.mu.Unlock()

	if m.block != nil {
		<-m.block
	}
	if m.err != nil {
		return nil, m.err
	}
	if req.OnToken != nil {
		for _, tok := range m.tokens {
			if err := req.OnToken(tok); err != nil {
				return nil, err
			}
		}
	}
	return m.reply, nil
}

func (m *mockChat) History(context.Context, string) ([]domain.Message, error) {
	return m.history, m.err
}

func (m *mockChat) Conversations(context.Context) ([]domain.Conversation, error) {
	return nil, errors.New("not used")
}

func (m *mockChat) requests() []driving.AskRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]driving.AskRequest(nil), m.reqs...)
}
