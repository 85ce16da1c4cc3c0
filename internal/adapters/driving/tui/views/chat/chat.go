// Package chat provides the conversation view: a streaming transcript above
// a question input.
package chat

import (
	"context"
	"errors"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/kacey/internal/adapters/driving/tui/components/input"
	"github.com/custodia-labs/kacey/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/kacey/internal/adapters/driving/tui/components/transcript"
	"github.com/custodia-labs/kacey/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/kacey/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/kacey/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/kacey/internal/core/domain"
	"github.com/custodia-labs/kacey/internal/core/ports/driving"
)

// ErrNoChatService indicates that no chat service was provided.
var ErrNoChatService = errors.New("chat service is required")

const (
	noteGenerationFailed = "The language model did not respond; try again shortly."
	noteRetrievalFailed  = "The knowledge base was unavailable; this answer has no sources."
)

// View is the chat view.
type View struct {
	styles     *styles.Styles
	keymap     *keymap.KeyMap
	input      *input.QuestionInput
	transcript *transcript.Transcript
	statusbar  *status.Bar

	chat driving.ChatService
	ctx  context.Context

	conversationID string
	scopeID        string
	stream         <-chan tea.Msg

	width  int
	height int
	ready  bool
	err    error
}

// NewView creates a chat view. scopeID restricts retrieval for new conversations.
func NewView(s *styles.Styles, km *keymap.KeyMap, chat driving.ChatService, scopeID string) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}

	bar := status.NewBar(s, km)
	bar.SetScope(scopeID)

	return &View{
		styles:     s,
		keymap:     km,
		input:      input.NewQuestionInput(s),
		transcript: transcript.New(s),
		statusbar:  bar,
		chat:       chat,
		ctx:        context.Background(),
		scopeID:    scopeID,
		width:      80,
		height:     24,
	}
}

// WithContext sets the context chat turns run under.
func (v *View) WithContext(ctx context.Context) *View {
	v.ctx = ctx
	return v
}

// Init initialises the view.
func (v *View) Init() tea.Cmd {
	return v.input.Init()
}

// Update handles messages for the chat view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case tea.KeyMsg:
		return v.handleKeyMsg(msg)

	case messages.TokenReceived:
		cmd := v.statusbar.SetState(status.StateStreaming)
		v.transcript.AppendToken(msg.Token)
		return v, tea.Batch(cmd, v.waitForStream())

	case messages.AnswerCompleted:
		v.handleAnswer(msg)
		return v, nil

	case messages.HistoryLoaded:
		v.handleHistory(msg)
		return v, nil

	case messages.ErrorOccurred:
		v.setError(msg.Err)
		return v, nil
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd
	v.statusbar, cmd = v.statusbar.Update(msg)
	cmds = append(cmds, cmd)
	v.input, cmd = v.input.Update(msg)
	cmds = append(cmds, cmd)
	return v, tea.Batch(cmds...)
}

func (v *View) handleKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	key := msg.String()

	switch {
	case keymap.Matches(key, v.keymap.Send):
		return v, v.submit()

	case keymap.Matches(key, v.keymap.NewConversation):
		if !v.Busy() {
			v.Reset()
		}
		return v, nil

	case keymap.Matches(key, v.keymap.Conversations):
		if v.Busy() {
			return v, nil
		}
		return v, func() tea.Msg {
			return messages.ViewChanged{View: messages.ViewConversations}
		}

	case keymap.Matches(key, v.keymap.ToggleSources):
		if v.transcript.ToggleSources() {
			v.statusbar.SetMessage("Sources shown")
		} else {
			v.statusbar.SetMessage("Sources hidden")
		}
		return v, nil

	case keymap.Matches(key, v.keymap.PageUp), keymap.Matches(key, v.keymap.PageDown):
		var cmd tea.Cmd
		v.transcript, cmd = v.transcript.Update(msg)
		return v, cmd
	}

	var cmd tea.Cmd
	v.input, cmd = v.input.Update(msg)
	return v, cmd
}

// submit sends the typed question, unless a turn is already in flight.
func (v *View) submit() tea.Cmd {
	question := v.input.Value()
	if question == "" || v.Busy() {
		return nil
	}
	if v.chat == nil {
		v.setError(ErrNoChatService)
		return nil
	}

	v.err = nil
	v.input.Reset()
	v.transcript.AddQuestion(question)
	spin := v.statusbar.SetState(status.StateThinking)

	v.stream = v.ask(question)
	return tea.Batch(spin, v.waitForStream())
}

// ask runs one chat turn in the background. Streamed tokens and the final
// reply arrive on the returned channel, which is closed afterwards.
func (v *View) ask(question string) <-chan tea.Msg {
	ch := make(chan tea.Msg, 32)
	ctx := v.ctx
	req := driving.AskRequest{
		ConversationID: v.conversationID,
		Question:       question,
		ScopeID:        v.scopeID,
		OnToken: func(token string) error {
			select {
			case ch <- messages.TokenReceived{Token: token}:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		},
	}

	go func() {
		defer close(ch)
		reply, err := v.chat.Ask(ctx, req)
		select {
		case ch <- messages.AnswerCompleted{Reply: reply, Err: err}:
		case <-ctx.Done():
		}
	}()
	return ch
}

func (v *View) waitForStream() tea.Cmd {
	ch := v.stream
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		msg, ok := <-ch
		if !ok {
			return nil
		}
		return msg
	}
}

func (v *View) handleAnswer(msg messages.AnswerCompleted) {
	v.stream = nil

	if msg.Err != nil {
		v.transcript.Complete("", nil, "Error: "+msg.Err.Error())
		v.setError(msg.Err)
		return
	}

	reply := msg.Reply
	if reply.Conversation != nil {
		v.conversationID = reply.Conversation.ID
		v.scopeID = reply.Conversation.ScopeID
		v.statusbar.SetScope(v.scopeID)
	}

	var note string
	switch {
	case reply.GenerationFailed:
		note = noteGenerationFailed
	case reply.RetrievalDegraded:
		note = noteRetrievalFailed
	}

	answer := domain.FallbackAnswer
	var sources []domain.Metadata
	if reply.Answer != nil {
		answer = reply.Answer.Message
		sources = reply.Answer.Sources
	}
	v.transcript.Complete(answer, sources, note)

	if note != "" {
		v.statusbar.SetState(status.StateDegraded)
		v.statusbar.SetMessage("Degraded answer")
		return
	}
	v.statusbar.SetState(status.StateReady)
	if reply.Conversation != nil {
		v.statusbar.SetMessage(reply.Conversation.Title)
	}
}

func (v *View) handleHistory(msg messages.HistoryLoaded) {
	if msg.Err != nil {
		v.setError(msg.Err)
		return
	}
	v.conversationID = msg.ConversationID
	v.transcript.SetMessages(msg.Messages)
	v.statusbar.SetState(status.StateReady)
}

// Resume switches to an existing conversation and loads its history.
func (v *View) Resume(conv domain.Conversation) tea.Cmd {
	v.Reset()
	v.conversationID = conv.ID
	v.scopeID = conv.ScopeID
	v.statusbar.SetScope(conv.ScopeID)
	v.statusbar.SetMessage(conv.Title)

	chat, ctx := v.chat, v.ctx
	return func() tea.Msg {
		if chat == nil {
			return messages.ErrorOccurred{Err: ErrNoChatService}
		}
		history, err := chat.History(ctx, conv.ID)
		return messages.HistoryLoaded{ConversationID: conv.ID, Messages: history, Err: err}
	}
}

func (v *View) setError(err error) {
	v.err = err
	v.statusbar.SetState(status.StateError)
	v.statusbar.SetMessage(err.Error())
}

// View renders the chat view.
func (v *View) View() string {
	if !v.ready {
		return "Initialising..."
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		v.styles.Title.Render("Kacey"),
		"",
		v.transcript.View(),
		"",
		v.input.View(),
		v.statusbar.View(),
	)
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.ready = true

	v.input.SetWidth(width)
	// Title, spacers, bordered input and status bar.
	v.transcript.SetDimensions(width, height-8)
	v.statusbar.SetWidth(width)
}

// Reset starts a fresh conversation in the current scope.
func (v *View) Reset() {
	v.conversationID = ""
	v.err = nil
	v.transcript.Clear()
	v.input.Reset()
	v.input.Focus()
	v.statusbar.Clear()
}

// ConversationID returns the active conversation, or "" before the first answer.
func (v *View) ConversationID() string {
	return v.conversationID
}

// ScopeID returns the retrieval scope of the active conversation.
func (v *View) ScopeID() string {
	return v.scopeID
}

// Busy reports whether a turn is in flight.
func (v *View) Busy() bool {
	return v.stream != nil
}

// Transcript exposes the rendered history.
func (v *View) Transcript() *transcript.Transcript {
	return v.transcript
}

// Input exposes the question input.
func (v *View) Input() *input.QuestionInput {
	return v.input
}

// Err returns the current error, if any.
func (v *View) Err() error {
	return v.err
}

// Ready returns whether the view is ready to render.
func (v *View) Ready() bool {
	return v.ready
}
