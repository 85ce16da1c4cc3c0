// Package conversations provides the view for resuming a past conversation.
package conversations

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/kacey/internal/adapters/driving/tui/components/list"
	"github.com/custodia-labs/kacey/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/kacey/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/kacey/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/kacey/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/kacey/internal/core/ports/driving"
)

// View lists conversations, most recent first.
type View struct {
	styles    *styles.Styles
	keymap    *keymap.KeyMap
	list      *list.ConversationList
	statusbar *status.Bar

	chat driving.ChatService
	ctx  context.Context

	loading bool
	ready   bool
	err     error
}

// NewView creates a conversations view.
func NewView(s *styles.Styles, km *keymap.KeyMap, chat driving.ChatService) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}

	bar := status.NewBar(s, km)
	bar.SetBindings(km.ListHelp())

	return &View{
		styles:    s,
		keymap:    km,
		list:      list.NewConversationList(s),
		statusbar: bar,
		chat:      chat,
		ctx:       context.Background(),
	}
}

// WithContext sets the context used to load conversations.
func (v *View) WithContext(ctx context.Context) *View {
	v.ctx = ctx
	return v
}

// Init loads the conversation list.
func (v *View) Init() tea.Cmd {
	v.loading = true
	chat, ctx := v.chat, v.ctx
	return func() tea.Msg {
		convs, err := chat.Conversations(ctx)
		return messages.ConversationsLoaded{Conversations: convs, Err: err}
	}
}

// Update handles messages for the conversations view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case messages.ConversationsLoaded:
		v.loading = false
		if msg.Err != nil {
			v.err = msg.Err
			v.statusbar.SetState(status.StateError)
			v.statusbar.SetMessage(msg.Err.Error())
			return v, nil
		}
		v.err = nil
		v.list.SetConversations(msg.Conversations)
		v.statusbar.Clear()
		return v, nil

	case tea.KeyMsg:
		key := msg.String()
		switch {
		case keymap.Matches(key, v.keymap.Back):
			return v, func() tea.Msg {
				return messages.ViewChanged{View: messages.ViewChat}
			}
		case keymap.Matches(key, v.keymap.Select):
			conv := v.list.SelectedConversation()
			if conv == nil {
				return v, nil
			}
			selected := *conv
			return v, func() tea.Msg {
				return messages.ConversationSelected{Conversation: selected}
			}
		}
		var cmd tea.Cmd
		v.list, cmd = v.list.Update(msg)
		return v, cmd
	}
	return v, nil
}

// View renders the conversations view.
func (v *View) View() string {
	if !v.ready {
		return "Initialising..."
	}

	body := v.list.View()
	if v.loading {
		body = v.styles.Muted.Render("Loading conversations...")
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		v.styles.Title.Render("Conversations"),
		"",
		body,
		"",
		v.statusbar.View(),
	)
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.ready = true
	v.list.SetDimensions(width, height-4)
	v.statusbar.SetWidth(width)
}

// List exposes the conversation list.
func (v *View) List() *list.ConversationList {
	return v.list
}

// Err returns the last load error, if any.
func (v *View) Err() error {
	return v.err
}
