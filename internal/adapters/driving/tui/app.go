package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/kacey/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/kacey/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/kacey/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/kacey/internal/adapters/driving/tui/views/chat"
	"github.com/custodia-labs/kacey/internal/adapters/driving/tui/views/conversations"
)

// App is the TUI application following the Elm architecture.
// It implements tea.Model for use with Bubbletea.
type App struct {
	ports  *Ports
	ctx    context.Context
	styles *styles.Styles

	chatView          *chat.View
	conversationsView *conversations.View

	currentView messages.ViewType

	width  int
	height int
	ready  bool
}

// Ensure App implements tea.Model.
var _ tea.Model = (*App)(nil)

// NewApp creates the chat TUI. scopeID restricts retrieval for new conversations.
func NewApp(ports *Ports, scopeID string) (*App, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("creating app: %w", err)
	}

	s := styles.DefaultStyles()
	km := keymap.DefaultKeyMap()

	return &App{
		ports:             ports,
		ctx:               context.Background(),
		styles:            s,
		chatView:          chat.NewView(s, km, ports.Chat, scopeID),
		conversationsView: conversations.NewView(s, km, ports.Chat),
		currentView:       messages.ViewChat,
	}, nil
}

// WithContext sets the context chat turns run under.
func (a *App) WithContext(ctx context.Context) *App {
	a.ctx = ctx
	a.chatView.WithContext(ctx)
	a.conversationsView.WithContext(ctx)
	return a
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	return tea.Batch(
		tea.SetWindowTitle("kacey"),
		a.chatView.Init(),
	)
}

// Update implements tea.Model.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.SetDimensions(msg.Width, msg.Height)
		return a, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return a, tea.Quit
		}

	case messages.ViewChanged:
		a.currentView = msg.View
		if msg.View == messages.ViewConversations {
			return a, a.conversationsView.Init()
		}
		return a, nil

	case messages.ConversationSelected:
		a.currentView = messages.ViewChat
		return a, a.chatView.Resume(msg.Conversation)

	// Chat turns keep streaming while the user browses conversations.
	case messages.TokenReceived, messages.AnswerCompleted, messages.HistoryLoaded:
		a.chatView, cmd = a.chatView.Update(msg)
		return a, cmd

	case messages.ConversationsLoaded:
		a.conversationsView, cmd = a.conversationsView.Update(msg)
		return a, cmd
	}

	switch a.currentView {
	case messages.ViewConversations:
		a.conversationsView, cmd = a.conversationsView.Update(msg)
	default:
		a.chatView, cmd = a.chatView.Update(msg)
	}
	return a, cmd
}

// View implements tea.Model.
func (a *App) View() string {
	if !a.ready {
		return "Initialising..."
	}
	if a.currentView == messages.ViewConversations {
		return a.conversationsView.View()
	}
	return a.chatView.View()
}

// Run starts the TUI and blocks until the user quits.
func (a *App) Run() error {
	p := tea.NewProgram(a, tea.WithAltScreen(), tea.WithContext(a.ctx))
	_, err := p.Run()
	return err
}

// CurrentView returns the active view.
func (a *App) CurrentView() messages.ViewType {
	return a.currentView
}

// ChatView exposes the chat view.
func (a *App) ChatView() *chat.View {
	return a.chatView
}

// Ready returns whether the app has been sized.
func (a *App) Ready() bool {
	return a.ready
}

// SetDimensions sets the terminal dimensions.
func (a *App) SetDimensions(width, height int) {
	a.width = width
	a.height = height
	a.ready = true
	a.chatView.SetDimensions(width, height)
	a.conversationsView.SetDimensions(width, height)
}
