// Package status provides the status bar component for the TUI.
package status

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/kacey/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/kacey/internal/adapters/driving/tui/styles"
)

// State represents the chat state shown in the bar.
type State string

const (
	StateReady     State = "ready"
	StateThinking  State = "thinking"
	StateStreaming State = "streaming"
	StateDegraded  State = "degraded"
	StateError     State = "error"
)

// Bar displays chat status and keybinding hints.
type Bar struct {
	styles   *styles.Styles
	keymap   *keymap.KeyMap
	bindings []key.Binding
	spinner  spinner.Model

	state   State
	message string
	scope   string
	width   int
}

// NewBar creates a new status bar component.
func NewBar(s *styles.Styles, km *keymap.KeyMap) *Bar {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}

	sp := spinner.New(spinner.WithSpinner(spinner.Dot))
	sp.Style = s.AssistantLabel

	return &Bar{
		styles:   s,
		keymap:   km,
		bindings: km.ChatHelp(),
		spinner:  sp,
		state:    StateReady,
		width:    80,
	}
}

// Init initialises the status bar.
func (b *Bar) Init() tea.Cmd {
	return nil
}

// Update advances the spinner while an answer is pending.
func (b *Bar) Update(msg tea.Msg) (*Bar, tea.Cmd) {
	if _, ok := msg.(spinner.TickMsg); !ok || !b.Busy() {
		return b, nil
	}
	var cmd tea.Cmd
	b.spinner, cmd = b.spinner.Update(msg)
	return b, cmd
}

// View renders the status bar.
func (b *Bar) View() string {
	left := b.renderLeft()
	right := b.renderRight()

	padding := b.width - lipgloss.Width(left) - lipgloss.Width(right)
	if padding < 1 {
		padding = 1
	}

	return b.styles.StatusBar.Width(b.width).Render(
		left + strings.Repeat(" ", padding) + right,
	)
}

func (b *Bar) renderLeft() string {
	switch b.state {
	case StateThinking:
		return b.spinner.View() + b.styles.Muted.Render(" Searching knowledge base...")
	case StateStreaming:
		return b.spinner.View() + b.styles.Muted.Render(" Answering...")
	case StateDegraded:
		return b.styles.Warning.Render(b.message)
	case StateError:
		if b.message != "" {
			return b.styles.Error.Render(fmt.Sprintf("Error: %s", b.message))
		}
		return b.styles.Error.Render("Error")
	case StateReady:
	}

	label := "Ready"
	if b.message != "" {
		label = b.message
	}
	if b.scope != "" {
		label += " [" + b.scope + "]"
	}
	return b.styles.Muted.Render(label)
}

func (b *Bar) renderRight() string {
	hints := make([]string, 0, len(b.bindings))
	for _, binding := range b.bindings {
		h := binding.Help()
		hints = append(hints, fmt.Sprintf("%s: %s", h.Key, h.Desc))
	}
	return b.styles.Muted.Render(strings.Join(hints, " | "))
}

// SetState sets the current state. Entering a busy state returns the
// command that starts the spinner.
func (b *Bar) SetState(state State) tea.Cmd {
	wasBusy := b.Busy()
	b.state = state
	if b.Busy() && !wasBusy {
		return b.spinner.Tick
	}
	return nil
}

// State returns the current state.
func (b *Bar) State() State {
	return b.state
}

// Busy reports whether an answer is pending.
func (b *Bar) Busy() bool {
	return b.state == StateThinking || b.state == StateStreaming
}

// SetMessage sets the text shown for the ready, degraded and error states.
func (b *Bar) SetMessage(message string) {
	b.message = message
}

// Message returns the current message.
func (b *Bar) Message() string {
	return b.message
}

// SetScope shows the retrieval scope of the conversation.
func (b *Bar) SetScope(scope string) {
	b.scope = scope
}

// SetBindings replaces the keybinding hints.
func (b *Bar) SetBindings(bindings []key.Binding) {
	b.bindings = bindings
}

// SetWidth sets the status bar width.
func (b *Bar) SetWidth(width int) {
	b.width = width
}

// Width returns the current width.
func (b *Bar) Width() int {
	return b.width
}

// Clear resets the status bar to the ready state.
func (b *Bar) Clear() {
	b.state = StateReady
	b.message = ""
}
