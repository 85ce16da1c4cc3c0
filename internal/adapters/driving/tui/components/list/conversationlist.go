// Package list provides list display components for the TUI.
package list

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/kacey/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/kacey/internal/core/domain"
)

// ConversationList displays past conversations in a navigable list.
type ConversationList struct {
	conversations []domain.Conversation
	selected      int
	styles        *styles.Styles
	width         int
	height        int
}

// NewConversationList creates an empty list.
func NewConversationList(s *styles.Styles) *ConversationList {
	if s == nil {
		s = styles.DefaultStyles()
	}
	return &ConversationList{
		styles: s,
		width:  80,
		height: 10,
	}
}

// Update handles list navigation.
func (l *ConversationList) Update(msg tea.Msg) (*ConversationList, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "up", "k":
			l.MoveUp()
		case "down", "j":
			l.MoveDown()
		}
	}
	return l, nil
}

// View renders the list.
func (l *ConversationList) View() string {
	if len(l.conversations) == 0 {
		return l.styles.Muted.Render("No conversations yet")
	}

	// Each conversation takes two lines.
	visible := max((l.height-2)/2, 1)
	start := 0
	if l.selected >= visible {
		start = l.selected - visible + 1
	}
	end := min(start+visible, len(l.conversations))

	lines := make([]string, 0, (end-start)*2)
	for i := start; i < end; i++ {
		lines = append(lines, l.renderItem(i, &l.conversations[i]))
	}
	return strings.Join(lines, "\n")
}

func (l *ConversationList) renderItem(index int, conv *domain.Conversation) string {
	title := conv.Title
	if title == "" {
		title = "(Untitled)"
	}
	maxTitle := max(l.width-6, 10)
	if r := []rune(title); len(r) > maxTitle {
		title = string(r[:maxTitle-3]) + "..."
	}

	var titleLine string
	if index == l.selected {
		titleLine = l.styles.Selected.Render("> " + title)
	} else {
		titleLine = l.styles.Normal.Render("  " + title)
	}

	detail := conv.UpdatedAt.Format("2006-01-02 15:04")
	if conv.ScopeID != "" {
		detail += fmt.Sprintf("  scope: %s", conv.ScopeID)
	}
	return titleLine + "\n" + l.styles.Muted.Render("    "+detail)
}

// SetConversations replaces the list and resets the selection.
func (l *ConversationList) SetConversations(conversations []domain.Conversation) {
	l.conversations = conversations
	l.selected = 0
}

// Conversations returns the listed conversations.
func (l *ConversationList) Conversations() []domain.Conversation {
	return l.conversations
}

// Selected returns the index of the selected conversation.
func (l *ConversationList) Selected() int {
	return l.selected
}

// SelectedConversation returns the selected conversation, or nil if none.
func (l *ConversationList) SelectedConversation() *domain.Conversation {
	if l.selected < 0 || l.selected >= len(l.conversations) {
		return nil
	}
	return &l.conversations[l.selected]
}

// MoveUp moves selection up.
func (l *ConversationList) MoveUp() {
	if l.selected > 0 {
		l.selected--
	}
}

// MoveDown moves selection down.
func (l *ConversationList) MoveDown() {
	if l.selected < len(l.conversations)-1 {
		l.selected++
	}
}

// SetDimensions sets the component dimensions.
func (l *ConversationList) SetDimensions(width, height int) {
	l.width = width
	l.height = height
}
