package list

import (
	"fmt"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/kacey/internal/core/domain"
)

func testConversations(n int) []domain.Conversation {
	out := make([]domain.Conversation, n)
	for i := range out {
		out[i] = domain.Conversation{
			ID:        fmt.Sprintf("conv-%d", i),
			Title:     fmt.Sprintf("Conversation %d", i),
			UpdatedAt: time.Date(2026, 5, 1, 9, i, 0, 0, time.UTC),
		}
	}
	return out
}

func TestConversationList_Empty(t *testing.T) {
	l := NewConversationList(nil)

	assert.Contains(t, l.View(), "No conversations yet")
	assert.Nil(t, l.SelectedConversation())
}

func TestConversationList_Navigation(t *testing.T) {
	l := NewConversationList(nil)
	l.SetConversations(testConversations(3))

	l, _ = l.Update(tea.KeyMsg{Type: tea.KeyDown})
	assert.Equal(t, 1, l.Selected())

	l, _ = l.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'j'}})
	assert.Equal(t, 2, l.Selected())

	// Clamped at the end.
	l.MoveDown()
	assert.Equal(t, 2, l.Selected())

	l, _ = l.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'k'}})
	assert.Equal(t, 1, l.Selected())

	l.MoveUp()
	l.MoveUp()
	assert.Equal(t, 0, l.Selected())

	require.NotNil(t, l.SelectedConversation())
	assert.Equal(t, "conv-0", l.SelectedConversation().ID)
}

func TestConversationList_SetConversationsResetsSelection(t *testing.T) {
	l := NewConversationList(nil)
	l.SetConversations(testConversations(3))
	l.MoveDown()

	l.SetConversations(testConversations(2))

	assert.Equal(t, 0, l.Selected())
	assert.Len(t, l.Conversations(), 2)
}

func TestConversationList_View(t *testing.T) {
	l := NewConversationList(nil)
	convs := testConversations(2)
	convs[1].ScopeID = "finance"
	convs[1].Title = ""
	l.SetConversations(convs)

	view := l.View()

	assert.Contains(t, view, "> Conversation 0")
	assert.Contains(t, view, "(Untitled)")
	assert.Contains(t, view, "scope: finance")
	assert.Contains(t, view, "2026-05-01 09:00")
}

func TestConversationList_ScrollsToSelection(t *testing.T) {
	l := NewConversationList(nil)
	l.SetDimensions(80, 6) // two visible items
	l.SetConversations(testConversations(5))

	for range 4 {
		l.MoveDown()
	}
	view := l.View()

	assert.Contains(t, view, "Conversation 4")
	assert.NotContains(t, view, "Conversation 0")
}

func TestConversationList_TruncatesLongTitles(t *testing.T) {
	l := NewConversationList(nil)
	l.SetDimensions(20, 10)
	l.SetConversations([]domain.Conversation{{Title: strings.Repeat("x", 50)}})

	assert.Contains(t, l.View(), "...")
}
