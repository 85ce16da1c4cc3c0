package keymap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultKeyMap(t *testing.T) {
	km := DefaultKeyMap()

	require.NotNil(t, km)
	assert.Equal(t, []string{"ctrl+c"}, km.Quit.Keys())
	assert.Equal(t, []string{"enter"}, km.Send.Keys())
	assert.Equal(t, []string{"ctrl+n"}, km.NewConversation.Keys())
	assert.Equal(t, []string{"ctrl+o"}, km.Conversations.Keys())
	assert.Equal(t, []string{"esc"}, km.Back.Keys())
}

func TestKeyMap_Help(t *testing.T) {
	km := DefaultKeyMap()

	assert.Len(t, km.ChatHelp(), 5)
	assert.Equal(t, "send", km.ChatHelp()[0].Help().Desc)
	assert.Len(t, km.ListHelp(), 4)
}

func TestMatches(t *testing.T) {
	km := DefaultKeyMap()

	tests := []struct {
		key     string
		binding string
		match   bool
	}{
		{"up", "up", true},
		{"k", "up", true},
		{"j", "down", true},
		{"ctrl+n", "new", true},
		{"n", "new", false},
		{"q", "quit", false},
	}

	for _, tt := range tests {
		t.Run(tt.key+"_"+tt.binding, func(t *testing.T) {
			b := km.Up
			switch tt.binding {
			case "down":
				b = km.Down
			case "new":
				b = km.NewConversation
			case "quit":
				b = km.Quit
			}
			assert.Equal(t, tt.match, Matches(tt.key, b))
		})
	}
}
