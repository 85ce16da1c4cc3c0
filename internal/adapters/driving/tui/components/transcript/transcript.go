// Package transcript renders a scrollable chat history.
package transcript

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/kacey/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/kacey/internal/core/domain"
)

// Entry is one rendered turn.
type Entry struct {
	Role    domain.Role
	Content string
	Sources []domain.Metadata

	// Note is shown under an assistant turn, e.g. a degraded-answer warning.
	Note string

	// Pending marks the assistant turn currently being streamed.
	Pending bool
}

// Transcript displays conversation turns in a viewport that follows new output.
type Transcript struct {
	styles      *styles.Styles
	viewport    viewport.Model
	entries     []Entry
	showSources bool
}

// New creates an empty transcript.
func New(s *styles.Styles) *Transcript {
	if s == nil {
		s = styles.DefaultStyles()
	}
	return &Transcript{
		styles:      s,
		viewport:    viewport.New(80, 16),
		showSources: true,
	}
}

// Update handles scrolling.
func (t *Transcript) Update(msg tea.Msg) (*Transcript, tea.Cmd) {
	var cmd tea.Cmd
	t.viewport, cmd = t.viewport.Update(msg)
	return t, cmd
}

// View renders the visible part of the transcript.
func (t *Transcript) View() string {
	if len(t.entries) == 0 {
		return t.styles.Muted.Render("Ask a question to search your organisation's documents.")
	}
	return t.viewport.View()
}

// AddQuestion appends a user turn and an empty pending assistant turn.
func (t *Transcript) AddQuestion(question string) {
	t.entries = append(t.entries,
		Entry{Role: domain.RoleUser, Content: question},
		Entry{Role: domain.RoleAssistant, Pending: true},
	)
	t.refresh()
}

// AppendToken extends the pending assistant turn.
func (t *Transcript) AppendToken(token string) {
	if e := t.pending(); e != nil {
		e.Content += token
		t.refresh()
	}
}

// Complete replaces the pending turn with the final answer.
func (t *Transcript) Complete(answer string, sources []domain.Metadata, note string) {
	e := t.pending()
	if e == nil {
		t.entries = append(t.entries, Entry{Role: domain.RoleAssistant})
		e = &t.entries[len(t.entries)-1]
	}
	e.Content = answer
	e.Sources = sources
	e.Note = note
	e.Pending = false
	t.refresh()
}

// SetMessages replaces the transcript with persisted messages.
func (t *Transcript) SetMessages(messages []domain.Message) {
	t.entries = make([]Entry, 0, len(messages))
	for _, m := range messages {
		if m.Role == domain.RoleSystem {
			continue
		}
		t.entries = append(t.entries, Entry{Role: m.Role, Content: m.Content, Sources: m.Sources})
	}
	t.refresh()
}

// Clear removes every entry.
func (t *Transcript) Clear() {
	t.entries = nil
	t.refresh()
}

// ToggleSources shows or hides citations and reports the new setting.
func (t *Transcript) ToggleSources() bool {
	t.showSources = !t.showSources
	t.refresh()
	return t.showSources
}

// Entries returns the current entries.
func (t *Transcript) Entries() []Entry {
	return t.entries
}

// SetDimensions sizes the viewport.
func (t *Transcript) SetDimensions(width, height int) {
	if height < 3 {
		height = 3
	}
	t.viewport.Width = width
	t.viewport.Height = height
	t.refresh()
}

func (t *Transcript) pending() *Entry {
	if n := len(t.entries); n > 0 && t.entries[n-1].Pending {
		return &t.entries[n-1]
	}
	return nil
}

func (t *Transcript) refresh() {
	t.viewport.SetContent(t.render())
	t.viewport.GotoBottom()
}

func (t *Transcript) render() string {
	body := t.styles.Normal.Width(max(t.viewport.Width-2, 10))

	blocks := make([]string, 0, len(t.entries))
	for _, e := range t.entries {
		var b strings.Builder
		if e.Role == domain.RoleUser {
			b.WriteString(t.styles.UserLabel.Render("You"))
		} else {
			b.WriteString(t.styles.AssistantLabel.Render("Kacey"))
		}
		b.WriteString("\n")

		content := e.Content
		if e.Pending && content == "" {
			content = "…"
		}
		b.WriteString(body.Render(content))

		if e.Note != "" {
			b.WriteString("\n" + t.styles.Warning.Render(e.Note))
		}
		if t.showSources && len(e.Sources) > 0 {
			b.WriteString("\n" + t.renderSources(e.Sources))
		}
		blocks = append(blocks, b.String())
	}
	return strings.Join(blocks, "\n\n")
}

func (t *Transcript) renderSources(sources []domain.Metadata) string {
	lines := make([]string, 0, len(sources))
	for i, src := range sources {
		line := fmt.Sprintf("[%d] %s", i+1, src.ArtifactTitle())
		if _, ok := src[domain.MetaSimilarity]; ok {
			line += fmt.Sprintf(" (%.2f)", src.Similarity())
		}
		lines = append(lines, t.styles.Source.Render(line))
	}
	return strings.Join(lines, "\n")
}
