// Package tui provides the interactive terminal chat for kacey.
// It is a driving adapter over the chat service.
package tui

import (
	"github.com/custodia-labs/kacey/internal/core/ports/driving"
)

// Ports aggregates the driving ports used by the TUI.
type Ports struct {
	// Chat answers questions and lists conversations.
	Chat driving.ChatService
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p == nil || p.Chat == nil {
		return ErrMissingChatService
	}
	return nil
}
