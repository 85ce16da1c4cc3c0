package mcp

import (
	"github.com/custodia-labs/kacey/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Retrieval finds chunks similar to a query.
	Retrieval driving.RetrievalService

	// Chat answers questions with citations. Optional: without it the ask
	// tool is not registered.
	Chat driving.ChatService

	// Artifacts lists and reads ingested artifacts. Optional.
	Artifacts driving.ArtifactService
}

// Validate ensures all required ports are set.
// Returns an error if any required port is nil.
func (p *Ports) Validate() error {
	if p.Retrieval == nil {
		return ErrMissingRetrievalService
	}
	return nil
}
