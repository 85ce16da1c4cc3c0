package api

import (
	"github.com/custodia-labs/kacey/internal/core/ports/driving"
)

// Ports aggregates the driving ports served over HTTP.
type Ports struct {
	Ingestion driving.IngestionService
	Retrieval driving.RetrievalService
	Artifacts driving.ArtifactService

	// Chat is optional. Without it /api/chat answers 503.
	Chat driving.ChatService
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	switch {
	case p.Ingestion == nil:
		return ErrMissingIngestionService
	case p.Retrieval == nil:
		return ErrMissingRetrievalService
	case p.Artifacts == nil:
		return ErrMissingArtifactService
	}
	return nil
}
