package driving

import (
	"context"

	"github.com/custodia-labs/kacey/internal/core/domain"
)

// ArtifactService manages ingested artifacts.
type ArtifactService interface {
	// List returns artifacts, optionally restricted to a scope.
	List(ctx context.Context, scopeID string) ([]domain.Artifact, error)

	// Get retrieves an artifact by ID.
	Get(ctx context.Context, id string) (*domain.Artifact, error)

	// Chunks returns an artifact's chunks in reading order.
	Chunks(ctx context.Context, id string) ([]domain.Chunk, error)

	// Delete removes an artifact with its chunks and embeddings.
	Delete(ctx context.Context, id string) error

	// Pending counts chunks still waiting for an embedding.
	Pending(ctx context.Context) (int, error)

	// Embedded counts stored embeddings. An unprovisioned store has none.
	Embedded(ctx context.Context) (int, error)
}
