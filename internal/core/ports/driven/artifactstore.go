package driven

import (
	"context"

	"github.com/custodia-labs/kacey/internal/core/domain"
)

// ArtifactStore persists artifacts and their chunks.
// Deleting an artifact cascades to its chunks and their embeddings.
type ArtifactStore interface {
	// SaveArtifact inserts or updates an artifact by ID.
	SaveArtifact(ctx context.Context, artifact *domain.Artifact) error

	// GetArtifact retrieves an artifact by ID. Returns domain.ErrNotFound if absent.
	GetArtifact(ctx context.Context, id string) (*domain.Artifact, error)

	// FindArtifact looks up an artifact by title within a scope (empty scope
	// matches unscoped artifacts). Returns domain.ErrNotFound if absent.
	FindArtifact(ctx context.Context, title, scopeID string) (*domain.Artifact, error)

	// ListArtifacts returns artifacts newest first. An empty scopeID lists all.
	ListArtifacts(ctx context.Context, scopeID string) ([]domain.Artifact, error)

	// DeleteArtifact removes an artifact with its chunks and embeddings.
	DeleteArtifact(ctx context.Context, id string) error

	// ReplaceChunks deletes every chunk of the artifact and inserts chunks in
	// one transaction.
	ReplaceChunks(ctx context.Context, artifactID string, chunks []domain.Chunk) error

	// GetChunk retrieves a chunk by ID. Returns domain.ErrNotFound if absent.
	GetChunk(ctx context.Context, id string) (*domain.Chunk, error)

	// GetChunks returns an artifact's chunks ordered by ordinal.
	GetChunks(ctx context.Context, artifactID string) ([]domain.Chunk, error)

	// ChunksWithoutEmbedding returns up to limit chunks that have no
	// embedding, oldest first.
	ChunksWithoutEmbedding(ctx context.Context, limit int) ([]domain.Chunk, error)

	// CountChunksWithoutEmbedding counts chunks that have no embedding.
	CountChunksWithoutEmbedding(ctx context.Context) (int, error)
}
