package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/custodia-labs/kacey/internal/core/domain"
	"github.com/custodia-labs/kacey/internal/core/ports/driven"
	"github.com/custodia-labs/kacey/internal/core/ports/driving"
)

// Ensure ArtifactService implements the interface.
var _ driving.ArtifactService = (*ArtifactService)(nil)

// ArtifactService exposes read and delete access to ingested artifacts.
type ArtifactService struct {
	store   driven.ArtifactStore
	vectors driven.VectorStore
}

// NewArtifactService creates a new artifact service.
func NewArtifactService(store driven.ArtifactStore, vectors driven.VectorStore) *ArtifactService {
	return &ArtifactService{store: store, vectors: vectors}
}

// List returns artifacts, optionally restricted to a scope.
func (s *ArtifactService) List(ctx context.Context, scopeID string) ([]domain.Artifact, error) {
	return s.store.ListArtifacts(ctx, scopeID)
}

// Get retrieves an artifact by ID.
func (s *ArtifactService) Get(ctx context.Context, id string) (*domain.Artifact, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: artifact ID is required", domain.ErrInvalidInput)
	}
	return s.store.GetArtifact(ctx, id)
}

// Chunks returns an artifact's chunks in reading order.
func (s *ArtifactService) Chunks(ctx context.Context, id string) ([]domain.Chunk, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	return s.store.GetChunks(ctx, id)
}

// Delete removes an artifact with its chunks and embeddings.
func (s *ArtifactService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	return s.store.DeleteArtifact(ctx, id)
}

// Pending counts chunks still waiting for an embedding.
func (s *ArtifactService) Pending(ctx context.Context) (int, error) {
	return s.store.CountChunksWithoutEmbedding(ctx)
}

// Embedded counts stored embeddings. An unprovisioned store reports zero.
func (s *ArtifactService) Embedded(ctx context.Context) (int, error) {
	n, err := s.vectors.EmbeddingCount(ctx)
	if errors.Is(err, domain.ErrVectorStoreUnprovisioned) {
		return 0, nil
	}
	return n, err
}
