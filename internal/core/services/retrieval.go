package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/custodia-labs/kacey/internal/core/domain"
	"github.com/custodia-labs/kacey/internal/core/ports/driven"
	"github.com/custodia-labs/kacey/internal/core/ports/driving"
	"github.com/custodia-labs/kacey/internal/logger"
)

// Ensure RetrievalService implements the interface.
var _ driving.RetrievalService = (*RetrievalService)(nil)

// RetrievalService answers "which chunks are closest to this query".
// Results are computed per call and never cached.
type RetrievalService struct {
	embedding driven.EmbeddingService
	vectors   driven.VectorStore
	artifacts driven.ArtifactStore
}

// NewRetrievalService creates a retrieval service.
func NewRetrievalService(
	embedding driven.EmbeddingService,
	vectors driven.VectorStore,
	artifacts driven.ArtifactStore,
) *RetrievalService {
	return &RetrievalService{
		embedding: embedding,
		vectors:   vectors,
		artifacts: artifacts,
	}
}

// Retrieve embeds query and returns the limit most similar chunks, best first.
func (s *RetrievalService) Retrieve(
	ctx context.Context, query string, limit int, scopeID string,
) ([]domain.RetrievalResult, error) {
	logger.Section("Retrieve")

	query = strings.TrimSpace(query)
	if query == "" {
		logger.Debug("Empty query, returning no results")
		return []domain.RetrievalResult{}, nil
	}
	if limit <= 0 {
		limit = domain.DefaultRetrievalLimit
	}
	logger.Debug("Query: %q, limit: %d, scope: %q", query, limit, scopeID)

	if s.embedding == nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrRetrievalFailure, domain.ErrEmbeddingUnavailable)
	}
	vector, err := s.embedding.Embed(ctx, query)
	if err != nil {
		logger.Warn("Query embedding failed: %v", err)
		return nil, fmt.Errorf("%w: embed query: %w", domain.ErrRetrievalFailure, err)
	}

	hits, err := s.vectors.Search(ctx, vector, limit, scopeID)
	if errors.Is(err, domain.ErrVectorStoreUnprovisioned) {
		logger.Debug("Vector store not provisioned, returning no results")
		return []domain.RetrievalResult{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: vector search: %w", domain.ErrRetrievalFailure, err)
	}
	logger.Debug("Vector search: %d hits", len(hits))

	results := make([]domain.RetrievalResult, 0, len(hits))
	for _, hit := range hits {
		chunk, err := s.artifacts.GetChunk(ctx, hit.ChunkID)
		if errors.Is(err, domain.ErrNotFound) {
			// Deleted between search and hydration.
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("%w: get chunk %s: %w", domain.ErrRetrievalFailure, hit.ChunkID, err)
		}
		results = append(results, domain.RetrievalResult{Chunk: *chunk, Similarity: hit.Similarity})
	}

	logger.Info("Retrieved %d chunks", len(results))
	return results, nil
}
