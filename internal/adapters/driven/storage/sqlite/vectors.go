package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/custodia-labs/kacey/internal/adapters/driven/storage/vecmath"
	"github.com/custodia-labs/kacey/internal/core/domain"
	"github.com/custodia-labs/kacey/internal/core/ports/driven"
)

// ==================== Vector Store ====================

// Upsert inserts or replaces the embedding for a chunk.
func (s *Store) Upsert(ctx context.Context, chunkID string, vector []float32, model string) error {
	if s.dimensions > 0 && len(vector) != s.dimensions {
		return fmt.Errorf("%w: vector has %d dimensions, store expects %d",
			domain.ErrInvalidConfiguration, len(vector), s.dimensions)
	}
	if err := s.requireVectors(ctx); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO embeddings (chunk_id, vector, dimensions, model, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(chunk_id) DO UPDATE SET
			vector = excluded.vector,
			dimensions = excluded.dimensions,
			model = excluded.model,
			created_at = excluded.created_at
	`, chunkID, vecmath.Encode(vector), len(vector), model, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("upserting embedding for chunk %s: %w", chunkID, err)
	}
	return nil
}

// Search ranks the scope's embeddings by cosine similarity to query.
func (s *Store) Search(ctx context.Context, query []float32, limit int, scopeID string) ([]driven.VectorHit, error) {
	if err := s.requireVectors(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT e.chunk_id, e.vector
		FROM embeddings e
		JOIN chunks c ON c.id = e.chunk_id
		JOIN artifacts a ON a.id = c.artifact_id
		WHERE ? = '' OR a.scope_id = ?
	`, scopeID, scopeID)
	if err != nil {
		return nil, fmt.Errorf("querying embeddings: %w", err)
	}
	defer rows.Close()

	hits := []driven.VectorHit{}
	for rows.Next() {
		var (
			chunkID string
			blob    []byte
		)
		if err := rows.Scan(&chunkID, &blob); err != nil {
			return nil, fmt.Errorf("scanning embedding: %w", err)
		}
		vec, err := vecmath.Decode(blob)
		if err != nil {
			return nil, fmt.Errorf("decoding embedding for chunk %s: %w", chunkID, err)
		}
		hits = append(hits, driven.VectorHit{ChunkID: chunkID, Similarity: vecmath.Similarity(query, vec)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating embeddings: %w", err)
	}

	return vecmath.Rank(hits, limit), nil
}

// EmbeddingCount returns the number of stored embeddings.
func (s *Store) EmbeddingCount(ctx context.Context) (int, error) {
	if err := s.requireVectors(ctx); err != nil {
		return 0, err
	}
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM embeddings").Scan(&n); err != nil {
		return 0, fmt.Errorf("counting embeddings: %w", err)
	}
	return n, nil
}

// requireVectors fails with domain.ErrVectorStoreUnprovisioned until Provision runs.
func (s *Store) requireVectors(ctx context.Context) error {
	ready, err := s.Provisioned(ctx)
	if err != nil {
		return err
	}
	if !ready {
		return domain.ErrVectorStoreUnprovisioned
	}
	return nil
}
