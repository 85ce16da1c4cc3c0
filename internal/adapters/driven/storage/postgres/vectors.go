package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/pgvector/pgvector-go"

	"github.com/custodia-labs/kacey/internal/adapters/driven/storage/vecmath"
	"github.com/custodia-labs/kacey/internal/core/domain"
	"github.com/custodia-labs/kacey/internal/core/ports/driven"
)

// Upsert inserts or replaces the embedding for a chunk.
func (s *Store) Upsert(ctx context.Context, chunkID string, vector []float32, model string) error {
	if s.dimensions > 0 && len(vector) != s.dimensions {
		return fmt.Errorf("%w: vector has %d dimensions, store expects %d",
			domain.ErrInvalidConfiguration, len(vector), s.dimensions)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO embeddings (chunk_id, vector, model, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (chunk_id) DO UPDATE SET
			vector = EXCLUDED.vector,
			model = EXCLUDED.model,
			created_at = EXCLUDED.created_at
	`, chunkID, pgvector.NewVector(vector), model, time.Now().UTC())
	if err != nil {
		return classify(fmt.Errorf("upsert embedding for chunk %s: %w", chunkID, err))
	}
	return nil
}

// Search ranks the scope's embeddings by cosine similarity to query.
func (s *Store) Search(ctx context.Context, query []float32, limit int, scopeID string) ([]driven.VectorHit, error) {
	if limit <= 0 {
		return []driven.VectorHit{}, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT e.chunk_id, 1 - (e.vector <=> $1) AS similarity
		FROM embeddings e
		JOIN chunks c ON c.id = e.chunk_id
		JOIN artifacts a ON a.id = c.artifact_id
		WHERE $2::text = '' OR a.scope_id = $2
		ORDER BY e.vector <=> $1, e.chunk_id
		LIMIT $3
	`, pgvector.NewVector(query), scopeID, limit)
	if err != nil {
		return nil, classify(fmt.Errorf("search embeddings: %w", err))
	}
	defer rows.Close()

	hits := []driven.VectorHit{}
	for rows.Next() {
		var (
			chunkID    string
			similarity float64
		)
		if err := rows.Scan(&chunkID, &similarity); err != nil {
			return nil, fmt.Errorf("scan embedding hit: %w", err)
		}
		hits = append(hits, driven.VectorHit{ChunkID: chunkID, Similarity: vecmath.Clamp(similarity)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate embedding hits: %w", err)
	}

	// Clamping can collapse distinct distances into ties, so reapply the
	// chunk ID tie-break.
	return vecmath.Rank(hits, limit), nil
}

// EmbeddingCount returns the number of stored embeddings.
func (s *Store) EmbeddingCount(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM embeddings").Scan(&n); err != nil {
		return 0, classify(fmt.Errorf("count embeddings: %w", err))
	}
	return n, nil
}

// classify maps a missing embeddings table to domain.ErrVectorStoreUnprovisioned.
func classify(err error) error {
	if isUndefinedTable(err) {
		return fmt.Errorf("%w: %w", domain.ErrVectorStoreUnprovisioned, err)
	}
	return err
}
