package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/custodia-labs/kacey/internal/core/domain"
)

const artifactColumns = `id, title, description, type, filename, mime_type, content,
	content_hash, metadata, scope_id, created_at, updated_at`

// SaveArtifact stores or updates an artifact.
func (s *Store) SaveArtifact(ctx context.Context, a *domain.Artifact) error {
	metadataJSON, err := marshalJSON(a.Metadata, "{}")
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO artifacts (`+artifactColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9::jsonb, $10, $11, $12)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			description = EXCLUDED.description,
			type = EXCLUDED.type,
			filename = EXCLUDED.filename,
			mime_type = EXCLUDED.mime_type,
			content = EXCLUDED.content,
			content_hash = EXCLUDED.content_hash,
			metadata = EXCLUDED.metadata,
			scope_id = EXCLUDED.scope_id,
			updated_at = EXCLUDED.updated_at
	`, a.ID, a.Title, a.Description, string(a.Type), a.Filename, a.MIMEType, a.Content,
		a.ContentHash, metadataJSON, a.ScopeID, a.CreatedAt.UTC(), a.UpdatedAt.UTC())
	if err != nil {
		return fmt.Errorf("save artifact: %w", err)
	}
	return nil
}

// GetArtifact retrieves an artifact by ID.
func (s *Store) GetArtifact(ctx context.Context, id string) (*domain.Artifact, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+artifactColumns+` FROM artifacts WHERE id = $1`, id)
	return scanArtifact(row)
}

// FindArtifact looks up the oldest artifact with a title in a scope.
func (s *Store) FindArtifact(ctx context.Context, title, scopeID string) (*domain.Artifact, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+artifactColumns+` FROM artifacts
		WHERE title = $1 AND scope_id = $2
		ORDER BY created_at, id
		LIMIT 1
	`, title, scopeID)
	return scanArtifact(row)
}

// ListArtifacts returns artifacts newest first.
func (s *Store) ListArtifacts(ctx context.Context, scopeID string) ([]domain.Artifact, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+artifactColumns+` FROM artifacts
		WHERE $1::text = '' OR scope_id = $1
		ORDER BY created_at DESC, id
	`, scopeID)
	if err != nil {
		return nil, fmt.Errorf("query artifacts: %w", err)
	}
	defer rows.Close()

	var artifacts []domain.Artifact
	for rows.Next() {
		a, err := scanArtifact(rows)
		if err != nil {
			return nil, err
		}
		artifacts = append(artifacts, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate artifacts: %w", err)
	}
	return artifacts, nil
}

// DeleteArtifact removes an artifact; chunks and embeddings cascade.
func (s *Store) DeleteArtifact(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM artifacts WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete artifact: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ReplaceChunks swaps an artifact's chunk set inside one transaction.
func (s *Store) ReplaceChunks(ctx context.Context, artifactID string, chunks []domain.Chunk) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, "DELETE FROM chunks WHERE artifact_id = $1", artifactID); err != nil {
		return fmt.Errorf("delete chunks: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (id, artifact_id, ordinal, content, token_count, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6::jsonb, $7)
	`)
	if err != nil {
		return fmt.Errorf("prepare chunk insert: %w", err)
	}
	defer stmt.Close()

	for _, c := range chunks {
		if c.ArtifactID != artifactID {
			return fmt.Errorf("%w: chunk %s belongs to artifact %s", domain.ErrInvalidInput, c.ID, c.ArtifactID)
		}
		metadataJSON, err := marshalJSON(c.Metadata, "{}")
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, c.ID, c.ArtifactID, c.Ordinal, c.Content,
			c.TokenCount, metadataJSON, c.CreatedAt.UTC()); err != nil {
			return fmt.Errorf("insert chunk %d: %w", c.Ordinal, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit chunks: %w", err)
	}
	return nil
}

const chunkColumns = `c.id, c.artifact_id, c.ordinal, c.content, c.token_count, c.metadata, c.created_at`

// GetChunk retrieves a chunk by ID.
func (s *Store) GetChunk(ctx context.Context, id string) (*domain.Chunk, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+chunkColumns+` FROM chunks c WHERE c.id = $1`, id)
	return scanChunk(row)
}

// GetChunks returns an artifact's chunks ordered by ordinal.
func (s *Store) GetChunks(ctx context.Context, artifactID string) ([]domain.Chunk, error) {
	return s.queryChunks(ctx, `
		SELECT `+chunkColumns+` FROM chunks c
		WHERE c.artifact_id = $1
		ORDER BY c.ordinal
	`, artifactID)
}

// ChunksWithoutEmbedding returns up to limit unembedded chunks, oldest first.
func (s *Store) ChunksWithoutEmbedding(ctx context.Context, limit int) ([]domain.Chunk, error) {
	ready, err := s.Provisioned(ctx)
	if err != nil {
		return nil, err
	}
	if !ready {
		return s.queryChunks(ctx, `
			SELECT `+chunkColumns+` FROM chunks c
			ORDER BY c.created_at, c.artifact_id, c.ordinal
			LIMIT $1
		`, limit)
	}
	return s.queryChunks(ctx, `
		SELECT `+chunkColumns+` FROM chunks c
		LEFT JOIN embeddings e ON e.chunk_id = c.id
		WHERE e.chunk_id IS NULL
		ORDER BY c.created_at, c.artifact_id, c.ordinal
		LIMIT $1
	`, limit)
}

// CountChunksWithoutEmbedding counts chunks that have no embedding.
func (s *Store) CountChunksWithoutEmbedding(ctx context.Context) (int, error) {
	ready, err := s.Provisioned(ctx)
	if err != nil {
		return 0, err
	}

	query := "SELECT COUNT(*) FROM chunks"
	if ready {
		query = `SELECT COUNT(*) FROM chunks c
			LEFT JOIN embeddings e ON e.chunk_id = c.id
			WHERE e.chunk_id IS NULL`
	}

	var n int
	if err := s.db.QueryRowContext(ctx, query).Scan(&n); err != nil {
		return 0, fmt.Errorf("count chunks: %w", err)
	}
	return n, nil
}

func (s *Store) queryChunks(ctx context.Context, query string, args ...any) ([]domain.Chunk, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query chunks: %w", err)
	}
	defer rows.Close()

	var chunks []domain.Chunk
	for rows.Next() {
		c, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chunks: %w", err)
	}
	return chunks, nil
}

func scanArtifact(row scanner) (*domain.Artifact, error) {
	var (
		a            domain.Artifact
		artifactType string
		metadataJSON []byte
	)
	if err := row.Scan(&a.ID, &a.Title, &a.Description, &artifactType, &a.Filename, &a.MIMEType,
		&a.Content, &a.ContentHash, &metadataJSON, &a.ScopeID, &a.CreatedAt, &a.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scan artifact: %w", err)
	}

	a.Type = domain.ArtifactType(artifactType)
	a.Metadata = domain.Metadata{}
	if err := json.Unmarshal(metadataJSON, &a.Metadata); err != nil {
		return nil, fmt.Errorf("unmarshal artifact metadata: %w", err)
	}
	return &a, nil
}

func scanChunk(row scanner) (*domain.Chunk, error) {
	var (
		c            domain.Chunk
		metadataJSON []byte
	)
	if err := row.Scan(&c.ID, &c.ArtifactID, &c.Ordinal, &c.Content, &c.TokenCount,
		&metadataJSON, &c.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scan chunk: %w", err)
	}

	c.Metadata = domain.Metadata{}
	if err := json.Unmarshal(metadataJSON, &c.Metadata); err != nil {
		return nil, fmt.Errorf("unmarshal chunk metadata: %w", err)
	}
	return &c, nil
}

// marshalJSON encodes v, substituting empty for a nil value.
func marshalJSON(v any, empty string) (string, error) {
	switch t := v.(type) {
	case domain.Metadata:
		if t == nil {
			return empty, nil
		}
	case []domain.Metadata:
		if t == nil {
			return empty, nil
		}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("marshal json: %w", err)
	}
	return string(b), nil
}
