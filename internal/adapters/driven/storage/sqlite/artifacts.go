package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/kacey/internal/core/domain"
)

// ==================== Artifact Store ====================

const artifactColumns = `id, title, description, type, filename, mime_type, content,
	content_hash, metadata, scope_id, created_at, updated_at`

// SaveArtifact stores or updates an artifact.
func (s *Store) SaveArtifact(ctx context.Context, a *domain.Artifact) error {
	metadataJSON, err := marshalMetadata(a.Metadata)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO artifacts (`+artifactColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			description = excluded.description,
			type = excluded.type,
			filename = excluded.filename,
			mime_type = excluded.mime_type,
			content = excluded.content,
			content_hash = excluded.content_hash,
			metadata = excluded.metadata,
			scope_id = excluded.scope_id,
			updated_at = excluded.updated_at
	`, a.ID, a.Title, a.Description, string(a.Type), a.Filename, a.MIMEType, a.Content,
		a.ContentHash, metadataJSON, a.ScopeID, a.CreatedAt.UTC(), a.UpdatedAt.UTC())
	if err != nil {
		return fmt.Errorf("saving artifact: %w", err)
	}
	return nil
}

// GetArtifact retrieves an artifact by ID.
func (s *Store) GetArtifact(ctx context.Context, id string) (*domain.Artifact, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+artifactColumns+` FROM artifacts WHERE id = ?`, id)
	return scanArtifact(row)
}

// FindArtifact looks up the oldest artifact with a title in a scope.
func (s *Store) FindArtifact(ctx context.Context, title, scopeID string) (*domain.Artifact, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+artifactColumns+` FROM artifacts
		WHERE title = ? AND scope_id = ?
		ORDER BY created_at, id
		LIMIT 1
	`, title, scopeID)
	return scanArtifact(row)
}

// ListArtifacts returns artifacts newest first.
func (s *Store) ListArtifacts(ctx context.Context, scopeID string) ([]domain.Artifact, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+artifactColumns+` FROM artifacts
		WHERE ? = '' OR scope_id = ?
		ORDER BY created_at DESC, id
	`, scopeID, scopeID)
	if err != nil {
		return nil, fmt.Errorf("querying artifacts: %w", err)
	}
	defer rows.Close()

	var artifacts []domain.Artifact //nolint:prealloc // size unknown from query
	for rows.Next() {
		a, err := scanArtifact(rows)
		if err != nil {
			return nil, err
		}
		artifacts = append(artifacts, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating artifacts: %w", err)
	}
	return artifacts, nil
}

// DeleteArtifact removes an artifact; chunks and embeddings cascade.
func (s *Store) DeleteArtifact(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM artifacts WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting artifact: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ReplaceChunks deletes an artifact's chunks and inserts the new set in one transaction.
func (s *Store) ReplaceChunks(ctx context.Context, artifactID string, chunks []domain.Chunk) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, "DELETE FROM chunks WHERE artifact_id = ?", artifactID); err != nil {
		return fmt.Errorf("deleting chunks: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (id, artifact_id, ordinal, content, token_count, metadata, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for _, c := range chunks {
		if c.ArtifactID != artifactID {
			return fmt.Errorf("%w: chunk %s belongs to artifact %s", domain.ErrInvalidInput, c.ID, c.ArtifactID)
		}
		metadataJSON, err := marshalMetadata(c.Metadata)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, c.ID, c.ArtifactID, c.Ordinal, c.Content,
			c.TokenCount, metadataJSON, c.CreatedAt.UTC()); err != nil {
			return fmt.Errorf("saving chunk %d: %w", c.Ordinal, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

const chunkColumns = `c.id, c.artifact_id, c.ordinal, c.content, c.token_count, c.metadata, c.created_at`

// GetChunk retrieves a chunk by ID.
func (s *Store) GetChunk(ctx context.Context, id string) (*domain.Chunk, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+chunkColumns+` FROM chunks c WHERE c.id = ?`, id)
	return scanChunk(row)
}

// GetChunks returns an artifact's chunks ordered by ordinal.
func (s *Store) GetChunks(ctx context.Context, artifactID string) ([]domain.Chunk, error) {
	return s.queryChunks(ctx, `
		SELECT `+chunkColumns+` FROM chunks c
		WHERE c.artifact_id = ?
		ORDER BY c.ordinal
	`, artifactID)
}

// ChunksWithoutEmbedding returns up to limit unembedded chunks, oldest first.
// Before provisioning every chunk counts as unembedded.
func (s *Store) ChunksWithoutEmbedding(ctx context.Context, limit int) ([]domain.Chunk, error) {
	ready, err := s.Provisioned(ctx)
	if err != nil {
		return nil, err
	}
	if !ready {
		return s.queryChunks(ctx, `
			SELECT `+chunkColumns+` FROM chunks c
			ORDER BY c.created_at, c.artifact_id, c.ordinal
			LIMIT ?
		`, limit)
	}
	return s.queryChunks(ctx, `
		SELECT `+chunkColumns+` FROM chunks c
		LEFT JOIN embeddings e ON e.chunk_id = c.id
		WHERE e.chunk_id IS NULL
		ORDER BY c.created_at, c.artifact_id, c.ordinal
		LIMIT ?
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
		return 0, fmt.Errorf("counting chunks: %w", err)
	}
	return n, nil
}

func (s *Store) queryChunks(ctx context.Context, query string, args ...any) ([]domain.Chunk, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	var chunks []domain.Chunk //nolint:prealloc // size unknown from query
	for rows.Next() {
		c, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunks: %w", err)
	}
	return chunks, nil
}

// ==================== Helper Functions ====================

func scanArtifact(row scanner) (*domain.Artifact, error) {
	var (
		a            domain.Artifact
		artifactType string
		metadataJSON string
		createdAt    time.Time
		updatedAt    time.Time
	)
	if err := row.Scan(&a.ID, &a.Title, &a.Description, &artifactType, &a.Filename, &a.MIMEType,
		&a.Content, &a.ContentHash, &metadataJSON, &a.ScopeID, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning artifact: %w", err)
	}

	md, err := unmarshalMetadata(metadataJSON)
	if err != nil {
		return nil, err
	}
	a.Type = domain.ArtifactType(artifactType)
	a.Metadata = md
	a.CreatedAt = createdAt
	a.UpdatedAt = updatedAt
	return &a, nil
}

func scanChunk(row scanner) (*domain.Chunk, error) {
	var (
		c            domain.Chunk
		metadataJSON string
	)
	if err := row.Scan(&c.ID, &c.ArtifactID, &c.Ordinal, &c.Content, &c.TokenCount,
		&metadataJSON, &c.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning chunk: %w", err)
	}

	md, err := unmarshalMetadata(metadataJSON)
	if err != nil {
		return nil, err
	}
	c.Metadata = md
	return &c, nil
}

func marshalMetadata(md domain.Metadata) (string, error) {
	if md == nil {
		return "{}", nil
	}
	b, err := json.Marshal(md)
	if err != nil {
		return "", fmt.Errorf("marshalling metadata: %w", err)
	}
	return string(b), nil
}

func unmarshalMetadata(s string) (domain.Metadata, error) {
	md := domain.Metadata{}
	if s == "" {
		return md, nil
	}
	if err := json.Unmarshal([]byte(s), &md); err != nil {
		return nil, fmt.Errorf("unmarshalling metadata: %w", err)
	}
	return md, nil
}
