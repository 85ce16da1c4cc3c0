package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/kacey/internal/core/domain"
	"github.com/custodia-labs/kacey/internal/core/ports/driven"
	"github.com/custodia-labs/kacey/internal/core/ports/driving"
	"github.com/custodia-labs/kacey/internal/logger"
)

// Ensure IngestionService implements the interface.
var _ driving.IngestionService = (*IngestionService)(nil)

// IngestionConfig tunes the ingestion pipeline.
type IngestionConfig struct {
	// Concurrency bounds in-flight embedding calls. Clamped to [1, domain.MaxConcurrency].
	Concurrency int

	// SkipUnchanged returns early when a re-upload has the same content hash.
	SkipUnchanged bool
}

// IngestionService runs uploads through parse, persist, chunk and embed.
//
// Chunks are persisted with their ordinals before any embedding call, so an
// ingestion that fails or is cancelled during embedding leaves a complete
// artifact whose missing embeddings the repair sweep fills in.
type IngestionService struct {
	normalisers driven.NormaliserRegistry
	chunker     driven.Chunker
	artifacts   driven.ArtifactStore
	vectors     driven.VectorStore
	embedding   driven.EmbeddingService
	config      IngestionConfig

	now   func() time.Time
	newID func() string
}

// NewIngestionService creates an ingestion service.
func NewIngestionService(
	normalisers driven.NormaliserRegistry,
	chunker driven.Chunker,
	artifacts driven.ArtifactStore,
	vectors driven.VectorStore,
	embedding driven.EmbeddingService,
	config IngestionConfig,
) *IngestionService {
	switch {
	case config.Concurrency < 1:
		config.Concurrency = domain.DefaultConcurrency
	case config.Concurrency > domain.MaxConcurrency:
		config.Concurrency = domain.MaxConcurrency
	}

	return &IngestionService{
		normalisers: normalisers,
		chunker:     chunker,
		artifacts:   artifacts,
		vectors:     vectors,
		embedding:   embedding,
		config:      config,
		now:         time.Now,
		newID:       uuid.NewString,
	}
}

// Ingest parses, persists, chunks and embeds one upload.
//
// When the embed step aborts (unprovisioned vector store, cancellation) the
// partial result is returned together with the *domain.IngestionError.
func (s *IngestionService) Ingest(ctx context.Context, req domain.IngestRequest) (*domain.IngestResult, error) {
	logger.Section("Ingest")

	title := strings.TrimSpace(req.ArtifactTitle())
	if title == "" {
		return nil, &domain.IngestionError{
			Step: domain.IngestStepParse,
			Err:  fmt.Errorf("%w: upload needs a title or filename", domain.ErrInvalidInput),
		}
	}
	logger.Debug("Title: %q, MIME: %q, scope: %q, %d bytes", title, req.MIMEType, req.ScopeID, len(req.Content))

	// 1. Parse. Nothing is written when the document cannot be read.
	parsed, err := s.normalisers.Normalise(ctx, req.RawDocument())
	if err != nil {
		logger.Warn("Parse %q failed: %v", title, err)
		return nil, &domain.IngestionError{Step: domain.IngestStepParse, Err: err}
	}
	artifactType := parsed.Type
	if !artifactType.IsValid() || artifactType == domain.ArtifactTypeOther {
		artifactType = domain.ArtifactTypeFor(req.MIMEType, req.Filename)
	}
	hash := contentHash(parsed.Content)

	// 2. Persist the artifact, replacing an earlier upload with the same title.
	artifact, updated, err := s.resolveArtifact(ctx, title, req.ScopeID)
	if err != nil {
		return nil, &domain.IngestionError{Step: domain.IngestStepPersist, Err: err}
	}

	if updated && s.config.SkipUnchanged && artifact.ContentHash == hash {
		existing, err := s.artifacts.GetChunks(ctx, artifact.ID)
		if err == nil && len(existing) > 0 {
			logger.Info("Artifact %s unchanged, skipping re-ingestion", artifact.ID)
			return &domain.IngestResult{
				Artifact:  artifact,
				Chunks:    len(existing),
				Updated:   true,
				Unchanged: true,
			}, nil
		}
	}

	now := s.now()
	artifact.Title = title
	artifact.Description = req.Description
	artifact.Type = artifactType
	artifact.Filename = req.Filename
	artifact.MIMEType = req.MIMEType
	artifact.Content = parsed.Content
	artifact.ContentHash = hash
	artifact.Metadata = parsed.Metadata
	artifact.ScopeID = req.ScopeID
	artifact.UpdatedAt = now
	if artifact.CreatedAt.IsZero() {
		artifact.CreatedAt = now
	}

	if err := s.artifacts.SaveArtifact(ctx, artifact); err != nil {
		return nil, &domain.IngestionError{Step: domain.IngestStepPersist, ArtifactID: artifact.ID, Err: err}
	}
	logger.Debug("Artifact %s saved (updated=%t)", artifact.ID, updated)

	// 3. Chunk.
	windows, err := s.chunker.Chunk(parsed.Content)
	if err != nil {
		return nil, &domain.IngestionError{Step: domain.IngestStepChunk, ArtifactID: artifact.ID, Err: err}
	}

	// 4. Persist every chunk, ordinals 0..N-1, in one batch.
	meta := domain.NewChunkMetadata(title, artifactType)
	chunks := make([]domain.Chunk, len(windows))
	for i, window := range windows {
		chunks[i] = domain.Chunk{
			ID:         s.newID(),
			ArtifactID: artifact.ID,
			Ordinal:    i,
			Content:    window,
			TokenCount: domain.WordCount(window),
			Metadata:   meta.Clone(),
			CreatedAt:  now,
		}
	}
	if err := s.artifacts.ReplaceChunks(ctx, artifact.ID, chunks); err != nil {
		return nil, &domain.IngestionError{Step: domain.IngestStepPersist, ArtifactID: artifact.ID, Err: err}
	}
	logger.Debug("Persisted %d chunks", len(chunks))

	result := &domain.IngestResult{
		Artifact: artifact,
		Chunks:   len(chunks),
		Updated:  updated,
	}

	// 5. Embed with bounded concurrency. Per-chunk failures are counted.
	embedded, failed, err := s.embedChunks(ctx, chunks)
	result.Embedded = embedded
	result.Failed = failed
	if err != nil {
		return result, &domain.IngestionError{Step: domain.IngestStepEmbed, ArtifactID: artifact.ID, Err: err}
	}

	logger.Info("Ingested %q: %d chunks, %d embedded, %d failed", title, result.Chunks, embedded, failed)
	return result, nil
}

// RepairMissingEmbeddings embeds up to batchSize chunks that have none,
// oldest first. Per-chunk failures are counted and retried by the next sweep.
func (s *IngestionService) RepairMissingEmbeddings(ctx context.Context, batchSize int) (*domain.RepairResult, error) {
	logger.Section("Repair")

	if batchSize <= 0 {
		batchSize = domain.DefaultRepairBatchSize
	}

	chunks, err := s.artifacts.ChunksWithoutEmbedding(ctx, batchSize)
	if err != nil {
		return nil, fmt.Errorf("list chunks without embedding: %w", err)
	}
	logger.Debug("Found %d chunks without embedding", len(chunks))

	result := &domain.RepairResult{Scanned: len(chunks)}
	if len(chunks) == 0 {
		return result, nil
	}

	repaired, failed, err := s.embedChunks(ctx, chunks)
	result.Repaired = repaired
	result.Failed = failed
	if err != nil {
		return result, fmt.Errorf("repair embeddings: %w", err)
	}

	logger.Info("Repair sweep: %d scanned, %d repaired, %d failed", result.Scanned, repaired, failed)
	return result, nil
}

// resolveArtifact returns the artifact to write: the existing one for
// (title, scope) when present, otherwise a fresh one.
func (s *IngestionService) resolveArtifact(ctx context.Context, title, scopeID string) (*domain.Artifact, bool, error) {
	existing, err := s.artifacts.FindArtifact(ctx, title, scopeID)
	switch {
	case err == nil:
		return existing, true, nil
	case errors.Is(err, domain.ErrNotFound):
		return &domain.Artifact{ID: s.newID()}, false, nil
	default:
		return nil, false, fmt.Errorf("find artifact %q: %w", title, err)
	}
}

// embedChunks embeds and upserts chunks with at most config.Concurrency
// calls in flight. A failing chunk does not stop the others. Errors that
// affect every chunk (an unprovisioned store, a dimension mismatch,
// cancellation) abort the batch and are returned.
func (s *IngestionService) embedChunks(ctx context.Context, chunks []domain.Chunk) (embedded, failed int, err error) {
	if len(chunks) == 0 {
		return 0, 0, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.config.Concurrency)

	var mu sync.Mutex
	for i := range chunks {
		chunk := chunks[i]
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}

			chunkErr := s.embedChunk(gctx, chunk)

			mu.Lock()
			defer mu.Unlock()
			if chunkErr == nil {
				embedded++
				return nil
			}
			if isFatalEmbedError(chunkErr) {
				return chunkErr
			}
			logger.Warn("Embedding chunk %s (ordinal %d) failed: %v", chunk.ID, chunk.Ordinal, chunkErr)
			return nil
		})
	}

	err = g.Wait()
	if err == nil && ctx.Err() != nil {
		err = ctx.Err()
	}

	// Chunks never started count as failed so Embedded+Failed covers the batch.
	failed = len(chunks) - embedded
	return embedded, failed, err
}

func (s *IngestionService) embedChunk(ctx context.Context, chunk domain.Chunk) error {
	vector, err := s.embedding.Embed(ctx, chunk.Content)
	if err != nil {
		return err
	}
	if err := s.vectors.Upsert(ctx, chunk.ID, vector, s.embedding.ModelName()); err != nil {
		return fmt.Errorf("store embedding: %w", err)
	}
	return nil
}

func isFatalEmbedError(err error) bool {
	return errors.Is(err, domain.ErrVectorStoreUnprovisioned) ||
		errors.Is(err, domain.ErrInvalidConfiguration) ||
		errors.Is(err, context.Canceled)
}

func contentHash(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}
