package driving

import (
	"context"

	"github.com/custodia-labs/kacey/internal/core/domain"
)

// IngestionService turns uploads into retrievable chunks.
type IngestionService interface {
	// Ingest parses, persists, chunks and embeds an upload. Uploading the
	// same title within the same scope replaces the earlier artifact's
	// content and chunks. Per-chunk embedding failures do not fail the
	// ingestion; they are counted in the result. Aborted ingestions return
	// *domain.IngestionError naming the failed step.
	Ingest(ctx context.Context, req domain.IngestRequest) (*domain.IngestResult, error)

	// RepairMissingEmbeddings embeds up to batchSize chunks that have no
	// embedding. Safe to run repeatedly.
	RepairMissingEmbeddings(ctx context.Context, batchSize int) (*domain.RepairResult, error)
}
