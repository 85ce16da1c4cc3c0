package driving

import (
	"context"

	"github.com/custodia-labs/kacey/internal/core/domain"
)

// RetrievalService finds the chunks most similar to a query.
type RetrievalService interface {
	// Retrieve embeds query and returns up to limit chunks, best first.
	// An unprovisioned or empty store yields an empty slice. Embedding
	// failures are returned wrapped in domain.ErrRetrievalFailure.
	Retrieve(ctx context.Context, query string, limit int, scopeID string) ([]domain.RetrievalResult, error)
}
