package driven

import "context"

// VectorStore persists one embedding per chunk and answers cosine
// nearest-neighbour queries.
//
// Every method except Dimensions returns domain.ErrVectorStoreUnprovisioned when the backing
// table does not exist. Search on a provisioned but empty store returns an
// empty slice and no error.
type VectorStore interface {
	// Upsert inserts or replaces the embedding for chunkID.
	// A vector whose length differs from Dimensions fails with
	// domain.ErrInvalidConfiguration.
	Upsert(ctx context.Context, chunkID string, vector []float32, model string) error

	// Search returns up to limit hits, best match first. Ties are broken by
	// distance ascending, then chunk ID. When scopeID is non-empty only
	// chunks whose artifact belongs to that scope are considered.
	Search(ctx context.Context, query []float32, limit int, scopeID string) ([]VectorHit, error)

	// EmbeddingCount returns the number of stored embeddings.
	EmbeddingCount(ctx context.Context) (int, error)

	// Dimensions returns the vector size the store accepts.
	Dimensions() int
}

// VectorHit represents a similarity search result.
type VectorHit struct {
	// ChunkID is the matched chunk.
	ChunkID string

	// Similarity is 1 - cosine distance, clamped to [0,1].
	Similarity float64
}
