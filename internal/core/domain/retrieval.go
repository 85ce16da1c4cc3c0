package domain

// DefaultRetrievalLimit is the number of chunks retrieved per chat turn.
const DefaultRetrievalLimit = 10

// DefaultConfidence is the fixed confidence reported with composed answers.
const DefaultConfidence = 0.9

// FallbackAnswer replaces an empty or failed generation so a chat turn
// always has an assistant reply.
const FallbackAnswer = "I apologize, but I could not generate a response."

// RetrievalResult pairs a chunk with its cosine similarity to a query.
// Similarity is in [0,1] where 1 is identical. Never persisted or cached.
type RetrievalResult struct {
	Chunk      Chunk
	Similarity float64
}

// ContextChunk is one entry of the context window handed to the composer.
type ContextChunk struct {
	Content  string
	Metadata Metadata
}

// ContextFromResults converts ranked retrieval results into context entries,
// preserving order. Each entry's metadata gains the similarity and ordinal.
func ContextFromResults(results []RetrievalResult) []ContextChunk {
	out := make([]ContextChunk, len(results))
	for i, r := range results {
		md := r.Chunk.Metadata.Clone()
		md[MetaArtifactID] = r.Chunk.ArtifactID
		md[MetaSimilarity] = r.Similarity
		md[MetaOrdinal] = r.Chunk.Ordinal
		out[i] = ContextChunk{Content: r.Chunk.Content, Metadata: md}
	}
	return out
}

// ComposedAnswer is a grounded reply: the generated text, the metadata of
// each distinct cited source in order of first citation, and a confidence.
type ComposedAnswer struct {
	Message    string
	Sources    []Metadata
	Confidence float64
}
