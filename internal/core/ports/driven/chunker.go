package driven

// Chunker splits normalised text into overlapping word windows.
// Implementations are deterministic: equal input gives equal output.
type Chunker interface {
	// Chunk returns the windows in reading order. Empty text yields no windows.
	// A chunker whose window never advances fails with
	// domain.ErrInvalidConfiguration instead of looping.
	Chunk(text string) ([]string, error)
}
