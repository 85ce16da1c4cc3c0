// Package chunker provides a fixed-size word window chunker.
package chunker

import (
	"fmt"
	"strings"

	"github.com/custodia-labs/kacey/internal/core/domain"
	"github.com/custodia-labs/kacey/internal/core/ports/driven"
)

// Ensure Processor implements the interface.
var _ driven.Chunker = (*Processor)(nil)

// DefaultChunkSize is the default number of words per chunk.
const DefaultChunkSize = domain.DefaultChunkSize

// DefaultChunkOverlap is the default number of words shared by consecutive chunks.
const DefaultChunkOverlap = domain.DefaultChunkOverlap

// Processor splits text into windows of chunkSize words, each starting
// chunkSize-overlap words after the previous one.
type Processor struct {
	chunkSize int
	overlap   int
}

// Option configures the chunker processor.
type Option func(*Processor)

// WithChunkSize sets the chunk size in words.
func WithChunkSize(size int) Option {
	return func(p *Processor) {
		p.chunkSize = size
	}
}

// WithOverlap sets the overlap between chunks in words.
func WithOverlap(overlap int) Option {
	return func(p *Processor) {
		p.overlap = overlap
	}
}

// New creates a chunker with the given options.
// Returns domain.ErrInvalidConfiguration when the window would never advance.
func New(opts ...Option) (*Processor, error) {
	p := &Processor{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultChunkOverlap,
	}

	for _, opt := range opts {
		opt(p)
	}

	if err := p.validate(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Processor) validate() error {
	if p.chunkSize <= 0 {
		return fmt.Errorf("%w: chunk size must be positive, got %d", domain.ErrInvalidConfiguration, p.chunkSize)
	}
	if p.overlap < 0 {
		return fmt.Errorf("%w: chunk overlap must not be negative, got %d", domain.ErrInvalidConfiguration, p.overlap)
	}
	if p.overlap >= p.chunkSize {
		return fmt.Errorf("%w: chunk overlap %d must be smaller than chunk size %d",
			domain.ErrInvalidConfiguration, p.overlap, p.chunkSize)
	}
	return nil
}

// ChunkSize returns the window size in words.
func (p *Processor) ChunkSize() int {
	return p.chunkSize
}

// Overlap returns the number of shared words between windows.
func (p *Processor) Overlap() int {
	return p.overlap
}

// Chunk splits text on whitespace and joins each window with single spaces.
// A window starts at every multiple of chunkSize-overlap below the word
// count, so the tail may repeat words already covered by the window before.
func (p *Processor) Chunk(text string) ([]string, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}

	words := strings.Fields(text)
	if len(words) == 0 {
		return nil, nil
	}

	step := p.chunkSize - p.overlap
	chunks := make([]string, 0, (len(words)+step-1)/step)

	for start := 0; start < len(words); start += step {
		end := min(start+p.chunkSize, len(words))

		window := strings.TrimSpace(strings.Join(words[start:end], " "))
		if window != "" {
			chunks = append(chunks, window)
		}
	}

	return chunks, nil
}
