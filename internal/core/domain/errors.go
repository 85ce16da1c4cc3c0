package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedFormat indicates neither the declared MIME type nor the
	// filename extension resolves to a known parser.
	ErrUnsupportedFormat = errors.New("unsupported format")

	// ErrParseFailure indicates a decoder rejected the document bytes.
	// Not retried: the file itself is bad.
	ErrParseFailure = errors.New("parse failure")

	// ErrInvalidConfiguration indicates settings that cannot work, such as a
	// chunk overlap that never advances or mismatched vector dimensions.
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrEmbeddingService indicates the embedding provider call failed,
	// whether by rate limit, timeout, auth or transport.
	ErrEmbeddingService = errors.New("embedding service error")

	// ErrRateLimited indicates a provider rejected a call with HTTP 429.
	// It is always joined with ErrEmbeddingService or ErrGenerationFailure.
	ErrRateLimited = errors.New("rate limited")

	// ErrVectorStoreUnprovisioned indicates the vector table does not exist yet.
	ErrVectorStoreUnprovisioned = errors.New("vector store unprovisioned")

	// ErrGenerationFailure indicates the generation provider call failed.
	ErrGenerationFailure = errors.New("generation failure")

	// ErrRetrievalFailure indicates a query could not be embedded or searched.
	ErrRetrievalFailure = errors.New("retrieval failure")

	// ErrIngestionFailure indicates an ingestion aborted at one of its steps.
	ErrIngestionFailure = errors.New("ingestion failure")

	// ErrLLMUnavailable indicates the LLM service is not configured.
	ErrLLMUnavailable = errors.New("LLM service unavailable")

	// ErrEmbeddingUnavailable indicates the embedding service is not configured.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")
)

// ParseError wraps a decoder failure for one document.
// It matches both ErrParseFailure and the underlying cause.
type ParseError struct {
	Format   ArtifactType
	Filename string
	Err      error
}

// NewParseError creates a ParseError.
func NewParseError(format ArtifactType, filename string, err error) *ParseError {
	return &ParseError{Format: format, Filename: filename, Err: err}
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s %q: %v", e.Format, e.Filename, e.Err)
}

// Unwrap exposes the error kind and the cause.
func (e *ParseError) Unwrap() []error {
	return []error{ErrParseFailure, e.Err}
}

// EmbeddingError is the single classified failure of an embedding provider call.
type EmbeddingError struct {
	Provider string
	Err      error
}

func (e *EmbeddingError) Error() string {
	return fmt.Sprintf("%s embedding: %v", e.Provider, e.Err)
}

// Unwrap exposes the error kind and the cause.
func (e *EmbeddingError) Unwrap() []error {
	return []error{ErrEmbeddingService, e.Err}
}

// ClassifyEmbeddingError wraps err as an EmbeddingError unless it already is one.
func ClassifyEmbeddingError(provider string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrEmbeddingService) {
		return err
	}
	return &EmbeddingError{Provider: provider, Err: err}
}

// GenerationError is the classified failure of a generation provider call.
type GenerationError struct {
	Provider string
	Err      error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("%s generation: %v", e.Provider, e.Err)
}

// Unwrap exposes the error kind and the cause.
func (e *GenerationError) Unwrap() []error {
	return []error{ErrGenerationFailure, e.Err}
}

// IngestStep names the ingestion checkpoint that failed.
type IngestStep string

// Ingestion steps, in pipeline order.
const (
	IngestStepParse   IngestStep = "parse"
	IngestStepPersist IngestStep = "persist"
	IngestStepChunk   IngestStep = "chunk"
	IngestStepEmbed   IngestStep = "embed"
)

// IngestionError reports which step of an ingestion failed so callers can
// tell a bad file (parse) from a transient backend problem (persist, embed).
type IngestionError struct {
	Step       IngestStep
	ArtifactID string
	Err        error
}

func (e *IngestionError) Error() string {
	if e.ArtifactID != "" {
		return fmt.Sprintf("ingest %s (artifact %s): %v", e.Step, e.ArtifactID, e.Err)
	}
	return fmt.Sprintf("ingest %s: %v", e.Step, e.Err)
}

// Unwrap exposes the error kind and the cause.
func (e *IngestionError) Unwrap() []error {
	return []error{ErrIngestionFailure, e.Err}
}

// FailedStep returns the ingestion step carried by err, if any.
func FailedStep(err error) (IngestStep, bool) {
	var ingestErr *IngestionError
	if errors.As(err, &ingestErr) {
		return ingestErr.Step, true
	}
	return "", false
}
