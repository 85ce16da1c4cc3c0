package driven

import (
	"context"

	"github.com/custodia-labs/kacey/internal/core/domain"
)

// Normaliser turns raw upload bytes into plain text.
// Each normaliser handles a family of formats (e.g., PDF, spreadsheets).
type Normaliser interface {
	// SupportedMIMETypes returns the MIME types this normaliser handles.
	SupportedMIMETypes() []string

	// SupportedExtensions returns lower-case filename extensions, without the
	// dot, used when the MIME type is absent or unrecognised.
	SupportedExtensions() []string

	// Normalise extracts content and metadata. Decoder failures are returned
	// as *domain.ParseError.
	Normalise(ctx context.Context, raw *domain.RawDocument) (*NormaliseResult, error)
}

// NormaliseResult contains the output of normalisation.
type NormaliseResult struct {
	// Content is the extracted plain text.
	Content string

	// Type is the artifact type of the parsed document.
	Type domain.ArtifactType

	// Metadata always contains wordCount.
	Metadata domain.Metadata
}

// NormaliserRegistry selects the normaliser for an upload: by MIME type
// first, then by filename extension. Neither matching fails with
// domain.ErrUnsupportedFormat.
type NormaliserRegistry interface {
	// Normalise transforms a raw document using the matching normaliser.
	Normalise(ctx context.Context, raw *domain.RawDocument) (*NormaliseResult, error)

	// Register adds a normaliser to the registry.
	Register(normaliser Normaliser)

	// SupportedMIMETypes returns all MIME types that can be normalised.
	SupportedMIMETypes() []string
}
