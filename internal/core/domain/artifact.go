package domain

import (
	"mime"
	"path/filepath"
	"strings"
	"time"
)

// ArtifactType is the declared kind of an uploaded document.
type ArtifactType string

// Supported artifact types. DOC folds into DOCX and XLS into XLSX.
const (
	ArtifactTypePDF   ArtifactType = "PDF"
	ArtifactTypeDOCX  ArtifactType = "DOCX"
	ArtifactTypeXLSX  ArtifactType = "XLSX"
	ArtifactTypeCSV   ArtifactType = "CSV"
	ArtifactTypeHTML  ArtifactType = "HTML"
	ArtifactTypeTXT   ArtifactType = "TXT"
	ArtifactTypeOther ArtifactType = "OTHER"
)

// String returns the string representation.
func (t ArtifactType) String() string {
	return string(t)
}

// IsValid returns true if t is one of the supported artifact types.
func (t ArtifactType) IsValid() bool {
	switch t {
	case ArtifactTypePDF, ArtifactTypeDOCX, ArtifactTypeXLSX, ArtifactTypeCSV,
		ArtifactTypeHTML, ArtifactTypeTXT, ArtifactTypeOther:
		return true
	}
	return false
}

// ArtifactTypeFor classifies a document from its MIME type, falling back to
// the filename extension. Unknown inputs map to ArtifactTypeOther.
func ArtifactTypeFor(mimeType, filename string) ArtifactType {
	mt := strings.ToLower(strings.TrimSpace(mimeType))
	if i := strings.IndexByte(mt, ';'); i >= 0 {
		mt = strings.TrimSpace(mt[:i])
	}

	switch {
	case mt == "application/pdf":
		return ArtifactTypePDF
	case strings.Contains(mt, "wordprocessingml"), mt == "application/msword":
		return ArtifactTypeDOCX
	case mt == "text/csv":
		return ArtifactTypeCSV
	case strings.Contains(mt, "spreadsheetml"), mt == "application/vnd.ms-excel":
		return ArtifactTypeXLSX
	case mt == "text/html":
		return ArtifactTypeHTML
	case mt == "text/plain", mt == "text/markdown", mt == "text/x-markdown":
		return ArtifactTypeTXT
	}

	switch FileExtension(filename) {
	case "pdf":
		return ArtifactTypePDF
	case "docx", "doc":
		return ArtifactTypeDOCX
	case "xlsx", "xls":
		return ArtifactTypeXLSX
	case "csv":
		return ArtifactTypeCSV
	case "html", "htm":
		return ArtifactTypeHTML
	case "txt", "md", "markdown":
		return ArtifactTypeTXT
	}
	return ArtifactTypeOther
}

// MIMETypeFor maps a filename to its MIME type without parameters.
// Unknown extensions yield "" and leave classification to the filename.
func MIMETypeFor(filename string) string {
	mt := mime.TypeByExtension(strings.ToLower(filepath.Ext(filename)))
	if i := strings.IndexByte(mt, ';'); i >= 0 {
		mt = strings.TrimSpace(mt[:i])
	}
	return mt
}

// FileExtension returns the lower-cased extension of filename without the dot.
func FileExtension(filename string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
}

// Artifact is a logical document created from a successfully parsed upload.
// Content and metadata change only through a full re-ingest.
type Artifact struct {
	// ID is the unique identifier.
	ID string

	// Title is the display title. Together with ScopeID it identifies the
	// artifact for re-ingestion.
	Title string

	// Description is optional free text supplied by the uploader.
	Description string

	// Type is the declared document kind.
	Type ArtifactType

	// Filename is the original upload filename.
	Filename string

	// MIMEType is the declared content type of the upload.
	MIMEType string

	// Content is the normalised plain text.
	Content string

	// ContentHash is the hex SHA-256 of Content.
	ContentHash string

	// Metadata holds parser-produced fields such as word and page counts.
	Metadata Metadata

	// ScopeID restricts retrieval to a role or tenant. Empty means unscoped.
	ScopeID string

	// CreatedAt is when the artifact was first ingested.
	CreatedAt time.Time

	// UpdatedAt is when the artifact was last (re-)ingested.
	UpdatedAt time.Time
}

// Chunk is a contiguous, overlapping word window of an artifact's content.
// Ordinals of one artifact are exactly 0..N-1.
type Chunk struct {
	// ID is the unique identifier.
	ID string

	// ArtifactID references the owning artifact.
	ArtifactID string

	// Ordinal is the zero-based reading order within the artifact.
	Ordinal int

	// Content is the window text.
	Content string

	// TokenCount estimates tokens as the window's word count.
	TokenCount int

	// Metadata carries artifactTitle and artifactType for self-contained display.
	Metadata Metadata

	// CreatedAt is when the chunk was persisted.
	CreatedAt time.Time
}

// Embedding is the vector representation of exactly one chunk.
type Embedding struct {
	// ChunkID references the embedded chunk. At most one embedding per chunk.
	ChunkID string

	// Vector has the fixed dimensionality of the embedding model.
	Vector []float32

	// Model names the embedding model that produced Vector.
	Model string

	// CreatedAt is when the embedding was written.
	CreatedAt time.Time
}
