package domain

import (
	"maps"
	"strings"
)

// Metadata keys read by the pipeline. Parsers may add any other keys.
const (
	MetaWordCount      = "wordCount"
	MetaArtifactTitle  = "artifactTitle"
	MetaArtifactType   = "artifactType"
	MetaArtifactID     = "artifactId"
	MetaSimilarity     = "similarity"
	MetaOrdinal        = "ordinal"
	MetaTitle          = "title"
	MetaAuthor         = "author"
	MetaPageCount      = "pageCount"
	MetaLanguage       = "language"
	MetaSheets         = "sheets"
	MetaSheetCount     = "sheetCount"
	MetaCharacterCount = "characterCount"
)

// Metadata is an open key-value map produced at the parsing boundary.
// The keys above have typed accessors so consumers never re-parse untyped values.
type Metadata map[string]any

// WordCount counts whitespace-separated words. This is the canonical word
// count used for artifact metadata and chunk token estimates.
func WordCount(text string) int {
	return len(strings.Fields(text))
}

// NewChunkMetadata builds the denormalised metadata stored on each chunk.
func NewChunkMetadata(artifactTitle string, artifactType ArtifactType) Metadata {
	return Metadata{
		MetaArtifactTitle: artifactTitle,
		MetaArtifactType:  string(artifactType),
	}
}

// Clone returns a shallow copy, never nil.
func (m Metadata) Clone() Metadata {
	out := make(Metadata, len(m)+2)
	maps.Copy(out, m)
	return out
}

// WordCount returns the wordCount entry, or 0.
func (m Metadata) WordCount() int {
	return m.Int(MetaWordCount)
}

// ArtifactTitle returns the artifactTitle entry, or "".
func (m Metadata) ArtifactTitle() string {
	return m.String(MetaArtifactTitle)
}

// ArtifactType returns the artifactType entry, or ArtifactTypeOther.
func (m Metadata) ArtifactType() ArtifactType {
	t := ArtifactType(m.String(MetaArtifactType))
	if !t.IsValid() {
		return ArtifactTypeOther
	}
	return t
}

// Similarity returns the similarity entry attached at retrieval time, or 0.
func (m Metadata) Similarity() float64 {
	switch v := m[MetaSimilarity].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	}
	return 0
}

// String returns the string value for key, or "".
func (m Metadata) String(key string) string {
	s, _ := m[key].(string)
	return s
}

// Int returns the integer value for key. JSON and TOML decoding produce
// float64 and int64 respectively, so both are accepted.
func (m Metadata) Int(key string) int {
	switch v := m[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}
