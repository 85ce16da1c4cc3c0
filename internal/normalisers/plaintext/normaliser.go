// Package plaintext provides a Normaliser for UTF-8 text files.
package plaintext

import (
	"bytes"
	"context"
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/kacey/internal/core/domain"
	"github.com/custodia-labs/kacey/internal/core/ports/driven"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

var utf8BOM = []byte("\xef\xbb\xbf")

// Normaliser handles plain text documents.
type Normaliser struct{}

// New creates a new plain text normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{"text/plain"}
}

// SupportedExtensions returns the filename extensions this normaliser handles.
func (n *Normaliser) SupportedExtensions() []string {
	return []string{"txt"}
}

// Normalise passes the text through unchanged apart from a leading byte
// order mark. Invalid UTF-8 sequences become U+FFFD.
func (n *Normaliser) Normalise(_ context.Context, raw *domain.RawDocument) (*driven.NormaliseResult, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	content := string(bytes.TrimPrefix(raw.Content, utf8BOM))
	if !utf8.ValidString(content) {
		content = strings.ToValidUTF8(content, "\uFFFD")
	}

	return &driven.NormaliseResult{
		Content: content,
		Type:    domain.ArtifactTypeTXT,
		Metadata: domain.Metadata{
			domain.MetaWordCount:      domain.WordCount(content),
			domain.MetaCharacterCount: utf8.RuneCountInString(content),
		},
	}, nil
}
