// Package markdown provides a Normaliser for Markdown documents.
package markdown

import (
	"bytes"
	"context"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/kacey/internal/core/domain"
	"github.com/custodia-labs/kacey/internal/core/ports/driven"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

var (
	codeFence    = regexp.MustCompile("(?m)^```.*$")
	inlineCode   = regexp.MustCompile("`([^`]+)`")
	images       = regexp.MustCompile(`!\[([^\]]*)\]\([^)]+\)`)
	links        = regexp.MustCompile(`\[([^\]]+)\]\([^)]+\)`)
	headings     = regexp.MustCompile(`(?m)^#{1,6}[ \t]+`)
	emphasis     = regexp.MustCompile(`(\*\*|__|\*)(\S[^*\n]*?)(\*\*|__|\*)`)
	blockquote   = regexp.MustCompile(`(?m)^>[ \t]?`)
	rule         = regexp.MustCompile(`(?m)^[ \t]*([-*_][ \t]*){3,}$`)
	listMarker   = regexp.MustCompile(`(?m)^[ \t]*([-*+]|\d+\.)[ \t]+`)
	tableDivider = regexp.MustCompile(`(?m)^[ \t]*\|?([ \t]*:?-+:?[ \t]*\|)+[ \t]*(:?-+:?)?[ \t]*$`)
	blankRuns    = regexp.MustCompile(`\n{3,}`)
)

// Normaliser handles Markdown documents.
type Normaliser struct{}

// New creates a new Markdown normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{"text/markdown", "text/x-markdown"}
}

// SupportedExtensions returns the filename extensions this normaliser handles.
func (n *Normaliser) SupportedExtensions() []string {
	return []string{"md", "markdown"}
}

// Normalise strips Markdown syntax and keeps the readable text. Code block
// contents are kept, only their fences go. The first level-one heading
// becomes the title metadata.
func (n *Normaliser) Normalise(_ context.Context, raw *domain.RawDocument) (*driven.NormaliseResult, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	source := string(bytes.TrimPrefix(raw.Content, []byte("\xef\xbb\xbf")))
	if !utf8.ValidString(source) {
		source = strings.ToValidUTF8(source, "\uFFFD")
	}
	content := Strip(source)

	meta := domain.Metadata{
		domain.MetaWordCount:      domain.WordCount(content),
		domain.MetaCharacterCount: utf8.RuneCountInString(content),
	}
	if title := firstHeading(source); title != "" {
		meta[domain.MetaTitle] = title
	}

	return &driven.NormaliseResult{
		Content:  content,
		Type:     domain.ArtifactTypeTXT,
		Metadata: meta,
	}, nil
}

// Strip converts Markdown to plain text.
func Strip(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = codeFence.ReplaceAllString(s, "")
	s = tableDivider.ReplaceAllString(s, "")
	s = inlineCode.ReplaceAllString(s, "$1")
	s = images.ReplaceAllString(s, "$1")
	s = links.ReplaceAllString(s, "$1")
	s = rule.ReplaceAllString(s, "")
	s = headings.ReplaceAllString(s, "")
	s = blockquote.ReplaceAllString(s, "")
	s = listMarker.ReplaceAllString(s, "")
	s = emphasis.ReplaceAllString(s, "$2")
	s = strings.ReplaceAll(s, "|", " ")
	s = blankRuns.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

func firstHeading(s string) string {
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "# ") {
			return strings.TrimSpace(strings.TrimPrefix(line, "# "))
		}
	}
	return ""
}
