// Package pdf provides a Normaliser for PDF documents backed by
// github.com/ledongthuc/pdf.
package pdf

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/custodia-labs/kacey/internal/core/domain"
	"github.com/custodia-labs/kacey/internal/core/ports/driven"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Document is the decoded form of a PDF.
type Document struct {
	Text   string
	Pages  int
	Title  string
	Author string
}

// Decoder extracts text and document info from PDF bytes.
type Decoder interface {
	Decode(content []byte) (*Document, error)
}

// Normaliser handles PDF documents.
type Normaliser struct {
	decoder Decoder
}

// New creates a PDF normaliser using the pure-Go decoder.
func New() *Normaliser {
	return &Normaliser{decoder: LedongthucDecoder{}}
}

// NewWithDecoder creates a PDF normaliser with a custom decoder.
func NewWithDecoder(d Decoder) *Normaliser {
	return &Normaliser{decoder: d}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{"application/pdf"}
}

// SupportedExtensions returns the filename extensions this normaliser handles.
func (n *Normaliser) SupportedExtensions() []string {
	return []string{"pdf"}
}

// Normalise extracts the plain text of every page.
func (n *Normaliser) Normalise(_ context.Context, raw *domain.RawDocument) (*driven.NormaliseResult, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	doc, err := n.decoder.Decode(raw.Content)
	if err != nil {
		return nil, domain.NewParseError(domain.ArtifactTypePDF, raw.Filename, err)
	}

	md := domain.Metadata{
		domain.MetaPageCount: doc.Pages,
		domain.MetaWordCount: domain.WordCount(doc.Text),
		domain.MetaLanguage:  "en",
	}
	if title := strings.TrimSpace(doc.Title); title != "" {
		md[domain.MetaTitle] = title
	}
	if author := strings.TrimSpace(doc.Author); author != "" {
		md[domain.MetaAuthor] = author
	}

	return &driven.NormaliseResult{
		Content:  doc.Text,
		Type:     domain.ArtifactTypePDF,
		Metadata: md,
	}, nil
}

// LedongthucDecoder decodes PDFs with github.com/ledongthuc/pdf.
type LedongthucDecoder struct{}

// Decode reads all page text and the Info dictionary.
func (LedongthucDecoder) Decode(content []byte) (doc *Document, err error) {
	// The decoder panics on some malformed cross-reference tables.
	defer func() {
		if r := recover(); r != nil {
			doc, err = nil, fmt.Errorf("malformed pdf: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, err
	}

	textReader, err := r.GetPlainText()
	if err != nil {
		return nil, fmt.Errorf("extract text: %w", err)
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(textReader); err != nil {
		return nil, fmt.Errorf("read text: %w", err)
	}

	info := r.Trailer().Key("Info")
	return &Document{
		Text:   buf.String(),
		Pages:  r.NumPage(),
		Title:  info.Key("Title").Text(),
		Author: info.Key("Author").Text(),
	}, nil
}
