// Package docx provides a Normaliser for Word documents.
// The OOXML package is a zip archive; text comes from word/document.xml and
// the title and author from docProps/core.xml.
package docx

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/custodia-labs/kacey/internal/core/domain"
	"github.com/custodia-labs/kacey/internal/core/ports/driven"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// errNoDocumentPart is returned for archives without word/document.xml.
var errNoDocumentPart = errors.New("missing word/document.xml")

// Normaliser handles DOCX documents.
// Legacy binary .doc files are accepted for routing but fail to parse.
type Normaliser struct{}

// New creates a new DOCX normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
		"application/msword",
	}
}

// SupportedExtensions returns the filename extensions this normaliser handles.
func (n *Normaliser) SupportedExtensions() []string {
	return []string{"docx", "doc"}
}

// Normalise extracts raw text with paragraphs joined by newlines.
func (n *Normaliser) Normalise(_ context.Context, raw *domain.RawDocument) (*driven.NormaliseResult, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	reader, err := zip.NewReader(bytes.NewReader(raw.Content), int64(len(raw.Content)))
	if err != nil {
		return nil, domain.NewParseError(domain.ArtifactTypeDOCX, raw.Filename, err)
	}

	part, err := readPart(reader, "word/document.xml")
	if err != nil {
		return nil, domain.NewParseError(domain.ArtifactTypeDOCX, raw.Filename, err)
	}

	content, err := extractText(part)
	if err != nil {
		return nil, domain.NewParseError(domain.ArtifactTypeDOCX, raw.Filename, err)
	}

	md := domain.Metadata{
		domain.MetaWordCount: domain.WordCount(content),
		domain.MetaLanguage:  "en",
	}
	if props, err := readPart(reader, "docProps/core.xml"); err == nil {
		var core coreXML
		if xml.Unmarshal(props, &core) == nil {
			if title := strings.TrimSpace(core.Title); title != "" {
				md[domain.MetaTitle] = title
			}
			if author := strings.TrimSpace(core.Creator); author != "" {
				md[domain.MetaAuthor] = author
			}
		}
	}

	return &driven.NormaliseResult{
		Content:  content,
		Type:     domain.ArtifactTypeDOCX,
		Metadata: md,
	}, nil
}

// readPart returns the bytes of a named archive member.
func readPart(reader *zip.Reader, name string) ([]byte, error) {
	for _, file := range reader.File {
		if file.Name != name {
			continue
		}

		rc, err := file.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", name, err)
		}
		defer rc.Close()

		return io.ReadAll(rc)
	}
	if name == "word/document.xml" {
		return nil, errNoDocumentPart
	}
	return nil, fmt.Errorf("missing %s", name)
}

// extractText walks the WordprocessingML token stream. Text runs (w:t) are
// concatenated, tabs and breaks kept, and each paragraph (w:p) ends a line.
// Paragraphs inside tables are included.
func extractText(part []byte) (string, error) {
	dec := xml.NewDecoder(bytes.NewReader(part))

	var (
		sb     strings.Builder
		inText bool
		paras  []string
	)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				sb.WriteByte('\t')
			case "br", "cr":
				sb.WriteByte('\n')
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				paras = append(paras, sb.String())
				sb.Reset()
			}
		case xml.CharData:
			if inText {
				sb.Write(t)
			}
		}
	}
	if sb.Len() > 0 {
		paras = append(paras, sb.String())
	}

	return strings.TrimSpace(strings.Join(paras, "\n")), nil
}

// coreXML is the subset of docProps/core.xml we read.
type coreXML struct {
	Title   string `xml:"title"`
	Creator string `xml:"creator"`
}
