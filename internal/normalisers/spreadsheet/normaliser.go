// Package spreadsheet provides a Normaliser for workbooks and CSV files.
// Each sheet is rendered as CSV under a "--- Sheet: <name> ---" header.
package spreadsheet

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/custodia-labs/kacey/internal/core/domain"
	"github.com/custodia-labs/kacey/internal/core/ports/driven"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

const (
	mimeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	mimeXLS  = "application/vnd.ms-excel"
	mimeCSV  = "text/csv"
)

// defaultSheetName names the single sheet of an anonymous CSV upload.
const defaultSheetName = "Sheet1"

// Normaliser handles XLSX workbooks and CSV files.
type Normaliser struct{}

// New creates a new spreadsheet normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{mimeXLSX, mimeXLS, mimeCSV}
}

// SupportedExtensions returns the filename extensions this normaliser handles.
func (n *Normaliser) SupportedExtensions() []string {
	return []string{"xlsx", "xls", "csv"}
}

type sheet struct {
	name string
	rows [][]string
}

// Normalise renders every sheet as CSV.
func (n *Normaliser) Normalise(_ context.Context, raw *domain.RawDocument) (*driven.NormaliseResult, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	artifactType := domain.ArtifactTypeXLSX
	var (
		sheets []sheet
		err    error
	)
	if isCSV(raw) {
		artifactType = domain.ArtifactTypeCSV
		sheets, err = readCSV(raw)
	} else {
		sheets, err = readWorkbook(raw.Content)
	}
	if err != nil {
		return nil, domain.NewParseError(artifactType, raw.Filename, err)
	}

	var content strings.Builder
	names := make([]string, 0, len(sheets))
	for _, s := range sheets {
		body, err := renderCSV(s.rows)
		if err != nil {
			return nil, domain.NewParseError(artifactType, raw.Filename, err)
		}
		fmt.Fprintf(&content, "\n--- Sheet: %s ---\n%s\n", s.name, body)
		names = append(names, s.name)
	}

	text := content.String()
	return &driven.NormaliseResult{
		Content: text,
		Type:    artifactType,
		Metadata: domain.Metadata{
			domain.MetaSheets:     names,
			domain.MetaSheetCount: len(names),
			domain.MetaWordCount:  domain.WordCount(text),
		},
	}, nil
}

// zipMagic opens every XLSX workbook.
var zipMagic = []byte("PK\x03\x04")

// isCSV prefers the declared MIME type and falls back to the extension.
// Browsers often declare .csv uploads as application/vnd.ms-excel, so an
// Excel MIME type only wins when the content is a zip archive or the
// extension does not say csv.
func isCSV(raw *domain.RawDocument) bool {
	base, _, _ := strings.Cut(raw.MIMEType, ";")
	switch strings.ToLower(strings.TrimSpace(base)) {
	case mimeCSV:
		return true
	case mimeXLSX, mimeXLS:
		if bytes.HasPrefix(raw.Content, zipMagic) {
			return false
		}
	}
	return raw.Extension() == "csv"
}

func readCSV(raw *domain.RawDocument) ([]sheet, error) {
	r := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(raw.Content, []byte("\xef\xbb\xbf"))))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	rows, err := r.ReadAll()
	if err != nil {
		return nil, err
	}

	name := strings.TrimSuffix(filepath.Base(raw.Filename), filepath.Ext(raw.Filename))
	if name == "" || name == "." {
		name = defaultSheetName
	}
	return []sheet{{name: name, rows: rows}}, nil
}

func readWorkbook(content []byte) ([]sheet, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var sheets []sheet
	for _, name := range f.GetSheetList() {
		rows, err := f.GetRows(name)
		if err != nil {
			return nil, fmt.Errorf("sheet %q: %w", name, err)
		}
		sheets = append(sheets, sheet{name: name, rows: rows})
	}
	return sheets, nil
}

func renderCSV(rows [][]string) (string, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.WriteAll(rows); err != nil {
		return "", err
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}
