package spreadsheet

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/custodia-labs/kacey/internal/core/domain"
	"github.com/custodia-labs/kacey/internal/core/ports/driven"
)

func createTestXLSX(t *testing.T) []byte {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	require.NoError(t, f.SetCellValue("Sheet1", "A1", "system"))
	require.NoError(t, f.SetCellValue("Sheet1", "B1", "owner"))
	require.NoError(t, f.SetCellValue("Sheet1", "A2", "billing"))
	require.NoError(t, f.SetCellValue("Sheet1", "B2", "Dana, Ops"))

	_, err := f.NewSheet("Costs")
	require.NoError(t, err)
	require.NoError(t, f.SetCellValue("Costs", "A1", "licence"))
	require.NoError(t, f.SetCellValue("Costs", "B1", 1200))

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func TestInterfaceCompliance(t *testing.T) {
	var _ driven.Normaliser = (*Normaliser)(nil)
}

func TestSupportedTypes(t *testing.T) {
	n := New()
	assert.ElementsMatch(t, []string{
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		"application/vnd.ms-excel",
		"text/csv",
	}, n.SupportedMIMETypes())
	assert.ElementsMatch(t, []string{"xlsx", "xls", "csv"}, n.SupportedExtensions())
}

func TestNormalise_NilDocument(t *testing.T) {
	result, err := New().Normalise(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Nil(t, result)
}

func TestNormalise_Workbook(t *testing.T) {
	raw := &domain.RawDocument{
		Content:  createTestXLSX(t),
		MIMEType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		Filename: "inventory.xlsx",
	}

	result, err := New().Normalise(context.Background(), raw)
	require.NoError(t, err)

	expected := "\n--- Sheet: Sheet1 ---\nsystem,owner\nbilling,\"Dana, Ops\"\n" +
		"\n--- Sheet: Costs ---\nlicence,1200\n"
	assert.Equal(t, expected, result.Content)
	assert.Equal(t, domain.ArtifactTypeXLSX, result.Type)
	assert.Equal(t, []string{"Sheet1", "Costs"}, result.Metadata[domain.MetaSheets])
	assert.Equal(t, 2, result.Metadata[domain.MetaSheetCount])
	assert.Equal(t, domain.WordCount(expected), result.Metadata.WordCount())
}

func TestNormalise_CSV(t *testing.T) {
	tests := []struct {
		name     string
		mimeType string
		filename string
		sheet    string
	}{
		{"by mime type", "text/csv; charset=utf-8", "contacts.csv", "contacts"},
		{"by extension", "", "vendors.csv", "vendors"},
		{"anonymous upload", "text/csv", "", "Sheet1"},
		{"declared as excel", "application/vnd.ms-excel", "team.csv", "team"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			raw := &domain.RawDocument{
				Content:  []byte("\xef\xbb\xbfname,phone\nDana,555-0100\n"),
				MIMEType: tc.mimeType,
				Filename: tc.filename,
			}

			result, err := New().Normalise(context.Background(), raw)
			require.NoError(t, err)

			assert.Equal(t, "\n--- Sheet: "+tc.sheet+" ---\nname,phone\nDana,555-0100\n", result.Content)
			assert.Equal(t, domain.ArtifactTypeCSV, result.Type)
			assert.Equal(t, []string{tc.sheet}, result.Metadata[domain.MetaSheets])
			assert.Equal(t, 1, result.Metadata[domain.MetaSheetCount])
		})
	}
}

func TestNormalise_CorruptWorkbook(t *testing.T) {
	raw := &domain.RawDocument{
		Content:  []byte("not a workbook"),
		MIMEType: "application/vnd.ms-excel",
		Filename: "legacy.xls",
	}

	result, err := New().Normalise(context.Background(), raw)
	assert.Nil(t, result)
	assert.ErrorIs(t, err, domain.ErrParseFailure)

	var parseErr *domain.ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Equal(t, domain.ArtifactTypeXLSX, parseErr.Format)
}
