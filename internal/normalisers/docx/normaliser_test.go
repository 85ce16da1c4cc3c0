package docx

import (
	"archive/zip"
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/kacey/internal/core/domain"
	"github.com/custodia-labs/kacey/internal/core/ports/driven"
)

// createTestDOCX creates a minimal DOCX file in memory.
func createTestDOCX(t *testing.T, documentXML, coreProps string) []byte {
	t.Helper()

	buf := new(bytes.Buffer)
	w := zip.NewWriter(buf)

	contentTypes, err := w.Create("[Content_Types].xml")
	require.NoError(t, err)
	_, err = contentTypes.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
<Default Extension="xml" ContentType="application/xml"/>
</Types>`))
	require.NoError(t, err)

	if documentXML != "" {
		doc, err := w.Create("word/document.xml")
		require.NoError(t, err)
		_, err = doc.Write([]byte(documentXML))
		require.NoError(t, err)
	}

	if coreProps != "" {
		core, err := w.Create("docProps/core.xml")
		require.NoError(t, err)
		_, err = core.Write([]byte(coreProps))
		require.NoError(t, err)
	}

	require.NoError(t, w.Close())
	return buf.Bytes()
}

const documentXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body>
    <w:p><w:r><w:t>Escalation</w:t></w:r><w:r><w:t xml:space="preserve"> process</w:t></w:r></w:p>
    <w:p><w:r><w:t>Call</w:t><w:tab/><w:t>ops</w:t></w:r></w:p>
    <w:tbl><w:tr><w:tc><w:p><w:r><w:t>Vendor cell</w:t></w:r></w:p></w:tc></w:tr></w:tbl>
  </w:body>
</w:document>`

const testCoreXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<cp:coreProperties xmlns:cp="http://schemas.openxmlformats.org/package/2006/metadata/core-properties"
  xmlns:dc="http://purl.org/dc/elements/1.1/">
  <dc:title>Runbook</dc:title>
  <dc:creator>Sam Lee</dc:creator>
</cp:coreProperties>`

func TestInterfaceCompliance(t *testing.T) {
	var _ driven.Normaliser = (*Normaliser)(nil)
}

func TestSupportedTypes(t *testing.T) {
	n := New()
	assert.Contains(t, n.SupportedMIMETypes(), "application/vnd.openxmlformats-officedocument.wordprocessingml.document")
	assert.Contains(t, n.SupportedMIMETypes(), "application/msword")
	assert.ElementsMatch(t, []string{"docx", "doc"}, n.SupportedExtensions())
}

func TestNormalise_NilDocument(t *testing.T) {
	result, err := New().Normalise(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Nil(t, result)
}

func TestNormalise_ExtractsParagraphs(t *testing.T) {
	raw := &domain.RawDocument{
		Content:  createTestDOCX(t, documentXML, testCoreXML),
		Filename: "runbook.docx",
	}

	result, err := New().Normalise(context.Background(), raw)
	require.NoError(t, err)

	assert.Equal(t, "Escalation process\nCall\tops\nVendor cell", result.Content)
	assert.Equal(t, domain.ArtifactTypeDOCX, result.Type)
	assert.Equal(t, 6, result.Metadata.WordCount())
	assert.Equal(t, "Runbook", result.Metadata[domain.MetaTitle])
	assert.Equal(t, "Sam Lee", result.Metadata[domain.MetaAuthor])
	assert.Equal(t, "en", result.Metadata[domain.MetaLanguage])
}

func TestNormalise_WithoutCoreProperties(t *testing.T) {
	raw := &domain.RawDocument{Content: createTestDOCX(t, documentXML, "")}

	result, err := New().Normalise(context.Background(), raw)
	require.NoError(t, err)
	assert.NotContains(t, result.Metadata, domain.MetaTitle)
}

func TestNormalise_ParseFailures(t *testing.T) {
	tests := []struct {
		name    string
		content []byte
	}{
		{"not a zip", []byte("\xd0\xcf\x11\xe0 legacy binary doc")},
		{"missing document part", nil},
		{"malformed xml", nil},
	}
	tests[1].content = createTestDOCX(t, "", testCoreXML)
	tests[2].content = createTestDOCX(t, "<w:document><w:body><w:p>", "")

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			result, err := New().Normalise(context.Background(), &domain.RawDocument{
				Content:  tc.content,
				Filename: "notes.doc",
			})
			assert.Nil(t, result)
			assert.ErrorIs(t, err, domain.ErrParseFailure)
		})
	}
}
