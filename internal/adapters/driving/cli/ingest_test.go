package cli

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/kacey/internal/core/domain"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestIngestCmd_Use(t *testing.T) {
	assert.Equal(t, "ingest [file...]", ingestCmd.Use)
	for _, name := range []string{"title", "description", "scope", "json"} {
		assert.NotNil(t, ingestCmd.Flags().Lookup(name), name)
	}
}

func TestIngestCmd_RequiresFile(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	_, err := execute(t, "ingest")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires at least 1 arg(s)")
}

func TestIngestCmd_IngestsFile(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	path := writeFile(t, t.TempDir(), "handbook.pdf", "%PDF-1.4")

	out, err := execute(t, "ingest", path, "--title", "Staff Handbook", "--description", "HR policies", "--scope", "hr")

	require.NoError(t, err)
	require.Len(t, ts.ingestion.requests, 1)
	req := ts.ingestion.requests[0]
	assert.Equal(t, "%PDF-1.4", string(req.Content))
	assert.Equal(t, "handbook.pdf", req.Filename)
	assert.Equal(t, "application/pdf", req.MIMEType)
	assert.Equal(t, "Staff Handbook", req.Title)
	assert.Equal(t, "HR policies", req.Description)
	assert.Equal(t, "hr", req.ScopeID)

	assert.Contains(t, out, `ingested "Staff Handbook" as art-handbook.pdf`)
	assert.Contains(t, out, "Chunks: 2, embedded: 2, failed: 0")
}

func TestIngestCmd_MultipleFiles(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	dir := t.TempDir()
	a := writeFile(t, dir, "a.txt", "alpha")
	b := writeFile(t, dir, "b.txt", "beta")

	_, err := execute(t, "ingest", a, b)

	require.NoError(t, err)
	require.Len(t, ts.ingestion.requests, 2)
	assert.Empty(t, ts.ingestion.requests[0].Title)
	assert.Equal(t, "b.txt", ts.ingestion.requests[1].Filename)
}

func TestIngestCmd_TitleNeedsSingleFile(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()

	_, err := execute(t, "ingest", "a.txt", "b.txt", "--title", "Both")

	assert.EqualError(t, err, "--title can only be used with a single file")
	assert.Empty(t, ts.ingestion.requests)
}

func TestIngestCmd_ReportsFailures(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	dir := t.TempDir()
	good := writeFile(t, dir, "good.txt", "content")
	missing := filepath.Join(dir, "missing.txt")

	out, err := execute(t, "ingest", good, missing)

	assert.EqualError(t, err, "1 of 2 files failed to ingest")
	assert.Len(t, ts.ingestion.requests, 1)
	assert.Contains(t, out, missing+":")
}

func TestIngestCmd_PartialEmbedding(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	ts.ingestion.result = &domain.IngestResult{
		Artifact: &domain.Artifact{ID: "a1", Title: "notes.txt"},
		Chunks:   3,
		Embedded: 1,
		Failed:   2,
		Updated:  true,
	}
	path := writeFile(t, t.TempDir(), "notes.txt", "x")

	out, err := execute(t, "ingest", path)

	require.NoError(t, err)
	assert.Contains(t, out, `updated "notes.txt" as a1`)
	assert.Contains(t, out, "kacey repair")
}

func TestIngestCmd_ParseFailure(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	ts.ingestion.err = &domain.IngestionError{
		Step: domain.IngestStepParse,
		Err:  domain.NewParseError(domain.ArtifactTypePDF, "bad.pdf", errors.New("corrupt xref")),
	}
	path := writeFile(t, t.TempDir(), "bad.pdf", "junk")

	out, err := execute(t, "ingest", path)

	require.Error(t, err)
	assert.Contains(t, out, "bad.pdf:")
	assert.NotContains(t, out, "Chunks:")
}

func TestIngestCmd_JSON(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	ts.ingestion.result = &domain.IngestResult{
		Artifact:  &domain.Artifact{ID: "a1", Title: "faq.html"},
		Chunks:    4,
		Embedded:  4,
		Unchanged: true,
	}
	path := writeFile(t, t.TempDir(), "faq.html", "<p>hi</p>")

	out, err := execute(t, "ingest", path, "--json")
	require.NoError(t, err)

	var got []ingestJSONResult
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Len(t, got, 1)
	assert.Equal(t, path, got[0].File)
	assert.Equal(t, "a1", got[0].ArtifactID)
	assert.Equal(t, 4, got[0].Chunks)
	assert.True(t, got[0].Unchanged)
	assert.Empty(t, got[0].Error)
}

func TestIngestCmd_NotConfigured(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	ts.services.Ingestion = nil

	_, err := execute(t, "ingest", "x.txt")

	assert.EqualError(t, err, "ingestion service not configured")
}
