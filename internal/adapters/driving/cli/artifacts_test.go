package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/kacey/internal/core/domain"
)

func TestArtifactsCmd_Subcommands(t *testing.T) {
	names := map[string]bool{}
	for _, c := range artifactsCmd.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["list"])
	assert.True(t, names["show"])
	assert.True(t, names["delete"])
	assert.Contains(t, artifactsCmd.Aliases, "artifact")
}

func TestArtifactsList(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	ts.artifacts.artifacts = []domain.Artifact{
		sampleArtifact("a1", "Handbook", ""),
		sampleArtifact("a2", "Payroll", "finance"),
	}
	ts.artifacts.pending = 3

	out, err := execute(t, "artifacts", "list")

	require.NoError(t, err)
	assert.Contains(t, out, "Title: Handbook (PDF)")
	assert.Contains(t, out, "Scope: finance")
	assert.Contains(t, out, "Updated: 2026-03-14 09:30:00")
	assert.Contains(t, out, "3 chunks are waiting for an embedding")
	assert.Contains(t, out, "Total: 2 artifacts")
}

func TestArtifactsList_ScopeAndJSON(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	ts.artifacts.artifacts = []domain.Artifact{
		sampleArtifact("a1", "Handbook", ""),
		sampleArtifact("a2", "Payroll", "finance"),
	}

	out, err := execute(t, "artifacts", "list", "--scope", "finance", "--json")
	require.NoError(t, err)

	var got []artifactJSON
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "a2", got[0].ID)
	assert.Equal(t, "PDF", got[0].Type)
	assert.Equal(t, 120, got[0].WordCount)
}

func TestArtifactsList_Empty(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	out, err := execute(t, "artifacts", "list")

	require.NoError(t, err)
	assert.Contains(t, out, "No artifacts ingested")
}

func TestArtifactsShow(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	ts.artifacts.artifacts = []domain.Artifact{sampleArtifact("a1", "Handbook", "hr")}
	ts.artifacts.chunks = []domain.Chunk{
		{ArtifactID: "a1", Ordinal: 0, Content: "first window", TokenCount: 2},
		{ArtifactID: "a1", Ordinal: 1, Content: "second window", TokenCount: 2},
	}

	out, err := execute(t, "artifacts", "show", "a1", "--chunks")

	require.NoError(t, err)
	assert.Contains(t, out, "Artifact: a1")
	assert.Contains(t, out, "Words:    120")
	assert.Contains(t, out, "Chunks:   2")
	assert.Contains(t, out, "[1] 2 words")
	assert.Contains(t, out, "second window")
}

func TestArtifactsShow_NotFound(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	_, err := execute(t, "artifacts", "show", "missing")

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestArtifactsDelete(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()

	out, err := execute(t, "artifacts", "delete", "a1")

	require.NoError(t, err)
	assert.Equal(t, "a1", ts.artifacts.deleted)
	assert.Contains(t, out, "Deleted artifact: a1")
}

func TestArtifactsCmd_NotConfigured(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	ts.services.Artifacts = nil

	_, err := execute(t, "artifacts", "list")

	assert.EqualError(t, err, "artifact service not configured")
}
