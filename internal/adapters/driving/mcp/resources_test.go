package mcp

import (
	"context"
	"errors"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/kacey/internal/core/domain"
)

func TestExtractArtifactID(t *testing.T) {
	tests := []struct {
		name     string
		uri      string
		expected string
	}{
		{
			name:     "valid artifact URI",
			uri:      "kacey://artifacts/art-456",
			expected: "art-456",
		},
		{
			name:     "invalid prefix",
			uri:      "file://artifacts/art-456",
			expected: "",
		},
		{
			name:     "nested path",
			uri:      "kacey://artifacts/art-456/chunks",
			expected: "",
		},
		{
			name:     "empty URI",
			uri:      "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := extractArtifactID(tt.uri)
			assert.Equal(t, tt.expected, result)
		})
	}
}

// Helper to create a ReadResourceRequest with the given URI.
func makeReadResourceRequest(uri string) *mcp.ReadResourceRequest {
	return &mcp.ReadResourceRequest{
		Params: &mcp.ReadResourceParams{
			URI: uri,
		},
	}
}

func newResourceServer(t *testing.T, artifacts *mockArtifactService) *Server {
	t.Helper()
	server, err := NewServer(&Ports{Retrieval: &mockRetrievalService{}, Artifacts: artifacts})
	require.NoError(t, err)
	return server
}

func TestServer_handleArtifactsResource(t *testing.T) {
	ctx := context.Background()

	t.Run("returns artifacts", func(t *testing.T) {
		server := newResourceServer(t, &mockArtifactService{
			artifacts: []domain.Artifact{
				{ID: "art-1", Title: "Onboarding Guide", Type: domain.ArtifactTypePDF},
				{ID: "art-2", Title: "Budget", Type: domain.ArtifactTypeXLSX},
			},
		})

		result, err := server.handleArtifactsResource(ctx, makeReadResourceRequest("kacey://artifacts"))

		require.NoError(t, err)
		require.Len(t, result.Contents, 1)
		assert.Equal(t, "application/json", result.Contents[0].MIMEType)
		assert.Contains(t, result.Contents[0].Text, "art-1")
		assert.Contains(t, result.Contents[0].Text, "Onboarding Guide")
		assert.Contains(t, result.Contents[0].Text, `"type": "XLSX"`)
	})

	t.Run("handles empty list", func(t *testing.T) {
		server := newResourceServer(t, &mockArtifactService{artifacts: []domain.Artifact{}})

		result, err := server.handleArtifactsResource(ctx, makeReadResourceRequest("kacey://artifacts"))

		require.NoError(t, err)
		assert.Equal(t, "[]", result.Contents[0].Text)
	})

	t.Run("returns error on list failure", func(t *testing.T) {
		server := newResourceServer(t, &mockArtifactService{err: errors.New("storage error")})

		_, err := server.handleArtifactsResource(ctx, makeReadResourceRequest("kacey://artifacts"))

		require.Error(t, err)
		assert.Contains(t, err.Error(), "listing artifacts")
	})
}

func TestServer_handleArtifactContentResource(t *testing.T) {
	ctx := context.Background()

	t.Run("returns content", func(t *testing.T) {
		server := newResourceServer(t, &mockArtifactService{
			artifact: &domain.Artifact{ID: "art-1", Content: "Step one. Step two."},
		})

		result, err := server.handleArtifactContentResource(ctx, makeReadResourceRequest("kacey://artifacts/art-1"))

		require.NoError(t, err)
		require.Len(t, result.Contents, 1)
		assert.Equal(t, "Step one. Step two.", result.Contents[0].Text)
		assert.Equal(t, "text/plain", result.Contents[0].MIMEType)
	})

	t.Run("invalid URI returns not found", func(t *testing.T) {
		server := newResourceServer(t, &mockArtifactService{})

		_, err := server.handleArtifactContentResource(ctx, makeReadResourceRequest("kacey://invalid/uri"))

		require.Error(t, err)
	})

	t.Run("missing artifact returns not found", func(t *testing.T) {
		server := newResourceServer(t, &mockArtifactService{err: domain.ErrNotFound})

		_, err := server.handleArtifactContentResource(ctx, makeReadResourceRequest("kacey://artifacts/gone"))

		require.Error(t, err)
		assert.NotContains(t, err.Error(), "getting artifact")
	})

	t.Run("returns error on get failure", func(t *testing.T) {
		server := newResourceServer(t, &mockArtifactService{err: errors.New("disk error")})

		_, err := server.handleArtifactContentResource(ctx, makeReadResourceRequest("kacey://artifacts/art-1"))

		require.Error(t, err)
		assert.Contains(t, err.Error(), "getting artifact")
	})
}
