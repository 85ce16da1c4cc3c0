package mcp

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/kacey/internal/core/domain"
)

func TestServer_handleRetrieve(t *testing.T) {
	ctx := context.Background()

	t.Run("returns passages", func(t *testing.T) {
		mockRetrieval := &mockRetrievalService{
			results: []domain.RetrievalResult{
				{
					Chunk: domain.Chunk{
						ArtifactID: "art-1",
						Ordinal:    3,
						Content:    "Rotate the signing keys monthly.",
						Metadata:   domain.NewChunkMetadata("Security Runbook", domain.ArtifactTypePDF),
					},
					Similarity: 0.87,
				},
			},
		}

		server, err := NewServer(&Ports{Retrieval: mockRetrieval})
		require.NoError(t, err)

		_, output, err := server.handleRetrieve(ctx, nil, RetrieveInput{Query: "keys", Limit: 5, Scope: "ops"})

		require.NoError(t, err)
		assert.Equal(t, 1, output.Count)
		require.Len(t, output.Results, 1)
		assert.Equal(t, "art-1", output.Results[0].ArtifactID)
		assert.Equal(t, "Security Runbook", output.Results[0].ArtifactTitle)
		assert.Equal(t, "PDF", output.Results[0].ArtifactType)
		assert.Equal(t, 3, output.Results[0].Ordinal)
		assert.InDelta(t, 0.87, output.Results[0].Similarity, 1e-9)
		assert.Equal(t, "Rotate the signing keys monthly.", output.Results[0].Content)
		assert.Equal(t, 5, mockRetrieval.limit)
		assert.Equal(t, "ops", mockRetrieval.scopeID)
	})

	t.Run("default limit", func(t *testing.T) {
		mockRetrieval := &mockRetrievalService{}
		server, err := NewServer(&Ports{Retrieval: mockRetrieval})
		require.NoError(t, err)

		_, output, err := server.handleRetrieve(ctx, nil, RetrieveInput{Query: "keys"})

		require.NoError(t, err)
		assert.Equal(t, 0, output.Count)
		assert.Equal(t, domain.DefaultRetrievalLimit, mockRetrieval.limit)
	})

	t.Run("returns error on retrieval failure", func(t *testing.T) {
		mockRetrieval := &mockRetrievalService{err: domain.ErrRetrievalFailure}
		server, err := NewServer(&Ports{Retrieval: mockRetrieval})
		require.NoError(t, err)

		_, _, err = server.handleRetrieve(ctx, nil, RetrieveInput{Query: "keys"})

		assert.ErrorIs(t, err, domain.ErrRetrievalFailure)
	})
}

func TestServer_handleAsk(t *testing.T) {
	ctx := context.Background()

	t.Run("returns answer with sources", func(t *testing.T) {
		mockChat := &mockChatService{
			reply: &domain.ChatReply{
				Conversation: &domain.Conversation{ID: "conv-1"},
				Answer: &domain.ComposedAnswer{
					Message:    "Keys rotate monthly [Source 1].",
					Sources:    []domain.Metadata{domain.NewChunkMetadata("Security Runbook", domain.ArtifactTypePDF)},
					Confidence: domain.DefaultConfidence,
				},
			},
		}
		server, err := NewServer(&Ports{Retrieval: &mockRetrievalService{}, Chat: mockChat})
		require.NoError(t, err)

		_, output, err := server.handleAsk(ctx, nil, AskInput{Question: "how often?", ConversationID: "conv-1"})

		require.NoError(t, err)
		assert.Equal(t, "conv-1", output.ConversationID)
		assert.Equal(t, "Keys rotate monthly [Source 1].", output.Answer)
		require.Len(t, output.Sources, 1)
		assert.Equal(t, "Security Runbook", output.Sources[0][domain.MetaArtifactTitle])
		assert.False(t, output.Degraded)
		assert.Equal(t, "how often?", mockChat.req.Question)
		assert.Equal(t, "conv-1", mockChat.req.ConversationID)
	})

	t.Run("marks degraded replies", func(t *testing.T) {
		mockChat := &mockChatService{
			reply: &domain.ChatReply{
				Conversation:     &domain.Conversation{ID: "conv-2"},
				Answer:           &domain.ComposedAnswer{Message: domain.FallbackAnswer, Sources: []domain.Metadata{}},
				GenerationFailed: true,
			},
		}
		server, err := NewServer(&Ports{Retrieval: &mockRetrievalService{}, Chat: mockChat})
		require.NoError(t, err)

		_, output, err := server.handleAsk(ctx, nil, AskInput{Question: "q"})

		require.NoError(t, err)
		assert.True(t, output.Degraded)
		assert.Empty(t, output.Sources)
	})

	t.Run("without chat service", func(t *testing.T) {
		server, err := NewServer(&Ports{Retrieval: &mockRetrievalService{}})
		require.NoError(t, err)

		_, _, err = server.handleAsk(ctx, nil, AskInput{Question: "q"})

		assert.Error(t, err)
	})

	t.Run("returns error on chat failure", func(t *testing.T) {
		mockChat := &mockChatService{err: domain.ErrInvalidInput}
		server, err := NewServer(&Ports{Retrieval: &mockRetrievalService{}, Chat: mockChat})
		require.NoError(t, err)

		_, _, err = server.handleAsk(ctx, nil, AskInput{})

		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})
}

func TestServer_handleListArtifacts(t *testing.T) {
	ctx := context.Background()
	updated := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("lists artifacts", func(t *testing.T) {
		mockArtifacts := &mockArtifactService{
			artifacts: []domain.Artifact{{
				ID:        "art-1",
				Title:     "Handover Notes",
				Type:      domain.ArtifactTypeDOCX,
				ScopeID:   "ops",
				Metadata:  domain.Metadata{domain.MetaWordCount: 120},
				UpdatedAt: updated,
			}},
		}
		server, err := NewServer(&Ports{Retrieval: &mockRetrievalService{}, Artifacts: mockArtifacts})
		require.NoError(t, err)

		_, output, err := server.handleListArtifacts(ctx, nil, ListArtifactsInput{Scope: "ops"})

		require.NoError(t, err)
		assert.Equal(t, 1, output.Count)
		assert.Equal(t, ArtifactOutput{
			ID:        "art-1",
			Title:     "Handover Notes",
			Type:      "DOCX",
			Scope:     "ops",
			WordCount: 120,
			UpdatedAt: "2026-03-01T12:00:00Z",
		}, output.Artifacts[0])
		assert.Equal(t, "ops", mockArtifacts.scopeID)
	})

	t.Run("returns error on list failure", func(t *testing.T) {
		mockArtifacts := &mockArtifactService{err: errors.New("database locked")}
		server, err := NewServer(&Ports{Retrieval: &mockRetrievalService{}, Artifacts: mockArtifacts})
		require.NoError(t, err)

		_, _, err = server.handleListArtifacts(ctx, nil, ListArtifactsInput{})

		assert.ErrorContains(t, err, "database locked")
	})
}
