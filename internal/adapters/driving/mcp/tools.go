package mcp

import (
	"context"
	"errors"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/kacey/internal/core/domain"
	"github.com/custodia-labs/kacey/internal/core/ports/driving"
)

// RetrieveInput is the input schema for the retrieve tool.
type RetrieveInput struct {
	Query string `json:"query" jsonschema:"the question or phrase to find relevant passages for"`
	Limit int    `json:"limit,omitempty" jsonschema:"maximum number of passages to return (default 10)"`
	Scope string `json:"scope,omitempty" jsonschema:"restrict results to artifacts uploaded with this scope"`
}

// RetrieveOutput is the output schema for the retrieve tool.
type RetrieveOutput struct {
	Results []PassageOutput `json:"results"`
	Count   int             `json:"count"`
}

// PassageOutput represents a single retrieved chunk.
type PassageOutput struct {
	ArtifactID    string  `json:"artifact_id"`
	ArtifactTitle string  `json:"artifact_title"`
	ArtifactType  string  `json:"artifact_type"`
	Ordinal       int     `json:"ordinal"`
	Similarity    float64 `json:"similarity"`
	Content       string  `json:"content"`
}

// AskInput is the input schema for the ask tool.
type AskInput struct {
	Question       string `json:"question" jsonschema:"the question to answer from the knowledge base"`
	ConversationID string `json:"conversation_id,omitempty" jsonschema:"continue an earlier conversation"`
	Scope          string `json:"scope,omitempty" jsonschema:"scope for a new conversation"`
}

// AskOutput is the output schema for the ask tool.
type AskOutput struct {
	ConversationID string           `json:"conversation_id"`
	Answer         string           `json:"answer"`
	Sources        []map[string]any `json:"sources"`
	Confidence     float64          `json:"confidence"`
	Degraded       bool             `json:"degraded,omitempty"`
}

// ListArtifactsInput is the input schema for the list_artifacts tool.
type ListArtifactsInput struct {
	Scope string `json:"scope,omitempty" jsonschema:"only list artifacts with this scope"`
}

// ListArtifactsOutput is the output schema for the list_artifacts tool.
type ListArtifactsOutput struct {
	Artifacts []ArtifactOutput `json:"artifacts"`
	Count     int              `json:"count"`
}

// ArtifactOutput summarises one artifact.
type ArtifactOutput struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
	Scope       string `json:"scope,omitempty"`
	WordCount   int    `json:"word_count"`
	UpdatedAt   string `json:"updated_at"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "retrieve",
		Description: "Find the knowledge-base passages most relevant to a query",
	}, s.handleRetrieve)

	if s.ports.Chat != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "ask",
			Description: "Answer a question from the knowledge base with [Source N] citations",
		}, s.handleAsk)
	}

	if s.ports.Artifacts != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "list_artifacts",
			Description: "List uploaded documents",
		}, s.handleListArtifacts)
	}
}

// handleRetrieve handles the retrieve tool invocation.
func (s *Server) handleRetrieve(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input RetrieveInput,
) (*mcp.CallToolResult, RetrieveOutput, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = domain.DefaultRetrievalLimit
	}

	results, err := s.ports.Retrieval.Retrieve(ctx, input.Query, limit, input.Scope)
	if err != nil {
		return nil, RetrieveOutput{}, err
	}

	output := RetrieveOutput{
		Results: make([]PassageOutput, len(results)),
		Count:   len(results),
	}
	for i := range results {
		chunk := results[i].Chunk
		output.Results[i] = PassageOutput{
			ArtifactID:    chunk.ArtifactID,
			ArtifactTitle: chunk.Metadata.ArtifactTitle(),
			ArtifactType:  chunk.Metadata.ArtifactType().String(),
			Ordinal:       chunk.Ordinal,
			Similarity:    results[i].Similarity,
			Content:       chunk.Content,
		}
	}

	return nil, output, nil
}

// handleAsk handles the ask tool invocation.
func (s *Server) handleAsk(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AskInput,
) (*mcp.CallToolResult, AskOutput, error) {
	if s.ports.Chat == nil {
		return nil, AskOutput{}, errors.New("chat is not available")
	}

	reply, err := s.ports.Chat.Ask(ctx, driving.AskRequest{
		ConversationID: input.ConversationID,
		Question:       input.Question,
		ScopeID:        input.Scope,
	})
	if err != nil {
		return nil, AskOutput{}, err
	}

	output := AskOutput{
		ConversationID: reply.Conversation.ID,
		Answer:         reply.Answer.Message,
		Sources:        make([]map[string]any, len(reply.Answer.Sources)),
		Confidence:     reply.Answer.Confidence,
		Degraded:       reply.RetrievalDegraded || reply.GenerationFailed,
	}
	for i, source := range reply.Answer.Sources {
		output.Sources[i] = source
	}

	return nil, output, nil
}

// handleListArtifacts handles the list_artifacts tool invocation.
func (s *Server) handleListArtifacts(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ListArtifactsInput,
) (*mcp.CallToolResult, ListArtifactsOutput, error) {
	if s.ports.Artifacts == nil {
		return nil, ListArtifactsOutput{}, errors.New("artifact listing is not available")
	}

	artifacts, err := s.ports.Artifacts.List(ctx, input.Scope)
	if err != nil {
		return nil, ListArtifactsOutput{}, err
	}

	output := ListArtifactsOutput{
		Artifacts: make([]ArtifactOutput, len(artifacts)),
		Count:     len(artifacts),
	}
	for i := range artifacts {
		output.Artifacts[i] = artifactOutput(&artifacts[i])
	}
	return nil, output, nil
}

func artifactOutput(a *domain.Artifact) ArtifactOutput {
	return ArtifactOutput{
		ID:          a.ID,
		Title:       a.Title,
		Type:        a.Type.String(),
		Description: a.Description,
		Scope:       a.ScopeID,
		WordCount:   a.Metadata.WordCount(),
		UpdatedAt:   a.UpdatedAt.Format(time.RFC3339),
	}
}
