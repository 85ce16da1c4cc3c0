package mcp

import (
	"context"

	"github.com/custodia-labs/kacey/internal/core/domain"
	"github.com/custodia-labs/kacey/internal/core/ports/driving"
)

// mockRetrievalService is a mock implementation of driving.RetrievalService.
type mockRetrievalService struct {
	results []domain.RetrievalResult
	err     error

	limit   int
	scopeID string
}

func (m *mockRetrievalService) Retrieve(
	_ context.Context,
	_ string,
	limit int,
	scopeID string,
) ([]domain.RetrievalResult, error) {
	m.limit = limit
	m.scopeID = scopeID
	return m.results, m.err
}

// mockChatService is a mock implementation of driving.ChatService.
type mockChatService struct {
	reply *domain.ChatReply
	err   error
	req   driving.AskRequest
}

func (m *mockChatService) Ask(_ context.Context, req driving.AskRequest) (*domain.ChatReply, error) {
	m.req = req
	return m.reply, m.err
}

func (m *mockChatService) History(_ context.Context, _ string) ([]domain.Message, error) {
	return nil, m.err
}

func (m *mockChatService) Conversations(_ context.Context) ([]domain.Conversation, error) {
	return nil, m.err
}

// mockArtifactService is a mock implementation of driving.ArtifactService.
type mockArtifactService struct {
	artifacts []domain.Artifact
	artifact  *domain.Artifact
	err       error
	scopeID   string
}

func (m *mockArtifactService) List(_ context.Context, scopeID string) ([]domain.Artifact, error) {
	m.scopeID = scopeID
	return m.artifacts, m.err
}

func (m *mockArtifactService) Get(_ context.Context, _ string) (*domain.Artifact, error) {
	return m.artifact, m.err
}

func (m *mockArtifactService) Chunks(_ context.Context, _ string) ([]domain.Chunk, error) {
	return nil, m.err
}

func (m *mockArtifactService) Delete(_ context.Context, _ string) error {
	return m.err
}

func (m *mockArtifactService) Pending(_ context.Context) (int, error) {
	return 0, m.err
}

func (m *mockArtifactService) Embedded(_ context.Context) (int, error) {
	return 0, m.err
}
