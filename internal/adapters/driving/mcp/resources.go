package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/kacey/internal/core/domain"
)

const (
	// uriScheme is the custom URI scheme for kacey resources.
	uriScheme = "kacey://"
)

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	if s.ports.Artifacts == nil {
		return
	}

	// Static resource for listing artifacts.
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "artifacts",
		Name:        "artifacts",
		Description: "All uploaded documents",
		MIMEType:    "application/json",
	}, s.handleArtifactsResource)

	// Template for artifact content.
	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "artifacts/{artifactId}",
		Name:        "artifact-content",
		Description: "Normalised text of an uploaded document",
		MIMEType:    "text/plain",
	}, s.handleArtifactContentResource)
}

// handleArtifactsResource returns a list of all artifacts.
func (s *Server) handleArtifactsResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	artifacts, err := s.ports.Artifacts.List(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("listing artifacts: %w", err)
	}

	infos := make([]ArtifactOutput, len(artifacts))
	for i := range artifacts {
		infos[i] = artifactOutput(&artifacts[i])
	}

	data, err := json.MarshalIndent(infos, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling artifacts: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// handleArtifactContentResource returns the content of a specific artifact.
func (s *Server) handleArtifactContentResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	// Extract artifactId from URI: kacey://artifacts/{artifactId}
	artifactID := extractArtifactID(req.Params.URI)
	if artifactID == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	artifact, err := s.ports.Artifacts.Get(ctx, artifactID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}
	if err != nil {
		return nil, fmt.Errorf("getting artifact: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "text/plain",
			Text:     artifact.Content,
		}},
	}, nil
}

// extractArtifactID extracts the artifact ID from a URI like kacey://artifacts/{artifactId}.
func extractArtifactID(uri string) string {
	const prefix = uriScheme + "artifacts/"

	if !strings.HasPrefix(uri, prefix) {
		return ""
	}

	id := strings.TrimPrefix(uri, prefix)
	if strings.Contains(id, "/") {
		return ""
	}
	return id
}
