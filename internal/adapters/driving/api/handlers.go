package api

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/gofiber/fiber/v3"

	"github.com/custodia-labs/kacey/internal/core/domain"
	"github.com/custodia-labs/kacey/internal/core/ports/driving"
	"github.com/custodia-labs/kacey/internal/logger"
)

// ArtifactResponse is the JSON form of an artifact.
type ArtifactResponse struct {
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description,omitempty"`
	Type        string          `json:"type"`
	Filename    string          `json:"filename,omitempty"`
	Scope       string          `json:"scope,omitempty"`
	Metadata    domain.Metadata `json:"metadata"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// UploadResponse reports the outcome of an upload.
type UploadResponse struct {
	Artifact  ArtifactResponse `json:"artifact"`
	Chunks    int              `json:"chunks"`
	Embedded  int              `json:"embedded"`
	Failed    int              `json:"failed"`
	Updated   bool             `json:"updated"`
	Unchanged bool             `json:"unchanged"`
	Error     string           `json:"error,omitempty"`
}

// SearchRequest is the body of POST /api/search.
type SearchRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit"`
	Scope string `json:"scope"`
}

// SearchHit is one retrieved chunk.
type SearchHit struct {
	ArtifactID    string  `json:"artifact_id"`
	ArtifactTitle string  `json:"artifact_title"`
	ArtifactType  string  `json:"artifact_type"`
	Ordinal       int     `json:"ordinal"`
	Similarity    float64 `json:"similarity"`
	Content       string  `json:"content"`
}

// ChatRequest is the body of POST /api/chat.
type ChatRequest struct {
	ConversationID string `json:"conversation_id"`
	Question       string `json:"question"`
	Scope          string `json:"scope"`
}

// ChatResponse is one answered chat turn.
type ChatResponse struct {
	ConversationID    string            `json:"conversation_id"`
	MessageID         string            `json:"message_id,omitempty"`
	Answer            string            `json:"answer"`
	Sources           []domain.Metadata `json:"sources"`
	Confidence        float64           `json:"confidence"`
	RetrievalDegraded bool              `json:"retrieval_degraded,omitempty"`
	GenerationFailed  bool              `json:"generation_failed,omitempty"`
}

// MessageResponse is the JSON form of a conversation message.
type MessageResponse struct {
	ID         string            `json:"id"`
	Role       string            `json:"role"`
	Content    string            `json:"content"`
	Sources    []domain.Metadata `json:"sources,omitempty"`
	Confidence float64           `json:"confidence,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
}

func toArtifactResponse(a *domain.Artifact) ArtifactResponse {
	md := a.Metadata
	if md == nil {
		md = domain.Metadata{}
	}
	return ArtifactResponse{
		ID:          a.ID,
		Title:       a.Title,
		Description: a.Description,
		Type:        a.Type.String(),
		Filename:    a.Filename,
		Scope:       a.ScopeID,
		Metadata:    md,
		CreatedAt:   a.CreatedAt,
		UpdatedAt:   a.UpdatedAt,
	}
}

func (s *Server) handleHealth(appName string) fiber.Handler {
	return func(c fiber.Ctx) error {
		pending, err := s.ports.Artifacts.Pending(c.Context())
		if err == nil {
			var embedded int
			if embedded, err = s.ports.Artifacts.Embedded(c.Context()); err == nil {
				return c.JSON(fiber.Map{
					"status":             "healthy",
					"app":                appName,
					"embeddings":         embedded,
					"pending_embeddings": pending,
				})
			}
		}
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"status": "degraded",
			"error":  err.Error(),
		})
	}
}

// handleUpload ingests a multipart upload: file plus optional title,
// description and scope fields.
func (s *Server) handleUpload(c fiber.Ctx) error {
	header, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "multipart field 'file' is required"})
	}

	file, err := header.Open()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "cannot open upload"})
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "cannot read upload"})
	}

	req := domain.IngestRequest{
		Content:     content,
		MIMEType:    header.Header.Get("Content-Type"),
		Filename:    header.Filename,
		Title:       c.FormValue("title"),
		Description: c.FormValue("description"),
		ScopeID:     c.FormValue("scope"),
	}
	logger.Debug("Upload %q (%d bytes, %s)", req.Filename, len(content), req.MIMEType)

	result, err := s.ports.Ingestion.Ingest(c.Context(), req)
	if err != nil && result == nil {
		return fail(c, err)
	}

	resp := UploadResponse{
		Artifact:  toArtifactResponse(result.Artifact),
		Chunks:    result.Chunks,
		Embedded:  result.Embedded,
		Failed:    result.Failed,
		Updated:   result.Updated,
		Unchanged: result.Unchanged,
	}
	if err != nil {
		// The artifact and chunks are stored; the repair sweep embeds the rest.
		resp.Error = err.Error()
		return c.Status(statusFor(err)).JSON(resp)
	}

	status := fiber.StatusCreated
	if result.Updated {
		status = fiber.StatusOK
	}
	return c.Status(status).JSON(resp)
}

func (s *Server) handleListArtifacts(c fiber.Ctx) error {
	artifacts, err := s.ports.Artifacts.List(c.Context(), c.Query("scope"))
	if err != nil {
		return fail(c, err)
	}

	out := make([]ArtifactResponse, len(artifacts))
	for i := range artifacts {
		out[i] = toArtifactResponse(&artifacts[i])
	}
	return c.JSON(fiber.Map{"artifacts": out, "count": len(out)})
}

func (s *Server) handleGetArtifact(c fiber.Ctx) error {
	id := c.Params("id")
	artifact, err := s.ports.Artifacts.Get(c.Context(), id)
	if err != nil {
		return fail(c, err)
	}
	chunks, err := s.ports.Artifacts.Chunks(c.Context(), id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{
		"artifact": toArtifactResponse(artifact),
		"content":  artifact.Content,
		"chunks":   len(chunks),
	})
}

func (s *Server) handleDeleteArtifact(c fiber.Ctx) error {
	if err := s.ports.Artifacts.Delete(c.Context(), c.Params("id")); err != nil {
		return fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) handleSearch(c fiber.Ctx) error {
	var body SearchRequest
	if err := c.Bind().JSON(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	results, err := s.ports.Retrieval.Retrieve(c.Context(), body.Query, body.Limit, body.Scope)
	if err != nil {
		return fail(c, err)
	}

	hits := make([]SearchHit, len(results))
	for i := range results {
		chunk := results[i].Chunk
		hits[i] = SearchHit{
			ArtifactID:    chunk.ArtifactID,
			ArtifactTitle: chunk.Metadata.ArtifactTitle(),
			ArtifactType:  chunk.Metadata.ArtifactType().String(),
			Ordinal:       chunk.Ordinal,
			Similarity:    results[i].Similarity,
			Content:       chunk.Content,
		}
	}
	return c.JSON(fiber.Map{"results": hits, "count": len(hits)})
}

func (s *Server) handleRepair(c fiber.Ctx) error {
	var body struct {
		BatchSize int `json:"batch_size"`
	}
	if len(c.Body()) > 0 {
		if err := c.Bind().JSON(&body); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
		}
	}

	result, err := s.ports.Ingestion.RepairMissingEmbeddings(c.Context(), body.BatchSize)
	if err != nil && result == nil {
		return fail(c, err)
	}

	resp := fiber.Map{
		"scanned":  result.Scanned,
		"repaired": result.Repaired,
		"failed":   result.Failed,
	}
	if err != nil {
		resp["error"] = err.Error()
		return c.Status(fiber.StatusServiceUnavailable).JSON(resp)
	}
	return c.JSON(resp)
}

func (s *Server) handleChat(c fiber.Ctx) error {
	if s.ports.Chat == nil {
		return fail(c, &domain.GenerationError{Err: domain.ErrLLMUnavailable})
	}

	var body ChatRequest
	if err := c.Bind().JSON(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	reply, err := s.ports.Chat.Ask(c.Context(), driving.AskRequest{
		ConversationID: body.ConversationID,
		Question:       body.Question,
		ScopeID:        body.Scope,
	})
	if err != nil {
		return fail(c, err)
	}

	resp := ChatResponse{
		ConversationID:    reply.Conversation.ID,
		Answer:            reply.Answer.Message,
		Sources:           reply.Answer.Sources,
		Confidence:        reply.Answer.Confidence,
		RetrievalDegraded: reply.RetrievalDegraded,
		GenerationFailed:  reply.GenerationFailed,
	}
	if reply.AssistantMessage != nil {
		resp.MessageID = reply.AssistantMessage.ID
	}
	if resp.Sources == nil {
		resp.Sources = []domain.Metadata{}
	}
	return c.JSON(resp)
}

func (s *Server) handleListConversations(c fiber.Ctx) error {
	if s.ports.Chat == nil {
		return c.JSON(fiber.Map{"conversations": []any{}, "count": 0})
	}
	conversations, err := s.ports.Chat.Conversations(c.Context())
	if err != nil {
		return fail(c, err)
	}

	out := make([]fiber.Map, len(conversations))
	for i, conv := range conversations {
		out[i] = fiber.Map{
			"id":         conv.ID,
			"title":      conv.Title,
			"scope":      conv.ScopeID,
			"created_at": conv.CreatedAt,
			"updated_at": conv.UpdatedAt,
		}
	}
	return c.JSON(fiber.Map{"conversations": out, "count": len(out)})
}

func (s *Server) handleConversationMessages(c fiber.Ctx) error {
	if s.ports.Chat == nil {
		return fail(c, fmt.Errorf("conversation %s: %w", c.Params("id"), domain.ErrNotFound))
	}
	messages, err := s.ports.Chat.History(c.Context(), c.Params("id"))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "conversation not found"})
		}
		return fail(c, err)
	}

	out := make([]MessageResponse, len(messages))
	for i, m := range messages {
		out[i] = MessageResponse{
			ID:         m.ID,
			Role:       string(m.Role),
			Content:    m.Content,
			Sources:    m.Sources,
			Confidence: m.Confidence,
			CreatedAt:  m.CreatedAt,
		}
	}
	return c.JSON(fiber.Map{"messages": out, "count": len(out)})
}
