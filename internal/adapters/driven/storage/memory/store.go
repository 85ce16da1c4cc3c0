package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/custodia-labs/kacey/internal/adapters/driven/storage/vecmath"
	"github.com/custodia-labs/kacey/internal/core/domain"
	"github.com/custodia-labs/kacey/internal/core/ports/driven"
)

// Ensure Store implements the interfaces.
var (
	_ driven.ArtifactStore     = (*Store)(nil)
	_ driven.VectorStore       = (*Store)(nil)
	_ driven.ConversationStore = (*Store)(nil)
)

// Store is an in-memory implementation of the artifact, vector and
// conversation stores. Deletes cascade the way the SQL schemas do.
type Store struct {
	mu            sync.RWMutex
	dimensions    int
	unprovisioned bool

	artifacts     map[string]domain.Artifact
	chunks        map[string]domain.Chunk
	embeddings    map[string]domain.Embedding
	conversations map[string]domain.Conversation
	messages      map[string][]domain.Message
}

// NewStore creates an empty store accepting vectors of the given size.
// Zero dimensions accepts any size.
func NewStore(dimensions int) *Store {
	return &Store{
		dimensions:    dimensions,
		artifacts:     make(map[string]domain.Artifact),
		chunks:        make(map[string]domain.Chunk),
		embeddings:    make(map[string]domain.Embedding),
		conversations: make(map[string]domain.Conversation),
		messages:      make(map[string][]domain.Message),
	}
}

// SetProvisioned toggles whether the vector table exists.
// An unprovisioned store fails vector operations with
// domain.ErrVectorStoreUnprovisioned.
func (s *Store) SetProvisioned(provisioned bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unprovisioned = !provisioned
}

// Provision marks the vector table as created.
func (s *Store) Provision(context.Context) error {
	s.SetProvisioned(true)
	return nil
}

// Provisioned reports whether vector operations are available.
func (s *Store) Provisioned(context.Context) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return !s.unprovisioned, nil
}

// Close is a no-op.
func (s *Store) Close() error {
	return nil
}

// ==================== Artifact Store ====================

// SaveArtifact inserts or updates an artifact by ID.
func (s *Store) SaveArtifact(_ context.Context, artifact *domain.Artifact) error {
	if artifact == nil || artifact.ID == "" {
		return domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	a := *artifact
	a.Metadata = artifact.Metadata.Clone()
	s.artifacts[a.ID] = a
	return nil
}

// GetArtifact retrieves an artifact by ID.
func (s *Store) GetArtifact(_ context.Context, id string) (*domain.Artifact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.artifacts[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &a, nil
}

// FindArtifact looks up an artifact by title within a scope.
func (s *Store) FindArtifact(_ context.Context, title, scopeID string) (*domain.Artifact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var found *domain.Artifact
	for _, a := range s.artifacts {
		if a.Title != title || a.ScopeID != scopeID {
			continue
		}
		if found == nil || a.CreatedAt.Before(found.CreatedAt) {
			found = &a
		}
	}
	if found == nil {
		return nil, domain.ErrNotFound
	}
	return found, nil
}

// ListArtifacts returns artifacts newest first.
func (s *Store) ListArtifacts(_ context.Context, scopeID string) ([]domain.Artifact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Artifact, 0, len(s.artifacts))
	for _, a := range s.artifacts {
		if scopeID != "" && a.ScopeID != scopeID {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// DeleteArtifact removes an artifact with its chunks and embeddings.
func (s *Store) DeleteArtifact(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.artifacts[id]; !ok {
		return domain.ErrNotFound
	}
	s.deleteChunksLocked(id)
	delete(s.artifacts, id)
	return nil
}

// ReplaceChunks swaps an artifact's chunks in one step.
func (s *Store) ReplaceChunks(_ context.Context, artifactID string, chunks []domain.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.artifacts[artifactID]; !ok {
		return fmt.Errorf("replacing chunks of %s: %w", artifactID, domain.ErrNotFound)
	}
	for _, c := range chunks {
		if c.ArtifactID != artifactID {
			return fmt.Errorf("%w: chunk %s belongs to artifact %s", domain.ErrInvalidInput, c.ID, c.ArtifactID)
		}
	}

	s.deleteChunksLocked(artifactID)
	for _, c := range chunks {
		c.Metadata = c.Metadata.Clone()
		s.chunks[c.ID] = c
	}
	return nil
}

func (s *Store) deleteChunksLocked(artifactID string) {
	for id, c := range s.chunks {
		if c.ArtifactID == artifactID {
			delete(s.chunks, id)
			delete(s.embeddings, id)
		}
	}
}

// GetChunk retrieves a chunk by ID.
func (s *Store) GetChunk(_ context.Context, id string) (*domain.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.chunks[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &c, nil
}

// GetChunks returns an artifact's chunks ordered by ordinal.
func (s *Store) GetChunks(_ context.Context, artifactID string) ([]domain.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.Chunk
	for _, c := range s.chunks {
		if c.ArtifactID == artifactID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Ordinal < out[j].Ordinal })
	return out, nil
}

// ChunksWithoutEmbedding returns up to limit unembedded chunks, oldest first.
func (s *Store) ChunksWithoutEmbedding(_ context.Context, limit int) ([]domain.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := s.pendingLocked()
	if limit >= 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// CountChunksWithoutEmbedding counts chunks that have no embedding.
func (s *Store) CountChunksWithoutEmbedding(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.pendingLocked()), nil
}

func (s *Store) pendingLocked() []domain.Chunk {
	var out []domain.Chunk
	for id, c := range s.chunks {
		if _, ok := s.embeddings[id]; !ok {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		if a.ArtifactID != b.ArtifactID {
			return a.ArtifactID < b.ArtifactID
		}
		return a.Ordinal < b.Ordinal
	})
	return out
}

// ==================== Vector Store ====================

// Upsert inserts or replaces the embedding for a chunk.
func (s *Store) Upsert(_ context.Context, chunkID string, vector []float32, model string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.unprovisioned {
		return domain.ErrVectorStoreUnprovisioned
	}
	if s.dimensions > 0 && len(vector) != s.dimensions {
		return fmt.Errorf("%w: vector has %d dimensions, store expects %d",
			domain.ErrInvalidConfiguration, len(vector), s.dimensions)
	}
	if _, ok := s.chunks[chunkID]; !ok {
		return fmt.Errorf("embedding chunk %s: %w", chunkID, domain.ErrNotFound)
	}

	s.embeddings[chunkID] = domain.Embedding{
		ChunkID:   chunkID,
		Vector:    append([]float32(nil), vector...),
		Model:     model,
		CreatedAt: time.Now().UTC(),
	}
	return nil
}

// Search ranks every stored embedding against the query.
func (s *Store) Search(_ context.Context, query []float32, limit int, scopeID string) ([]driven.VectorHit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.unprovisioned {
		return nil, domain.ErrVectorStoreUnprovisioned
	}

	hits := make([]driven.VectorHit, 0, len(s.embeddings))
	for id, e := range s.embeddings {
		if scopeID != "" {
			c, ok := s.chunks[id]
			if !ok || s.artifacts[c.ArtifactID].ScopeID != scopeID {
				continue
			}
		}
		hits = append(hits, driven.VectorHit{ChunkID: id, Similarity: vecmath.Similarity(query, e.Vector)})
	}
	return vecmath.Rank(hits, limit), nil
}

// Dimensions returns the vector size the store accepts.
func (s *Store) Dimensions() int {
	return s.dimensions
}

// Embedding returns the stored embedding for a chunk, for inspection.
func (s *Store) Embedding(chunkID string) (domain.Embedding, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.embeddings[chunkID]
	return e, ok
}

// EmbeddingCount returns the number of stored embeddings.
func (s *Store) EmbeddingCount(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.unprovisioned {
		return 0, domain.ErrVectorStoreUnprovisioned
	}
	return len(s.embeddings), nil
}

// ==================== Conversation Store ====================

// SaveConversation inserts or updates a conversation.
func (s *Store) SaveConversation(_ context.Context, conv *domain.Conversation) error {
	if conv == nil || conv.ID == "" {
		return domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conversations[conv.ID] = *conv
	return nil
}

// GetConversation retrieves a conversation by ID.
func (s *Store) GetConversation(_ context.Context, id string) (*domain.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.conversations[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &c, nil
}

// ListConversations returns conversations, most recently updated first.
func (s *Store) ListConversations(_ context.Context) ([]domain.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Conversation, 0, len(s.conversations))
	for _, c := range s.conversations {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// AppendMessage stores a message at the end of its conversation.
func (s *Store) AppendMessage(_ context.Context, msg *domain.Message) error {
	if msg == nil || msg.ID == "" {
		return domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.conversations[msg.ConversationID]; !ok {
		return fmt.Errorf("appending to conversation %s: %w", msg.ConversationID, domain.ErrNotFound)
	}
	s.messages[msg.ConversationID] = append(s.messages[msg.ConversationID], *msg)
	return nil
}

// ListMessages returns a conversation's messages in order.
func (s *Store) ListMessages(_ context.Context, conversationID string) ([]domain.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	msgs := s.messages[conversationID]
	out := make([]domain.Message, len(msgs))
	copy(out, msgs)
	return out, nil
}
