package sqlite

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/kacey/internal/core/domain"
)

// setupTestStore creates a provisioned SQLite store in a temp directory.
func setupTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()

	store, err := NewStore(t.TempDir(), append([]Option{WithDimensions(2)}, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, store.Close()) })
	return store
}

// createTestArtifact saves an artifact with n chunks.
func createTestArtifact(t *testing.T, store *Store, id, scope string, n int) {
	t.Helper()
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	require.NoError(t, store.SaveArtifact(ctx, &domain.Artifact{
		ID:        id,
		Title:     "Title " + id,
		Type:      domain.ArtifactTypeTXT,
		Content:   "content",
		Metadata:  domain.Metadata{domain.MetaWordCount: 3},
		ScopeID:   scope,
		CreatedAt: now,
		UpdatedAt: now,
	}))

	chunks := make([]domain.Chunk, n)
	for i := range chunks {
		chunks[i] = domain.Chunk{
			ID:         fmt.Sprintf("%s-c%d", id, i),
			ArtifactID: id,
			Ordinal:    i,
			Content:    fmt.Sprintf("chunk %d of %s", i, id),
			TokenCount: 4,
			Metadata:   domain.NewChunkMetadata("Title "+id, domain.ArtifactTypeTXT),
			CreatedAt:  now,
		}
	}
	require.NoError(t, store.ReplaceChunks(ctx, id, chunks))
}

// ==================== Store Creation Tests ====================

func TestNewStore_ErrorHandling(t *testing.T) {
	_, err := NewStore("/invalid\x00path")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "creating data directory")
}

func TestNewStore_Success(t *testing.T) {
	dir := t.TempDir()

	store, err := NewStore(dir)
	require.NoError(t, err)
	defer store.Close()

	assert.Equal(t, filepath.Join(dir, "kacey.db"), store.Path())
	assert.FileExists(t, store.Path())

	var version int
	require.NoError(t, store.db.QueryRow("SELECT MAX(version) FROM schema_migrations").Scan(&version))
	assert.Equal(t, 1, version)
}

func TestNewStore_ReopenIsIdempotent(t *testing.T) {
	dir := t.TempDir()

	first, err := NewStore(dir)
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second, err := NewStore(dir)
	require.NoError(t, err)
	require.NoError(t, second.Close())
}

// ==================== Provisioning Tests ====================

func TestStore_Unprovisioned(t *testing.T) {
	store := setupTestStore(t, WithAutoMigrate(false))
	ctx := context.Background()
	createTestArtifact(t, store, "a1", "", 2)

	ready, err := store.Provisioned(ctx)
	require.NoError(t, err)
	assert.False(t, ready)

	_, err = store.Search(ctx, []float32{1, 0}, 5, "")
	assert.ErrorIs(t, err, domain.ErrVectorStoreUnprovisioned)
	assert.ErrorIs(t, store.Upsert(ctx, "a1-c0", []float32{1, 0}, "m"), domain.ErrVectorStoreUnprovisioned)

	pending, err := store.ChunksWithoutEmbedding(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, pending, 2)

	require.NoError(t, store.Provision(ctx))
	require.NoError(t, store.Provision(ctx))

	ready, err = store.Provisioned(ctx)
	require.NoError(t, err)
	assert.True(t, ready)

	hits, err := store.Search(ctx, []float32{1, 0}, 5, "")
	require.NoError(t, err)
	assert.Empty(t, hits)
}

// ==================== Artifact Store Tests ====================

func TestStore_ArtifactRoundTrip(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	createTestArtifact(t, store, "a1", "ops", 0)

	a, err := store.GetArtifact(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, "Title a1", a.Title)
	assert.Equal(t, domain.ArtifactTypeTXT, a.Type)
	assert.Equal(t, "ops", a.ScopeID)
	assert.Equal(t, 3, a.Metadata.WordCount())

	found, err := store.FindArtifact(ctx, "Title a1", "ops")
	require.NoError(t, err)
	assert.Equal(t, "a1", found.ID)

	_, err = store.FindArtifact(ctx, "Title a1", "")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = store.GetArtifact(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStore_ListArtifacts(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	createTestArtifact(t, store, "a1", "ops", 0)
	createTestArtifact(t, store, "a2", "finance", 0)

	all, err := store.ListArtifacts(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	scoped, err := store.ListArtifacts(ctx, "finance")
	require.NoError(t, err)
	require.Len(t, scoped, 1)
	assert.Equal(t, "a2", scoped[0].ID)
}

func TestStore_ReplaceChunks(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	createTestArtifact(t, store, "a1", "", 3)

	chunks, err := store.GetChunks(ctx, "a1")
	require.NoError(t, err)
	require.Len(t, chunks, 3)
	for i, c := range chunks {
		assert.Equal(t, i, c.Ordinal)
		assert.Equal(t, "Title a1", c.Metadata.ArtifactTitle())
		assert.Equal(t, domain.ArtifactTypeTXT, c.Metadata.ArtifactType())
	}

	require.NoError(t, store.Upsert(ctx, "a1-c0", []float32{1, 0}, "m"))

	// Re-ingest with fewer chunks drops the old rows and their embeddings.
	createTestArtifact(t, store, "a1", "", 1)
	chunks, err = store.GetChunks(ctx, "a1")
	require.NoError(t, err)
	assert.Len(t, chunks, 1)

	n, err := store.EmbeddingCount(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestStore_ReplaceChunksRollsBack(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	createTestArtifact(t, store, "a1", "", 2)

	err := store.ReplaceChunks(ctx, "a1", []domain.Chunk{
		{ID: "x0", ArtifactID: "a1", Ordinal: 0, CreatedAt: time.Now()},
		{ID: "x1", ArtifactID: "a1", Ordinal: 0, CreatedAt: time.Now()},
	})
	assert.Error(t, err)

	chunks, err := store.GetChunks(ctx, "a1")
	require.NoError(t, err)
	assert.Len(t, chunks, 2)
}

func TestStore_DeleteArtifactCascades(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	createTestArtifact(t, store, "a1", "", 2)
	require.NoError(t, store.Upsert(ctx, "a1-c1", []float32{0, 1}, "m"))

	require.NoError(t, store.DeleteArtifact(ctx, "a1"))

	_, err := store.GetChunk(ctx, "a1-c1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	n, err := store.EmbeddingCount(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	assert.ErrorIs(t, store.DeleteArtifact(ctx, "a1"), domain.ErrNotFound)
}

// ==================== Vector Store Tests ====================

func TestStore_UpsertIsIdempotent(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	createTestArtifact(t, store, "a1", "", 1)

	require.NoError(t, store.Upsert(ctx, "a1-c0", []float32{1, 0}, "m"))
	require.NoError(t, store.Upsert(ctx, "a1-c0", []float32{0, 1}, "m"))

	n, err := store.EmbeddingCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	hits, err := store.Search(ctx, []float32{0, 1}, 1, "")
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.InDelta(t, 1.0, hits[0].Similarity, 1e-6)
}

func TestStore_UpsertDimensionMismatch(t *testing.T) {
	store := setupTestStore(t)
	createTestArtifact(t, store, "a1", "", 1)

	err := store.Upsert(context.Background(), "a1-c0", []float32{1, 0, 0}, "m")
	assert.ErrorIs(t, err, domain.ErrInvalidConfiguration)
}

func TestStore_UpsertUnknownChunk(t *testing.T) {
	store := setupTestStore(t)

	err := store.Upsert(context.Background(), "ghost", []float32{1, 0}, "m")
	assert.Error(t, err)
}

func TestStore_SearchOrderingAndScope(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	createTestArtifact(t, store, "a", "A", 2)
	createTestArtifact(t, store, "b", "B", 1)

	require.NoError(t, store.Upsert(ctx, "a-c0", []float32{1, 0}, "m"))
	require.NoError(t, store.Upsert(ctx, "a-c1", []float32{1, 1}, "m"))
	require.NoError(t, store.Upsert(ctx, "b-c0", []float32{1, 0}, "m"))

	hits, err := store.Search(ctx, []float32{1, 0}, 10, "")
	require.NoError(t, err)
	require.Len(t, hits, 3)
	assert.Equal(t, []string{"a-c0", "b-c0", "a-c1"},
		[]string{hits[0].ChunkID, hits[1].ChunkID, hits[2].ChunkID})
	assert.GreaterOrEqual(t, hits[1].Similarity, hits[2].Similarity)

	scoped, err := store.Search(ctx, []float32{1, 0}, 10, "A")
	require.NoError(t, err)
	require.Len(t, scoped, 2)
	for _, h := range scoped {
		assert.NotEqual(t, "b-c0", h.ChunkID)
	}
}

func TestStore_ChunksWithoutEmbedding(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	createTestArtifact(t, store, "a1", "", 3)
	require.NoError(t, store.Upsert(ctx, "a1-c1", []float32{1, 0}, "m"))

	pending, err := store.ChunksWithoutEmbedding(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, "a1-c0", pending[0].ID)
	assert.Equal(t, "a1-c2", pending[1].ID)

	limited, err := store.ChunksWithoutEmbedding(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	n, err := store.CountChunksWithoutEmbedding(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

// ==================== Conversation Store Tests ====================

func TestStore_Conversations(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	require.NoError(t, store.SaveConversation(ctx, &domain.Conversation{
		ID: "c1", Title: "Onboarding", ScopeID: "ops", CreatedAt: now, UpdatedAt: now,
	}))

	conv, err := store.GetConversation(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "Onboarding", conv.Title)
	assert.Equal(t, "ops", conv.ScopeID)

	require.NoError(t, store.AppendMessage(ctx, &domain.Message{
		ID: "m1", ConversationID: "c1", Role: domain.RoleUser, Content: "Who owns billing?", CreatedAt: now,
	}))
	require.NoError(t, store.AppendMessage(ctx, &domain.Message{
		ID: "m2", ConversationID: "c1", Role: domain.RoleAssistant, Content: "Dana [Source 1]",
		Sources:    []domain.Metadata{{domain.MetaArtifactTitle: "Runbook", domain.MetaSimilarity: 0.8}},
		Confidence: 0.9, CreatedAt: now,
	}))

	msgs, err := store.ListMessages(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, domain.RoleUser, msgs[0].Role)
	assert.Empty(t, msgs[0].Sources)
	assert.Equal(t, "Runbook", msgs[1].Sources[0].ArtifactTitle())
	assert.InDelta(t, 0.8, msgs[1].Sources[0].Similarity(), 1e-9)
	assert.InDelta(t, 0.9, msgs[1].Confidence, 1e-9)

	err = store.AppendMessage(ctx, &domain.Message{ID: "m3", ConversationID: "missing", CreatedAt: now})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	convs, err := store.ListConversations(ctx)
	require.NoError(t, err)
	assert.Len(t, convs, 1)
}
