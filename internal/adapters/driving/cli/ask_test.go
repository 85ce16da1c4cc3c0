package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/kacey/internal/core/domain"
)

func citedReply() *domain.ChatReply {
	src := domain.NewChunkMetadata("Travel Policy", domain.ArtifactTypePDF)
	src[domain.MetaArtifactID] = "art-travel"
	src[domain.MetaSimilarity] = 0.83
	return &domain.ChatReply{
		Conversation: &domain.Conversation{ID: "conv-1"},
		Answer: &domain.ComposedAnswer{
			Message:    "Line managers approve travel [Source 1].",
			Sources:    []domain.Metadata{src},
			Confidence: domain.DefaultConfidence,
		},
	}
}

func TestAskCmd_Use(t *testing.T) {
	assert.Equal(t, "ask [question]", askCmd.Use)
	flag := askCmd.Flags().Lookup("conversation")
	require.NotNil(t, flag)
	assert.Equal(t, "c", flag.Shorthand)
}

func TestAskCmd_StreamsAnswer(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	ts.chat.reply = citedReply()
	ts.chat.tokens = []string{"Line managers ", "approve travel ", "[Source 1]."}

	out, err := execute(t, "ask", "Who approves travel?", "--scope", "finance")

	require.NoError(t, err)
	assert.Equal(t, "Who approves travel?", ts.chat.request.Question)
	assert.Equal(t, "finance", ts.chat.request.ScopeID)
	assert.NotNil(t, ts.chat.request.OnToken)
	assert.Contains(t, out, "Line managers approve travel [Source 1].\n")
	assert.Contains(t, out, "[1] Travel Policy (0.83)")
	assert.Contains(t, out, "Conversation: conv-1")
}

func TestAskCmd_PrintsUnstreamedAnswer(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	ts.chat.reply = citedReply()

	out, err := execute(t, "ask", "q", "-c", "conv-1")

	require.NoError(t, err)
	assert.Equal(t, "conv-1", ts.chat.request.ConversationID)
	assert.Contains(t, out, "Line managers approve travel [Source 1].")
}

func TestAskCmd_DegradedNotes(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()

	ts.chat.reply = &domain.ChatReply{
		Conversation:     &domain.Conversation{ID: "c"},
		Answer:           &domain.ComposedAnswer{Message: domain.FallbackAnswer},
		GenerationFailed: true,
	}
	out, err := execute(t, "ask", "q")
	require.NoError(t, err)
	assert.Contains(t, out, domain.FallbackAnswer)
	assert.Contains(t, out, "could not be generated")

	ts.chat.reply = &domain.ChatReply{
		Conversation:      &domain.Conversation{ID: "c"},
		Answer:            &domain.ComposedAnswer{Message: "General advice."},
		RetrievalDegraded: true,
	}
	out, err = execute(t, "ask", "q")
	require.NoError(t, err)
	assert.Contains(t, out, "not grounded")
}

func TestAskCmd_JSON(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	ts.chat.reply = citedReply()
	ts.chat.tokens = []string{"ignored"}

	out, err := execute(t, "ask", "q", "--json")
	require.NoError(t, err)

	assert.Nil(t, ts.chat.request.OnToken)
	var got askJSONResult
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "conv-1", got.ConversationID)
	assert.Equal(t, "Line managers approve travel [Source 1].", got.Answer)
	assert.InDelta(t, domain.DefaultConfidence, got.Confidence, 1e-9)
	require.Len(t, got.Sources, 1)
	assert.Equal(t, sourceJSON{Index: 1, ArtifactID: "art-travel", ArtifactTitle: "Travel Policy", Similarity: 0.83}, got.Sources[0])
}

func TestAskCmd_Errors(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	ts.chat.err = domain.ErrInvalidInput

	_, err := execute(t, "ask", "q")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	ts.services.Chat = nil
	_, err = execute(t, "ask", "q")
	assert.EqualError(t, err, "chat service not configured")
}
