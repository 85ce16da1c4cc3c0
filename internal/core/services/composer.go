package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/custodia-labs/kacey/internal/core/domain"
	"github.com/custodia-labs/kacey/internal/core/ports/driven"
	"github.com/custodia-labs/kacey/internal/core/ports/driving"
	"github.com/custodia-labs/kacey/internal/logger"
)

// Ensure AnswerComposer implements the interface.
var _ driving.AnswerComposer = (*AnswerComposer)(nil)

// citationPattern matches "[Source N]" markers in generated text.
var citationPattern = regexp.MustCompile(`\[Source (\d+)\]`)

// AnswerComposer builds the grounded prompt, makes one generation call and
// maps the reply's citations back to the supplied context.
type AnswerComposer struct {
	llm     driven.LLMService
	prompts driven.PromptStore
	opts    driven.ChatOptions
}

// NewAnswerComposer creates an answer composer. llm may be nil, in which
// case every compose fails with domain.ErrGenerationFailure.
func NewAnswerComposer(llm driven.LLMService, prompts driven.PromptStore, opts driven.ChatOptions) *AnswerComposer {
	return &AnswerComposer{llm: llm, prompts: prompts, opts: opts}
}

// Compose answers the last turn of history using chunks as numbered sources.
// History is forwarded as given after the system prompt, so an empty history
// still makes the one generation call.
func (c *AnswerComposer) Compose(
	ctx context.Context, history []domain.ConversationTurn, chunks []domain.ContextChunk,
) (*domain.ComposedAnswer, error) {
	return c.compose(ctx, history, chunks, nil)
}

// ComposeStream is Compose with the reply streamed to onToken.
func (c *AnswerComposer) ComposeStream(
	ctx context.Context,
	history []domain.ConversationTurn,
	chunks []domain.ContextChunk,
	onToken func(string) error,
) (*domain.ComposedAnswer, error) {
	return c.compose(ctx, history, chunks, onToken)
}

func (c *AnswerComposer) compose(
	ctx context.Context,
	history []domain.ConversationTurn,
	chunks []domain.ContextChunk,
	onToken func(string) error,
) (*domain.ComposedAnswer, error) {
	logger.Section("Compose")

	if c.llm == nil {
		return nil, &domain.GenerationError{Err: domain.ErrLLMUnavailable}
	}

	system, err := c.systemPrompt(chunks)
	if err != nil {
		return nil, err
	}
	messages := buildMessages(system, history)
	logger.Debug("Generating with %d messages, %d sources", len(messages), len(chunks))

	var reply string
	if onToken != nil {
		reply, err = c.llm.ChatStream(ctx, messages, c.opts, onToken)
	} else {
		reply, err = c.llm.Chat(ctx, messages, c.opts)
	}
	if err != nil {
		logger.Warn("Generation failed: %v", err)
		if errors.Is(err, domain.ErrGenerationFailure) {
			return nil, err
		}
		return nil, &domain.GenerationError{Provider: c.llm.ModelName(), Err: err}
	}

	reply = strings.TrimSpace(reply)
	if reply == "" {
		reply = domain.FallbackAnswer
	}

	sources := citedSources(reply, chunks)
	logger.Debug("Reply cites %d of %d sources", len(sources), len(chunks))

	return &domain.ComposedAnswer{
		Message:    reply,
		Sources:    sources,
		Confidence: domain.DefaultConfidence,
	}, nil
}

// systemPrompt renders the grounded prompt, or the no-context prompt when
// retrieval found nothing.
func (c *AnswerComposer) systemPrompt(chunks []domain.ContextChunk) (string, error) {
	if len(chunks) == 0 {
		prompt, err := c.prompts.Load(driven.PromptChatNoContext)
		if err != nil {
			return "", fmt.Errorf("load prompt: %w", err)
		}
		return prompt, nil
	}

	tmpl, err := c.prompts.Load(driven.PromptChatSystem)
	if err != nil {
		return "", fmt.Errorf("load prompt: %w", err)
	}
	return fmt.Sprintf(tmpl, ContextBlock(chunks)), nil
}

// ContextBlock renders chunks as "[Source N]: content" entries separated by
// blank lines. N is 1-based in ranking order.
func ContextBlock(chunks []domain.ContextChunk) string {
	parts := make([]string, len(chunks))
	for i, chunk := range chunks {
		parts[i] = fmt.Sprintf("[Source %d]: %s", i+1, chunk.Content)
	}
	return strings.Join(parts, "\n\n")
}

func buildMessages(system string, history []domain.ConversationTurn) []driven.ChatMessage {
	messages := make([]driven.ChatMessage, 0, len(history)+1)
	messages = append(messages, driven.ChatMessage{Role: string(domain.RoleSystem), Content: system})
	for _, turn := range history {
		messages = append(messages, driven.ChatMessage{Role: string(turn.Role), Content: turn.Content})
	}
	return messages
}

// citedSources returns the metadata of each distinct source cited in reply,
// in order of first citation. Numbers outside 1..len(chunks) are dropped.
func citedSources(reply string, chunks []domain.ContextChunk) []domain.Metadata {
	sources := make([]domain.Metadata, 0)
	seen := make(map[int]bool)

	for _, match := range citationPattern.FindAllStringSubmatch(reply, -1) {
		n, err := strconv.Atoi(match[1])
		if err != nil || n < 1 || n > len(chunks) || seen[n] {
			continue
		}
		seen[n] = true
		sources = append(sources, chunks[n-1].Metadata.Clone())
	}
	return sources
}
