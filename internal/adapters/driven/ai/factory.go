// Package ai provides factory functions for creating AI service adapters.
package ai

import (
	"fmt"

	ollamaembed "github.com/custodia-labs/kacey/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/custodia-labs/kacey/internal/adapters/driven/embedding/openai"
	"github.com/custodia-labs/kacey/internal/adapters/driven/embedding/ratelimit"
	anthropicllm "github.com/custodia-labs/kacey/internal/adapters/driven/llm/anthropic"
	ollamallm "github.com/custodia-labs/kacey/internal/adapters/driven/llm/ollama"
	openaillm "github.com/custodia-labs/kacey/internal/adapters/driven/llm/openai"
	"github.com/custodia-labs/kacey/internal/core/domain"
	"github.com/custodia-labs/kacey/internal/core/ports/driven"
)

// InitResult contains the AI services built from application settings.
type InitResult struct {
	EmbeddingService driven.EmbeddingService
	LLMService       driven.LLMService // Nil when no LLM is configured.
	Warnings         []string          // Non-fatal issues, e.g. a missing LLM.
}

// Close releases all resources held by InitResult.
func (r *InitResult) Close() {
	if r.EmbeddingService != nil {
		r.EmbeddingService.Close()
	}
	if r.LLMService != nil {
		r.LLMService.Close()
	}
}

// Init creates the embedding and LLM services for settings and checks the
// embedding dimensions against the store. An embedding service is required;
// a missing LLM only adds a warning because retrieval still works without one.
func Init(settings *domain.AppSettings) (*InitResult, error) {
	embedding, err := CreateEmbeddingService(&settings.Embedding, settings.VectorDimensions())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrEmbeddingUnavailable, err)
	}
	if embedding == nil {
		return nil, fmt.Errorf("%w: set embedding.provider and its API key. Run 'kacey settings show' to inspect",
			domain.ErrEmbeddingUnavailable)
	}

	if err := ValidateDimensions(embedding, settings.VectorDimensions()); err != nil {
		embedding.Close()
		return nil, err
	}

	result := &InitResult{EmbeddingService: embedding}

	llm, err := CreateLLMService(&settings.LLM)
	switch {
	case err != nil:
		result.Warnings = append(result.Warnings, fmt.Sprintf("LLM disabled: %v", err))
	case llm == nil:
		result.Warnings = append(result.Warnings, "LLM not configured: answers cannot be generated")
	default:
		result.LLMService = llm
	}

	return result, nil
}

// ValidateDimensions rejects an embedding model whose vectors do not fit
// the store. Zero store dimensions accept any model.
func ValidateDimensions(embedding driven.EmbeddingService, storeDimensions int) error {
	if storeDimensions <= 0 {
		return nil
	}
	if got := embedding.Dimensions(); got != storeDimensions {
		return fmt.Errorf("%w: embedding model %s produces %d dimensions, store expects %d",
			domain.ErrInvalidConfiguration, embedding.ModelName(), got, storeDimensions)
	}
	return nil
}

// CreateEmbeddingService creates the appropriate embedding service based on settings.
// dimensions sizes models whose size is unknown, and shortens OpenAI
// text-embedding-3 vectors.
// Returns nil if the provider is not configured.
func CreateEmbeddingService(settings *domain.EmbeddingSettings, dimensions int) (driven.EmbeddingService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	var (
		svc driven.EmbeddingService
		err error
	)
	switch settings.Provider {
	case domain.AIProviderOllama:
		svc = createOllamaEmbedding(settings, dimensions)

	case domain.AIProviderOpenAI:
		svc, err = createOpenAIEmbedding(settings, dimensions)

	case domain.AIProviderAnthropic:
		return nil, fmt.Errorf("anthropic does not support embeddings, use ollama or openai")

	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", settings.Provider)
	}
	if err != nil {
		return nil, err
	}

	return ratelimit.Wrap(svc, ratelimit.Config{RequestsPerSecond: settings.RequestsPerSecond}), nil
}

// CreateLLMService creates the appropriate LLM service based on settings.
// Returns nil if the provider is not configured.
func CreateLLMService(settings *domain.LLMSettings) (driven.LLMService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	switch settings.Provider {
	case domain.AIProviderOllama:
		return createOllamaLLM(settings), nil

	case domain.AIProviderOpenAI:
		return createOpenAILLM(settings)

	case domain.AIProviderAnthropic:
		return createAnthropicLLM(settings)

	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", settings.Provider)
	}
}

// createOllamaEmbedding prefers the model's known size: Ollama cannot shorten
// vectors, so a differing store size must surface in ValidateDimensions.
func createOllamaEmbedding(settings *domain.EmbeddingSettings, dimensions int) driven.EmbeddingService {
	if known := domain.EmbeddingDimensions()[settings.Model]; known > 0 {
		dimensions = known
	}
	return ollamaembed.NewEmbeddingService(ollamaembed.Config{
		BaseURL:    settings.BaseURL,
		Model:      settings.Model,
		Timeout:    settings.Timeout,
		Dimensions: dimensions,
	})
}

func createOpenAIEmbedding(settings *domain.EmbeddingSettings, dimensions int) (driven.EmbeddingService, error) {
	return openaiembed.NewEmbeddingService(openaiembed.Config{
		APIKey:     settings.APIKey,
		BaseURL:    settings.BaseURL,
		Model:      settings.Model,
		Timeout:    settings.Timeout,
		Dimensions: dimensions,
	})
}

func createOllamaLLM(settings *domain.LLMSettings) driven.LLMService {
	return ollamallm.NewLLMService(ollamallm.LLMConfig{
		BaseURL: settings.BaseURL,
		Model:   settings.Model,
		Timeout: settings.Timeout,
	})
}

func createOpenAILLM(settings *domain.LLMSettings) (driven.LLMService, error) {
	return openaillm.NewLLMService(openaillm.LLMConfig{
		APIKey:  settings.APIKey,
		BaseURL: settings.BaseURL,
		Model:   settings.Model,
		Timeout: settings.Timeout,
	})
}

func createAnthropicLLM(settings *domain.LLMSettings) (driven.LLMService, error) {
	return anthropicllm.NewLLMService(anthropicllm.Config{
		APIKey:  settings.APIKey,
		BaseURL: settings.BaseURL,
		Model:   settings.Model,
		Timeout: settings.Timeout,
	})
}
