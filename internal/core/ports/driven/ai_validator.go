package driven

import "github.com/custodia-labs/kacey/internal/core/domain"

// AIConfigValidator checks provider settings against the live provider.
// A nil or unconfigured section passes: there is nothing to reach yet.
type AIConfigValidator interface {
	// ValidateEmbedding builds the embedding service and pings it once.
	// Failures match domain.ErrEmbeddingUnavailable.
	ValidateEmbedding(config *domain.EmbeddingSettings) error

	// ValidateLLM builds the LLM service and pings it once.
	// Failures match domain.ErrLLMUnavailable.
	ValidateLLM(config *domain.LLMSettings) error
}
