package ai

import (
	"context"
	"fmt"
	"time"

	"github.com/custodia-labs/kacey/internal/core/domain"
	"github.com/custodia-labs/kacey/internal/core/ports/driven"
)

// Ensure ConfigValidator implements the interface.
var _ driven.AIConfigValidator = (*ConfigValidator)(nil)

// DefaultPingTimeout bounds each connectivity check.
const DefaultPingTimeout = 5 * time.Second

// ConfigValidator checks provider settings by building the service and
// pinging it once. Unconfigured sections pass.
type ConfigValidator struct {
	timeout time.Duration
}

// NewConfigValidator creates a validator using DefaultPingTimeout.
func NewConfigValidator() *ConfigValidator {
	return &ConfigValidator{timeout: DefaultPingTimeout}
}

// WithTimeout returns a copy of the validator using timeout per ping.
func (v *ConfigValidator) WithTimeout(timeout time.Duration) *ConfigValidator {
	return &ConfigValidator{timeout: timeout}
}

// ValidateEmbedding pings the embedding provider. Failures match
// domain.ErrEmbeddingUnavailable.
func (v *ConfigValidator) ValidateEmbedding(config *domain.EmbeddingSettings) error {
	if config == nil || !config.IsConfigured() {
		return nil
	}

	svc, err := CreateEmbeddingService(config, 0)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrEmbeddingUnavailable, err)
	}
	if svc == nil {
		return nil
	}
	defer svc.Close()

	if err := v.ping(svc.Ping); err != nil {
		return fmt.Errorf("%w: %s %s: %w", domain.ErrEmbeddingUnavailable, config.Provider, config.Model, err)
	}
	return nil
}

// ValidateLLM pings the LLM provider. Failures match domain.ErrLLMUnavailable.
func (v *ConfigValidator) ValidateLLM(config *domain.LLMSettings) error {
	if config == nil || !config.IsConfigured() {
		return nil
	}

	svc, err := CreateLLMService(config)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrLLMUnavailable, err)
	}
	if svc == nil {
		return nil
	}
	defer svc.Close()

	if err := v.ping(svc.Ping); err != nil {
		return fmt.Errorf("%w: %s %s: %w", domain.ErrLLMUnavailable, config.Provider, config.Model, err)
	}
	return nil
}

func (v *ConfigValidator) ping(fn func(context.Context) error) error {
	timeout := v.timeout
	if timeout <= 0 {
		timeout = DefaultPingTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return fn(ctx)
}
