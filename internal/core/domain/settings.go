package domain

import (
	"fmt"
	"time"
)

const unknownDescription = "Unknown"

// AIProvider identifies an AI service provider for embeddings or LLM.
type AIProvider string

// Available AI providers.
const (
	// AIProviderOllama is local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is OpenAI cloud API.
	AIProviderOpenAI AIProvider = "openai"

	// AIProviderAnthropic is Anthropic cloud API. Generation only.
	AIProviderAnthropic AIProvider = "anthropic"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderOllama, AIProviderOpenAI, AIProviderAnthropic:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderOpenAI || p == AIProviderAnthropic
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderOllama:
		return "Ollama (local)"
	case AIProviderOpenAI:
		return "OpenAI (cloud)"
	case AIProviderAnthropic:
		return "Anthropic (cloud)"
	default:
		return unknownDescription
	}
}

// StoreBackend selects the relational + vector store implementation.
type StoreBackend string

// Available store backends.
const (
	// StoreBackendSQLite keeps everything in a local SQLite file.
	StoreBackendSQLite StoreBackend = "sqlite"

	// StoreBackendPostgres uses Postgres with the pgvector extension.
	StoreBackendPostgres StoreBackend = "postgres"
)

// IsValid returns true if the backend is recognised.
func (b StoreBackend) IsValid() bool {
	return b == StoreBackendSQLite || b == StoreBackendPostgres
}

// String returns the string representation.
func (b StoreBackend) String() string {
	return string(b)
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	// Provider is the embedding service provider.
	Provider AIProvider

	// Model is the embedding model name.
	Model string

	// BaseURL is the API endpoint (for Ollama).
	BaseURL string

	// APIKey is the API key (for OpenAI).
	APIKey string

	// Timeout bounds each embedding call.
	Timeout time.Duration

	// RequestsPerSecond throttles embedding calls. Zero disables throttling.
	RequestsPerSecond float64
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	if !e.Provider.IsValid() {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// LLMSettings holds LLM provider configuration.
type LLMSettings struct {
	// Provider is the LLM service provider.
	Provider AIProvider

	// Model is the LLM model name.
	Model string

	// BaseURL is the API endpoint (for Ollama).
	BaseURL string

	// APIKey is the API key (for OpenAI/Anthropic).
	APIKey string

	// Temperature is the sampling temperature.
	Temperature float64

	// MaxTokens caps the reply length.
	MaxTokens int

	// Timeout bounds each generation call.
	Timeout time.Duration
}

// IsConfigured returns true if the LLM provider is set up.
func (l LLMSettings) IsConfigured() bool {
	if !l.Provider.IsValid() {
		return false
	}
	if l.Provider.RequiresAPIKey() && l.APIKey == "" {
		return false
	}
	return true
}

// StoreSettings holds persistence configuration.
type StoreSettings struct {
	// Backend selects SQLite or Postgres.
	Backend StoreBackend

	// DataDir is the SQLite data directory.
	DataDir string

	// DatabaseURL is the Postgres connection string.
	DatabaseURL string

	// Dimensions is the vector size the store accepts.
	// Zero means "derive from the embedding model".
	Dimensions int

	// AutoMigrate provisions tables on open. When false the store may be
	// unprovisioned until `kacey store init` runs.
	AutoMigrate bool
}

// PipelineSettings holds ingestion and retrieval tuning.
type PipelineSettings struct {
	// ChunkSize is the chunk window in words.
	ChunkSize int

	// ChunkOverlap is the number of words shared by consecutive windows.
	ChunkOverlap int

	// Concurrency bounds in-flight embedding calls per ingestion or sweep.
	Concurrency int

	// RepairBatchSize bounds the chunks picked up by one repair sweep.
	RepairBatchSize int

	// RepairInterval is how often `serve` runs the repair sweep. Zero disables it.
	RepairInterval time.Duration

	// RetrievalLimit is the number of chunks retrieved per chat turn.
	RetrievalLimit int

	// SkipUnchanged short-circuits re-ingestion of identical content.
	SkipUnchanged bool
}

// ServerSettings holds HTTP server configuration.
type ServerSettings struct {
	// Addr is the listen address, e.g. ":8080".
	Addr string
}

// AppSettings holds all application settings.
type AppSettings struct {
	// Embedding holds embedding provider settings.
	Embedding EmbeddingSettings

	// LLM holds LLM provider settings.
	LLM LLMSettings

	// Store holds persistence settings.
	Store StoreSettings

	// Pipeline holds ingestion and retrieval settings.
	Pipeline PipelineSettings

	// Server holds HTTP settings.
	Server ServerSettings
}

// Defaults for the ingestion pipeline.
const (
	DefaultChunkSize       = 500
	DefaultChunkOverlap    = 50
	DefaultConcurrency     = 4
	MaxConcurrency         = 8
	DefaultRepairBatchSize = 100
)

// DefaultAppSettings returns settings with sensible defaults.
// OpenAI embeddings and chat mirror the hosted deployment; the API key comes
// from the config file or OPENAI_API_KEY.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Embedding: EmbeddingSettings{
			Provider: AIProviderOpenAI,
			Model:    DefaultEmbeddingModels()[AIProviderOpenAI],
			Timeout:  30 * time.Second,
		},
		LLM: LLMSettings{
			Provider:    AIProviderOpenAI,
			Model:       DefaultLLMModels()[AIProviderOpenAI],
			Temperature: 0.7,
			MaxTokens:   1000,
			Timeout:     120 * time.Second,
		},
		Store: StoreSettings{
			Backend:     StoreBackendSQLite,
			AutoMigrate: true,
		},
		Pipeline: PipelineSettings{
			ChunkSize:       DefaultChunkSize,
			ChunkOverlap:    DefaultChunkOverlap,
			Concurrency:     DefaultConcurrency,
			RepairBatchSize: DefaultRepairBatchSize,
			RepairInterval:  10 * time.Minute,
			RetrievalLimit:  DefaultRetrievalLimit,
		},
		Server: ServerSettings{
			Addr: ":8080",
		},
	}
}

// VectorDimensions returns the configured store dimensions, falling back to
// the known size of the embedding model.
func (s AppSettings) VectorDimensions() int {
	if s.Store.Dimensions > 0 {
		return s.Store.Dimensions
	}
	return EmbeddingDimensions()[s.Embedding.Model]
}

// Validate rejects settings that can never work. Errors wrap ErrInvalidConfiguration.
func (s AppSettings) Validate() error {
	p := s.Pipeline
	if p.ChunkSize <= 0 {
		return fmt.Errorf("%w: chunk size must be positive, got %d", ErrInvalidConfiguration, p.ChunkSize)
	}
	if p.ChunkOverlap < 0 || p.ChunkOverlap >= p.ChunkSize {
		return fmt.Errorf("%w: chunk overlap %d must be in [0, %d)",
			ErrInvalidConfiguration, p.ChunkOverlap, p.ChunkSize)
	}
	if p.Concurrency < 1 || p.Concurrency > MaxConcurrency {
		return fmt.Errorf("%w: concurrency %d must be between 1 and %d",
			ErrInvalidConfiguration, p.Concurrency, MaxConcurrency)
	}
	if p.RepairBatchSize <= 0 {
		return fmt.Errorf("%w: repair batch size must be positive", ErrInvalidConfiguration)
	}
	if !s.Store.Backend.IsValid() {
		return fmt.Errorf("%w: unknown store backend %q", ErrInvalidConfiguration, s.Store.Backend)
	}
	if s.Store.Backend == StoreBackendPostgres && s.Store.DatabaseURL == "" {
		return fmt.Errorf("%w: postgres backend requires a database URL", ErrInvalidConfiguration)
	}
	if s.Embedding.Provider == AIProviderAnthropic {
		return fmt.Errorf("%w: anthropic does not provide embeddings", ErrInvalidConfiguration)
	}
	if s.Embedding.Provider.IsValid() && s.VectorDimensions() <= 0 {
		return fmt.Errorf("%w: unknown dimensions for embedding model %q, set store.dimensions",
			ErrInvalidConfiguration, s.Embedding.Model)
	}
	return nil
}

// AllEmbeddingProviders returns providers that support embeddings.
func AllEmbeddingProviders() []AIProvider {
	return []AIProvider{
		AIProviderOllama,
		AIProviderOpenAI,
	}
}

// AllLLMProviders returns providers that support LLM operations.
func AllLLMProviders() []AIProvider {
	return []AIProvider{
		AIProviderOllama,
		AIProviderOpenAI,
		AIProviderAnthropic,
	}
}

// DefaultEmbeddingModels returns default models for each embedding provider.
func DefaultEmbeddingModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama: "nomic-embed-text",
		AIProviderOpenAI: "text-embedding-3-small",
	}
}

// DefaultLLMModels returns default models for each LLM provider.
func DefaultLLMModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama:    "llama3.2",
		AIProviderOpenAI:    "gpt-4",
		AIProviderAnthropic: "claude-3-5-sonnet-latest",
	}
}

// EmbeddingDimensions returns the vector dimensions for known models.
func EmbeddingDimensions() map[string]int {
	return map[string]int{
		// Ollama models
		"nomic-embed-text":  768,
		"mxbai-embed-large": 1024,
		"all-minilm":        384,
		// OpenAI models
		"text-embedding-3-small": 1536,
		"text-embedding-3-large": 3072,
		"text-embedding-ada-002": 1536,
	}
}
