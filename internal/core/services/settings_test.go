package services

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/kacey/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/kacey/internal/core/domain"
)

// newSettings builds a service that sees only the given environment.
func newSettings(store *memory.ConfigStore, env map[string]string) *SettingsService {
	service := NewSettingsService(store, nil)
	service.lookupEnv = func(name string) (string, bool) {
		v, ok := env[name]
		return v, ok
	}
	return service
}

func TestSettingsService_Get_ReturnsDefaults(t *testing.T) {
	service := newSettings(memory.NewConfigStore(), nil)

	settings, err := service.Get()

	require.NoError(t, err)
	assert.Equal(t, domain.DefaultAppSettings(), *settings)
}

func TestSettingsService_Get_ReturnsStoredValues(t *testing.T) {
	store := memory.NewConfigStore()
	_ = store.Set("embedding.provider", "ollama")
	_ = store.Set("embedding.model", "all-minilm")
	_ = store.Set("embedding.requests_per_second", int64(5))
	_ = store.Set("llm.provider", "anthropic")
	_ = store.Set("llm.temperature", 0.2)
	_ = store.Set("llm.max_tokens", int64(800))
	_ = store.Set("llm.timeout", "45s")
	_ = store.Set("store.backend", "postgres")
	_ = store.Set("store.database_url", "postgres://localhost/kacey")
	_ = store.Set("store.auto_migrate", false)
	_ = store.Set("pipeline.chunk_size", int64(300))
	_ = store.Set("pipeline.repair_interval", "1m")
	_ = store.Set("pipeline.skip_unchanged", true)
	_ = store.Set("server.addr", "127.0.0.1:9000")

	settings, err := newSettings(store, nil).Get()

	require.NoError(t, err)
	assert.Equal(t, domain.AIProviderOllama, settings.Embedding.Provider)
	assert.Equal(t, "all-minilm", settings.Embedding.Model)
	assert.InDelta(t, 5.0, settings.Embedding.RequestsPerSecond, 1e-9)
	assert.Equal(t, domain.AIProviderAnthropic, settings.LLM.Provider)
	assert.InDelta(t, 0.2, settings.LLM.Temperature, 1e-9)
	assert.Equal(t, 800, settings.LLM.MaxTokens)
	assert.Equal(t, 45*time.Second, settings.LLM.Timeout)
	assert.Equal(t, domain.StoreBackendPostgres, settings.Store.Backend)
	assert.Equal(t, "postgres://localhost/kacey", settings.Store.DatabaseURL)
	assert.False(t, settings.Store.AutoMigrate)
	assert.Equal(t, 300, settings.Pipeline.ChunkSize)
	assert.Equal(t, time.Minute, settings.Pipeline.RepairInterval)
	assert.True(t, settings.Pipeline.SkipUnchanged)
	assert.Equal(t, "127.0.0.1:9000", settings.Server.Addr)
	// Untouched keys keep defaults.
	assert.Equal(t, domain.DefaultChunkOverlap, settings.Pipeline.ChunkOverlap)
}

func TestSettingsService_Get_InvalidValuesKeepDefaults(t *testing.T) {
	store := memory.NewConfigStore()
	_ = store.Set("embedding.provider", "cohere")
	_ = store.Set("pipeline.repair_interval", "often")
	_ = store.Set("pipeline.chunk_size", "big")
	_ = store.Set("store.auto_migrate", 3)

	settings, err := newSettings(store, nil).Get()

	require.NoError(t, err)
	defaults := domain.DefaultAppSettings()
	assert.Equal(t, defaults.Embedding.Provider, settings.Embedding.Provider)
	assert.Equal(t, defaults.Pipeline.RepairInterval, settings.Pipeline.RepairInterval)
	assert.Equal(t, defaults.Pipeline.ChunkSize, settings.Pipeline.ChunkSize)
	assert.True(t, settings.Store.AutoMigrate)
}

func TestSettingsService_Get_EnvironmentOverridesFile(t *testing.T) {
	store := memory.NewConfigStore()
	_ = store.Set("embedding.api_key", "from-file")
	_ = store.Set("llm.provider", "anthropic")
	_ = store.Set("store.data_dir", "/from/file")

	service := newSettings(store, map[string]string{
		EnvOpenAIAPIKey:    "sk-env",
		EnvAnthropicAPIKey: "ant-env",
		EnvDatabaseURL:     "postgres://env/kacey",
		EnvDataDir:         "/from/env",
	})

	settings, err := service.Get()

	require.NoError(t, err)
	assert.Equal(t, "sk-env", settings.Embedding.APIKey)
	assert.Equal(t, "ant-env", settings.LLM.APIKey)
	assert.Equal(t, "postgres://env/kacey", settings.Store.DatabaseURL)
	assert.Equal(t, "/from/env", settings.Store.DataDir)
}

func TestSettingsService_Get_APIKeyOnlyAppliesToMatchingProvider(t *testing.T) {
	store := memory.NewConfigStore()
	_ = store.Set("embedding.provider", "ollama")
	_ = store.Set("llm.provider", "ollama")

	settings, err := newSettings(store, map[string]string{EnvOpenAIAPIKey: "sk-env"}).Get()

	require.NoError(t, err)
	assert.Empty(t, settings.Embedding.APIKey)
	assert.Empty(t, settings.LLM.APIKey)
}

func TestSettingsService_Get_BlankEnvironmentIgnored(t *testing.T) {
	store := memory.NewConfigStore()
	_ = store.Set("llm.api_key", "from-file")

	settings, err := newSettings(store, map[string]string{EnvOpenAIAPIKey: "  "}).Get()

	require.NoError(t, err)
	assert.Equal(t, "from-file", settings.LLM.APIKey)
}

func TestSettingsService_Set(t *testing.T) {
	store := memory.NewConfigStore()
	service := newSettings(store, nil)

	require.NoError(t, service.Set("pipeline.concurrency", "6"))
	require.NoError(t, service.Set("LLM.Temperature", " 0.1 "))
	require.NoError(t, service.Set("store.auto_migrate", "false"))
	require.NoError(t, service.Set("pipeline.repair_interval", "90s"))
	require.NoError(t, service.Set("embedding.provider", "Ollama"))
	require.NoError(t, service.Set("store.backend", "postgres"))

	assert.Equal(t, 6, store.GetInt("pipeline.concurrency"))
	assert.InDelta(t, 0.1, store.GetFloat("llm.temperature"), 1e-9)
	assert.Equal(t, "1m30s", store.GetString("pipeline.repair_interval"))
	assert.Equal(t, "ollama", store.GetString("embedding.provider"))

	settings, err := service.Get()
	require.NoError(t, err)
	assert.Equal(t, 6, settings.Pipeline.Concurrency)
	assert.False(t, settings.Store.AutoMigrate)
	assert.Equal(t, 90*time.Second, settings.Pipeline.RepairInterval)
	assert.Equal(t, domain.AIProviderOllama, settings.Embedding.Provider)
	assert.Equal(t, domain.StoreBackendPostgres, settings.Store.Backend)
}

func TestSettingsService_Set_Rejects(t *testing.T) {
	service := newSettings(memory.NewConfigStore(), nil)

	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"unknown key", "search.mode", "hybrid"},
		{"bad int", "pipeline.chunk_size", "lots"},
		{"bad float", "llm.temperature", "warm"},
		{"bad bool", "store.auto_migrate", "maybe"},
		{"bad duration", "llm.timeout", "10"},
		{"bad provider", "llm.provider", "cohere"},
		{"bad backend", "store.backend", "mysql"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := service.Set(tt.key, tt.value)
			require.Error(t, err)
			assert.True(t, errors.Is(err, domain.ErrInvalidInput))
		})
	}
}

func TestSettingsService_Validate(t *testing.T) {
	store := memory.NewConfigStore()
	service := newSettings(store, nil)

	require.NoError(t, service.Validate())

	_ = store.Set("pipeline.chunk_overlap", int64(500))
	err := service.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidConfiguration)
}

func TestSettingsService_KeysAndPath(t *testing.T) {
	service := newSettings(memory.NewConfigStore(), nil)

	keys := service.Keys()
	assert.Contains(t, keys, "embedding.provider")
	assert.Contains(t, keys, "pipeline.skip_unchanged")
	assert.IsIncreasing(t, keys)
	assert.Equal(t, ":memory:", service.Path())
}

func TestSettingsService_ValidateConfig(t *testing.T) {
	validator := &mockAIValidator{embeddingErr: errors.New("unreachable")}
	store := memory.NewConfigStore()
	_ = store.Set("llm.model", "gpt-4o")
	service := NewSettingsService(store, validator)
	service.lookupEnv = func(string) (string, bool) { return "", false }

	assert.EqualError(t, service.ValidateEmbeddingConfig(), "unreachable")
	require.NoError(t, service.ValidateLLMConfig())
	require.NotNil(t, validator.llm)
	assert.Equal(t, "gpt-4o", validator.llm.Model)

	noValidator := newSettings(memory.NewConfigStore(), nil)
	assert.NoError(t, noValidator.ValidateEmbeddingConfig())
	assert.NoError(t, noValidator.ValidateLLMConfig())
}

// --- Mock implementations ---

type mockAIValidator struct {
	embeddingErr error
	llmErr       error
	llm          *domain.LLMSettings
}

func (m *mockAIValidator) ValidateEmbedding(_ *domain.EmbeddingSettings) error {
	return m.embeddingErr
}

func (m *mockAIValidator) ValidateLLM(config *domain.LLMSettings) error {
	m.llm = config
	return m.llmErr
}
