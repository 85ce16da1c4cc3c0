package services

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/kacey/internal/core/domain"
	"github.com/custodia-labs/kacey/internal/core/ports/driven"
	"github.com/custodia-labs/kacey/internal/core/ports/driving"
	"github.com/custodia-labs/kacey/internal/logger"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Environment variables that override the config file.
//
//nolint:gosec // G101: These are variable names, not credentials.
const (
	EnvOpenAIAPIKey    = "OPENAI_API_KEY"
	EnvAnthropicAPIKey = "ANTHROPIC_API_KEY"
	EnvDatabaseURL     = "KACEY_DATABASE_URL"
	EnvDataDir         = "KACEY_DATA_DIR"
)

// settingKind decides how a raw config value is parsed and stored.
type settingKind int

const (
	kindString settingKind = iota
	kindInt
	kindFloat
	kindBool
	kindDuration
	kindProvider
	kindBackend
)

// setting binds a dotted config key to a field of domain.AppSettings.
type setting struct {
	kind  settingKind
	apply func(s *domain.AppSettings, v any)
}

//nolint:gosec // G101: These are config key names, not actual credentials.
var settingDefs = map[string]setting{
	"embedding.provider": {kindProvider, func(s *domain.AppSettings, v any) { s.Embedding.Provider = v.(domain.AIProvider) }},
	"embedding.model":    {kindString, func(s *domain.AppSettings, v any) { s.Embedding.Model = v.(string) }},
	"embedding.base_url": {kindString, func(s *domain.AppSettings, v any) { s.Embedding.BaseURL = v.(string) }},
	"embedding.api_key":  {kindString, func(s *domain.AppSettings, v any) { s.Embedding.APIKey = v.(string) }},
	"embedding.timeout":  {kindDuration, func(s *domain.AppSettings, v any) { s.Embedding.Timeout = v.(time.Duration) }},
	"embedding.requests_per_second": {kindFloat, func(s *domain.AppSettings, v any) {
		s.Embedding.RequestsPerSecond = v.(float64)
	}},

	"llm.provider":    {kindProvider, func(s *domain.AppSettings, v any) { s.LLM.Provider = v.(domain.AIProvider) }},
	"llm.model":       {kindString, func(s *domain.AppSettings, v any) { s.LLM.Model = v.(string) }},
	"llm.base_url":    {kindString, func(s *domain.AppSettings, v any) { s.LLM.BaseURL = v.(string) }},
	"llm.api_key":     {kindString, func(s *domain.AppSettings, v any) { s.LLM.APIKey = v.(string) }},
	"llm.temperature": {kindFloat, func(s *domain.AppSettings, v any) { s.LLM.Temperature = v.(float64) }},
	"llm.max_tokens":  {kindInt, func(s *domain.AppSettings, v any) { s.LLM.MaxTokens = v.(int) }},
	"llm.timeout":     {kindDuration, func(s *domain.AppSettings, v any) { s.LLM.Timeout = v.(time.Duration) }},

	"store.backend":      {kindBackend, func(s *domain.AppSettings, v any) { s.Store.Backend = v.(domain.StoreBackend) }},
	"store.data_dir":     {kindString, func(s *domain.AppSettings, v any) { s.Store.DataDir = v.(string) }},
	"store.database_url": {kindString, func(s *domain.AppSettings, v any) { s.Store.DatabaseURL = v.(string) }},
	"store.dimensions":   {kindInt, func(s *domain.AppSettings, v any) { s.Store.Dimensions = v.(int) }},
	"store.auto_migrate": {kindBool, func(s *domain.AppSettings, v any) { s.Store.AutoMigrate = v.(bool) }},

	"pipeline.chunk_size":        {kindInt, func(s *domain.AppSettings, v any) { s.Pipeline.ChunkSize = v.(int) }},
	"pipeline.chunk_overlap":     {kindInt, func(s *domain.AppSettings, v any) { s.Pipeline.ChunkOverlap = v.(int) }},
	"pipeline.concurrency":       {kindInt, func(s *domain.AppSettings, v any) { s.Pipeline.Concurrency = v.(int) }},
	"pipeline.repair_batch_size": {kindInt, func(s *domain.AppSettings, v any) { s.Pipeline.RepairBatchSize = v.(int) }},
	"pipeline.repair_interval": {kindDuration, func(s *domain.AppSettings, v any) {
		s.Pipeline.RepairInterval = v.(time.Duration)
	}},
	"pipeline.retrieval_limit": {kindInt, func(s *domain.AppSettings, v any) { s.Pipeline.RetrievalLimit = v.(int) }},
	"pipeline.skip_unchanged":  {kindBool, func(s *domain.AppSettings, v any) { s.Pipeline.SkipUnchanged = v.(bool) }},

	"server.addr": {kindString, func(s *domain.AppSettings, v any) { s.Server.Addr = v.(string) }},
}

// SettingsService resolves application settings from built-in defaults, the
// config store and the environment.
type SettingsService struct {
	configStore driven.ConfigStore
	aiValidator driven.AIConfigValidator
	lookupEnv   func(string) (string, bool)
}

// NewSettingsService creates a new settings service.
// aiValidator is optional; without it the Validate*Config methods are no-ops.
func NewSettingsService(configStore driven.ConfigStore, aiValidator driven.AIConfigValidator) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		aiValidator: aiValidator,
		lookupEnv:   os.LookupEnv,
	}
}

// Get resolves the current settings. Unparseable values in the config file
// are ignored with a warning and the default is kept.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	resolved := domain.DefaultAppSettings()

	for _, key := range s.Keys() {
		raw, ok := s.configStore.Get(key)
		if !ok {
			continue
		}
		def := settingDefs[key]
		v, err := s.read(key, def.kind, raw)
		if err != nil {
			logger.Warn("config %s: %v; using default", key, err)
			continue
		}
		def.apply(&resolved, v)
	}

	s.applyEnv(&resolved)
	return &resolved, nil
}

// Validate resolves the settings and checks them.
func (s *SettingsService) Validate() error {
	resolved, err := s.Get()
	if err != nil {
		return err
	}
	return resolved.Validate()
}

// Set parses value according to key's type and persists it.
// Unknown keys and malformed values fail with domain.ErrInvalidInput.
func (s *SettingsService) Set(key, value string) error {
	key = strings.ToLower(strings.TrimSpace(key))
	def, ok := settingDefs[key]
	if !ok {
		return fmt.Errorf("%w: unknown setting %q", domain.ErrInvalidInput, key)
	}

	v, err := parseSetting(def.kind, strings.TrimSpace(value))
	if err != nil {
		return fmt.Errorf("%w: %s: %w", domain.ErrInvalidInput, key, err)
	}

	// Durations and enums are stored as their string form.
	switch tv := v.(type) {
	case time.Duration:
		v = tv.String()
	case domain.AIProvider:
		v = tv.String()
	case domain.StoreBackend:
		v = tv.String()
	}

	if err := s.configStore.Set(key, v); err != nil {
		return fmt.Errorf("save setting %s: %w", key, err)
	}
	logger.Debug("Set %s", key)
	return nil
}

// Keys returns the recognised config keys in sorted order.
func (s *SettingsService) Keys() []string {
	keys := make([]string, 0, len(settingDefs))
	for k := range settingDefs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Path returns the config file location.
func (s *SettingsService) Path() string {
	return s.configStore.Path()
}

// ValidateEmbeddingConfig pings the configured embedding provider.
func (s *SettingsService) ValidateEmbeddingConfig() error {
	if s.aiValidator == nil {
		return nil
	}
	resolved, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateEmbedding(&resolved.Embedding)
}

// ValidateLLMConfig pings the configured LLM provider.
func (s *SettingsService) ValidateLLMConfig() error {
	if s.aiValidator == nil {
		return nil
	}
	resolved, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateLLM(&resolved.LLM)
}

// read converts a stored value. TOML files carry typed values while
// values set from the CLI may arrive as strings.
func (s *SettingsService) read(key string, kind settingKind, raw any) (any, error) {
	if str, ok := raw.(string); ok {
		return parseSetting(kind, str)
	}

	switch kind {
	case kindInt:
		switch raw.(type) {
		case int, int64:
			return s.configStore.GetInt(key), nil
		}
	case kindFloat:
		switch raw.(type) {
		case float64, int, int64:
			return s.configStore.GetFloat(key), nil
		}
	case kindBool:
		if b, ok := raw.(bool); ok {
			return b, nil
		}
	}
	return nil, fmt.Errorf("unexpected value %v (%T)", raw, raw)
}

// applyEnv lets the environment override the config file. Provider API keys
// only apply to the sections using that provider.
func (s *SettingsService) applyEnv(resolved *domain.AppSettings) {
	keys := map[domain.AIProvider]string{
		domain.AIProviderOpenAI:    EnvOpenAIAPIKey,
		domain.AIProviderAnthropic: EnvAnthropicAPIKey,
	}
	if name, ok := keys[resolved.Embedding.Provider]; ok {
		if v, ok := s.env(name); ok {
			resolved.Embedding.APIKey = v
		}
	}
	if name, ok := keys[resolved.LLM.Provider]; ok {
		if v, ok := s.env(name); ok {
			resolved.LLM.APIKey = v
		}
	}
	if v, ok := s.env(EnvDatabaseURL); ok {
		resolved.Store.DatabaseURL = v
	}
	if v, ok := s.env(EnvDataDir); ok {
		resolved.Store.DataDir = v
	}
}

func (s *SettingsService) env(name string) (string, bool) {
	v, ok := s.lookupEnv(name)
	if !ok || strings.TrimSpace(v) == "" {
		return "", false
	}
	return strings.TrimSpace(v), true
}

// parseSetting parses the string form of a setting.
func parseSetting(kind settingKind, value string) (any, error) {
	switch kind {
	case kindInt:
		return strconv.Atoi(value)
	case kindFloat:
		return strconv.ParseFloat(value, 64)
	case kindBool:
		return strconv.ParseBool(value)
	case kindDuration:
		return time.ParseDuration(value)
	case kindProvider:
		p := domain.AIProvider(strings.ToLower(value))
		if !p.IsValid() {
			return nil, fmt.Errorf("unknown provider %q", value)
		}
		return p, nil
	case kindBackend:
		b := domain.StoreBackend(strings.ToLower(value))
		if !b.IsValid() {
			return nil, fmt.Errorf("unknown store backend %q", value)
		}
		return b, nil
	default:
		return value, nil
	}
}
