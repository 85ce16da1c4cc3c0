package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/kacey/internal/core/domain"
)

var settingsValidate bool

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage application settings",
	Long: `View and change kacey's configuration.

Settings are read from built-in defaults, then the config file, then the
environment (OPENAI_API_KEY, ANTHROPIC_API_KEY, KACEY_DATABASE_URL,
KACEY_DATA_DIR).`,
	RunE: runSettingsShow,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	RunE:  runSettingsShow,
}

var settingsSetCmd = &cobra.Command{
	Use:   "set [key] [value]",
	Short: "Set a config value",
	Long: `Stores one setting in the config file.

Examples:
  kacey settings set embedding.provider openai
  kacey settings set llm.model llama3.2
  kacey settings set pipeline.chunk_size 400
  kacey settings set pipeline.repair_interval 10m

Run 'kacey settings keys' for the full list.`,
	Args: cobra.ExactArgs(2),
	RunE: runSettingsSet,
}

var settingsSetKeyCmd = &cobra.Command{
	Use:   "set-key [provider]",
	Short: "Store an API key without echoing it",
	Long: `Prompts for an API key and stores it for every section (embedding, llm)
that uses the given provider.`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{string(domain.AIProviderOpenAI), string(domain.AIProviderAnthropic)},
	RunE:      runSettingsSetKey,
}

var settingsKeysCmd = &cobra.Command{
	Use:   "keys",
	Short: "List config keys",
	Args:  cobra.NoArgs,
	RunE:  runSettingsKeys,
}

func init() {
	settingsShowCmd.Flags().BoolVar(&settingsValidate, "validate", false, "ping the configured providers")
	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsSetCmd)
	settingsCmd.AddCommand(settingsSetKeyCmd)
	settingsCmd.AddCommand(settingsKeysCmd)
	rootCmd.AddCommand(settingsCmd)
}

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	svc, err := loadSettings()
	if err != nil {
		return err
	}

	settings, err := svc.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	cmd.Println("Current Settings")
	cmd.Println("================")
	cmd.Printf("Config file: %s\n", svc.Path())
	cmd.Println()

	cmd.Println("[Embedding]")
	cmd.Printf("  Provider: %s\n", settings.Embedding.Provider.Description())
	cmd.Printf("  Model: %s\n", settings.Embedding.Model)
	if settings.Embedding.BaseURL != "" {
		cmd.Printf("  Base URL: %s\n", settings.Embedding.BaseURL)
	}
	if settings.Embedding.Provider.RequiresAPIKey() {
		cmd.Printf("  API Key: %s\n", displayAPIKey(settings.Embedding.APIKey))
	}
	if settings.Embedding.RequestsPerSecond > 0 {
		cmd.Printf("  Rate limit: %.1f req/s\n", settings.Embedding.RequestsPerSecond)
	}
	cmd.Printf("  Status: %s\n", configuredStatus(settings.Embedding.IsConfigured()))
	cmd.Println()

	cmd.Println("[LLM]")
	cmd.Printf("  Provider: %s\n", settings.LLM.Provider.Description())
	cmd.Printf("  Model: %s\n", settings.LLM.Model)
	if settings.LLM.BaseURL != "" {
		cmd.Printf("  Base URL: %s\n", settings.LLM.BaseURL)
	}
	if settings.LLM.Provider.RequiresAPIKey() {
		cmd.Printf("  API Key: %s\n", displayAPIKey(settings.LLM.APIKey))
	}
	cmd.Printf("  Temperature: %.2f, max tokens: %d\n", settings.LLM.Temperature, settings.LLM.MaxTokens)
	cmd.Printf("  Status: %s\n", configuredStatus(settings.LLM.IsConfigured()))
	cmd.Println()

	cmd.Println("[Store]")
	cmd.Printf("  Backend: %s\n", settings.Store.Backend)
	switch settings.Store.Backend {
	case domain.StoreBackendPostgres:
		cmd.Printf("  Database URL: %s\n", displayAPIKey(settings.Store.DatabaseURL))
	default:
		cmd.Printf("  Data dir: %s\n", settings.Store.DataDir)
	}
	cmd.Printf("  Dimensions: %d\n", settings.VectorDimensions())
	cmd.Printf("  Auto-migrate: %t\n", settings.Store.AutoMigrate)
	cmd.Println()

	cmd.Println("[Pipeline]")
	cmd.Printf("  Chunk size: %d words, overlap: %d\n", settings.Pipeline.ChunkSize, settings.Pipeline.ChunkOverlap)
	cmd.Printf("  Concurrency: %d\n", settings.Pipeline.Concurrency)
	cmd.Printf("  Retrieval limit: %d\n", settings.Pipeline.RetrievalLimit)
	cmd.Printf("  Repair: %d chunks every %s\n", settings.Pipeline.RepairBatchSize, settings.Pipeline.RepairInterval)
	cmd.Printf("  Skip unchanged: %t\n", settings.Pipeline.SkipUnchanged)
	cmd.Println()

	cmd.Println("[Server]")
	cmd.Printf("  Address: %s\n", settings.Server.Addr)

	if err := svc.Validate(); err != nil {
		cmd.Printf("\nWarning: %v\n", err)
	}

	if settingsValidate {
		cmd.Println()
		cmd.Printf("Embedding provider: %s\n", pingStatus(svc.ValidateEmbeddingConfig()))
		cmd.Printf("LLM provider: %s\n", pingStatus(svc.ValidateLLMConfig()))
	}

	return nil
}

func runSettingsSet(cmd *cobra.Command, args []string) error {
	svc, err := loadSettings()
	if err != nil {
		return err
	}

	key, value := args[0], args[1]
	if err := svc.Set(key, value); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}

	if strings.HasSuffix(key, "api_key") || key == "store.database_url" {
		value = maskAPIKey(value)
	}
	cmd.Printf("%s = %s\n", key, value)

	if err := svc.Validate(); err != nil {
		cmd.Printf("Warning: %v\n", err)
	}
	return nil
}

func runSettingsSetKey(cmd *cobra.Command, args []string) error {
	provider := domain.AIProvider(strings.ToLower(args[0]))
	if !provider.IsValid() || !provider.RequiresAPIKey() {
		return fmt.Errorf("provider %q does not use an API key", args[0])
	}

	svc, err := loadSettings()
	if err != nil {
		return err
	}

	settings, err := svc.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	var keys []string
	if settings.Embedding.Provider == provider {
		keys = append(keys, "embedding.api_key")
	}
	if settings.LLM.Provider == provider {
		keys = append(keys, "llm.api_key")
	}
	if len(keys) == 0 {
		return fmt.Errorf("no section uses %s; set embedding.provider or llm.provider first", provider)
	}

	cmd.Printf("Enter %s API key: ", provider.Description())
	apiKey := readPassword(cmd.InOrStdin())
	cmd.Println()
	if apiKey == "" {
		return errors.New("API key is required")
	}

	for _, key := range keys {
		if err := svc.Set(key, apiKey); err != nil {
			return fmt.Errorf("failed to set %s: %w", key, err)
		}
		cmd.Printf("%s = %s\n", key, maskAPIKey(apiKey))
	}
	return nil
}

func runSettingsKeys(cmd *cobra.Command, _ []string) error {
	svc, err := loadSettings()
	if err != nil {
		return err
	}

	for _, key := range svc.Keys() {
		cmd.Println(key)
	}
	return nil
}

// Helper functions.

func configuredStatus(ok bool) string {
	if ok {
		return "configured"
	}
	return "not configured"
}

func pingStatus(err error) string {
	if err != nil {
		return "FAILED: " + err.Error()
	}
	return "OK"
}

func displayAPIKey(key string) string {
	if key == "" {
		return "(not set)"
	}
	return maskAPIKey(key)
}

// readPassword reads a line without echo when in is a terminal.
//
//nolint:errcheck // CLI helper, error ignored for UX
func readPassword(in io.Reader) string {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		password, err := term.ReadPassword(int(f.Fd()))
		if err == nil {
			return strings.TrimSpace(string(password))
		}
	}
	// Fallback to regular input
	reader := bufio.NewReader(in)
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
