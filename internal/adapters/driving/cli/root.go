// Package cli provides the kacey command line.
//
// Commands are package-level cobra commands registered in init(). Services
// are built lazily on first use so that commands like `settings` and
// `version` work before an embedding provider is configured.
package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/kacey/internal/core/domain"
	"github.com/custodia-labs/kacey/internal/core/ports/driving"
	"github.com/custodia-labs/kacey/internal/logger"
)

// version is set at build time with -ldflags.
var version = "dev"

// Persistent flags.
var (
	verbose   bool
	configDir string
)

// StoreProvisioner creates the vector store schema.
type StoreProvisioner interface {
	Provision(ctx context.Context) error
	Provisioned(ctx context.Context) (bool, error)
}

// Services holds everything the commands drive.
type Services struct {
	Ingestion driving.IngestionService
	Retrieval driving.RetrievalService
	Artifacts driving.ArtifactService
	Chat      driving.ChatService
	Scheduler driving.Scheduler
	Store     StoreProvisioner

	// Settings is the resolved configuration the services were built from.
	Settings *domain.AppSettings

	// Close releases stores and provider clients.
	Close func() error
}

// Bootstrapper builds services from the config in configDir.
type Bootstrapper func(ctx context.Context, configDir string) (*Services, error)

// SettingsOpener opens the settings service for configDir.
type SettingsOpener func(configDir string) (driving.SettingsService, error)

var (
	bootstrap    Bootstrapper
	openSettings SettingsOpener

	services        *Services
	settingsService driving.SettingsService
)

var rootCmd = &cobra.Command{
	Use:   "kacey",
	Short: "Ask questions of your organisation's documents",
	Long: `kacey keeps organisational knowledge findable.

Ingest documents (PDF, Word, Excel, CSV, HTML, Markdown, text), then ask questions and
get answers grounded in those documents with numbered citations.

Get started:
  kacey settings set embedding.provider ollama
  kacey ingest handbook.pdf
  kacey ask "Who approves travel expenses?"`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "", "config directory (default ~/.kacey)")
}

// SetVersion sets the reported version.
func SetVersion(v string) {
	version = v
}

// SetBootstrap installs the functions that build services and settings.
func SetBootstrap(b Bootstrapper, s SettingsOpener) {
	bootstrap = b
	openSettings = s
}

// SetServices installs prebuilt services, bypassing the bootstrapper.
func SetServices(s *Services) {
	services = s
}

// SetSettingsService installs a prebuilt settings service.
func SetSettingsService(s driving.SettingsService) {
	settingsService = s
}

// Execute runs the root command and releases any services it built.
func Execute(ctx context.Context) error {
	defer closeServices()
	return rootCmd.ExecuteContext(ctx)
}

// loadServices returns the installed services, building them on first use.
func loadServices(cmd *cobra.Command) (*Services, error) {
	if services != nil {
		return services, nil
	}
	if bootstrap == nil {
		return nil, errors.New("services not configured")
	}

	s, err := bootstrap(commandContext(cmd), configDir)
	if err != nil {
		return nil, err
	}
	services = s
	return services, nil
}

// loadSettings returns the installed settings service, opening it on first use.
func loadSettings() (driving.SettingsService, error) {
	if settingsService != nil {
		return settingsService, nil
	}
	if openSettings == nil {
		return nil, errors.New("settings service not configured")
	}

	s, err := openSettings(configDir)
	if err != nil {
		return nil, fmt.Errorf("open settings: %w", err)
	}
	settingsService = s
	return settingsService, nil
}

func closeServices() {
	if services == nil || services.Close == nil {
		return
	}
	if err := services.Close(); err != nil {
		logger.Warn("Closing services: %v", err)
	}
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
