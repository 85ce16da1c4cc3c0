// Package app wires adapters and services into the kacey application.
package app

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/custodia-labs/kacey/internal/adapters/driven/ai"
	"github.com/custodia-labs/kacey/internal/adapters/driven/config/file"
	"github.com/custodia-labs/kacey/internal/adapters/driven/storage/postgres"
	"github.com/custodia-labs/kacey/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/kacey/internal/adapters/driving/cli"
	"github.com/custodia-labs/kacey/internal/core/domain"
	"github.com/custodia-labs/kacey/internal/core/ports/driven"
	"github.com/custodia-labs/kacey/internal/core/ports/driving"
	"github.com/custodia-labs/kacey/internal/core/services"
	"github.com/custodia-labs/kacey/internal/logger"
	"github.com/custodia-labs/kacey/internal/normalisers"
	"github.com/custodia-labs/kacey/internal/postprocessors/chunker"
)

// Store is a backend holding artifacts, vectors and conversations.
type Store interface {
	driven.ArtifactStore
	driven.VectorStore
	driven.ConversationStore
	cli.StoreProvisioner
	Close() error
}

// OpenSettings opens the settings service backed by the config file in configDir.
func OpenSettings(configDir string) (driving.SettingsService, error) {
	store, err := file.NewConfigStore(configDir)
	if err != nil {
		return nil, err
	}
	return services.NewSettingsService(store, ai.NewConfigValidator()), nil
}

// Bootstrap resolves settings and builds every service the commands use.
func Bootstrap(ctx context.Context, configDir string) (*cli.Services, error) {
	settingsSvc, err := OpenSettings(configDir)
	if err != nil {
		return nil, err
	}

	settings, err := settingsSvc.Get()
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}

	store, err := OpenStore(ctx, settings)
	if err != nil {
		return nil, err
	}

	aiResult, err := ai.Init(settings)
	if err != nil {
		store.Close()
		return nil, err
	}
	for _, w := range aiResult.Warnings {
		logger.Warn("%s", w)
	}

	promptDir := ""
	if configDir != "" {
		promptDir = filepath.Join(configDir, file.PromptDirName)
	}
	prompts, err := file.NewPromptStore(promptDir)
	if err != nil {
		aiResult.Close()
		store.Close()
		return nil, err
	}

	svc, err := Wire(settings, store, aiResult.EmbeddingService, aiResult.LLMService, prompts)
	if err != nil {
		aiResult.Close()
		store.Close()
		return nil, err
	}

	svc.Close = func() error {
		aiResult.Close()
		return store.Close()
	}
	return svc, nil
}

// Wire builds the services over already opened adapters. llm may be nil.
func Wire(
	settings *domain.AppSettings,
	store Store,
	embedding driven.EmbeddingService,
	llm driven.LLMService,
	prompts driven.PromptStore,
) (*cli.Services, error) {
	if store == nil || embedding == nil {
		return nil, errors.New("wire: store and embedding service are required")
	}

	chunks, err := chunker.New(
		chunker.WithChunkSize(settings.Pipeline.ChunkSize),
		chunker.WithOverlap(settings.Pipeline.ChunkOverlap),
	)
	if err != nil {
		return nil, fmt.Errorf("create chunker: %w", err)
	}

	ingestion := services.NewIngestionService(
		normalisers.NewDefaultRegistry(),
		chunks,
		store,
		store,
		embedding,
		services.IngestionConfig{
			Concurrency:   settings.Pipeline.Concurrency,
			SkipUnchanged: settings.Pipeline.SkipUnchanged,
		},
	)
	retrieval := services.NewRetrievalService(embedding, store, store)
	composer := services.NewAnswerComposer(llm, prompts, driven.ChatOptions{
		MaxTokens:   settings.LLM.MaxTokens,
		Temperature: settings.LLM.Temperature,
	})

	return &cli.Services{
		Ingestion: ingestion,
		Retrieval: retrieval,
		Artifacts: services.NewArtifactService(store, store),
		Chat:      services.NewChatService(store, retrieval, composer, settings.Pipeline.RetrievalLimit),
		Scheduler: services.NewRepairScheduler(
			ingestion, settings.Pipeline.RepairInterval, settings.Pipeline.RepairBatchSize,
		),
		Store:    store,
		Settings: settings,
	}, nil
}

// OpenStore opens the configured storage backend.
func OpenStore(ctx context.Context, settings *domain.AppSettings) (Store, error) {
	dims := settings.VectorDimensions()

	switch settings.Store.Backend {
	case domain.StoreBackendPostgres:
		store, err := postgres.NewStore(ctx, settings.Store.DatabaseURL,
			postgres.WithDimensions(dims),
			postgres.WithAutoMigrate(settings.Store.AutoMigrate),
		)
		if err != nil {
			return nil, fmt.Errorf("open postgres store: %w", err)
		}
		logger.Debug("Using postgres store")
		return store, nil

	case domain.StoreBackendSQLite, "":
		store, err := sqlite.NewStore(settings.Store.DataDir,
			sqlite.WithDimensions(dims),
			sqlite.WithAutoMigrate(settings.Store.AutoMigrate),
		)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		logger.Debug("Using sqlite store at %s", store.Path())
		return store, nil
	}

	return nil, fmt.Errorf("%w: unknown store backend %q", domain.ErrInvalidConfiguration, settings.Store.Backend)
}
