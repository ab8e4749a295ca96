package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/retainapp/retain-api/internal/config"
	"github.com/retainapp/retain-api/internal/domain/srs"
	"github.com/retainapp/retain-api/internal/platform/gemini"
	"github.com/retainapp/retain-api/internal/platform/postgres"
	"github.com/retainapp/retain-api/internal/service"
	"github.com/retainapp/retain-api/internal/service/auth"
	"github.com/retainapp/retain-api/internal/service/card_review"
	"github.com/retainapp/retain-api/internal/service/export"
	"github.com/retainapp/retain-api/internal/service/raindrop"
	"github.com/retainapp/retain-api/internal/store"
	"github.com/retainapp/retain-api/internal/task"
)

// deferredTaskFactory breaks the construction cycle between the source
// service and the generation task factory: the factory reads sources
// through the service, and the service enqueues tasks built by the
// factory. The inner factory is assigned once both exist.
type deferredTaskFactory struct {
	factory *task.CardGenerationTaskFactory
}

// NewTask implements service.GenerationTaskFactory.
func (f *deferredTaskFactory) NewTask(sourceID uuid.UUID) (task.Task, error) {
	if f.factory == nil {
		return nil, service.ErrGenerationDisabled
	}
	return f.factory.NewTask(sourceID)
}

// Hydrate implements task.HydrateFunc for tasks recovered from the
// database.
func (f *deferredTaskFactory) Hydrate(taskType string, id uuid.UUID, payload []byte) (task.Task, error) {
	if f.factory == nil {
		return nil, fmt.Errorf("cannot hydrate task %s: card generation is not configured", id)
	}
	return f.factory.Hydrate(taskType, id, payload)
}

// application holds all the shared application dependencies to simplify
// management and ensure proper cleanup on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB

	// Stores
	cardStore      store.CardStore
	sourceStore    store.SourceStore
	tagStore       store.TagStore
	reviewLogStore store.ReviewLogStore
	taskStore      task.TaskStore

	// Services
	jwtService        auth.JWTService
	apiKeyVerifier    auth.APIKeyVerifier
	cardService       service.CardService
	cardReviewService card_review.CardReviewService
	sourceService     service.SourceService
	tagService        service.TagService

	// Optional integrations; nil when not configured.
	syncService *raindrop.SyncService
	exporter    *export.ObsidianExporter

	// Background processing
	taskRunner *task.TaskRunner
	syncCancel context.CancelFunc
}

// newApplication creates a new application instance with all dependencies
// initialized. It accepts core dependencies like configuration, logger
// and database connection that must be established before application
// initialization.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger, db *sql.DB) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
		db:     db,
	}

	var err error
	app.jwtService, err = auth.NewJWTService(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize JWT service: %w", err)
	}
	logger.Info("JWT authentication service initialized",
		"token_lifetime_minutes", cfg.Auth.TokenLifetimeMinutes)

	app.apiKeyVerifier, err = auth.NewBcryptAPIKeyVerifier(cfg.Auth.APIKeyHash)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize API key verifier: %w", err)
	}

	scheduler := srs.NewScheduler()

	// Stores. The task store's hydrate function is deferred because the
	// factory depends on services built below.
	taskFactory := &deferredTaskFactory{}
	app.cardStore = postgres.NewPostgresCardStore(db, logger)
	app.sourceStore = postgres.NewPostgresSourceStore(db, logger)
	app.tagStore = postgres.NewPostgresTagStore(db, logger)
	app.reviewLogStore = postgres.NewPostgresReviewLogStore(db, logger)
	app.taskStore = postgres.NewPostgresTaskStore(db, taskFactory.Hydrate, logger)

	app.taskRunner = task.NewTaskRunner(app.taskStore, task.TaskRunnerConfig{
		WorkerCount:  cfg.Task.WorkerCount,
		QueueSize:    cfg.Task.QueueSize,
		StuckTaskAge: time.Duration(cfg.Task.StuckTaskAgeMinutes) * time.Minute,
	}, logger)

	app.cardService = service.NewCardService(db, app.cardStore, app.tagStore, scheduler, logger)
	app.cardReviewService = card_review.NewCardReviewService(
		db,
		app.cardStore,
		app.reviewLogStore,
		scheduler,
		logger,
	)
	app.tagService = service.NewTagService(app.tagStore, logger)

	// Card generation is optional; without an API key the source service
	// rejects generation requests instead of failing at startup.
	var submitter service.TaskSubmitter
	var factory service.GenerationTaskFactory
	if cfg.LLM.GeminiAPIKey != "" {
		submitter = app.taskRunner
		factory = taskFactory
	}

	app.sourceService = service.NewSourceService(
		db,
		app.sourceStore,
		app.cardStore,
		app.tagStore,
		scheduler,
		submitter,
		factory,
		logger,
	)

	if cfg.LLM.GeminiAPIKey != "" {
		generator, err := gemini.NewGeminiGenerator(ctx, logger, cfg.LLM)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize LLM generator: %w", err)
		}
		taskFactory.factory = task.NewCardGenerationTaskFactory(
			app.sourceService,
			generator,
			app.cardService,
			logger,
		)
		logger.Info("LLM generator initialized", "model", cfg.LLM.ModelName)
	} else {
		logger.Info("Card generation disabled: no Gemini API key configured")
	}

	// Start after the hydrate function is live so recovery can rebuild
	// persisted tasks.
	if err := app.taskRunner.Start(); err != nil {
		return nil, fmt.Errorf("failed to start task runner: %w", err)
	}

	if cfg.Raindrop.Token != "" {
		client := raindrop.NewClient(cfg.Raindrop.Token, logger)
		app.syncService = raindrop.NewSyncService(client, app.sourceService, logger)
		logger.Info("Raindrop sync initialized",
			"poll_interval_seconds", cfg.Raindrop.PollIntervalSeconds)
	} else {
		logger.Info("Raindrop sync disabled: no token configured")
	}

	app.exporter = export.NewObsidianExporter(cfg.Export, app.sourceService, app.cardService, logger)

	logger.Info("Application initialized successfully")
	return app, nil
}

// Run starts the background pollers and the HTTP server, handling
// lifecycle and cleanup. It returns an error if the server fails to
// start or encounters problems.
func (app *application) Run(ctx context.Context) error {
	if app.syncService != nil && app.config.Raindrop.PollIntervalSeconds > 0 {
		syncCtx, cancel := context.WithCancel(ctx)
		app.syncCancel = cancel
		interval := time.Duration(app.config.Raindrop.PollIntervalSeconds) * time.Second
		go app.syncService.Run(syncCtx, interval)
	}

	router := app.setupRouter()

	if err := app.startHTTPServer(ctx, router); err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// cleanup handles graceful shutdown of application resources.
func (app *application) cleanup() {
	if app.syncCancel != nil {
		app.syncCancel()
	}

	if app.taskRunner != nil {
		app.taskRunner.Stop()
	}

	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("Error closing database connection", "error", err)
		}
	}

	app.logger.Info("Application shutdown completed")
}
