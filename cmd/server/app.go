package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/datemate/taskpoll/internal/config"
	"github.com/datemate/taskpoll/internal/generation"
	"github.com/datemate/taskpoll/internal/platform/gemini"
	"github.com/datemate/taskpoll/internal/platform/postgres"
	"github.com/datemate/taskpoll/internal/service"
	"github.com/datemate/taskpoll/internal/service/auth"
	"github.com/datemate/taskpoll/internal/store"
	"github.com/datemate/taskpoll/internal/task"
)

// application holds the shared dependencies of the server and owns their
// shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB

	taskStore  task.Store
	generator  generation.Generator
	jwtService auth.JWTService
	taskRunner *task.Runner
	tasks      service.TaskService
}

// newApplication builds every dependency. With no database URL tasks live in
// memory, and with no Gemini key the static generator serves canned results.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*application, error) {
	if cfg.Auth.JWTSecret == "" {
		return nil, errors.New("auth.jwt_secret is required to serve the task API")
	}

	app := &application{
		config: cfg,
		logger: logger,
	}

	var err error
	app.jwtService, err = auth.NewJWTService(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize JWT service: %w", err)
	}

	if err := app.setupStore(ctx); err != nil {
		app.close()
		return nil, err
	}

	if err := app.setupGenerator(ctx); err != nil {
		app.close()
		return nil, err
	}

	app.taskRunner = task.NewRunner(app.taskStore, task.RunnerConfig{
		WorkerCount:   cfg.Tasks.WorkerCount,
		QueueSize:     cfg.Tasks.QueueSize,
		TaskTimeout:   cfg.Tasks.Timeout,
		TTL:           cfg.Tasks.TTL,
		SweepInterval: cfg.Tasks.SweepInterval,
	}, logger)
	service.RegisterTaskHandlers(app.taskRunner, app.generator)

	app.tasks, err = service.NewTaskService(app.taskStore, app.taskRunner, logger)
	if err != nil {
		app.close()
		return nil, fmt.Errorf("failed to create task service: %w", err)
	}

	return app, nil
}

func (app *application) setupStore(ctx context.Context) error {
	if app.config.Database.URL == "" {
		app.logger.Warn("no database configured, task records are kept in memory")
		app.taskStore = store.NewMemoryTaskStore()
		return nil
	}

	db, err := postgres.Open(ctx, app.config.Database.URL)
	if err != nil {
		return err
	}
	app.db = db

	if err := postgres.Migrate(ctx, db, app.logger); err != nil {
		return err
	}
	app.taskStore = postgres.NewTaskStore(db)
	app.logger.Info("database connection established")
	return nil
}

func (app *application) setupGenerator(ctx context.Context) error {
	if app.config.LLM.GeminiAPIKey == "" {
		app.logger.Warn("no Gemini API key configured, serving canned recommendations")
		app.generator = gemini.StaticGenerator{}
		return nil
	}

	gen, err := gemini.NewGenerator(ctx, app.logger.With("component", "llm_generator"), app.config.LLM)
	if err != nil {
		return fmt.Errorf("failed to initialize LLM generator: %w", err)
	}
	app.generator = gen
	app.logger.Info("LLM generator initialized", "model", app.config.LLM.ModelName)
	return nil
}

// close releases the database connection. The runner is stopped by serve.
func (app *application) close() {
	if app.db == nil {
		return
	}
	if err := app.db.Close(); err != nil {
		app.logger.Error("failed to close database connection", "error", err)
	}
	app.db = nil
}
