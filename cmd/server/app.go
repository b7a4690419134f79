package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"

	"github.com/phrazzld/boxpack-api/internal/config"
	"github.com/phrazzld/boxpack-api/internal/domain/placement"
	"github.com/phrazzld/boxpack-api/internal/platform/filestore"
	"github.com/phrazzld/boxpack-api/internal/platform/metrics"
	"github.com/phrazzld/boxpack-api/internal/platform/postgres"
	"github.com/phrazzld/boxpack-api/internal/platform/sandbox"
	"github.com/phrazzld/boxpack-api/internal/service"
	"github.com/phrazzld/boxpack-api/internal/service/auth"
	"github.com/phrazzld/boxpack-api/internal/service/strategy"
	"github.com/phrazzld/boxpack-api/internal/store"
)

// application holds the shared dependencies and owns their cleanup.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB

	metricsRegistry *prometheus.Registry
	metrics         *metrics.Metrics

	userStore store.UserStore
	taskStore store.TaskStore
	sources   store.StrategySourceStore

	jwtService       auth.JWTService
	passwordVerifier auth.PasswordVerifier

	registry  *strategy.Registry
	validator *strategy.Validator
	executor  *strategy.Executor

	userService service.UserService
	taskService service.TaskService
}

// newApplication wires every component. It fails if the built-in fallback
// strategy does not pass its own smoke test; a stored candidate that no
// longer validates is logged and the fallback stays active.
func newApplication(
	ctx context.Context,
	cfg *config.Config,
	logger *slog.Logger,
	db *sql.DB,
	reg *prometheus.Registry,
) (*application, error) {
	app := &application{
		config:          cfg,
		logger:          logger,
		db:              db,
		metricsRegistry: reg,
		metrics:         metrics.New(reg),
	}

	var err error
	app.jwtService, err = auth.NewJWTService(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize JWT service: %w", err)
	}
	app.passwordVerifier = auth.NewBcryptVerifier(cfg.Auth.BCryptCost)

	app.userStore = postgres.NewPostgresUserStore(db, logger)
	app.taskStore = postgres.NewPostgresTaskStore(db, logger)
	app.sources, err = filestore.NewStrategyStore(cfg.Placement.StrategyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open strategy store: %w", err)
	}

	if err := app.setupPlacement(ctx); err != nil {
		return nil, err
	}

	app.userService, err = service.NewUserService(app.userStore, app.passwordVerifier, db, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create user service: %w", err)
	}
	app.taskService, err = service.NewTaskService(app.executor, app.taskStore, app.userStore, db, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create task service: %w", err)
	}

	logger.Info("Application initialized successfully",
		"strategy", app.registry.Current().Strategy.Name(),
		"strategy_version", app.registry.Current().Version)
	return app, nil
}

func (app *application) setupPlacement(ctx context.Context) error {
	pc := app.config.Placement
	fallback := placement.SequentialStrategy{}

	var err error
	app.registry, err = strategy.NewRegistry(fallback, app.logger, app.metrics)
	if err != nil {
		return fmt.Errorf("failed to create strategy registry: %w", err)
	}

	loader, err := sandbox.NewLoader(pc.ScratchDir, pc.LoadTimeout)
	if err != nil {
		return fmt.Errorf("failed to create candidate loader: %w", err)
	}

	app.validator, err = strategy.NewValidator(app.registry, loader, app.sources, strategy.ValidatorConfig{
		SmokeTimeout:   pc.SmokeTestTimeout,
		MaxSourceBytes: pc.MaxSourceBytes,
	}, app.logger, app.metrics)
	if err != nil {
		return fmt.Errorf("failed to create candidate validator: %w", err)
	}

	if err := app.validator.SmokeTest(ctx, fallback); err != nil {
		return fmt.Errorf("fallback strategy %q is invalid: %w", fallback.Name(), err)
	}

	restored, err := app.validator.Restore(ctx)
	switch {
	case err != nil:
		app.logger.Warn("stored strategy not restored, serving with fallback",
			"path", pc.StrategyPath,
			"error", err)
	case restored != nil:
		app.logger.Info("stored strategy restored",
			"strategy", restored.Strategy.Name(),
			"version", restored.Version,
			"source_hash", restored.SourceHash)
	}

	app.executor, err = strategy.NewExecutor(app.registry, strategy.ExecutorConfig{
		Timeout:       pc.Timeout,
		MaxConcurrent: pc.MaxConcurrent,
	}, app.logger, app.metrics)
	if err != nil {
		return fmt.Errorf("failed to create placement executor: %w", err)
	}
	return nil
}

// Run serves HTTP until ctx is cancelled, then shuts down and cleans up.
func (app *application) Run(ctx context.Context) error {
	if err := app.startHTTPServer(ctx, app.setupRouter()); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// tokenLifetime is how long an access token issued now stays valid.
func (app *application) tokenLifetime() time.Duration {
	return time.Duration(app.config.Auth.TokenLifetimeMinutes) * time.Minute
}

// cleanup releases application resources.
func (app *application) cleanup() error {
	var err error
	if app.db != nil {
		err = multierr.Append(err, app.db.Close())
	}
	if err != nil {
		app.logger.Error("Error during application cleanup", "error", err)
		return err
	}
	app.logger.Info("Application shutdown completed")
	return nil
}
