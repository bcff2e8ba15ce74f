package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/as400-api/internal/as400"
	"github.com/phrazzld/as400-api/internal/config"
	"github.com/phrazzld/as400-api/internal/events"
	"github.com/phrazzld/as400-api/internal/platform/metrics"
	"github.com/phrazzld/as400-api/internal/platform/postgres"
	"github.com/phrazzld/as400-api/internal/redact"
	"github.com/phrazzld/as400-api/internal/service"
	"github.com/phrazzld/as400-api/internal/service/auth"
	"github.com/phrazzld/as400-api/internal/store"
	"github.com/phrazzld/as400-api/internal/task"
)

// appTitle is the name reported by GET /.
const appTitle = "AS400 API Wrapper"

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

// application holds all the shared application dependencies to simplify management
// and ensure proper cleanup on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB

	// Stores
	userStore  store.UserStore
	taskStore  *postgres.PostgresTaskStore
	auditStore store.AuditStore

	// Host access
	hostClient *as400.SSHClient
	policy     *as400.Policy

	// Services
	jwtService    auth.JWTService
	authService   *service.AuthService
	userService   *service.UserServiceImpl
	hostService   *service.HostService
	jobService    *service.JobService
	auditService  *service.AuditService
	healthService *service.HealthService

	metrics      *metrics.Metrics
	eventEmitter *events.InMemoryEventEmitter
	taskRunner   *task.TaskRunner
}

// newApplication wires every dependency. It does not connect to the host
// or start background work; Run does.
func newApplication(cfg *config.Config, logger *slog.Logger, db *sql.DB) (*application, error) {
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

	app.userStore = newUserStore(db, cfg)
	app.taskStore = postgres.NewPostgresTaskStore(db)
	app.auditStore = postgres.NewPostgresAuditStore(db)

	app.metrics = metrics.New()

	app.policy = as400.DefaultPolicy()
	if cfg.Host.PolicyFile != "" {
		app.policy, err = as400.LoadPolicy(cfg.Host.PolicyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load command policy: %w", err)
		}
		logger.Info("command policy loaded", "path", cfg.Host.PolicyFile)
	}

	app.hostClient, err = as400.NewSSHClient(cfg.Host, logger,
		as400.WithSessionObserver(app.metrics.SetSessionsInUse))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize host client: %w", err)
	}

	// every host operation is audited and measured
	app.eventEmitter = events.NewInMemoryEventEmitter(logger)
	app.eventEmitter.RegisterHandler(events.NewAuditRecorder(app.auditStore))
	app.eventEmitter.RegisterHandler(events.NewMetricsRecorder(app.metrics))

	app.hostService, err = service.NewHostService(app.hostClient, app.policy, app.eventEmitter, cfg.Host, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create host service: %w", err)
	}

	app.taskRunner = task.NewTaskRunner(app.taskStore, task.RunnerConfigFrom(cfg.Task), logger)
	app.taskRunner.RegisterFactory(task.TaskTypeHostCommand, task.HostCommandFactory(app.hostService))

	app.jobService, err = service.NewJobService(app.hostService, app.taskRunner, app.taskStore, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create job service: %w", err)
	}

	app.authService, err = service.NewAuthService(
		app.userStore,
		app.jwtService,
		auth.NewBcryptVerifier(),
		time.Duration(cfg.Auth.TokenLifetimeMinutes)*time.Minute,
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create auth service: %w", err)
	}

	app.userService = service.NewUserService(app.userStore, db, logger)
	app.auditService = service.NewAuditService(app.auditStore)
	app.healthService = service.NewHealthService(db, service.PingerFunc(app.hostClient.Ping))

	logger.Info("Application initialized successfully")
	return app, nil
}

// Title returns the service name.
func (app *application) Title() string {
	return appTitle
}

// Run starts the task runner and serves HTTP until ctx is cancelled or a
// shutdown signal arrives.
func (app *application) Run(ctx context.Context) error {
	if err := app.taskRunner.Start(); err != nil {
		return fmt.Errorf("failed to start task runner: %w", err)
	}

	if err := app.startHTTPServer(ctx, app.setupRouter()); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// cleanup stops background work, then closes the host connection and the
// database.
func (app *application) cleanup() {
	if app.taskRunner != nil {
		app.taskRunner.Stop()
	}

	if app.hostClient != nil {
		if err := app.hostClient.Close(); err != nil {
			app.logger.Error("Error closing host connection", "error", redact.Error(err))
		}
	}

	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("Error closing database connection", "error", redact.Error(err))
		}
	}

	app.logger.Info("Application shutdown completed")
}
