package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"health-metrics-api/internal/config"
	"health-metrics-api/internal/metrics"
	"health-metrics-api/internal/platform/postgres"
	"health-metrics-api/internal/platform/rabbitmq"
	"health-metrics-api/internal/queue"
	"health-metrics-api/internal/service/auth"
	"health-metrics-api/internal/store"
)

// application holds all the shared application dependencies to simplify
// management and ensure proper cleanup on shutdown.
type application struct {
	// Configuration
	config *config.Config

	// Core services
	logger *slog.Logger
	db     *sql.DB

	// Stores (using interfaces for proper abstraction)
	userStore     store.UserStore
	glucoseStore  store.GlucoseStore
	pressureStore store.PressureStore

	// Service interfaces
	jwtService       auth.JWTService
	passwordVerifier auth.PasswordVerifier
	publisher        queue.Publisher

	// Broker connection, closed on shutdown
	broker *rabbitmq.Broker
}

// newApplication creates a new application instance with all dependencies
// initialized. It accepts core dependencies like configuration, logger, and
// database connection that must be established before application
// initialization.
func newApplication(
	ctx context.Context,
	cfg *config.Config,
	logger *slog.Logger,
	db *sql.DB,
) (*application, error) {
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

	app.passwordVerifier = auth.NewBcryptVerifier()

	app.userStore = postgres.NewPostgresUserStore(db, cfg.Auth.BcryptCost)
	app.glucoseStore = postgres.NewPostgresGlucoseStore(db, logger)
	app.pressureStore = postgres.NewPostgresPressureStore(db, logger)

	app.broker = rabbitmq.NewBroker(cfg.Broker.URL, logger)
	app.publisher = rabbitmq.NewPublisher(
		app.broker,
		time.Duration(cfg.Broker.PublishTimeoutSeconds)*time.Second,
		logger,
	)
	logger.Info("Queue publisher initialized",
		"glucose_queue", cfg.Broker.GlucoseQueue,
		"pressure_queue", cfg.Broker.PressureQueue,
		"publish_failure_mode", cfg.Broker.PublishFailureMode)

	metrics.Register()

	logger.Info("Application initialized successfully")
	return app, nil
}

// Run starts the application server, handling lifecycle and cleanup.
func (app *application) Run(ctx context.Context) error {
	router := app.setupRouter()

	if err := app.startHTTPServer(ctx, router); err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// cleanup handles graceful shutdown of application resources.
func (app *application) cleanup() {
	if app.broker != nil {
		if err := app.broker.Close(); err != nil {
			app.logger.Error("Error closing broker connection", "error", err)
		}
	}

	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("Error closing database connection", "error", err)
		}
	}

	app.logger.Info("Application shutdown completed")
}
