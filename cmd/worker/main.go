// Package main implements the queue worker process. It consumes blood
// glucose and blood pressure messages from the broker and persists them,
// acknowledging each delivery only after its records are durable.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os/signal"
	"sync"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"health-metrics-api/internal/config"
	"health-metrics-api/internal/platform/logger"
	"health-metrics-api/internal/platform/postgres"
	"health-metrics-api/internal/platform/rabbitmq"
	"health-metrics-api/internal/redact"
	"health-metrics-api/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logg, err := logger.Setup(cfg.Server)
	if err != nil {
		log.Fatalf("Failed to set up logger: %v", err)
	}

	logg.Info("Worker configuration loaded",
		"glucose_queue", cfg.Broker.GlucoseQueue,
		"pressure_queue", cfg.Broker.PressureQueue,
		"retry_max_attempts", cfg.Worker.RetryMaxAttempts,
		"retry_backoff_seconds", cfg.Worker.RetryBackoffSeconds)

	db, err := setupDatabase(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logg.Error("Error closing database connection", "error", err)
		}
	}()

	broker := rabbitmq.NewBroker(cfg.Broker.URL, logg)
	defer func() {
		if err := broker.Close(); err != nil {
			logg.Error("Error closing broker connection", "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	policy := worker.RetryPolicy{
		MaxAttempts: cfg.Worker.RetryMaxAttempts,
		Backoff:     time.Duration(cfg.Worker.RetryBackoffSeconds) * time.Second,
	}

	glucoseWorker := worker.NewWorker(
		cfg.Broker.GlucoseQueue,
		rabbitmq.NewConsumer(broker, cfg.Broker.GlucoseQueue, logg),
		worker.NewGlucoseProcessor(
			postgres.NewPostgresGlucoseStore(db, logg),
			cfg.Broker.GlucoseQueue,
			policy,
			logg,
		),
		cfg.Worker.RequeueOnFailure,
		logg,
	)

	pressureWorker := worker.NewWorker(
		cfg.Broker.PressureQueue,
		rabbitmq.NewConsumer(broker, cfg.Broker.PressureQueue, logg),
		worker.NewPressureProcessor(
			postgres.NewPostgresPressureStore(db, logg),
			cfg.Broker.PressureQueue,
			policy,
			logg,
		),
		cfg.Worker.RequeueOnFailure,
		logg,
	)

	var wg sync.WaitGroup
	for _, w := range []*worker.Worker{glucoseWorker, pressureWorker} {
		wg.Add(1)
		go func(w *worker.Worker) {
			defer wg.Done()
			if err := w.Run(ctx); err != nil {
				logg.Error("worker exited with error", "error", err)
				stop()
			}
		}(w)
	}

	wg.Wait()
	logg.Info("All workers stopped")
}

// setupDatabase opens the connection pool used by the workers.
func setupDatabase(cfg *config.Config) (*sql.DB, error) {
	db, err := sql.Open("pgx", cfg.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database at %s: %w", redact.URL(cfg.Database.URL), err)
	}

	return db, nil
}
