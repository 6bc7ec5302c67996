package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"health-metrics-api/internal/domain"
	"health-metrics-api/internal/platform/logger"
	"health-metrics-api/internal/store"
)

// PostgresGlucoseStore implements the store.GlucoseStore interface
// using a PostgreSQL database as the storage backend.
type PostgresGlucoseStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresGlucoseStore creates a new PostgreSQL implementation of the
// GlucoseStore interface. It accepts a database connection or transaction
// that should be initialized and managed by the caller.
// If logger is nil, a default logger will be used.
func NewPostgresGlucoseStore(db store.DBTX, log *slog.Logger) *PostgresGlucoseStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if log == nil {
		log = slog.Default()
	}

	return &PostgresGlucoseStore{
		db:     db,
		logger: log.With(slog.String("component", "glucose_store")),
	}
}

// Ensure PostgresGlucoseStore implements store.GlucoseStore interface
var _ store.GlucoseStore = (*PostgresGlucoseStore)(nil)

// InsertBatch implements store.GlucoseStore.InsertBatch.
// All readings are written in a single multi-row INSERT so a batch either
// lands completely or not at all.
func (s *PostgresGlucoseStore) InsertBatch(
	ctx context.Context,
	readings []*domain.GlucoseReading,
) (int, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if len(readings) == 0 {
		return 0, nil
	}

	for _, r := range readings {
		if err := r.Validate(); err != nil {
			log.Warn("glucose reading validation failed during batch insert",
				slog.String("error", err.Error()),
				slog.Int64("user_id", r.UserID))
			return 0, fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
		}
	}

	var sb strings.Builder
	sb.WriteString(`
		INSERT INTO glucose_readings (user_id, blood_glucose, unit, meal, recorded_at)
		VALUES `)

	args := make([]any, 0, len(readings)*5)
	for i, r := range readings {
		if i > 0 {
			sb.WriteString(", ")
		}
		base := i * 5
		fmt.Fprintf(&sb, "($%d, $%d, $%d, $%d, $%d)", base+1, base+2, base+3, base+4, base+5)
		args = append(args, r.UserID, r.Value, string(r.Unit), string(r.Meal), r.Timestamp)
	}

	result, err := s.db.ExecContext(ctx, sb.String(), args...)
	if err != nil {
		log.Error("failed to insert glucose batch",
			slog.String("error", err.Error()),
			slog.Int("batch_size", len(readings)))
		return 0, MapError(err)
	}

	count, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	log.Info("glucose batch inserted",
		slog.Int64("rows", count),
		slog.Int("batch_size", len(readings)))
	return int(count), nil
}

// FindByOwner implements store.GlucoseStore.FindByOwner.
func (s *PostgresGlucoseStore) FindByOwner(
	ctx context.Context,
	userID int64,
) ([]*domain.GlucoseReading, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT id, user_id, blood_glucose, unit, meal, recorded_at
		FROM glucose_readings
		WHERE user_id = $1
		ORDER BY recorded_at DESC, id DESC
	`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		log.Error("failed to query glucose readings",
			slog.String("error", err.Error()),
			slog.Int64("user_id", userID))
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	readings := make([]*domain.GlucoseReading, 0)
	for rows.Next() {
		var r domain.GlucoseReading
		var unit, meal string
		if err := rows.Scan(&r.ID, &r.UserID, &r.Value, &unit, &meal, &r.Timestamp); err != nil {
			return nil, MapError(err)
		}
		r.Unit = domain.GlucoseUnit(unit)
		r.Meal = domain.MealContext(meal)
		readings = append(readings, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}

	return readings, nil
}

// GetByID implements store.GlucoseStore.GetByID.
// The owner ID is part of the WHERE clause: a reading owned by someone else
// yields the same ErrReadingNotFound as a missing one.
func (s *PostgresGlucoseStore) GetByID(
	ctx context.Context,
	id, userID int64,
) (*domain.GlucoseReading, error) {
	query := `
		SELECT id, user_id, blood_glucose, unit, meal, recorded_at
		FROM glucose_readings
		WHERE id = $1 AND user_id = $2
	`

	var r domain.GlucoseReading
	var unit, meal string
	err := s.db.QueryRowContext(ctx, query, id, userID).Scan(
		&r.ID, &r.UserID, &r.Value, &unit, &meal, &r.Timestamp,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrReadingNotFound
		}
		return nil, MapError(err)
	}
	r.Unit = domain.GlucoseUnit(unit)
	r.Meal = domain.MealContext(meal)

	return &r, nil
}

// UpdateByID implements store.GlucoseStore.UpdateByID.
func (s *PostgresGlucoseStore) UpdateByID(
	ctx context.Context,
	reading *domain.GlucoseReading,
) error {
	if err := reading.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	query := `
		UPDATE glucose_readings
		SET blood_glucose = $1, unit = $2, meal = $3, recorded_at = $4
		WHERE id = $5 AND user_id = $6
	`
	result, err := s.db.ExecContext(
		ctx,
		query,
		reading.Value,
		string(reading.Unit),
		string(reading.Meal),
		reading.Timestamp,
		reading.ID,
		reading.UserID,
	)
	if err != nil {
		return MapError(err)
	}

	if err := CheckRowsAffected(result, "reading"); err != nil {
		return store.ErrReadingNotFound
	}
	return nil
}

// DeleteByID implements store.GlucoseStore.DeleteByID.
func (s *PostgresGlucoseStore) DeleteByID(ctx context.Context, id, userID int64) error {
	query := `DELETE FROM glucose_readings WHERE id = $1 AND user_id = $2`
	result, err := s.db.ExecContext(ctx, query, id, userID)
	if err != nil {
		return MapError(err)
	}

	if err := CheckRowsAffected(result, "reading"); err != nil {
		return store.ErrReadingNotFound
	}
	return nil
}

// DeleteAllForOwner implements store.GlucoseStore.DeleteAllForOwner.
func (s *PostgresGlucoseStore) DeleteAllForOwner(
	ctx context.Context,
	userID int64,
) (int64, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `DELETE FROM glucose_readings WHERE user_id = $1`
	result, err := s.db.ExecContext(ctx, query, userID)
	if err != nil {
		return 0, MapError(err)
	}

	count, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	log.Info("deleted all glucose readings for owner",
		slog.Int64("user_id", userID),
		slog.Int64("rows", count))
	return count, nil
}

// WithTx implements store.GlucoseStore.WithTx.
func (s *PostgresGlucoseStore) WithTx(tx *sql.Tx) store.GlucoseStore {
	return &PostgresGlucoseStore{
		db:     tx,
		logger: s.logger,
	}
}
