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

// PostgresPressureStore implements the store.PressureStore interface
// using a PostgreSQL database as the storage backend.
type PostgresPressureStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresPressureStore creates a new PostgreSQL implementation of the
// PressureStore interface. It accepts a database connection or transaction
// that should be initialized and managed by the caller.
// If logger is nil, a default logger will be used.
func NewPostgresPressureStore(db store.DBTX, log *slog.Logger) *PostgresPressureStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if log == nil {
		log = slog.Default()
	}

	return &PostgresPressureStore{
		db:     db,
		logger: log.With(slog.String("component", "pressure_store")),
	}
}

// Ensure PostgresPressureStore implements store.PressureStore interface
var _ store.PressureStore = (*PostgresPressureStore)(nil)

// InsertBatch implements store.PressureStore.InsertBatch.
// All readings are written in a single multi-row INSERT.
func (s *PostgresPressureStore) InsertBatch(
	ctx context.Context,
	readings []*domain.PressureReading,
) (int, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if len(readings) == 0 {
		return 0, nil
	}

	for _, r := range readings {
		if err := r.Validate(); err != nil {
			log.Warn("pressure reading validation failed during batch insert",
				slog.String("error", err.Error()),
				slog.Int64("user_id", r.UserID))
			return 0, fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
		}
	}

	var sb strings.Builder
	sb.WriteString(`
		INSERT INTO blood_pressure_readings (user_id, systolic, diastolic, unit, recorded_at)
		VALUES `)

	args := make([]any, 0, len(readings)*5)
	for i, r := range readings {
		if i > 0 {
			sb.WriteString(", ")
		}
		base := i * 5
		fmt.Fprintf(&sb, "($%d, $%d, $%d, $%d, $%d)", base+1, base+2, base+3, base+4, base+5)
		args = append(args, r.UserID, r.Systolic, r.Diastolic, r.Unit, r.Timestamp)
	}

	result, err := s.db.ExecContext(ctx, sb.String(), args...)
	if err != nil {
		log.Error("failed to insert pressure batch",
			slog.String("error", err.Error()),
			slog.Int("batch_size", len(readings)))
		return 0, MapError(err)
	}

	count, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	log.Info("pressure batch inserted",
		slog.Int64("rows", count),
		slog.Int("batch_size", len(readings)))
	return int(count), nil
}

// FindByOwner implements store.PressureStore.FindByOwner.
func (s *PostgresPressureStore) FindByOwner(
	ctx context.Context,
	userID int64,
) ([]*domain.PressureReading, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT id, user_id, systolic, diastolic, unit, recorded_at
		FROM blood_pressure_readings
		WHERE user_id = $1
		ORDER BY recorded_at DESC, id DESC
	`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		log.Error("failed to query pressure readings",
			slog.String("error", err.Error()),
			slog.Int64("user_id", userID))
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	readings := make([]*domain.PressureReading, 0)
	for rows.Next() {
		var r domain.PressureReading
		if err := rows.Scan(&r.ID, &r.UserID, &r.Systolic, &r.Diastolic, &r.Unit, &r.Timestamp); err != nil {
			return nil, MapError(err)
		}
		readings = append(readings, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}

	return readings, nil
}

// GetByID implements store.PressureStore.GetByID.
// The owner ID is part of the WHERE clause: a reading owned by someone else
// yields the same ErrReadingNotFound as a missing one.
func (s *PostgresPressureStore) GetByID(
	ctx context.Context,
	id, userID int64,
) (*domain.PressureReading, error) {
	query := `
		SELECT id, user_id, systolic, diastolic, unit, recorded_at
		FROM blood_pressure_readings
		WHERE id = $1 AND user_id = $2
	`

	var r domain.PressureReading
	err := s.db.QueryRowContext(ctx, query, id, userID).Scan(
		&r.ID, &r.UserID, &r.Systolic, &r.Diastolic, &r.Unit, &r.Timestamp,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrReadingNotFound
		}
		return nil, MapError(err)
	}

	return &r, nil
}

// UpdateByID implements store.PressureStore.UpdateByID.
func (s *PostgresPressureStore) UpdateByID(
	ctx context.Context,
	reading *domain.PressureReading,
) error {
	if err := reading.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	query := `
		UPDATE blood_pressure_readings
		SET systolic = $1, diastolic = $2, unit = $3, recorded_at = $4
		WHERE id = $5 AND user_id = $6
	`
	result, err := s.db.ExecContext(
		ctx,
		query,
		reading.Systolic,
		reading.Diastolic,
		reading.Unit,
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

// DeleteByID implements store.PressureStore.DeleteByID.
func (s *PostgresPressureStore) DeleteByID(ctx context.Context, id, userID int64) error {
	query := `DELETE FROM blood_pressure_readings WHERE id = $1 AND user_id = $2`
	result, err := s.db.ExecContext(ctx, query, id, userID)
	if err != nil {
		return MapError(err)
	}

	if err := CheckRowsAffected(result, "reading"); err != nil {
		return store.ErrReadingNotFound
	}
	return nil
}

// DeleteAllForOwner implements store.PressureStore.DeleteAllForOwner.
func (s *PostgresPressureStore) DeleteAllForOwner(
	ctx context.Context,
	userID int64,
) (int64, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `DELETE FROM blood_pressure_readings WHERE user_id = $1`
	result, err := s.db.ExecContext(ctx, query, userID)
	if err != nil {
		return 0, MapError(err)
	}

	count, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	log.Info("deleted all pressure readings for owner",
		slog.Int64("user_id", userID),
		slog.Int64("rows", count))
	return count, nil
}

// WithTx implements store.PressureStore.WithTx.
func (s *PostgresPressureStore) WithTx(tx *sql.Tx) store.PressureStore {
	return &PostgresPressureStore{
		db:     tx,
		logger: s.logger,
	}
}
