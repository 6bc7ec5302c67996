package store

import (
	"context"
	"database/sql"

	"health-metrics-api/internal/domain"
)

// GlucoseStore defines the interface for blood glucose persistence.
// All operations are scoped by the owning user's ID.
type GlucoseStore interface {
	// InsertBatch saves the given readings in a single bulk insert and
	// returns the number of rows written. IDs are assigned by the store.
	// No dedup constraint exists beyond the auto-assigned ID: redelivered
	// queue messages become distinct rows.
	InsertBatch(ctx context.Context, readings []*domain.GlucoseReading) (int, error)

	// FindByOwner retrieves all readings owned by the given user, newest
	// first. Returns an empty slice when the user has none.
	FindByOwner(ctx context.Context, userID int64) ([]*domain.GlucoseReading, error)

	// GetByID retrieves a single reading by ID, scoped to the owner.
	// Returns ErrReadingNotFound if the reading does not exist or belongs
	// to a different user.
	GetByID(ctx context.Context, id, userID int64) (*domain.GlucoseReading, error)

	// UpdateByID overwrites the measured fields of an existing reading,
	// scoped to reading.UserID. Returns ErrReadingNotFound if the reading
	// does not exist or belongs to a different user.
	UpdateByID(ctx context.Context, reading *domain.GlucoseReading) error

	// DeleteByID removes a single reading, scoped to the owner.
	// Returns ErrReadingNotFound if the reading does not exist or belongs
	// to a different user.
	DeleteByID(ctx context.Context, id, userID int64) error

	// DeleteAllForOwner removes every glucose reading owned by the given
	// user and returns the number of rows removed.
	DeleteAllForOwner(ctx context.Context, userID int64) (int64, error)

	// WithTx returns a new GlucoseStore instance that uses the provided
	// transaction. The transaction is created and managed by the caller.
	WithTx(tx *sql.Tx) GlucoseStore
}

// PressureStore defines the interface for blood pressure persistence.
// All operations are scoped by the owning user's ID.
type PressureStore interface {
	// InsertBatch saves the given readings in a single bulk insert and
	// returns the number of rows written.
	InsertBatch(ctx context.Context, readings []*domain.PressureReading) (int, error)

	// FindByOwner retrieves all readings owned by the given user, newest
	// first. Returns an empty slice when the user has none.
	FindByOwner(ctx context.Context, userID int64) ([]*domain.PressureReading, error)

	// GetByID retrieves a single reading by ID, scoped to the owner.
	// Returns ErrReadingNotFound if the reading does not exist or belongs
	// to a different user.
	GetByID(ctx context.Context, id, userID int64) (*domain.PressureReading, error)

	// UpdateByID overwrites the measured fields of an existing reading,
	// scoped to reading.UserID. Returns ErrReadingNotFound if the reading
	// does not exist or belongs to a different user.
	UpdateByID(ctx context.Context, reading *domain.PressureReading) error

	// DeleteByID removes a single reading, scoped to the owner.
	// Returns ErrReadingNotFound if the reading does not exist or belongs
	// to a different user.
	DeleteByID(ctx context.Context, id, userID int64) error

	// DeleteAllForOwner removes every pressure reading owned by the given
	// user and returns the number of rows removed.
	DeleteAllForOwner(ctx context.Context, userID int64) (int64, error)

	// WithTx returns a new PressureStore instance that uses the provided
	// transaction. The transaction is created and managed by the caller.
	WithTx(tx *sql.Tx) PressureStore
}
