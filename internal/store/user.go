package store

import (
	"context"
	"database/sql"

	"health-metrics-api/internal/domain"
)

// UserStore defines the interface for user data persistence.
type UserStore interface {
	// Create saves a new user to the store and assigns its ID.
	// It handles domain validation and password hashing internally.
	// Returns ErrEmailExists if the email is already taken.
	// Returns validation errors from the domain User if data is invalid.
	Create(ctx context.Context, user *domain.User) error

	// GetByID retrieves a user by their unique ID.
	// Returns ErrUserNotFound if the user does not exist.
	// The returned user contains all fields except the plaintext password.
	GetByID(ctx context.Context, id int64) (*domain.User, error)

	// GetByEmail retrieves a user by their email address.
	// Returns ErrUserNotFound if the user does not exist.
	GetByEmail(ctx context.Context, email string) (*domain.User, error)

	// Update modifies an existing user's email.
	// Returns ErrUserNotFound if the user does not exist.
	// Returns ErrEmailExists if updating to an email that already exists.
	Update(ctx context.Context, user *domain.User) error

	// UpdatePassword hashes the given plaintext password and stores it for
	// the user. Returns ErrUserNotFound if the user does not exist.
	UpdatePassword(ctx context.Context, id int64, password string) error

	// Deactivate marks the user inactive (soft delete). The user can no
	// longer authenticate; their measurement records remain.
	// Returns ErrUserNotFound if the user does not exist.
	Deactivate(ctx context.Context, id int64) error

	// Delete removes a user from the store by their ID (hard delete).
	// Measurement records are removed separately by the measurement stores'
	// DeleteAllForOwner before this is called.
	// Returns ErrUserNotFound if the user does not exist.
	Delete(ctx context.Context, id int64) error

	// WithTx returns a new UserStore instance that uses the provided
	// transaction, allowing multiple operations to be executed atomically.
	// The transaction is created and managed by the caller.
	WithTx(tx *sql.Tx) UserStore
}
