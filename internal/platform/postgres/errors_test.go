package postgres

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"health-metrics-api/internal/store"
)

func TestMapError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		in      error
		wantIs  error
		passthr bool
	}{
		{name: "nil error", in: nil},
		{
			name:   "no rows maps to not found",
			in:     fmt.Errorf("query: %w", sql.ErrNoRows),
			wantIs: store.ErrNotFound,
		},
		{
			name:   "unique violation maps to duplicate",
			in:     &pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"},
			wantIs: store.ErrDuplicate,
		},
		{
			name:   "foreign key violation maps to invalid entity",
			in:     &pgconn.PgError{Code: "23503", ConstraintName: "glucose_readings_user_id_fkey"},
			wantIs: store.ErrInvalidEntity,
		},
		{
			name:   "check violation maps to invalid entity",
			in:     &pgconn.PgError{Code: "23514", ConstraintName: "glucose_readings_blood_glucose_check"},
			wantIs: store.ErrInvalidEntity,
		},
		{
			name:   "not null violation maps to invalid entity",
			in:     &pgconn.PgError{Code: "23502", ColumnName: "user_id"},
			wantIs: store.ErrInvalidEntity,
		},
		{
			name:    "unrelated errors pass through",
			in:      errors.New("connection reset"),
			passthr: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := MapError(tc.in)
			switch {
			case tc.in == nil:
				assert.NoError(t, got)
			case tc.passthr:
				assert.Equal(t, tc.in, got)
			default:
				require.ErrorIs(t, got, tc.wantIs)
			}
		})
	}
}

func TestIsUniqueViolation(t *testing.T) {
	t.Parallel()

	assert.True(t, IsUniqueViolation(&pgconn.PgError{Code: "23505"}))
	assert.True(t, IsUniqueViolation(fmt.Errorf("wrapped: %w", &pgconn.PgError{Code: "23505"})))
	assert.False(t, IsUniqueViolation(&pgconn.PgError{Code: "23503"}))
	assert.False(t, IsUniqueViolation(errors.New("other")))
}

// fakeResult implements sql.Result with a fixed affected-rows count.
type fakeResult struct {
	rows int64
	err  error
}

func (r fakeResult) LastInsertId() (int64, error) { return 0, nil }
func (r fakeResult) RowsAffected() (int64, error) { return r.rows, r.err }

func TestCheckRowsAffected(t *testing.T) {
	t.Parallel()

	assert.NoError(t, CheckRowsAffected(fakeResult{rows: 1}, "glucose reading"))

	err := CheckRowsAffected(fakeResult{rows: 0}, "glucose reading")
	require.ErrorIs(t, err, store.ErrNotFound)
	assert.Contains(t, err.Error(), "glucose reading")

	err = CheckRowsAffected(fakeResult{rows: 0, err: errors.New("driver")}, "x")
	require.Error(t, err)

	require.Error(t, CheckRowsAffected(nil, "x"))
}
