package worker

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"health-metrics-api/internal/domain"
	"health-metrics-api/internal/store"
)

// fakeGlucoseStore records calls and returns scripted errors.
type fakeGlucoseStore struct {
	inserted    []*domain.GlucoseReading
	updated     []*domain.GlucoseReading
	insertCalls int
	updateCalls int
	insertErrs  []error // consumed one per call; nil entries mean success
	updateErr   error
}

func (f *fakeGlucoseStore) InsertBatch(ctx context.Context, readings []*domain.GlucoseReading) (int, error) {
	f.insertCalls++
	if len(f.insertErrs) > 0 {
		err := f.insertErrs[0]
		f.insertErrs = f.insertErrs[1:]
		if err != nil {
			return 0, err
		}
	}
	f.inserted = append(f.inserted, readings...)
	return len(readings), nil
}

func (f *fakeGlucoseStore) FindByOwner(ctx context.Context, userID int64) ([]*domain.GlucoseReading, error) {
	return nil, nil
}

func (f *fakeGlucoseStore) GetByID(ctx context.Context, id, userID int64) (*domain.GlucoseReading, error) {
	return nil, store.ErrReadingNotFound
}

func (f *fakeGlucoseStore) UpdateByID(ctx context.Context, reading *domain.GlucoseReading) error {
	f.updateCalls++
	if f.updateErr != nil {
		return f.updateErr
	}
	f.updated = append(f.updated, reading)
	return nil
}

func (f *fakeGlucoseStore) DeleteByID(ctx context.Context, id, userID int64) error { return nil }

func (f *fakeGlucoseStore) DeleteAllForOwner(ctx context.Context, userID int64) (int64, error) {
	return 0, nil
}

func (f *fakeGlucoseStore) WithTx(tx *sql.Tx) store.GlucoseStore { return f }

// fakePressureStore is the pressure counterpart of fakeGlucoseStore.
type fakePressureStore struct {
	inserted []*domain.PressureReading
	updated  []*domain.PressureReading
}

func (f *fakePressureStore) InsertBatch(ctx context.Context, readings []*domain.PressureReading) (int, error) {
	f.inserted = append(f.inserted, readings...)
	return len(readings), nil
}

func (f *fakePressureStore) FindByOwner(ctx context.Context, userID int64) ([]*domain.PressureReading, error) {
	return nil, nil
}

func (f *fakePressureStore) GetByID(ctx context.Context, id, userID int64) (*domain.PressureReading, error) {
	return nil, store.ErrReadingNotFound
}

func (f *fakePressureStore) UpdateByID(ctx context.Context, reading *domain.PressureReading) error {
	f.updated = append(f.updated, reading)
	return nil
}

func (f *fakePressureStore) DeleteByID(ctx context.Context, id, userID int64) error { return nil }

func (f *fakePressureStore) DeleteAllForOwner(ctx context.Context, userID int64) (int64, error) {
	return 0, nil
}

func (f *fakePressureStore) WithTx(tx *sql.Tx) store.PressureStore { return f }

func fastPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, Backoff: time.Millisecond}
}

func TestGlucoseProcessor_Process(t *testing.T) {
	t.Parallel()

	body := []byte(`{"user_id":7,"blood_glucose":110.0,"unit":"mg/dL","meal":"fasting"}`)
	fixedTime := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	t.Run("persists the reading with a server-assigned timestamp", func(t *testing.T) {
		t.Parallel()
		fake := &fakeGlucoseStore{}
		p := NewGlucoseProcessor(fake, "glucose_queue", fastPolicy(), nil)
		p.now = func() time.Time { return fixedTime }

		require.NoError(t, p.Process(context.Background(), body))

		require.Len(t, fake.inserted, 1)
		got := fake.inserted[0]
		assert.Equal(t, int64(7), got.UserID)
		assert.Equal(t, 110.0, got.Value)
		assert.Equal(t, domain.GlucoseUnitMgDL, got.Unit)
		assert.Equal(t, domain.MealFasting, got.Meal)
		assert.Equal(t, fixedTime, got.Timestamp)
	})

	t.Run("redelivery produces a duplicate row", func(t *testing.T) {
		t.Parallel()
		fake := &fakeGlucoseStore{}
		p := NewGlucoseProcessor(fake, "glucose_queue", fastPolicy(), nil)
		p.now = func() time.Time { return fixedTime }

		// At-least-once delivery: the same message processed twice inserts
		// twice. There is no dedup key.
		require.NoError(t, p.Process(context.Background(), body))
		require.NoError(t, p.Process(context.Background(), body))

		assert.Len(t, fake.inserted, 2)
	})

	t.Run("malformed payload is reported as poison", func(t *testing.T) {
		t.Parallel()
		fake := &fakeGlucoseStore{}
		p := NewGlucoseProcessor(fake, "glucose_queue", fastPolicy(), nil)

		err := p.Process(context.Background(), []byte(`{"user_id":7,"nope":1}`))
		require.ErrorIs(t, err, ErrMalformedMessage)
		assert.Zero(t, fake.insertCalls)
	})

	t.Run("domain violation is reported as poison", func(t *testing.T) {
		t.Parallel()
		fake := &fakeGlucoseStore{}
		p := NewGlucoseProcessor(fake, "glucose_queue", fastPolicy(), nil)

		err := p.Process(context.Background(),
			[]byte(`{"user_id":7,"blood_glucose":-3,"unit":"mg/dL","meal":"fasting"}`))
		require.ErrorIs(t, err, ErrMalformedMessage)
		assert.Zero(t, fake.insertCalls)
	})

	t.Run("record id routes to update", func(t *testing.T) {
		t.Parallel()
		fake := &fakeGlucoseStore{}
		p := NewGlucoseProcessor(fake, "glucose_queue", fastPolicy(), nil)
		p.now = func() time.Time { return fixedTime }

		updateBody := []byte(`{"record_id":12,"user_id":7,"blood_glucose":95.5,"unit":"mg/dL","meal":"pre-meal"}`)
		require.NoError(t, p.Process(context.Background(), updateBody))

		assert.Zero(t, fake.insertCalls)
		require.Len(t, fake.updated, 1)
		assert.Equal(t, int64(12), fake.updated[0].ID)
		assert.Equal(t, int64(7), fake.updated[0].UserID)
	})

	t.Run("transient failures are retried until they succeed", func(t *testing.T) {
		t.Parallel()
		transient := errors.New("connection reset")
		fake := &fakeGlucoseStore{insertErrs: []error{transient, transient, nil}}
		p := NewGlucoseProcessor(fake, "glucose_queue", fastPolicy(), nil)
		p.now = func() time.Time { return fixedTime }

		require.NoError(t, p.Process(context.Background(), body))
		assert.Equal(t, 3, fake.insertCalls)
		assert.Len(t, fake.inserted, 1)
	})

	t.Run("retries stop after the attempt budget", func(t *testing.T) {
		t.Parallel()
		transient := errors.New("connection reset")
		fake := &fakeGlucoseStore{insertErrs: []error{transient, transient, transient}}
		p := NewGlucoseProcessor(fake, "glucose_queue", fastPolicy(), nil)
		p.now = func() time.Time { return fixedTime }

		err := p.Process(context.Background(), body)
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrMalformedMessage)
		assert.Equal(t, 3, fake.insertCalls)
	})

	t.Run("zero attempt budget still makes exactly one attempt", func(t *testing.T) {
		t.Parallel()
		fake := &fakeGlucoseStore{insertErrs: []error{errors.New("connection reset")}}
		p := NewGlucoseProcessor(fake, "glucose_queue",
			RetryPolicy{MaxAttempts: 0, Backoff: time.Millisecond}, nil)
		p.now = func() time.Time { return fixedTime }

		err := p.Process(context.Background(), body)
		require.Error(t, err)
		assert.Equal(t, 1, fake.insertCalls)
	})

	t.Run("owner-scoped not-found is not retried", func(t *testing.T) {
		t.Parallel()
		fake := &fakeGlucoseStore{updateErr: store.ErrReadingNotFound}
		p := NewGlucoseProcessor(fake, "glucose_queue", fastPolicy(), nil)

		updateBody := []byte(`{"record_id":12,"user_id":7,"blood_glucose":95.5,"unit":"mg/dL","meal":"pre-meal"}`)
		err := p.Process(context.Background(), updateBody)
		require.Error(t, err)
		assert.Equal(t, 1, fake.updateCalls)
	})
}

func TestPressureProcessor_Process(t *testing.T) {
	t.Parallel()

	fixedTime := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	t.Run("forces the stored unit to mm Hg", func(t *testing.T) {
		t.Parallel()
		fake := &fakePressureStore{}
		p := NewPressureProcessor(fake, "pressure_queue", fastPolicy(), nil)
		p.now = func() time.Time { return fixedTime }

		body := []byte(`{"user_id":7,"systolic":120,"diastolic":80,"unit":"kPa"}`)
		require.NoError(t, p.Process(context.Background(), body))

		require.Len(t, fake.inserted, 1)
		got := fake.inserted[0]
		assert.Equal(t, domain.PressureUnit, got.Unit)
		assert.Equal(t, 120, got.Systolic)
		assert.Equal(t, 80, got.Diastolic)
		assert.Equal(t, fixedTime, got.Timestamp)
	})

	t.Run("malformed payload is reported as poison", func(t *testing.T) {
		t.Parallel()
		fake := &fakePressureStore{}
		p := NewPressureProcessor(fake, "pressure_queue", fastPolicy(), nil)

		err := p.Process(context.Background(), []byte(`{"systolic":120,"diastolic":80}`))
		require.ErrorIs(t, err, ErrMalformedMessage)
		assert.Empty(t, fake.inserted)
	})

	t.Run("record id routes to update", func(t *testing.T) {
		t.Parallel()
		fake := &fakePressureStore{}
		p := NewPressureProcessor(fake, "pressure_queue", fastPolicy(), nil)
		p.now = func() time.Time { return fixedTime }

		body := []byte(`{"record_id":3,"user_id":7,"systolic":130,"diastolic":85}`)
		require.NoError(t, p.Process(context.Background(), body))

		require.Len(t, fake.updated, 1)
		assert.Equal(t, int64(3), fake.updated[0].ID)
	})
}
