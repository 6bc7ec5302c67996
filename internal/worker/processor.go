package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sethvargo/go-retry"

	"health-metrics-api/internal/domain"
	"health-metrics-api/internal/metrics"
	"health-metrics-api/internal/platform/logger"
	"health-metrics-api/internal/queue"
	"health-metrics-api/internal/store"
)

// ErrMalformedMessage marks a delivery whose payload cannot be decoded or
// fails domain validation. Such messages are poison: retrying cannot fix
// them, so the worker nacks them without requeue.
var ErrMalformedMessage = errors.New("malformed message")

// Processor turns one delivery body into durable records.
// A nil return means the records are durable and the delivery may be acked.
type Processor interface {
	Process(ctx context.Context, body []byte) error
}

// RetryPolicy is the bounded-retry configuration for the persistence step.
type RetryPolicy struct {
	// MaxAttempts is the total number of persistence attempts per delivery.
	MaxAttempts int

	// Backoff is the fixed delay between attempts.
	Backoff time.Duration
}

// GlucoseProcessor persists glucose messages.
type GlucoseProcessor struct {
	store     store.GlucoseStore
	queueName string
	policy    RetryPolicy
	now       func() time.Time
	logger    *slog.Logger
}

// NewGlucoseProcessor creates a GlucoseProcessor writing to the given store.
// If logger is nil, a default logger will be used.
func NewGlucoseProcessor(
	s store.GlucoseStore,
	queueName string,
	policy RetryPolicy,
	log *slog.Logger,
) *GlucoseProcessor {
	if s == nil {
		panic("store cannot be nil")
	}
	if log == nil {
		log = slog.Default()
	}

	return &GlucoseProcessor{
		store:     s,
		queueName: queueName,
		policy:    policy,
		now:       time.Now,
		logger:    log.With(slog.String("component", "glucose_processor")),
	}
}

// Ensure GlucoseProcessor implements Processor interface
var _ Processor = (*GlucoseProcessor)(nil)

// Process implements Processor.Process for glucose messages.
// The stored timestamp is stamped here, at the moment of durable acceptance,
// never taken from the message.
func (p *GlucoseProcessor) Process(ctx context.Context, body []byte) error {
	log := logger.FromContextOrDefault(ctx, p.logger)

	msg, err := queue.DecodeGlucoseMessage(body)
	if err != nil {
		log.Warn("rejecting malformed glucose message", slog.String("error", err.Error()))
		return fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}

	reading := &domain.GlucoseReading{
		ID:        msg.RecordID,
		UserID:    msg.UserID,
		Value:     msg.Value,
		Unit:      domain.GlucoseUnit(msg.Unit),
		Meal:      domain.MealContext(msg.Meal),
		Timestamp: p.now().UTC(),
	}

	if msg.RecordID != 0 {
		return p.withRetry(ctx, log, func(ctx context.Context) error {
			return p.store.UpdateByID(ctx, reading)
		})
	}

	return p.withRetry(ctx, log, func(ctx context.Context) error {
		start := time.Now()
		count, err := p.store.InsertBatch(ctx, []*domain.GlucoseReading{reading})
		if err != nil {
			return err
		}
		metrics.InsertDurationSeconds.Observe(time.Since(start).Seconds())
		metrics.PersistedTotal.WithLabelValues(p.queueName).Add(float64(count))
		return nil
	})
}

func (p *GlucoseProcessor) withRetry(
	ctx context.Context,
	log *slog.Logger,
	fn func(ctx context.Context) error,
) error {
	return persistWithRetry(ctx, log, p.queueName, p.policy, fn)
}

// PressureProcessor persists pressure messages.
type PressureProcessor struct {
	store     store.PressureStore
	queueName string
	policy    RetryPolicy
	now       func() time.Time
	logger    *slog.Logger
}

// NewPressureProcessor creates a PressureProcessor writing to the given
// store. If logger is nil, a default logger will be used.
func NewPressureProcessor(
	s store.PressureStore,
	queueName string,
	policy RetryPolicy,
	log *slog.Logger,
) *PressureProcessor {
	if s == nil {
		panic("store cannot be nil")
	}
	if log == nil {
		log = slog.Default()
	}

	return &PressureProcessor{
		store:     s,
		queueName: queueName,
		policy:    policy,
		now:       time.Now,
		logger:    log.With(slog.String("component", "pressure_processor")),
	}
}

// Ensure PressureProcessor implements Processor interface
var _ Processor = (*PressureProcessor)(nil)

// Process implements Processor.Process for pressure messages.
// The unit is always forced to domain.PressureUnit regardless of any unit
// carried by the message; the timestamp is stamped here.
func (p *PressureProcessor) Process(ctx context.Context, body []byte) error {
	log := logger.FromContextOrDefault(ctx, p.logger)

	msg, err := queue.DecodePressureMessage(body)
	if err != nil {
		log.Warn("rejecting malformed pressure message", slog.String("error", err.Error()))
		return fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}

	reading := &domain.PressureReading{
		ID:        msg.RecordID,
		UserID:    msg.UserID,
		Systolic:  msg.Systolic,
		Diastolic: msg.Diastolic,
		Unit:      domain.PressureUnit,
		Timestamp: p.now().UTC(),
	}

	if msg.RecordID != 0 {
		return persistWithRetry(ctx, log, p.queueName, p.policy, func(ctx context.Context) error {
			return p.store.UpdateByID(ctx, reading)
		})
	}

	return persistWithRetry(ctx, log, p.queueName, p.policy, func(ctx context.Context) error {
		start := time.Now()
		count, err := p.store.InsertBatch(ctx, []*domain.PressureReading{reading})
		if err != nil {
			return err
		}
		metrics.InsertDurationSeconds.Observe(time.Since(start).Seconds())
		metrics.PersistedTotal.WithLabelValues(p.queueName).Add(float64(count))
		return nil
	})
}

// persistWithRetry runs the persistence step under the retry policy: a
// fixed backoff between attempts, a bounded attempt count, and no retry for
// owner-scoped not-found errors (redelivery cannot make the target exist).
// The returned error, if any, means the delivery must go back to the broker.
func persistWithRetry(
	ctx context.Context,
	log *slog.Logger,
	queueName string,
	policy RetryPolicy,
	fn func(ctx context.Context) error,
) error {
	// A zero or negative budget would underflow WithMaxRetries into
	// effectively unbounded retries; every delivery gets at least one attempt.
	maxAttempts := policy.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	attempts := 0
	backoff := retry.WithMaxRetries(
		uint64(maxAttempts-1),
		retry.NewConstant(policy.Backoff),
	)

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempts++
		if err := fn(ctx); err != nil {
			if store.IsNotFoundError(err) {
				return err
			}
			if attempts < maxAttempts {
				metrics.RetriesTotal.WithLabelValues(queueName).Inc()
				log.Warn("persistence attempt failed, will retry",
					slog.Int("attempt", attempts),
					slog.Int("max_attempts", maxAttempts),
					slog.String("error", err.Error()))
			}
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		log.Error("persistence failed, returning delivery to broker",
			slog.Int("attempts", attempts),
			slog.String("error", err.Error()))
		return fmt.Errorf("persistence failed after %d attempts: %w", attempts, err)
	}

	return nil
}
