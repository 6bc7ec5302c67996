package worker

import (
	"context"
	"errors"
	"log/slog"

	"health-metrics-api/internal/metrics"
	"health-metrics-api/internal/platform/logger"
	"health-metrics-api/internal/platform/rabbitmq"
)

// DeliverySource produces a stream of broker deliveries.
// Implemented by rabbitmq.Consumer.
type DeliverySource interface {
	Consume(ctx context.Context) (<-chan rabbitmq.Delivery, error)
}

// Worker drives one queue: it pulls deliveries from its source one at a
// time, hands each to the processor, and acknowledges only after the
// processor reports the records durable. There is no shared in-process
// state between workers; the broker and the store are the only meeting
// points, so multiple worker processes may run per queue.
type Worker struct {
	queueName        string
	source           DeliverySource
	processor        Processor
	requeueOnFailure bool
	logger           *slog.Logger
}

// NewWorker creates a Worker for the named queue.
// requeueOnFailure selects what happens to a delivery whose persistence
// failed after retries: requeue for another attempt, or leave it to the
// queue's dead-letter policy. If logger is nil, a default logger will be
// used.
func NewWorker(
	queueName string,
	source DeliverySource,
	processor Processor,
	requeueOnFailure bool,
	log *slog.Logger,
) *Worker {
	if source == nil {
		panic("source cannot be nil")
	}
	if processor == nil {
		panic("processor cannot be nil")
	}
	if log == nil {
		log = slog.Default()
	}

	return &Worker{
		queueName:        queueName,
		source:           source,
		processor:        processor,
		requeueOnFailure: requeueOnFailure,
		logger: log.With(
			slog.String("component", "worker"),
			slog.String("queue", queueName),
		),
	}
}

// Run consumes deliveries until the context is cancelled or the delivery
// stream closes. An in-flight delivery that has not been acknowledged when
// the worker stops is redelivered by the broker; that redelivery is the
// sole recovery mechanism.
func (w *Worker) Run(ctx context.Context) error {
	deliveries, err := w.source.Consume(ctx)
	if err != nil {
		return err
	}

	w.logger.Info("worker started")
	for d := range deliveries {
		w.handle(ctx, d)
	}
	w.logger.Info("worker stopped")

	return nil
}

// handle processes a single delivery and settles it with the broker.
func (w *Worker) handle(ctx context.Context, d rabbitmq.Delivery) {
	log := w.logger.With(
		slog.String("message_id", d.MessageID),
		slog.Bool("redelivered", d.Redelivered),
	)
	ctx = logger.WithLogger(ctx, log)

	err := w.processor.Process(ctx, d.Body)
	switch {
	case err == nil:
		// Late ack: the records are durable, so losing the ack itself can
		// only cause a duplicate, never a loss.
		if ackErr := d.Ack(); ackErr != nil {
			log.Error("failed to ack delivery", slog.String("error", ackErr.Error()))
		}

	case errors.Is(err, ErrMalformedMessage):
		// Poison message: requeueing would loop forever.
		metrics.RejectedTotal.WithLabelValues(w.queueName).Inc()
		if nackErr := d.Nack(false); nackErr != nil {
			log.Error("failed to nack malformed delivery", slog.String("error", nackErr.Error()))
		}

	default:
		// Retries exhausted; hand the message back to the broker rather
		// than dropping it.
		metrics.RejectedTotal.WithLabelValues(w.queueName).Inc()
		log.Error("processing failed, returning delivery to broker",
			slog.String("error", err.Error()),
			slog.Bool("requeue", w.requeueOnFailure))
		if nackErr := d.Nack(w.requeueOnFailure); nackErr != nil {
			log.Error("failed to nack delivery", slog.String("error", nackErr.Error()))
		}
	}
}
