package rabbitmq

import (
	"context"
	"fmt"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"

	"health-metrics-api/internal/metrics"
)

// Delivery is one message pulled off a queue, with manual acknowledgement.
// Ack must be called only after the message's records are durable; Nack
// hands the message back to the broker for redelivery (requeue=true) or its
// dead-letter policy (requeue=false).
type Delivery struct {
	Body        []byte
	MessageID   string
	Redelivered bool

	ack  func() error
	nack func(requeue bool) error
}

// NewDelivery constructs a Delivery with explicit settlement callbacks.
// Used by consumers of this package that need to fabricate deliveries, such
// as worker tests.
func NewDelivery(
	body []byte,
	messageID string,
	redelivered bool,
	ack func() error,
	nack func(requeue bool) error,
) Delivery {
	return Delivery{
		Body:        body,
		MessageID:   messageID,
		Redelivered: redelivered,
		ack:         ack,
		nack:        nack,
	}
}

// Ack acknowledges the delivery.
func (d *Delivery) Ack() error {
	return d.ack()
}

// Nack returns the delivery to the broker.
func (d *Delivery) Nack(requeue bool) error {
	return d.nack(requeue)
}

// Consumer subscribes to a single queue with a prefetch of one
// unacknowledged delivery, bounding worker memory and the duplication blast
// radius of a crash.
type Consumer struct {
	broker    *Broker
	queueName string
	logger    *slog.Logger
}

// NewConsumer creates a Consumer for the named queue.
// If logger is nil, a default logger will be used.
func NewConsumer(broker *Broker, queueName string, log *slog.Logger) *Consumer {
	if broker == nil {
		panic("broker cannot be nil")
	}
	if log == nil {
		log = slog.Default()
	}

	return &Consumer{
		broker:    broker,
		queueName: queueName,
		logger: log.With(
			slog.String("component", "consumer"),
			slog.String("queue", queueName),
		),
	}
}

// Consume opens a channel on the broker connection and returns a stream of
// deliveries. The stream closes when the context is cancelled or the
// underlying channel dies; unacknowledged deliveries are then redelivered
// by the broker to another consumer.
func (c *Consumer) Consume(ctx context.Context) (<-chan Delivery, error) {
	ch, err := c.broker.channel()
	if err != nil {
		return nil, err
	}

	if err := declareQueue(ch, c.queueName); err != nil {
		_ = ch.Close()
		return nil, err
	}

	// One unacknowledged message in flight per worker.
	if err := ch.Qos(1, 0, false); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("failed to set prefetch on queue %q: %w", c.queueName, err)
	}

	deliveries, err := ch.Consume(
		c.queueName,
		"",    // consumer tag assigned by broker
		false, // autoAck off: acknowledgement is manual and late
		false, // exclusive
		false, // noLocal
		false, // noWait
		nil,
	)
	if err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("failed to consume from queue %q: %w", c.queueName, err)
	}

	out := make(chan Delivery)
	go func() {
		defer close(out)
		defer func() { _ = ch.Close() }()

		for {
			select {
			case <-ctx.Done():
				c.logger.Info("consumer stopping", "reason", ctx.Err())
				return
			case d, ok := <-deliveries:
				if !ok {
					c.logger.Warn("delivery channel closed by broker")
					return
				}
				metrics.ConsumedTotal.WithLabelValues(c.queueName).Inc()
				select {
				case out <- wrapDelivery(d):
				case <-ctx.Done():
					// The in-flight delivery stays unacked and will be
					// redelivered.
					return
				}
			}
		}
	}()

	c.logger.Info("consumer started")
	return out, nil
}

func wrapDelivery(d amqp.Delivery) Delivery {
	return Delivery{
		Body:        d.Body,
		MessageID:   d.MessageId,
		Redelivered: d.Redelivered,
		ack:         func() error { return d.Ack(false) },
		nack:        func(requeue bool) error { return d.Nack(false, requeue) },
	}
}
