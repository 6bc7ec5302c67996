package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"health-metrics-api/internal/metrics"
	"health-metrics-api/internal/queue"
)

// Publisher implements queue.Publisher on top of RabbitMQ.
// Every publish declares the target queue durable, sends with persistent
// delivery in confirm mode, and waits for the broker's confirmation, all
// bounded by the publish timeout.
type Publisher struct {
	broker  *Broker
	timeout time.Duration
	logger  *slog.Logger
}

// NewPublisher creates a Publisher using the given broker connection.
// The timeout bounds each publish call end to end.
// If logger is nil, a default logger will be used.
func NewPublisher(broker *Broker, timeout time.Duration, log *slog.Logger) *Publisher {
	if broker == nil {
		panic("broker cannot be nil")
	}
	if log == nil {
		log = slog.Default()
	}

	return &Publisher{
		broker:  broker,
		timeout: timeout,
		logger:  log.With(slog.String("component", "publisher")),
	}
}

// Ensure Publisher implements queue.Publisher interface
var _ queue.Publisher = (*Publisher)(nil)

// Publish implements queue.Publisher.Publish.
func (p *Publisher) Publish(ctx context.Context, queueName string, msg any) error {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to encode message for queue %q: %w", queueName, err)
	}

	ch, err := p.broker.channel()
	if err != nil {
		metrics.PublishFailuresTotal.WithLabelValues(queueName).Inc()
		return err
	}
	defer func() { _ = ch.Close() }()

	if err := declareQueue(ch, queueName); err != nil {
		metrics.PublishFailuresTotal.WithLabelValues(queueName).Inc()
		return err
	}

	// Confirm mode: Publish returns only after the broker has taken
	// responsibility for the message.
	if err := ch.Confirm(false); err != nil {
		metrics.PublishFailuresTotal.WithLabelValues(queueName).Inc()
		return fmt.Errorf("failed to put channel in confirm mode: %w", err)
	}

	messageID := uuid.New().String()
	confirmation, err := ch.PublishWithDeferredConfirmWithContext(
		ctx,
		"",        // default exchange
		queueName, // routing key == queue name
		false,     // mandatory
		false,     // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    messageID,
			Timestamp:    time.Now().UTC(),
			Body:         body,
		},
	)
	if err != nil {
		metrics.PublishFailuresTotal.WithLabelValues(queueName).Inc()
		return fmt.Errorf("failed to publish to queue %q: %w", queueName, err)
	}

	acked, err := confirmation.WaitContext(ctx)
	if err != nil {
		metrics.PublishFailuresTotal.WithLabelValues(queueName).Inc()
		return fmt.Errorf("publish confirmation for queue %q: %w", queueName, err)
	}
	if !acked {
		metrics.PublishFailuresTotal.WithLabelValues(queueName).Inc()
		return fmt.Errorf("broker rejected message for queue %q", queueName)
	}

	metrics.PublishedTotal.WithLabelValues(queueName).Inc()
	p.logger.Debug("message published",
		slog.String("queue", queueName),
		slog.String("message_id", messageID),
		slog.Int("bytes", len(body)))
	return nil
}
