package rabbitmq

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"health-metrics-api/internal/redact"
)

// dialTimeout bounds the initial TCP/AMQP handshake.
const dialTimeout = 10 * time.Second

// Broker manages a single long-lived AMQP connection shared by the process.
// Channels are cheap and opened per operation; the connection is dialed
// lazily and re-dialed transparently after it is lost.
type Broker struct {
	url    string
	logger *slog.Logger

	mu   sync.Mutex
	conn *amqp.Connection
}

// NewBroker creates a Broker for the given AMQP URL.
// No connection is made until the first operation needs one.
// If logger is nil, a default logger will be used.
func NewBroker(url string, log *slog.Logger) *Broker {
	if log == nil {
		log = slog.Default()
	}

	return &Broker{
		url:    url,
		logger: log.With(slog.String("component", "broker")),
	}
}

// channel returns a fresh channel on the shared connection, dialing or
// re-dialing the connection first when necessary. The caller owns the
// channel and must close it.
func (b *Broker) channel() (*amqp.Channel, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.conn == nil || b.conn.IsClosed() {
		conn, err := amqp.DialConfig(b.url, amqp.Config{
			Dial: amqp.DefaultDial(dialTimeout),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to broker at %s: %w",
				redact.URL(b.url), err)
		}
		b.conn = conn
		b.logger.Info("broker connection established", "url", redact.URL(b.url))
	}

	ch, err := b.conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	return ch, nil
}

// declareQueue ensures the named queue exists as a durable queue.
// Declaration is idempotent; both publisher and consumer call it so either
// side can start first.
func declareQueue(ch *amqp.Channel, name string) error {
	_, err := ch.QueueDeclare(
		name,
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to declare queue %q: %w", name, err)
	}
	return nil
}

// Close tears down the shared connection. In-flight channels are closed by
// the connection shutdown.
func (b *Broker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.conn == nil || b.conn.IsClosed() {
		return nil
	}
	return b.conn.Close()
}
