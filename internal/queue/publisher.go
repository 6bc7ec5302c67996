package queue

import "context"

// Publisher hands JSON-serializable messages to a named durable queue.
// Publish returns only after the broker has accepted the message with
// persistent delivery; implementations must bound the call with the
// context's deadline so the request path never blocks indefinitely.
type Publisher interface {
	Publish(ctx context.Context, queueName string, msg any) error
}
