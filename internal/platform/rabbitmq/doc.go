// Package rabbitmq implements the queue.Publisher interface and the worker's
// consumer on top of RabbitMQ (amqp091).
//
// Queues are declared durable and messages published with persistent
// delivery, so accepted messages survive a broker restart. The process holds
// one long-lived connection; each publish or consume cycle opens its own
// channel and releases it on every exit path. Consumers use a prefetch of
// one unacknowledged delivery and manual acknowledgement: a delivery is
// acked only after the corresponding records are durable, so a crash
// mid-processing leads to redelivery rather than loss.
package rabbitmq
