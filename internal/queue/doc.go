// Package queue defines the typed messages that travel through the message
// broker and the Publisher interface the API uses to enqueue them.
//
// Messages are strongly typed tagged variants rather than free-form maps:
// decoding rejects unknown fields and validates the required ones, so a
// malformed payload fails at the queue boundary instead of deep inside the
// worker. The wire form deliberately carries no timestamp; the worker stamps
// a fresh server time at the moment of durable acceptance.
package queue
