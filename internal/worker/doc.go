// Package worker consumes measurement messages from the broker and persists
// them. It is the second half of the ingestion pipeline: the API publishes
// validated submissions, the worker stamps a fresh server timestamp, forces
// the fixed unit where applicable, writes a bulk insert, and acknowledges
// the delivery only after the write succeeded.
//
// Delivery is at-least-once, not exactly-once. A crash after the write but
// before the acknowledgement redelivers the message and produces a second,
// identical record; no dedup key exists to collapse it. This is a known
// limitation, asserted by the package tests.
package worker
