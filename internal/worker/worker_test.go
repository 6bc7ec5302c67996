package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"health-metrics-api/internal/platform/rabbitmq"
)

// stubProcessor returns a scripted error for every delivery.
type stubProcessor struct {
	err    error
	bodies [][]byte
}

func (s *stubProcessor) Process(ctx context.Context, body []byte) error {
	s.bodies = append(s.bodies, body)
	return s.err
}

// stubSource feeds a fixed set of deliveries and then closes the stream.
type stubSource struct {
	deliveries []rabbitmq.Delivery
}

func (s *stubSource) Consume(ctx context.Context) (<-chan rabbitmq.Delivery, error) {
	out := make(chan rabbitmq.Delivery, len(s.deliveries))
	for _, d := range s.deliveries {
		out <- d
	}
	close(out)
	return out, nil
}

// settlement records how a delivery was settled.
type settlement struct {
	acked   bool
	nacked  bool
	requeue bool
}

func newTestDelivery(body []byte, s *settlement) rabbitmq.Delivery {
	return rabbitmq.NewDelivery(
		body,
		"test-message-id",
		false,
		func() error {
			s.acked = true
			return nil
		},
		func(requeue bool) error {
			s.nacked = true
			s.requeue = requeue
			return nil
		},
	)
}

func runWorker(t *testing.T, w *Worker) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, w.Run(ctx))
}

func TestWorker_AcksAfterSuccessfulProcessing(t *testing.T) {
	t.Parallel()

	var s settlement
	proc := &stubProcessor{}
	src := &stubSource{deliveries: []rabbitmq.Delivery{
		newTestDelivery([]byte(`{"user_id":7}`), &s),
	}}

	w := NewWorker("glucose_queue", src, proc, false, nil)
	runWorker(t, w)

	require.Len(t, proc.bodies, 1)
	assert.True(t, s.acked)
	assert.False(t, s.nacked)
}

func TestWorker_RejectsMalformedWithoutRequeue(t *testing.T) {
	t.Parallel()

	var s settlement
	proc := &stubProcessor{err: ErrMalformedMessage}
	src := &stubSource{deliveries: []rabbitmq.Delivery{
		newTestDelivery([]byte(`not json`), &s),
	}}

	// Even with requeueOnFailure enabled, poison messages never requeue.
	w := NewWorker("glucose_queue", src, proc, true, nil)
	runWorker(t, w)

	assert.False(t, s.acked)
	assert.True(t, s.nacked)
	assert.False(t, s.requeue)
}

func TestWorker_FailedProcessingFollowsRequeuePolicy(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name             string
		requeueOnFailure bool
	}{
		{"requeue enabled", true},
		{"requeue disabled", false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			var s settlement
			proc := &stubProcessor{err: errors.New("persistence failed after 3 attempts")}
			src := &stubSource{deliveries: []rabbitmq.Delivery{
				newTestDelivery([]byte(`{"user_id":7}`), &s),
			}}

			w := NewWorker("glucose_queue", src, proc, tc.requeueOnFailure, nil)
			runWorker(t, w)

			assert.False(t, s.acked)
			assert.True(t, s.nacked)
			assert.Equal(t, tc.requeueOnFailure, s.requeue)
		})
	}
}

func TestWorker_ProcessesDeliveriesInOrder(t *testing.T) {
	t.Parallel()

	var s1, s2 settlement
	proc := &stubProcessor{}
	src := &stubSource{deliveries: []rabbitmq.Delivery{
		newTestDelivery([]byte(`first`), &s1),
		newTestDelivery([]byte(`second`), &s2),
	}}

	w := NewWorker("glucose_queue", src, proc, false, nil)
	runWorker(t, w)

	require.Len(t, proc.bodies, 2)
	assert.Equal(t, "first", string(proc.bodies[0]))
	assert.Equal(t, "second", string(proc.bodies[1]))
	assert.True(t, s1.acked)
	assert.True(t, s2.acked)
}
