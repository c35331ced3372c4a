package kafka

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
)

type memReader struct {
	mu        sync.Mutex
	pending   []kafka.Message
	committed []kafka.Message
}

func (r *memReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if len(r.pending) > 0 {
		m := r.pending[0]
		r.pending = r.pending[1:]
		r.mu.Unlock()
		return m, nil
	}
	r.mu.Unlock()
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (r *memReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.committed = append(r.committed, msgs...)
	return nil
}

func (r *memReader) Close() error { return nil }

func (r *memReader) committedOffsets(partition int) []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []int64
	for _, m := range r.committed {
		if m.Partition == partition {
			out = append(out, m.Offset)
		}
	}
	return out
}

func newTestConsumer(r messageReader, workers int, backoff time.Duration) *Consumer {
	return &Consumer{r: r, workers: workers, backoff: backoff, log: zerolog.Nop()}
}

func TestConsumerRetriesFailedMessage(t *testing.T) {
	r := &memReader{pending: []kafka.Message{
		{Partition: 0, Offset: 1}, {Partition: 1, Offset: 1},
		{Partition: 0, Offset: 2}, {Partition: 1, Offset: 2},
		{Partition: 0, Offset: 3},
	}}

	var (
		mu    sync.Mutex
		calls = map[int64]int{}
		order []int64
	)
	h := func(_ context.Context, m kafka.Message) error {
		mu.Lock()
		defer mu.Unlock()
		if m.Partition != 0 {
			return nil
		}
		calls[m.Offset]++
		order = append(order, m.Offset)
		if m.Offset == 2 && calls[2] == 1 {
			return errors.New("store unavailable")
		}
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- newTestConsumer(r, 2, time.Millisecond).Start(ctx, h) }()

	require.Eventually(t, func() bool { return len(r.committedOffsets(0)) == 3 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	require.Equal(t, []int64{1, 2, 3}, r.committedOffsets(0))
	require.Equal(t, []int64{1, 2}, r.committedOffsets(1))
	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, 2, calls[2])
	require.Equal(t, []int64{1, 2, 2, 3}, order)
}

func TestConsumerStopsRetryingOnShutdown(t *testing.T) {
	r := &memReader{pending: []kafka.Message{{Partition: 0, Offset: 7}}}
	attempted := make(chan struct{}, 1)
	h := func(context.Context, kafka.Message) error {
		select {
		case attempted <- struct{}{}:
		default:
		}
		return errors.New("always failing")
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- newTestConsumer(r, 1, time.Hour).Start(ctx, h) }()

	<-attempted
	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("consumer did not stop while backing off")
	}
	require.Empty(t, r.committedOffsets(0))
}
