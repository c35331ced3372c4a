package kafka

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

// Handler must return nil only when the message is fully processed and its offset may be committed.
type Handler func(ctx context.Context, m kafka.Message) error

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

const (
	retryBackoff    = 200 * time.Millisecond
	maxRetryBackoff = 10 * time.Second
)

type Consumer struct {
	r       messageReader
	workers int
	backoff time.Duration
	log     zerolog.Logger
}

func NewConsumer(brokers []string, group, topic string, workers int, log zerolog.Logger) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		GroupID:        group,
		Topic:          topic,
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: 0, // manual commit
	})
	if workers <= 0 {
		workers = 1
	}
	return &Consumer{
		r:       r,
		workers: workers,
		backoff: retryBackoff,
		log:     log.With().Str("topic", topic).Str("group", group).Logger(),
	}
}

// Start fetches messages and hands each partition to one worker until ctx is cancelled.
// A partition is processed in offset order; a failing message is retried with backoff
// and nothing after it on that partition is handled or committed until it succeeds.
func (c *Consumer) Start(ctx context.Context, h Handler) error {
	defer c.r.Close()

	queues := make([]chan kafka.Message, c.workers)
	var wg sync.WaitGroup
	for i := range queues {
		queues[i] = make(chan kafka.Message, 4)
		wg.Add(1)
		go func(id int, jobs <-chan kafka.Message) {
			defer wg.Done()
			for m := range jobs {
				if !c.process(ctx, id, h, m) {
					return
				}
			}
		}(i, queues[i])
	}
	defer wg.Wait()
	defer func() {
		for _, q := range queues {
			close(q)
		}
	}()

	for {
		m, err := c.r.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		select {
		case queues[m.Partition%c.workers] <- m:
		case <-ctx.Done():
			return nil
		}
	}
}

// process handles m until it succeeds and commits it. It reports false when ctx ended first.
func (c *Consumer) process(ctx context.Context, worker int, h Handler, m kafka.Message) bool {
	backoff := c.backoff
	for attempt := 1; ; attempt++ {
		err := h(ctx, m)
		if err == nil {
			break
		}
		if ctx.Err() != nil {
			return false
		}
		c.log.Error().Err(err).Int("worker", worker).Int("partition", m.Partition).Int64("offset", m.Offset).
			Int("attempt", attempt).Dur("retry_in", backoff).Msg("handle message")
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return false
		}
		backoff = min(backoff*2, maxRetryBackoff)
	}
	if err := c.r.CommitMessages(ctx, m); err != nil && !errors.Is(err, context.Canceled) {
		c.log.Error().Err(err).Int64("offset", m.Offset).Msg("commit offset")
	}
	return true
}
