package kafka

import (
	"context"
	"sync"
	"time"

	"github.com/ecofinds/ecofinds-orders/internal/metrics"
	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

// Producer publishes to a single topic from one goroutine fed by a buffered inbox.
// Publish never blocks: when the inbox is full the message is dropped and counted.
type Producer struct {
	w     *kafka.Writer
	topic string
	log   zerolog.Logger

	mu      sync.RWMutex
	closed  bool
	inbox   chan kafka.Message
	closeCh chan struct{}
}

func NewProducer(brokers []string, topic string, buf int, log zerolog.Logger) *Producer {
	p := &Producer{
		topic:   topic,
		log:     log.With().Str("topic", topic).Logger(),
		inbox:   make(chan kafka.Message, buf),
		closeCh: make(chan struct{}),
	}
	p.w = &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
		BatchTimeout:           50 * time.Millisecond,
		Async:                  true,
		Completion:             p.completed,
	}
	return p
}

// completed is the async writer's delivery report.
func (p *Producer) completed(msgs []kafka.Message, err error) {
	if err != nil {
		metrics.EventsPublished.WithLabelValues(p.topic, "error").Add(float64(len(msgs)))
		p.log.Error().Err(err).Int("messages", len(msgs)).Msg("publish failed")
		return
	}
	metrics.EventsPublished.WithLabelValues(p.topic, "ok").Add(float64(len(msgs)))
}

// Start runs the writer loop until Close is called and the inbox is drained.
func (p *Producer) Start(ctx context.Context) {
	go func() {
		defer close(p.closeCh)
		for m := range p.inbox {
			p.write(ctx, m)
		}
		if err := p.w.Close(); err != nil {
			p.log.Error().Err(err).Msg("close kafka writer")
		}
	}()
}

func (p *Producer) write(ctx context.Context, m kafka.Message) {
	// ctx may already be cancelled during shutdown; pending messages still get a bounded attempt.
	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	// async: only metadata or enqueue failures come back here, delivery goes to completed
	if err := p.w.WriteMessages(wctx, m); err != nil {
		metrics.EventsPublished.WithLabelValues(p.topic, "error").Inc()
		p.log.Error().Err(err).Str("key", string(m.Key)).Msg("publish failed")
	}
}

// Publish enqueues a message. After Close, or with a full inbox, it drops the message and logs.
func (p *Producer) Publish(key, value []byte, headers ...kafka.Header) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		metrics.EventsPublished.WithLabelValues(p.topic, "dropped").Inc()
		p.log.Warn().Str("key", string(key)).Msg("publish after close dropped")
		return
	}
	m := kafka.Message{
		Key:     key,
		Value:   value,
		Time:    time.Now(),
		Headers: headers,
	}
	select {
	case p.inbox <- m:
	default:
		metrics.EventsPublished.WithLabelValues(p.topic, "dropped").Inc()
		p.log.Warn().Str("key", string(key)).Int("buffer", cap(p.inbox)).Msg("producer inbox full, message dropped")
	}
}

// Close stops accepting messages; the loop flushes what is queued and exits.
func (p *Producer) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	close(p.inbox)
}

// WaitClosed blocks until the loop has flushed and closed the writer.
func (p *Producer) WaitClosed() { <-p.closeCh }
