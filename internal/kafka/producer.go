package kafka

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"
)

// ProducerConfig configures a durable, acknowledged Kafka writer.
type ProducerConfig struct {
	Brokers      []string
	BatchTimeout time.Duration // default 10ms
}

// Producer is a thin wrapper around segmentio/kafka-go Writer, configured
// for at-least-once delivery with durable acknowledgement.
type Producer struct {
	w *kafka.Writer
}

func NewProducerFromConfig(c ProducerConfig) *Producer {
	bt := c.BatchTimeout
	if bt <= 0 {
		bt = 10 * time.Millisecond
	}
	w := &kafka.Writer{
		Addr:         kafka.TCP(c.Brokers...),
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		Async:        false,
		BatchTimeout: bt,
	}
	return &Producer{w: w}
}

// Publish writes one message to `topic`, keyed by `key` so all events for
// the same aggregate land on the same partition (preserves per-key ordering
// even though the stream as a whole is not globally ordered).
func (p *Producer) Publish(ctx context.Context, topic, key string, value []byte) error {
	return p.w.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: value,
		Time:  time.Now(),
	})
}

func (p *Producer) Close() error { return p.w.Close() }
