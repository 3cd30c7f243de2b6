// Package kafka publishes grow action events to a Kafka topic.
package kafka

import (
	"context"
	"errors"
	"fmt"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/nerrad567/gray-logic-grow/internal/infrastructure/config"
)

var (
	// ErrDisabled indicates Kafka publishing is disabled in config.
	ErrDisabled = errors.New("kafka: disabled in configuration")

	// ErrPublishFailed wraps writer failures.
	ErrPublishFailed = errors.New("kafka: publish failed")
)

const defaultWriteTimeout = 5 * time.Second

// messageWriter is the subset of *kafkago.Writer used here.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Publisher writes keyed messages to one topic. Messages with the same key
// land on the same partition.
type Publisher struct {
	w     messageWriter
	topic string
}

// NewPublisher creates a synchronous publisher for cfg.Topic.
//
// Parameters:
//   - cfg: Kafka configuration (brokers, topic, required acks)
//
// Returns:
//   - *Publisher: Publisher owning a kafka.Writer
//   - error: ErrDisabled when Kafka is off, or a configuration error
func NewPublisher(cfg config.KafkaConfig) (*Publisher, error) {
	if !cfg.Enabled {
		return nil, ErrDisabled
	}
	if len(cfg.Brokers) == 0 || cfg.Topic == "" {
		return nil, fmt.Errorf("kafka: brokers and topic are required")
	}

	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequiredAcks(cfg.Acks),
		WriteTimeout: defaultWriteTimeout,
		Async:        false,
	}
	return &Publisher{w: w, topic: cfg.Topic}, nil
}

// Topic returns the destination topic.
func (p *Publisher) Topic() string {
	return p.topic
}

// Publish writes one message and waits for the configured acks.
func (p *Publisher) Publish(ctx context.Context, key string, value []byte) error {
	ctx, cancel := context.WithTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	if err := p.w.WriteMessages(ctx, kafkago.Message{Key: []byte(key), Value: value}); err != nil {
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}
	return nil
}

// Close flushes and closes the writer.
func (p *Publisher) Close() error {
	if p == nil || p.w == nil {
		return nil
	}
	return p.w.Close()
}
