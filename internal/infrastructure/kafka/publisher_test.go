package kafka

import (
	"context"
	"errors"
	"testing"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/nerrad567/gray-logic-grow/internal/infrastructure/config"
)

type fakeWriter struct {
	msgs   []kafkago.Message
	err    error
	closed bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafkago.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func TestNewPublisher(t *testing.T) {
	if _, err := NewPublisher(config.KafkaConfig{}); !errors.Is(err, ErrDisabled) {
		t.Errorf("disabled error = %v, want ErrDisabled", err)
	}
	if _, err := NewPublisher(config.KafkaConfig{Enabled: true, Topic: "grow.actions"}); err == nil {
		t.Error("NewPublisher() without brokers should fail")
	}

	p, err := NewPublisher(config.KafkaConfig{Enabled: true, Brokers: []string{"k1:9092"}, Topic: "grow.actions", Acks: 1})
	if err != nil {
		t.Fatalf("NewPublisher() error = %v", err)
	}
	w, ok := p.w.(*kafkago.Writer)
	if !ok {
		t.Fatalf("writer type = %T", p.w)
	}
	if w.Topic != "grow.actions" || w.RequiredAcks != kafkago.RequireOne {
		t.Errorf("writer topic=%q acks=%v", w.Topic, w.RequiredAcks)
	}
	if p.Topic() != "grow.actions" {
		t.Errorf("Topic() = %q", p.Topic())
	}
}

func TestPublish(t *testing.T) {
	fw := &fakeWriter{}
	p := &Publisher{w: fw, topic: "grow.actions"}

	if err := p.Publish(context.Background(), "plant-01", []byte(`{"command":"pump_on"}`)); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if len(fw.msgs) != 1 || string(fw.msgs[0].Key) != "plant-01" {
		t.Errorf("messages = %+v", fw.msgs)
	}

	fw.err = errors.New("leader not available")
	if err := p.Publish(context.Background(), "plant-01", nil); !errors.Is(err, ErrPublishFailed) {
		t.Errorf("Publish() error = %v, want ErrPublishFailed", err)
	}

	if err := p.Close(); err != nil || !fw.closed {
		t.Errorf("Close() = %v, closed=%v", err, fw.closed)
	}
}
