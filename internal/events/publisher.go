package events

import (
	"context"
	"encoding/json"

	"github.com/luno/jettison/errors"
	"github.com/luno/jettison/j"
	"github.com/segmentio/kafka-go"
	"k8s.io/utils/clock"
)

// HeaderEventType names the header carrying the event type.
const HeaderEventType = "event_type"

type messageWriter interface {
	WriteMessages(context.Context, ...kafka.Message) error
}

// NewWriter returns a writer for brokers. Messages carry their own topic and are
// hashed by key, so every event for one workout lands on the same partition.
func NewWriter(brokers []string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		Compression:            kafka.Snappy,
		AllowAutoTopicCreation: true,
	}
}

// KafkaPublisher encodes events as JSON and writes them to a single topic keyed by workout id.
type KafkaPublisher struct {
	writer messageWriter
	topic  string
	clock  clock.PassiveClock
}

// NewKafkaPublisher constructs a KafkaPublisher. A nil clk uses the wall clock.
func NewKafkaPublisher(writer messageWriter, topic string, clk clock.PassiveClock) *KafkaPublisher {
	if clk == nil {
		clk = clock.RealClock{}
	}
	return &KafkaPublisher{writer: writer, topic: topic, clock: clk}
}

// Publish implements Publisher.
func (p *KafkaPublisher) Publish(ctx context.Context, e Event) error {
	msg, err := p.message(e)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		recordPublishFailure(e.Type)
		return errors.Wrap(err, "write event", j.KV("topic", p.topic), j.KV("event_type", e.Type))
	}
	recordPublished(e.Type)
	return nil
}

func (p *KafkaPublisher) message(e Event) (kafka.Message, error) {
	value, err := json.Marshal(e.Payload)
	if err != nil {
		return kafka.Message{}, errors.Wrap(err, "encode event", j.KV("event_type", e.Type))
	}
	return kafka.Message{
		Topic: p.topic,
		Key:   []byte(e.Key),
		Value: value,
		Time:  p.clock.Now(),
		Headers: []kafka.Header{
			{Key: HeaderEventType, Value: []byte(e.Type)},
		},
	}, nil
}

// NoopPublisher drops every event. It is used when no brokers are configured.
type NoopPublisher struct{}

// Publish implements Publisher.
func (NoopPublisher) Publish(_ context.Context, e Event) error {
	recordDiscarded(e.Type)
	return nil
}
