// Package consumer reads workout events from Kafka and hands them to a Handler.
package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	jerrors "github.com/luno/jettison/errors"
	"github.com/luno/jettison/j"
	"github.com/luno/jettison/log"
	"github.com/segmentio/kafka-go"
	"k8s.io/utils/clock"

	"example.com/workouts/internal/events"
)

const headerEventType = events.HeaderEventType

// Reader exposes the minimal kafka.Reader interface needed by the processor.
type Reader interface {
	FetchMessage(context.Context) (kafka.Message, error)
	CommitMessages(context.Context, ...kafka.Message) error
	Close() error
}

// Handler receives decoded messages from Kafka.
type Handler interface {
	Handle(context.Context, Message) error
}

// Message is the decoded representation of a workout event record.
type Message struct {
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	EventType string
	WorkoutID string
	Payload   json.RawMessage
}

// Option configures optional behaviour for the Processor.
type Option func(*Processor)

// WithFetchBackoff sets the pause after a failed fetch.
func WithFetchBackoff(d time.Duration) Option {
	return func(p *Processor) {
		p.fetchBackoff = d
	}
}

// WithClock sets the clock used to measure event age.
func WithClock(clk clock.PassiveClock) Option {
	return func(p *Processor) {
		p.clock = clk
	}
}

// Processor pulls messages from Kafka, decodes them, and dispatches to a Handler.
type Processor struct {
	reader       Reader
	handler      Handler
	fetchBackoff time.Duration
	clock        clock.PassiveClock
}

// NewProcessor constructs a Processor with the provided reader and handler.
func NewProcessor(reader Reader, handler Handler, opts ...Option) *Processor {
	p := &Processor{
		reader:       reader,
		handler:      handler,
		fetchBackoff: time.Second,
		clock:        clock.RealClock{},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run processes messages until the context is cancelled. Malformed messages are
// committed so they cannot block the partition; handler failures are left uncommitted.
func (p *Processor) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		msg, err := p.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			log.Error(ctx, jerrors.Wrap(err, "fetch message"))
			p.pause(ctx)
			continue
		}

		event, err := decodeMessage(msg)
		if err != nil {
			log.Error(ctx, jerrors.Wrap(err, "decode message",
				j.KV("topic", msg.Topic), j.KV("partition", msg.Partition), j.KV("offset", msg.Offset)))
			eventType, _ := headerValue(msg, headerEventType)
			recordOutcome(string(eventType), outcomeMalformed)
			if err := p.reader.CommitMessages(ctx, msg); err != nil {
				log.Error(ctx, jerrors.Wrap(err, "commit after decode failure"))
			}
			continue
		}

		if err := p.handler.Handle(ctx, event); err != nil {
			log.Error(ctx, jerrors.Wrap(err, "handle message",
				j.KV("event_type", event.EventType), j.KV("workout_id", event.WorkoutID)))
			recordOutcome(event.EventType, outcomeHandlerError)
			continue
		}

		if err := p.reader.CommitMessages(ctx, msg); err != nil {
			log.Error(ctx, jerrors.Wrap(err, "commit message"))
		} else {
			recordCommitted(event, p.clock.Now())
		}
	}
}

func (p *Processor) pause(ctx context.Context) {
	if p.fetchBackoff <= 0 {
		return
	}
	t := time.NewTimer(p.fetchBackoff)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

func decodeMessage(msg kafka.Message) (Message, error) {
	eventType, ok := headerValue(msg, headerEventType)
	if !ok || len(eventType) == 0 {
		return Message{}, jerrors.New("missing event_type header")
	}
	if !json.Valid(msg.Value) {
		return Message{}, jerrors.New("payload is not valid JSON", j.KV("event_type", string(eventType)))
	}

	return Message{
		Topic:     msg.Topic,
		Partition: msg.Partition,
		Offset:    msg.Offset,
		Timestamp: msg.Time,
		EventType: string(eventType),
		WorkoutID: string(msg.Key),
		Payload:   json.RawMessage(append([]byte(nil), msg.Value...)),
	}, nil
}

func headerValue(msg kafka.Message, key string) ([]byte, bool) {
	for _, header := range msg.Headers {
		if header.Key == key {
			return header.Value, true
		}
	}
	return nil, false
}
