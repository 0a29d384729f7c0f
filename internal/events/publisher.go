package events

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"example.com/marathon/internal/observability"
)

type messageWriter interface {
	WriteMessages(context.Context, string, ...kafka.Message) error
}

// Route describes where an event type is delivered.
type Route struct {
	Topic string
}

var catalog = map[string]Route{
	TypeRunningLogMerged:   {Topic: "running_log_events"},
	TypeMarathonCreated:    {Topic: "marathon_events"},
	TypeApplicationCreated: {Topic: "application_events"},
}

// Publisher serialises payloads as JSON and writes them to the catalogued topic.
type Publisher struct {
	writer messageWriter
	now    func() time.Time
}

// NewPublisher wraps a writer, typically a *KafkaProducer.
func NewPublisher(writer messageWriter) *Publisher {
	return &Publisher{writer: writer, now: time.Now}
}

// Publish sends one event keyed by key so that events for the same entity keep their order.
func (p *Publisher) Publish(ctx context.Context, eventType, key string, payload interface{}) error {
	route, ok := catalog[eventType]
	if !ok {
		return fmt.Errorf("unknown event type: %s", eventType)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", eventType, err)
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: body,
		Time:  p.now().UTC(),
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(eventType)},
			{Key: "event_id", Value: []byte(uuid.NewString())},
		},
	}

	if err := p.writer.WriteMessages(ctx, route.Topic, msg); err != nil {
		observability.RecordEventPublished(eventType, false)
		return err
	}
	observability.RecordEventPublished(eventType, true)
	return nil
}

// NoopPublisher drops every event. Used when no brokers are configured.
type NoopPublisher struct{}

// Publish implements the publisher contract without doing anything.
func (NoopPublisher) Publish(context.Context, string, string, interface{}) error { return nil }
