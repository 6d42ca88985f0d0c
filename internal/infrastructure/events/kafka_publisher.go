// Package events publishes transaction lifecycle events.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/damon-houk/purchase-conversion-service/internal/domain/service"
	"github.com/damon-houk/purchase-conversion-service/internal/infrastructure/logger"
	"github.com/segmentio/kafka-go"
)

const defaultPublishTimeout = 5 * time.Second

// messageWriter is the part of kafka.Writer the publisher needs
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes transaction events to a Kafka topic as JSON, keyed by
// transaction ID so events for one transaction stay ordered
type KafkaPublisher struct {
	writer  messageWriter
	topic   string
	timeout time.Duration
	logger  logger.Logger
}

// NewKafkaPublisher creates a publisher for topic on the given brokers
func NewKafkaPublisher(brokers []string, topic string, log logger.Logger) *KafkaPublisher {
	return newKafkaPublisher(&kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		BatchTimeout:           10 * time.Millisecond,
		AllowAutoTopicCreation: true,
	}, topic, log)
}

func newKafkaPublisher(w messageWriter, topic string, log logger.Logger) *KafkaPublisher {
	if log == nil {
		log = logger.NewNop()
	}
	return &KafkaPublisher{
		writer:  w,
		topic:   topic,
		timeout: defaultPublishTimeout,
		logger:  log.WithField("component", "kafka_publisher"),
	}
}

// Publish sends a single event
func (p *KafkaPublisher) Publish(ctx context.Context, event service.TransactionEvent) error {
	msg, err := encode(event)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish %s event to %s: %w", event.Type, p.topic, err)
	}

	p.logger.Debug("Event published", map[string]interface{}{
		"type":  event.Type,
		"id":    event.TransactionID,
		"topic": p.topic,
	})

	return nil
}

// Close flushes pending messages and releases the writer
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

func encode(event service.TransactionEvent) (kafka.Message, error) {
	value, err := json.Marshal(event)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("failed to encode %s event: %w", event.Type, err)
	}

	return kafka.Message{
		Key:   []byte(event.TransactionID),
		Value: value,
		Time:  event.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte(event.Type)},
		},
	}, nil
}

// NopPublisher discards events. It is used when no brokers are configured.
type NopPublisher struct{}

// Publish does nothing
func (NopPublisher) Publish(context.Context, service.TransactionEvent) error { return nil }

// Close does nothing
func (NopPublisher) Close() error { return nil }
