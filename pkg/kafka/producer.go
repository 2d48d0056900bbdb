package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

// Event types published to the catering topic.
const (
	EventTransactionRecorded  = "transaction.recorded"
	EventBookingStatusChanged = "booking.status_changed"
)

// Envelope wraps every message so consumers can route on Type.
type Envelope struct {
	Type       string      `json:"type"`
	Key        string      `json:"key"`
	OccurredAt time.Time   `json:"occurred_at"`
	Payload    interface{} `json:"payload"`
}

type Producer interface {
	Publish(ctx context.Context, eventType, key string, payload interface{}) error
	Close() error
}

type kafkaProducer struct {
	writer *kafka.Writer
	topic  string
}

// NewProducer connects to the first reachable broker and makes sure the
// topic exists. When no broker answers it falls back to a logging producer
// so the service can run without Kafka.
func NewProducer(ctx context.Context, brokers []string, topic string) Producer {
	if len(brokers) == 0 {
		logrus.Warn("Kafka brokers not configured, using log producer")
		return NewLogProducer()
	}

	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	conn, err := kafka.DialContext(dialCtx, "tcp", brokers[0])
	if err != nil {
		logrus.WithError(err).Warn("Kafka connection failed, using log producer")
		return NewLogProducer()
	}
	defer conn.Close()

	err = conn.CreateTopics(kafka.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	})
	if err != nil {
		logrus.WithError(err).Debug("Could not create topic (might already exist)")
	}

	logrus.WithFields(logrus.Fields{
		"brokers": brokers,
		"topic":   topic,
	}).Info("Connected to Kafka")

	return &kafkaProducer{
		topic: topic,
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			BatchTimeout: 10 * time.Millisecond,
			RequiredAcks: kafka.RequireOne,
		},
	}
}

func (p *kafkaProducer) Publish(ctx context.Context, eventType, key string, payload interface{}) error {
	msg, err := NewMessage(eventType, key, payload, time.Now().UTC())
	if err != nil {
		return err
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write %s to kafka: %w", eventType, err)
	}

	logrus.WithFields(logrus.Fields{
		"topic": p.topic,
		"type":  eventType,
		"key":   key,
	}).Debug("Message sent to Kafka")
	return nil
}

func (p *kafkaProducer) Close() error {
	return p.writer.Close()
}

// NewMessage builds the keyed Kafka message for an event. Messages for the
// same booking share a key and therefore a partition.
func NewMessage(eventType, key string, payload interface{}, at time.Time) (kafka.Message, error) {
	value, err := json.Marshal(Envelope{
		Type:       eventType,
		Key:        key,
		OccurredAt: at,
		Payload:    payload,
	})
	if err != nil {
		return kafka.Message{}, fmt.Errorf("failed to encode %s event: %w", eventType, err)
	}

	return kafka.Message{
		Key:   []byte(key),
		Value: value,
		Time:  at,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(eventType)},
		},
	}, nil
}

// logProducer stands in for Kafka when it is disabled or unreachable.
type logProducer struct{}

func NewLogProducer() Producer {
	return logProducer{}
}

func (logProducer) Publish(_ context.Context, eventType, key string, payload interface{}) error {
	logrus.WithFields(logrus.Fields{
		"type": eventType,
		"key":  key,
	}).Infof("Kafka disabled, event not sent: %v", payload)
	return nil
}

func (logProducer) Close() error {
	return nil
}
