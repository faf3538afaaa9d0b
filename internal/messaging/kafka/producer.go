package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"equiprent-backend/internal/domain"
	"equiprent-backend/internal/logger"

	"github.com/segmentio/kafka-go"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer publishes notification intents to a topic, keyed by transaction id so
// every event of one transaction lands on the same partition.
type Producer struct {
	writer       messageWriter
	topic        string
	writeTimeout time.Duration
}

func NewProducer(brokers []string, topic string, writeTimeout time.Duration) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
	}
	logger.Info("Kafka producer configured", "brokers", brokers, "topic", topic)
	return &Producer{writer: writer, topic: topic, writeTimeout: writeTimeout}
}

// EnsureTopic creates the topic on the first broker if it does not exist yet.
func EnsureTopic(ctx context.Context, broker, topic string) error {
	conn, err := kafka.DialContext(ctx, "tcp", broker)
	if err != nil {
		return fmt.Errorf("kafka dial %s: %w", broker, err)
	}
	defer conn.Close()

	err = conn.CreateTopics(kafka.TopicConfig{Topic: topic, NumPartitions: 1, ReplicationFactor: 1})
	if err != nil {
		logger.Warn("Could not create topic (might already exist)", "topic", topic, "error", err)
	}
	return nil
}

func (p *Producer) Name() string { return "kafka" }

func (p *Producer) Deliver(ctx context.Context, intent domain.Intent) error {
	value, err := json.Marshal(intent)
	if err != nil {
		return fmt.Errorf("marshal intent %s: %w", intent.ID, err)
	}

	msg := kafka.Message{
		Key:   []byte(intent.TransactionID),
		Value: value,
		Time:  intent.CreatedAt,
		Headers: []kafka.Header{
			{Key: "kind", Value: []byte(intent.Kind)},
			{Key: "intent_id", Value: []byte(intent.ID)},
		},
	}

	if p.writeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.writeTimeout)
		defer cancel()
	}

	logger.ExternalServiceCall("kafka", "WriteMessages", "topic", p.topic, "intentID", intent.ID)
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write intent %s to %s: %w", intent.ID, p.topic, err)
	}
	return nil
}

func (p *Producer) Close() error {
	return p.writer.Close()
}
