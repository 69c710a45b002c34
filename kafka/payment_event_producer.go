package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// messageWriter is the part of *kafka.Writer the producer uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// PaymentEventProducer publishes payment events to Kafka. Messages are keyed by
// session id so every event of one checkout lands on the same partition.
type PaymentEventProducer struct {
	writer messageWriter
	logger *zap.Logger
}

func NewPaymentEventProducer(brokers []string, logger *zap.Logger) *PaymentEventProducer {
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
	}
	logger.Info("Kafka producer initialized", zap.Strings("brokers", brokers))
	return &PaymentEventProducer{writer: w, logger: logger}
}

func newProducerWithWriter(w messageWriter, logger *zap.Logger) *PaymentEventProducer {
	return &PaymentEventProducer{writer: w, logger: logger}
}

// Publish writes one event to topic. It has the same shape as the SNS
// publisher so either can back the payment service.
func (p *PaymentEventProducer) Publish(ctx context.Context, topic string, message []byte) error {
	if topic == "" {
		return errors.New("kafka topic is empty")
	}
	var keyed struct {
		SessionID string `json:"session_id"`
	}
	_ = json.Unmarshal(message, &keyed)

	msg := kafka.Message{Topic: topic, Value: message}
	if keyed.SessionID != "" {
		msg.Key = []byte(keyed.SessionID)
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write kafka message: %w", err)
	}
	p.logger.Debug("Payment event sent to kafka", zap.String("topic", topic), zap.String("session_id", keyed.SessionID))
	return nil
}

func (p *PaymentEventProducer) Close() error {
	err := p.writer.Close()
	p.logger.Info("Kafka producer closed")
	return err
}
