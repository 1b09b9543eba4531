package messaging

import (
	"context"
	"fmt"

	"github.com/segmentio/kafka-go"

	"github.com/volcanowatch/backend/internal/domain"
)

// KafkaPublisher writes broadcasts to one topic keyed by channel
type KafkaPublisher struct {
	writer *kafka.Writer
}

// NewKafkaPublisher creates a writer for topic on the given brokers
func NewKafkaPublisher(brokers []string, topic string) (*KafkaPublisher, error) {
	if len(brokers) == 0 || topic == "" {
		return nil, fmt.Errorf("kafka: brokers and topic are required")
	}
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireOne,
			AllowAutoTopicCreation: true,
		},
	}, nil
}

// Publish writes one message per channel so gateways can consume their own key
func (p *KafkaPublisher) Publish(ctx context.Context, channel domain.Channel, msg domain.BroadcastMessage) error {
	payload, err := Encode(channel, msg)
	if err != nil {
		return err
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(channel),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "broadcast-id", Value: []byte(msg.ID)},
		},
	})
	if err != nil {
		return fmt.Errorf("kafka: failed to write message: %w", err)
	}
	return nil
}

// Close flushes and closes the writer
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
