package messaging

import (
	"context"
	"log"

	"github.com/volcanowatch/backend/internal/domain"
)

// LogPublisher only logs broadcasts. It is the default in development.
type LogPublisher struct{}

// NewLogPublisher creates a new log publisher
func NewLogPublisher() *LogPublisher {
	return &LogPublisher{}
}

// Publish logs the message
func (p *LogPublisher) Publish(ctx context.Context, channel domain.Channel, msg domain.BroadcastMessage) error {
	log.Printf("Broadcasting message %s on %s: %q", msg.ID, channel, msg.Message)
	return nil
}

// Close is a no-op
func (p *LogPublisher) Close() error {
	return nil
}
