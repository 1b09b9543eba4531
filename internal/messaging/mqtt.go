package messaging

import (
	"context"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/volcanowatch/backend/internal/domain"
)

const (
	mqttTopicPrefix    = "volcano/broadcast"
	mqttConnectTimeout = 10 * time.Second
	mqttQoS            = 1
)

// MQTTPublisher publishes each broadcast to volcano/broadcast/<channel>
type MQTTPublisher struct {
	client mqtt.Client
}

// NewMQTTPublisher connects to the broker
func NewMQTTPublisher(brokerURL, clientID string) (*MQTTPublisher, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(brokerURL).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectTimeout(mqttConnectTimeout)

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(mqttConnectTimeout) {
		return nil, fmt.Errorf("mqtt: connect to %s timed out", brokerURL)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt: failed to connect to %s: %w", brokerURL, err)
	}

	return &MQTTPublisher{client: client}, nil
}

// Topic returns the MQTT topic of a channel
func Topic(channel domain.Channel) string {
	return fmt.Sprintf("%s/%s", mqttTopicPrefix, channel)
}

// Publish sends msg and waits for the broker acknowledgement or ctx
func (p *MQTTPublisher) Publish(ctx context.Context, channel domain.Channel, msg domain.BroadcastMessage) error {
	payload, err := Encode(channel, msg)
	if err != nil {
		return err
	}

	token := p.client.Publish(Topic(channel), mqttQoS, false, payload)
	select {
	case <-token.Done():
	case <-ctx.Done():
		return fmt.Errorf("mqtt: publish to %s: %w", Topic(channel), ctx.Err())
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt: failed to publish to %s: %w", Topic(channel), err)
	}
	return nil
}

// Close disconnects from the broker
func (p *MQTTPublisher) Close() error {
	p.client.Disconnect(250)
	return nil
}
