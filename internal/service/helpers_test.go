package service

import (
	"context"
	"errors"
	"math/rand"
	"sync"

	"github.com/volcanowatch/backend/internal/domain"
)

type published struct {
	channel domain.Channel
	msg     domain.BroadcastMessage
}

// recordingPublisher remembers everything it is asked to publish.
// Channels listed in fail return an error instead.
type recordingPublisher struct {
	mu   sync.Mutex
	sent []published
	fail map[domain.Channel]bool
}

func (p *recordingPublisher) Publish(ctx context.Context, channel domain.Channel, msg domain.BroadcastMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail[channel] {
		return errors.New("transport down")
	}
	p.sent = append(p.sent, published{channel: channel, msg: msg})
	return nil
}

func (p *recordingPublisher) messages() []published {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]published(nil), p.sent...)
}

type staticReadings map[domain.Metric]float64

func (r staticReadings) LatestReadings() map[domain.Metric]float64 {
	return r
}

func seededSensors() *SensorService {
	return NewSensorService(rand.New(rand.NewSource(42)))
}
