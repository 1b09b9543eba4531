package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/volcanowatch/backend/internal/domain"
	"github.com/volcanowatch/backend/internal/repository/memory"
	"github.com/volcanowatch/backend/internal/repository/postgres"
)

func TestNewSamplerRejectsNonPositiveInterval(t *testing.T) {
	_, err := NewSampler(0, newTestRiskService(), nil)
	assert.Error(t, err)
}

func TestSamplerTickWithoutBroadcast(t *testing.T) {
	riskSvc := newTestRiskService()
	s, err := NewSampler(time.Second, riskSvc, nil)
	require.NoError(t, err)

	require.NoError(t, s.Tick(context.Background()))
	assert.Len(t, riskSvc.Snapshot().History, 1)
}

func TestSamplerTickEvaluatesRules(t *testing.T) {
	ctx := context.Background()
	riskSvc := newTestRiskService()
	publisher := &recordingPublisher{}
	broadcast := NewBroadcastService(publisher, memory.NewRuleStore(), postgres.NewMockRepository(), riskSvc, nil)

	// mock temperatures are always positive
	_, err := broadcast.PutRule(ctx, domain.AutomatedMessageRule{
		MetricID:   domain.MetricTemperature,
		Enabled:    true,
		Threshold:  0,
		Comparison: domain.ComparisonGreater,
		Message:    "Temperature reading received",
		Channels:   []domain.Channel{domain.ChannelSMS},
	})
	require.NoError(t, err)

	s, err := NewSampler(time.Second, riskSvc, broadcast)
	require.NoError(t, err)

	require.NoError(t, s.Tick(ctx))
	require.NoError(t, s.Tick(ctx))

	assert.Len(t, riskSvc.Snapshot().History, 2)
	assert.Len(t, publisher.messages(), 1)
}

func TestSamplerStartStop(t *testing.T) {
	s, err := NewSampler(time.Hour, newTestRiskService(), nil)
	require.NoError(t, err)

	s.Start()
	s.Stop()
}
