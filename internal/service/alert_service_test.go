package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/volcanowatch/backend/internal/domain"
)

func TestBuildAlerts(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	alerts := BuildAlerts(map[domain.SensorType]float64{
		domain.SensorTemperature: 120.04,
		domain.SensorVibration:   10, // 0.2 g
		domain.SensorCO2:         1200.4,
		domain.SensorSO2:         100,
	}, nil, now)

	require.Len(t, alerts, 4)

	temp := alerts[0]
	assert.Equal(t, domain.MetricTemperature, temp.Type)
	assert.Equal(t, 120.0, temp.Value)
	assert.Equal(t, domain.SeverityMedium, temp.Severity)
	assert.True(t, temp.IsRiskContributor)

	seismic := alerts[1]
	assert.Equal(t, domain.MetricSeismic, seismic.Type)
	assert.Equal(t, 7.0, seismic.Value)
	assert.Equal(t, "Very strong", seismic.Description)
	assert.Equal(t, "Richter", seismic.Unit)
	assert.Equal(t, domain.SeverityHigh, seismic.Severity)

	co2 := alerts[2]
	assert.Equal(t, 1200.0, co2.Value)
	assert.Equal(t, "ppm", co2.Unit)
	assert.Equal(t, domain.SeverityMedium, co2.Severity)
	assert.True(t, co2.IsRiskContributor)

	so2 := alerts[3]
	assert.Equal(t, domain.SeverityLow, so2.Severity)
	assert.False(t, so2.IsRiskContributor)

	for _, a := range alerts {
		assert.Equal(t, now, a.Timestamp)
		assert.Equal(t, domain.TrendStable, a.Trend)
		assert.Nil(t, a.PreviousValue)
		assert.Nil(t, a.Delta)
	}
}

func TestBuildAlertsDeltaAndTrend(t *testing.T) {
	previous := []domain.Alert{
		{Type: domain.MetricTemperature, Value: 119},
		{Type: domain.MetricCO2, Value: 1200.05},
	}

	alerts := BuildAlerts(map[domain.SensorType]float64{
		domain.SensorTemperature: 120,
		domain.SensorCO2:         1200,
		domain.SensorSO2:         50,
	}, previous, time.Now())
	require.Len(t, alerts, 3)

	temp := alerts[0]
	require.NotNil(t, temp.PreviousValue)
	require.NotNil(t, temp.Delta)
	assert.Equal(t, 119.0, *temp.PreviousValue)
	assert.InDelta(t, 1.0, *temp.Delta, 1e-9)
	assert.Equal(t, domain.TrendIncreasing, temp.Trend)

	// a change below 0.1 is stable
	assert.Equal(t, domain.TrendStable, alerts[1].Trend)
	assert.NotNil(t, alerts[1].Delta)

	// no previous so2 card
	assert.Nil(t, alerts[2].PreviousValue)
}

func TestBuildAlertsSkipsMissingReadings(t *testing.T) {
	alerts := BuildAlerts(map[domain.SensorType]float64{domain.SensorSO2: 600}, nil, time.Now())
	require.Len(t, alerts, 1)
	assert.Equal(t, domain.MetricSO2, alerts[0].Type)
	assert.Equal(t, domain.SeverityMedium, alerts[0].Severity)
}

func TestFilterBySeverity(t *testing.T) {
	alerts := []domain.Alert{
		{Type: domain.MetricCO2, Severity: domain.SeverityLow},
		{Type: domain.MetricSeismic, Severity: domain.SeverityHigh},
		{Type: domain.MetricSO2, Severity: domain.SeverityHigh},
	}

	all, err := FilterBySeverity(alerts, "all")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	all, err = FilterBySeverity(alerts, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	high, err := FilterBySeverity(alerts, "high")
	require.NoError(t, err)
	assert.Len(t, high, 2)

	medium, err := FilterBySeverity(alerts, "medium")
	require.NoError(t, err)
	assert.Empty(t, medium)

	_, err = FilterBySeverity(alerts, "critical")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestAlertServiceRefreshKeepsPrevious(t *testing.T) {
	svc := NewAlertService(seededSensors(), NewMetrics())
	ctx := context.Background()

	first, err := svc.Alerts(ctx)
	require.NoError(t, err)
	require.Len(t, first, 4)

	again, err := svc.Alerts(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, again)

	refreshed, err := svc.Refresh(ctx)
	require.NoError(t, err)
	require.Len(t, refreshed, 4)

	for i, a := range refreshed {
		require.NotNil(t, a.PreviousValue)
		assert.Equal(t, first[i].Value, *a.PreviousValue)
		assert.InDelta(t, a.Value-first[i].Value, *a.Delta, 1e-9)
	}
}
