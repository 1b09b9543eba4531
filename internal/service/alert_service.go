package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/volcanowatch/backend/internal/domain"
	"github.com/volcanowatch/backend/internal/risk"
	"github.com/volcanowatch/backend/pkg/utils"
)

// alertSensors are the sensor channels the alert cards are built from
var alertSensors = []domain.SensorType{
	domain.SensorTemperature,
	domain.SensorVibration,
	domain.SensorCO2,
	domain.SensorSO2,
}

// AlertService builds alert cards and remembers the previous refresh for deltas
type AlertService struct {
	sensors *SensorService
	metrics *Metrics

	mu      sync.Mutex
	current []domain.Alert
}

// NewAlertService creates a new alert service
func NewAlertService(sensors *SensorService, metrics *Metrics) *AlertService {
	return &AlertService{sensors: sensors, metrics: metrics}
}

// BuildAlerts turns averaged sensor readings into alert cards.
// Missing readings produce no card. previous feeds delta and trend.
func BuildAlerts(readings map[domain.SensorType]float64, previous []domain.Alert, now time.Time) []domain.Alert {
	alerts := make([]domain.Alert, 0, len(alertSensors))

	if v, ok := readings[domain.SensorTemperature]; ok {
		alerts = append(alerts, domain.Alert{
			Type:     domain.MetricTemperature,
			Value:    utils.RoundTo(v, 1),
			Unit:     "°C",
			Severity: risk.ClassifySeverity(domain.MetricTemperature, v),
		})
	}

	if v, ok := readings[domain.SensorVibration]; ok {
		intensity := risk.AccelerationToIntensity(v)
		alerts = append(alerts, domain.Alert{
			Type:        domain.MetricSeismic,
			Value:       intensity.Intensity,
			Description: intensity.Description,
			Unit:        "Richter",
			Severity:    risk.ClassifySeverity(domain.MetricSeismic, intensity.Intensity),
		})
	}

	if v, ok := readings[domain.SensorCO2]; ok {
		alerts = append(alerts, domain.Alert{
			Type:     domain.MetricCO2,
			Value:    utils.RoundTo(v, 0),
			Unit:     "ppm",
			Severity: risk.ClassifySeverity(domain.MetricCO2, v),
		})
	}

	if v, ok := readings[domain.SensorSO2]; ok {
		alerts = append(alerts, domain.Alert{
			Type:     domain.MetricSO2,
			Value:    utils.RoundTo(v, 0),
			Unit:     "ppm",
			Severity: risk.ClassifySeverity(domain.MetricSO2, v),
		})
	}

	for i := range alerts {
		a := &alerts[i]
		a.Timestamp = now
		a.Trend = domain.TrendStable
		a.IsRiskContributor = risk.IsRiskContributor(a.Type, a.Value)

		for _, prev := range previous {
			if prev.Type != a.Type {
				continue
			}
			pv := prev.Value
			delta := a.Value - pv
			a.PreviousValue = &pv
			a.Delta = &delta
			a.Trend = risk.DeltaTrend(a.Value, pv)
			break
		}
	}

	return alerts
}

// FilterBySeverity keeps alerts of the given severity. An empty filter or "all" keeps everything.
func FilterBySeverity(alerts []domain.Alert, severity string) ([]domain.Alert, error) {
	switch domain.AlertSeverity(severity) {
	case "", "all":
		return alerts, nil
	case domain.SeverityLow, domain.SeverityMedium, domain.SeverityHigh:
	default:
		return nil, fmt.Errorf("alerts: severity %q: %w", severity, domain.ErrInvalidInput)
	}

	out := make([]domain.Alert, 0, len(alerts))
	for _, a := range alerts {
		if a.Severity == domain.AlertSeverity(severity) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *AlertService) build(ctx context.Context, previous []domain.Alert) ([]domain.Alert, error) {
	readings, err := s.sensors.Averages(ctx, alertSensors...)
	if err != nil {
		return nil, fmt.Errorf("alerts: failed to read sensors: %w", err)
	}
	alerts := BuildAlerts(readings, previous, time.Now())
	for _, a := range alerts {
		s.metrics.countAlert(a)
	}
	return alerts, nil
}

// Alerts returns the current alert cards, building them on first use
func (s *AlertService) Alerts(ctx context.Context) ([]domain.Alert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil {
		alerts, err := s.build(ctx, nil)
		if err != nil {
			return nil, err
		}
		s.current = alerts
	}
	return append([]domain.Alert(nil), s.current...), nil
}

// Refresh keeps the current cards as previous values and rebuilds them
func (s *AlertService) Refresh(ctx context.Context) ([]domain.Alert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	alerts, err := s.build(ctx, s.current)
	if err != nil {
		return nil, err
	}
	s.current = alerts
	return append([]domain.Alert(nil), s.current...), nil
}
