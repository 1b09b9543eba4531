package service

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/volcanowatch/backend/internal/domain"
	"github.com/volcanowatch/backend/internal/risk"
)

const (
	// HistoryLimit bounds every per-metric series and risk history buffer
	HistoryLimit = 10

	// gaugeScale maps the tag classifier average (0-2) onto the 0-100 gauge
	gaugeScale = 50
)

// RiskService owns the history buffers fed to the risk core and the latest results
type RiskService struct {
	sensors   *SensorService
	baselines *BaselineSource
	metrics   *Metrics

	mu           sync.RWMutex
	series       map[domain.Metric][]domain.Reading
	latest       domain.RiskResult
	history      []domain.HistoricalRisk
	updatedAt    time.Time
	gauge        float64
	gaugeHistory []domain.HistoricalRisk
}

// NewRiskService creates a new risk service
func NewRiskService(sensors *SensorService, baselines *BaselineSource, metrics *Metrics) *RiskService {
	return &RiskService{
		sensors:   sensors,
		baselines: baselines,
		metrics:   metrics,
		series:    make(map[domain.Metric][]domain.Reading),
		latest:    domain.RiskResult{Factors: map[domain.Metric]domain.RiskFactor{}},
	}
}

func appendCapped[T any](buf []T, v T) []T {
	buf = append(buf, v)
	if len(buf) > HistoryLimit {
		buf = append([]T(nil), buf[len(buf)-HistoryLimit:]...)
	}
	return buf
}

// Sample polls the sensors once, records the readings and recomputes risk and gauge
func (s *RiskService) Sample(ctx context.Context) (domain.RiskSnapshot, error) {
	readings, err := s.sensors.Averages(ctx,
		domain.SensorCO2,
		domain.SensorSO2,
		domain.SensorTemperature,
		domain.SensorVibration,
		domain.SensorTagClass,
	)
	if err != nil {
		return domain.RiskSnapshot{}, fmt.Errorf("risk: failed to sample sensors: %w", err)
	}

	current := map[domain.Metric]float64{
		domain.MetricCO2:         readings[domain.SensorCO2],
		domain.MetricSO2:         readings[domain.SensorSO2],
		domain.MetricTemperature: readings[domain.SensorTemperature],
		domain.MetricSeismic:     risk.AccelerationToIntensity(readings[domain.SensorVibration]).Intensity,
	}

	now := time.Now()
	s.Record(current, now)
	s.RecordGauge(readings[domain.SensorTagClass], now)

	return s.Snapshot(), nil
}

// Record appends one reading per metric and aggregates against the current baselines.
// The appended readings are part of the history the trend is computed from.
func (s *RiskService) Record(current map[domain.Metric]float64, at time.Time) domain.RiskResult {
	baselines := s.baselines.Snapshot()

	s.mu.Lock()
	defer s.mu.Unlock()

	for metric, v := range current {
		s.series[metric] = appendCapped(s.series[metric], domain.Reading{Value: v, Timestamp: at})
	}

	result := risk.AggregateRisk(current, s.series, baselines)

	factors := make(map[domain.Metric]float64, len(result.Factors))
	for metric, f := range result.Factors {
		factors[metric] = f.NormalizedDeviation
	}

	s.latest = result
	s.updatedAt = at
	s.history = appendCapped(s.history, domain.HistoricalRisk{
		Timestamp:  at,
		Risk:       result.Risk,
		Confidence: result.Confidence,
		Factors:    factors,
	})
	s.metrics.observeRisk(result)

	return result
}

// RecordGauge converts a tag classifier average into the danger gauge value
func (s *RiskService) RecordGauge(tagClass float64, at time.Time) float64 {
	v := math.Min(100, tagClass*gaugeScale)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.gauge = v
	s.gaugeHistory = appendCapped(s.gaugeHistory, domain.HistoricalRisk{
		Timestamp:  at,
		Risk:       v,
		Confidence: 1,
	})
	s.metrics.observeGauge(v)
	return v
}

// Snapshot returns a copy of the latest risk result and history
func (s *RiskService) Snapshot() domain.RiskSnapshot {
	baselines := s.baselines.Snapshot()

	s.mu.RLock()
	defer s.mu.RUnlock()

	factors := make(map[domain.Metric]domain.RiskFactor, len(s.latest.Factors))
	for k, v := range s.latest.Factors {
		factors[k] = v
	}

	return domain.RiskSnapshot{
		Current: domain.RiskResult{
			Risk:       s.latest.Risk,
			Confidence: s.latest.Confidence,
			Factors:    factors,
		},
		Baselines: baselines,
		History:   append([]domain.HistoricalRisk{}, s.history...),
		UpdatedAt: s.updatedAt,
	}
}

// Gauge returns the danger gauge and its history
func (s *RiskService) Gauge() domain.GaugeReading {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return domain.GaugeReading{
		Risk:       s.gauge,
		Confidence: 1,
		History:    append([]domain.HistoricalRisk{}, s.gaugeHistory...),
	}
}

// Series returns a copy of the recorded history of one metric
func (s *RiskService) Series(metric domain.Metric) []domain.Reading {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Reading(nil), s.series[metric]...)
}

// LatestReadings returns the most recent value of every recorded metric
func (s *RiskService) LatestReadings() map[domain.Metric]float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[domain.Metric]float64, len(s.series))
	for metric, series := range s.series {
		if len(series) > 0 {
			out[metric] = series[len(series)-1].Value
		}
	}
	return out
}
