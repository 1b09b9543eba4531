package risk

import (
	"math"

	"github.com/volcanowatch/backend/internal/domain"
	"github.com/volcanowatch/backend/pkg/utils"
)

// Weights are the fixed contributions of each metric to the risk index
var Weights = map[domain.Metric]float64{
	domain.MetricCO2:         0.35,
	domain.MetricSeismic:     0.35,
	domain.MetricSO2:         0.20,
	domain.MetricTemperature: 0.10,
}

// RiskThresholds mark a reading as contributing to elevated risk
var RiskThresholds = map[domain.Metric]float64{
	domain.MetricCO2:         1000, // ppm
	domain.MetricSeismic:     3.0,  // intensity
	domain.MetricSO2:         500,  // ppb
	domain.MetricTemperature: 100,  // celsius
}

const (
	increasingFactor = 1.2
	decreasingFactor = 0.8
)

// BaselineDeviation is |current-baseline|/baseline. A zero baseline yields 0.
func BaselineDeviation(current, baseline float64) float64 {
	if baseline == 0 {
		return 0
	}
	d := math.Abs((current - baseline) / baseline)
	if math.IsNaN(d) || math.IsInf(d, 0) {
		return 0
	}
	return d
}

// NormalizedValue returns value/threshold clamped to [0,1]
func NormalizedValue(value, threshold float64) float64 {
	if threshold == 0 {
		return 0
	}
	return utils.Clamp(value/threshold, 0, 1)
}

// IsRiskContributor reports whether value exceeds the metric's risk threshold
func IsRiskContributor(kind domain.Metric, value float64) bool {
	threshold, ok := RiskThresholds[kind]
	return ok && value > threshold
}

// TrendAdjusted scales a deviation by the trend multiplier
func TrendAdjusted(deviation float64, trend domain.Trend) float64 {
	switch trend {
	case domain.TrendIncreasing:
		return deviation * increasingFactor
	case domain.TrendDecreasing:
		return deviation * decreasingFactor
	default:
		return deviation
	}
}

// AggregateRisk combines per-metric deviation, trend and confidence into one risk index.
//
// Metrics are visited in domain.RiskMetrics order so repeated calls produce
// bit-identical sums. A metric absent from current is skipped.
func AggregateRisk(
	current map[domain.Metric]float64,
	history map[domain.Metric][]domain.Reading,
	baseline map[domain.Metric]float64,
) domain.RiskResult {
	factors := make(map[domain.Metric]domain.RiskFactor, len(domain.RiskMetrics))
	totalRisk := 0.0
	totalConfidence := 0.0

	for _, metric := range domain.RiskMetrics {
		value, ok := current[metric]
		if !ok {
			continue
		}
		series := history[metric]
		base := baseline[metric]
		weight := Weights[metric]

		trend := EstimateTrend(series)
		confidence := EstimateConfidence(series)
		score := TrendAdjusted(BaselineDeviation(value, base), trend)

		factors[metric] = domain.RiskFactor{
			NormalizedDeviation: score,
			Confidence:          confidence,
			Trend:               trend,
			Baseline:            base,
		}

		totalRisk += score * weight
		totalConfidence += confidence * weight
	}

	return domain.RiskResult{
		Risk:       utils.Clamp(totalRisk*100, 0, 100),
		Confidence: utils.Clamp(totalConfidence, 0, 1),
		Factors:    factors,
	}
}
