package risk

import (
	"math"

	"github.com/volcanowatch/backend/internal/domain"
	"github.com/volcanowatch/backend/pkg/utils"
)

const (
	// TrendWindow is how many trailing readings EstimateTrend looks at
	TrendWindow = 5

	// TrendThreshold is the mean per-step change, in native units, that counts as movement
	TrendThreshold = 0.05

	// DeltaThreshold is the absolute change between two refreshes that counts as movement
	DeltaThreshold = 0.1

	// NeutralConfidence is returned when confidence cannot be estimated
	NeutralConfidence = 0.5
)

// EstimateTrend derives the direction of change from the trailing readings
func EstimateTrend(history []domain.Reading) domain.Trend {
	if len(history) < 2 {
		return domain.TrendStable
	}

	recent := history
	if len(recent) > TrendWindow {
		recent = recent[len(recent)-TrendWindow:]
	}

	sum := 0.0
	for i := 1; i < len(recent); i++ {
		sum += recent[i].Value - recent[i-1].Value
	}
	avg := sum / float64(len(recent)-1)

	switch {
	case avg > TrendThreshold:
		return domain.TrendIncreasing
	case avg < -TrendThreshold:
		return domain.TrendDecreasing
	default:
		return domain.TrendStable
	}
}

// EstimateConfidence scores the whole window as 1 - standardError/mean, clamped to [0,1].
// Fewer than two samples, or a zero mean, yield NeutralConfidence.
func EstimateConfidence(history []domain.Reading) float64 {
	if len(history) < 2 {
		return NeutralConfidence
	}

	values := make([]float64, len(history))
	for i, r := range history {
		values[i] = r.Value
	}

	mean := utils.Mean(values)
	if mean == 0 || math.IsNaN(mean) || math.IsInf(mean, 0) {
		return NeutralConfidence
	}

	variance := utils.PopulationVariance(values, mean)
	standardError := math.Sqrt(variance / float64(len(values)))

	return utils.Clamp(1-standardError/mean, 0, 1)
}

// DeltaTrend compares a value against the one from the previous refresh.
// It backs the alert cards and is intentionally separate from EstimateTrend.
func DeltaTrend(current, previous float64) domain.Trend {
	diff := current - previous
	if math.Abs(diff) < DeltaThreshold {
		return domain.TrendStable
	}
	if diff > 0 {
		return domain.TrendIncreasing
	}
	return domain.TrendDecreasing
}
