package risk

import "github.com/volcanowatch/backend/internal/domain"

// ThresholdLevels are the low/medium/high boundaries of a metric in its natural unit
type ThresholdLevels struct {
	Low    float64 `json:"low"`
	Medium float64 `json:"medium"`
	High   float64 `json:"high"`
}

// DisplayThresholds is the alert card reference table.
//
// NOTE: these values do not match the cutoffs ClassifySeverity applies
// (e.g. temperature is medium above 100 there, not 70). Severity is decided
// by ClassifySeverity only; this table is published as-is until the intended
// business rule is settled.
var DisplayThresholds = map[domain.Metric]ThresholdLevels{
	domain.MetricTemperature: {Low: 50, Medium: 70, High: 80},
	domain.MetricSeismic:     {Low: 2.0, Medium: 3.0, High: 4.0},
	domain.MetricGas:         {Low: 100, Medium: 200, High: 300},
	domain.MetricCO2:         {Low: 500, Medium: 1000, High: 5000},
	domain.MetricSO2:         {Low: 200, Medium: 500, High: 1000},
}

// Cutoff describes the effective classification boundaries of one metric
type Cutoff struct {
	Medium          float64 `json:"medium"`
	MediumInclusive bool    `json:"mediumInclusive"`
	High            float64 `json:"high"`
}

// EffectiveCutoffs are the boundaries ClassifySeverity applies. High is always strict.
var EffectiveCutoffs = map[domain.Metric]Cutoff{
	domain.MetricTemperature: {Medium: 100, High: 150},
	domain.MetricSeismic:     {Medium: 3, MediumInclusive: true, High: 5},
	domain.MetricCO2:         {Medium: 1000, High: 5000},
	domain.MetricSO2:         {Medium: 500, High: 1000},
}

// ClassifySeverity maps a reading to a severity. Unknown metrics and
// anything below the medium cutoff (including negative noise) are low.
func ClassifySeverity(kind domain.Metric, value float64) domain.AlertSeverity {
	c, ok := EffectiveCutoffs[kind]
	if !ok {
		return domain.SeverityLow
	}

	switch {
	case value > c.High:
		return domain.SeverityHigh
	case value > c.Medium, c.MediumInclusive && value == c.Medium:
		return domain.SeverityMedium
	default:
		return domain.SeverityLow
	}
}
