package domain

import "time"

// Metric is a monitored quantity that can raise an alert
type Metric string

const (
	MetricTemperature Metric = "temperature"
	MetricSeismic     Metric = "seismic"
	MetricGas         Metric = "gas"
	MetricCO2         Metric = "co2"
	MetricSO2         Metric = "so2"
)

// RiskMetrics are the four metrics that feed the risk index
var RiskMetrics = []Metric{MetricCO2, MetricSeismic, MetricSO2, MetricTemperature}

// IsRiskMetric reports whether m contributes to the risk index
func (m Metric) IsRiskMetric() bool {
	for _, rm := range RiskMetrics {
		if rm == m {
			return true
		}
	}
	return false
}

// AlertSeverity is the three-level classification of a single reading
type AlertSeverity string

const (
	SeverityLow    AlertSeverity = "low"
	SeverityMedium AlertSeverity = "medium"
	SeverityHigh   AlertSeverity = "high"
)

// Alert is one alert card
type Alert struct {
	Type              Metric        `json:"type"`
	Value             float64       `json:"value"`
	Description       string        `json:"description,omitempty"`
	Unit              string        `json:"unit"`
	Severity          AlertSeverity `json:"severity"`
	PreviousValue     *float64      `json:"previousValue,omitempty"`
	Delta             *float64      `json:"delta,omitempty"`
	Trend             Trend         `json:"trend"`
	IsRiskContributor bool          `json:"isRiskContributor"`
	Timestamp         time.Time     `json:"timestamp"`
}
