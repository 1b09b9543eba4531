package domain

import "time"

// Reading is one scalar measurement of one metric
type Reading struct {
	Value     float64   `json:"value"`
	Timestamp time.Time `json:"timestamp"`
}

// Trend is the direction of recent change in a metric
type Trend string

const (
	TrendIncreasing Trend = "increasing"
	TrendDecreasing Trend = "decreasing"
	TrendStable     Trend = "stable"
)

// RiskFactor is the per-metric contribution computed during aggregation
type RiskFactor struct {
	NormalizedDeviation float64 `json:"value"`
	Confidence          float64 `json:"confidence"`
	Trend               Trend   `json:"trend"`
	Baseline            float64 `json:"baseline"`
}

// RiskResult is the output of one aggregation pass
type RiskResult struct {
	Risk       float64               `json:"risk"`
	Confidence float64               `json:"confidence"`
	Factors    map[Metric]RiskFactor `json:"factors"`
}

// HistoricalRisk is a timestamped risk point kept for the history graph
type HistoricalRisk struct {
	Timestamp  time.Time          `json:"timestamp"`
	Risk       float64            `json:"risk"`
	Confidence float64            `json:"confidence"`
	Factors    map[Metric]float64 `json:"factors,omitempty"`
}

// SeismicIntensity is a discrete intensity with its qualitative label
type SeismicIntensity struct {
	Intensity   float64 `json:"intensity"`
	Description string  `json:"description"`
}
