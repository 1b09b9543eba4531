package domain

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrRuleNotFound is returned when no automated rule exists for a metric
	ErrRuleNotFound = errors.New("automated rule not found")

	// ErrUnknownDevice is returned for device IDs outside the deployment
	ErrUnknownDevice = errors.New("unknown device")

	// ErrInvalidInput wraps request validation failures
	ErrInvalidInput = errors.New("invalid input")
)

// GaugeReading is the live danger gauge value derived from the tag classifier
type GaugeReading struct {
	Risk       float64          `json:"risk"`
	Confidence float64          `json:"confidence"`
	History    []HistoricalRisk `json:"history"`
}

// RiskSnapshot is the latest aggregated risk and its short history
type RiskSnapshot struct {
	Current   RiskResult         `json:"current"`
	Baselines map[Metric]float64 `json:"baselines"`
	History   []HistoricalRisk   `json:"history"`
	UpdatedAt time.Time          `json:"updatedAt"`
}

// DashboardData aggregates all live monitoring data
type DashboardData struct {
	Alerts    []Alert        `json:"alerts"`
	Risk      RiskSnapshot   `json:"risk"`
	Gauge     GaugeReading   `json:"gauge"`
	Devices   []DeviceStatus `json:"devices"`
	Timestamp time.Time      `json:"timestamp"`
}

// PredictionRequest is sent to the ML service
type PredictionRequest struct {
	Timeframe  string             `json:"timeframe"`
	Hours      int                `json:"hours"`
	Risk       float64            `json:"risk"`
	Confidence float64            `json:"confidence"`
	Factors    map[Metric]float64 `json:"factors"`
}

// PredictionResponse is the projected risk for a timeframe
type PredictionResponse struct {
	Timeframe     string  `json:"timeframe"`
	ProjectedRisk float64 `json:"projected_risk"`
	Confidence    float64 `json:"confidence"`
	DominantTrend Trend   `json:"dominant_trend"`
	Reasoning     string  `json:"reasoning"`
	IsMock        bool    `json:"is_mock"`
}

// DataRepository defines the interface for data persistence
// This follows the Dependency Inversion Principle - domain defines the interface
type DataRepository interface {
	// SaveRiskSnapshot persists one aggregated risk point
	SaveRiskSnapshot(ctx context.Context, point HistoricalRisk) error

	// SaveAlerts persists the alert cards of one refresh
	SaveAlerts(ctx context.Context, alerts []Alert) error

	// SaveBroadcast persists a sent broadcast
	SaveBroadcast(ctx context.Context, msg BroadcastMessage) error

	// SavePredictionLog persists a prediction request/response
	SavePredictionLog(ctx context.Context, req PredictionRequest, resp PredictionResponse) error

	// GetRiskHistory retrieves persisted risk points
	GetRiskHistory(ctx context.Context, from, to time.Time) ([]HistoricalRisk, error)

	// Health checks database connectivity
	Health(ctx context.Context) error
}

// RuleStore holds automated message rules keyed by metric.
// Implementations are created at process start and only cleared through Delete.
type RuleStore interface {
	Put(ctx context.Context, rule AutomatedMessageRule) error
	Get(ctx context.Context, metric Metric) (AutomatedMessageRule, error)
	Delete(ctx context.Context, metric Metric) error
	List(ctx context.Context) (map[Metric]AutomatedMessageRule, error)
}
