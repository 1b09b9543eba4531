package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/volcanowatch/backend/internal/domain"
	"github.com/volcanowatch/backend/internal/risk"
	"github.com/volcanowatch/backend/pkg/utils"
)

// PredictionTimeframes maps the supported horizons to hours
var PredictionTimeframes = map[string]int{
	"6h":  6,
	"12h": 12,
	"24h": 24,
	"48h": 48,
}

const (
	projectionStepHours = 6
	maxHorizonHours     = 48
)

// PredictionBridge handles communication with the Python ML service
type PredictionBridge struct {
	serviceURL string
	httpClient *http.Client
}

// NewPredictionBridge creates a new prediction bridge
func NewPredictionBridge(serviceURL string) *PredictionBridge {
	return &PredictionBridge{
		serviceURL: serviceURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// NewPredictionRequest builds the request body from the latest risk result
func NewPredictionRequest(timeframe string, current domain.RiskResult) (domain.PredictionRequest, error) {
	hours, ok := PredictionTimeframes[timeframe]
	if !ok {
		return domain.PredictionRequest{}, fmt.Errorf("prediction: timeframe %q: %w", timeframe, domain.ErrInvalidInput)
	}

	factors := make(map[domain.Metric]float64, len(current.Factors))
	for metric, f := range current.Factors {
		factors[metric] = f.NormalizedDeviation
	}

	return domain.PredictionRequest{
		Timeframe:  timeframe,
		Hours:      hours,
		Risk:       current.Risk,
		Confidence: current.Confidence,
		Factors:    factors,
	}, nil
}

// Predict calls the ML service and falls back to a local projection when it is unavailable
func (b *PredictionBridge) Predict(ctx context.Context, req domain.PredictionRequest, current domain.RiskResult) (domain.PredictionResponse, error) {
	if b.serviceURL == "" {
		return ProjectRisk(req, current), nil
	}

	body, err := json.Marshal(req)
	if err != nil {
		return domain.PredictionResponse{}, fmt.Errorf("prediction: failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/predict", b.serviceURL)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return domain.PredictionResponse{}, fmt.Errorf("prediction: failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := b.httpClient.Do(httpReq)
	if err != nil {
		return ProjectRisk(req, current), nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return ProjectRisk(req, current), nil
	}

	var prediction domain.PredictionResponse
	if err := json.NewDecoder(resp.Body).Decode(&prediction); err != nil {
		return domain.PredictionResponse{}, fmt.Errorf("prediction: failed to decode response: %w", err)
	}
	prediction.Timeframe = req.Timeframe

	return prediction, nil
}

// Health checks ML service connectivity
func (b *PredictionBridge) Health(ctx context.Context) error {
	url := fmt.Sprintf("%s/health", b.serviceURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("prediction: failed to create health request: %w", err)
	}

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("prediction: health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("prediction: health check returned status %d", resp.StatusCode)
	}

	return nil
}

// DominantTrend returns the trend carrying the most weight across the factors
func DominantTrend(factors map[domain.Metric]domain.RiskFactor) domain.Trend {
	weights := map[domain.Trend]float64{}
	for metric, f := range factors {
		weights[f.Trend] += risk.Weights[metric]
	}

	best := domain.TrendStable
	for _, t := range []domain.Trend{domain.TrendIncreasing, domain.TrendDecreasing} {
		if weights[t] > weights[best] {
			best = t
		}
	}
	return best
}

// ProjectRisk compounds the trend multiplier once per six hours of horizon.
// Confidence decays linearly to half its value at 48h.
func ProjectRisk(req domain.PredictionRequest, current domain.RiskResult) domain.PredictionResponse {
	trend := DominantTrend(current.Factors)
	steps := float64(req.Hours) / projectionStepHours
	projected := risk.TrendAdjusted(1, trend)

	return domain.PredictionResponse{
		Timeframe:     req.Timeframe,
		ProjectedRisk: utils.RoundTo(utils.Clamp(current.Risk*math.Pow(projected, steps), 0, 100), 2),
		Confidence:    utils.RoundTo(utils.Clamp(current.Confidence*(1-0.5*float64(req.Hours)/maxHorizonHours), 0, 1), 3),
		DominantTrend: trend,
		Reasoning:     fmt.Sprintf("Local projection of the %s trend over %d hours", trend, req.Hours),
		IsMock:        true,
	}
}
