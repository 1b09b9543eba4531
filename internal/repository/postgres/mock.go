package postgres

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/volcanowatch/backend/internal/domain"
)

// mockHistoryLimit bounds the risk points kept in memory
const mockHistoryLimit = 1000

// MockRepository implements domain.DataRepository in memory for testing/demo mode
type MockRepository struct {
	mu          sync.RWMutex
	risk        []domain.HistoricalRisk
	alerts      []domain.Alert
	broadcasts  []domain.BroadcastMessage
	predictions []domain.PredictionResponse
}

// NewMockRepository creates a new mock repository
func NewMockRepository() *MockRepository {
	return &MockRepository{}
}

var _ domain.DataRepository = (*MockRepository)(nil)

// SaveRiskSnapshot keeps the point in memory
func (r *MockRepository) SaveRiskSnapshot(ctx context.Context, point domain.HistoricalRisk) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.risk = append(r.risk, point)
	if len(r.risk) > mockHistoryLimit {
		r.risk = r.risk[len(r.risk)-mockHistoryLimit:]
	}
	return nil
}

// SaveAlerts keeps the alerts in memory
func (r *MockRepository) SaveAlerts(ctx context.Context, alerts []domain.Alert) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.alerts = append(r.alerts, alerts...)
	if len(r.alerts) > mockHistoryLimit {
		r.alerts = r.alerts[len(r.alerts)-mockHistoryLimit:]
	}
	return nil
}

// SaveBroadcast keeps the message in memory
func (r *MockRepository) SaveBroadcast(ctx context.Context, msg domain.BroadcastMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.broadcasts = append(r.broadcasts, msg)
	return nil
}

// SavePredictionLog keeps the response in memory
func (r *MockRepository) SavePredictionLog(ctx context.Context, req domain.PredictionRequest, resp domain.PredictionResponse) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.predictions = append(r.predictions, resp)
	return nil
}

// GetRiskHistory returns stored points within [from, to], newest first
func (r *MockRepository) GetRiskHistory(ctx context.Context, from, to time.Time) ([]domain.HistoricalRisk, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []domain.HistoricalRisk
	for _, p := range r.risk {
		if !p.Timestamp.Before(from) && !p.Timestamp.After(to) {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	return out, nil
}

// Broadcasts returns a copy of the stored broadcasts
func (r *MockRepository) Broadcasts() []domain.BroadcastMessage {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]domain.BroadcastMessage(nil), r.broadcasts...)
}

// Alerts returns a copy of the stored alerts
func (r *MockRepository) Alerts() []domain.Alert {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]domain.Alert(nil), r.alerts...)
}

// Predictions returns a copy of the stored prediction responses
func (r *MockRepository) Predictions() []domain.PredictionResponse {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]domain.PredictionResponse(nil), r.predictions...)
}

// Health always returns nil in mock mode
func (r *MockRepository) Health(ctx context.Context) error {
	return nil
}
