package service

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/volcanowatch/backend/internal/domain"
)

// DashboardService aggregates all live data
type DashboardService struct {
	alerts  *AlertService
	risk    *RiskService
	devices *DeviceService
	repo    DataRepository

	wgBg sync.WaitGroup // tracks background goroutines for graceful shutdown
}

// NewDashboardService creates a new dashboard service
func NewDashboardService(
	alerts *AlertService,
	risk *RiskService,
	devices *DeviceService,
	repo DataRepository,
) *DashboardService {
	return &DashboardService{
		alerts:  alerts,
		risk:    risk,
		devices: devices,
		repo:    repo,
	}
}

// PersistPrediction logs a served prediction asynchronously.
// The write is tracked like the dashboard saves so shutdown waits for it.
func (s *DashboardService) PersistPrediction(req domain.PredictionRequest, resp domain.PredictionResponse) {
	s.wgBg.Add(1)
	go func() {
		defer s.wgBg.Done()
		bgCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.repo.SavePredictionLog(bgCtx, req, resp); err != nil {
			log.Printf("Failed to save prediction log: %v", err)
		}
	}()
}

// WaitBackground blocks until all background save goroutines complete.
// Call during graceful shutdown to avoid dropped writes.
func (s *DashboardService) WaitBackground() {
	s.wgBg.Wait()
}

// GetDashboardData fetches all live data concurrently using goroutines
func (s *DashboardService) GetDashboardData(ctx context.Context) (domain.DashboardData, error) {
	var (
		alerts  []domain.Alert
		snap    domain.RiskSnapshot
		devices []domain.DeviceStatus
		wg      sync.WaitGroup
		mu      sync.Mutex
		errs    []error
	)

	// Fetch alerts concurrently
	wg.Add(1)
	go func() {
		defer wg.Done()
		a, err := s.alerts.Alerts(ctx)
		mu.Lock()
		if err != nil {
			errs = append(errs, err)
		} else {
			alerts = a
		}
		mu.Unlock()
	}()

	// Fetch risk concurrently, sampling once if the sampler has not run yet
	wg.Add(1)
	go func() {
		defer wg.Done()
		r := s.risk.Snapshot()
		var err error
		if r.UpdatedAt.IsZero() {
			r, err = s.risk.Sample(ctx)
		}
		mu.Lock()
		if err != nil {
			errs = append(errs, err)
		} else {
			snap = r
		}
		mu.Unlock()
	}()

	// Fetch devices concurrently
	wg.Add(1)
	go func() {
		defer wg.Done()
		d, err := s.devices.ListDevices(ctx, SortByID, false)
		mu.Lock()
		if err != nil {
			errs = append(errs, err)
		} else {
			devices = d
		}
		mu.Unlock()
	}()

	wg.Wait()

	// Log any errors that occurred
	for _, err := range errs {
		log.Printf("Dashboard data fetch error: %v", err)
	}

	// Persist data to database asynchronously (tracked for graceful shutdown)
	s.wgBg.Add(1)
	go func() {
		defer s.wgBg.Done()
		bgCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if len(snap.History) > 0 {
			if err := s.repo.SaveRiskSnapshot(bgCtx, snap.History[len(snap.History)-1]); err != nil {
				log.Printf("Failed to save risk snapshot: %v", err)
			}
		}
		if len(alerts) > 0 {
			if err := s.repo.SaveAlerts(bgCtx, alerts); err != nil {
				log.Printf("Failed to save alerts: %v", err)
			}
		}
	}()

	// Even with errors, return what we have
	return domain.DashboardData{
		Alerts:    alerts,
		Risk:      snap,
		Gauge:     s.risk.Gauge(),
		Devices:   devices,
		Timestamp: time.Now(),
	}, nil
}
