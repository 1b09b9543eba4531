package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// minJobTimeout leaves room for slow broadcast transports on short intervals
const minJobTimeout = 5 * time.Second

// Sampler periodically polls the sensors into the risk history and evaluates
// the automated message rules against the fresh readings
type Sampler struct {
	cron      *cron.Cron
	risk      *RiskService
	broadcast *BroadcastService
	timeout   time.Duration
}

// NewSampler schedules one sampling job every interval
func NewSampler(interval time.Duration, risk *RiskService, broadcast *BroadcastService) (*Sampler, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("sampler: interval must be positive, got %s", interval)
	}

	timeout := interval
	if timeout < minJobTimeout {
		timeout = minJobTimeout
	}

	s := &Sampler{
		cron:      cron.New(cron.WithChain(cron.Recover(cron.DefaultLogger), cron.SkipIfStillRunning(cron.DefaultLogger))),
		risk:      risk,
		broadcast: broadcast,
		timeout:   timeout,
	}
	if _, err := s.cron.AddFunc(fmt.Sprintf("@every %s", interval), s.run); err != nil {
		return nil, fmt.Errorf("sampler: failed to schedule: %w", err)
	}
	return s, nil
}

func (s *Sampler) run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	if err := s.Tick(ctx); err != nil {
		log.Printf("Sampling error: %v", err)
	}
}

// Tick samples once and evaluates rules
func (s *Sampler) Tick(ctx context.Context) error {
	if _, err := s.risk.Sample(ctx); err != nil {
		return err
	}
	if s.broadcast == nil {
		return nil
	}
	if _, err := s.broadcast.EvaluateRules(ctx, s.risk.LatestReadings()); err != nil {
		return err
	}
	return nil
}

// Start begins scheduling in the background
func (s *Sampler) Start() {
	s.cron.Start()
	log.Println("Sampler started")
}

// Stop halts scheduling and waits for a running job to finish
func (s *Sampler) Stop() {
	<-s.cron.Stop().Done()
	log.Println("Sampler stopped")
}
