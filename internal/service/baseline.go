package service

import (
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v2"

	"github.com/volcanowatch/backend/internal/domain"
)

// DefaultBaselines are the reference "normal" values used when no file is configured
var DefaultBaselines = map[domain.Metric]float64{
	domain.MetricCO2:         1000,
	domain.MetricSeismic:     2.0,
	domain.MetricSO2:         200,
	domain.MetricTemperature: 50,
}

// baselineFile is the on-disk YAML layout
type baselineFile struct {
	Baselines map[string]float64 `yaml:"baselines"`
}

// BaselineSource supplies the per-metric baselines used by the risk aggregator
type BaselineSource struct {
	mu     sync.RWMutex
	values map[domain.Metric]float64
}

// NewBaselineSource creates a source seeded with DefaultBaselines
func NewBaselineSource() *BaselineSource {
	values := make(map[domain.Metric]float64, len(DefaultBaselines))
	for k, v := range DefaultBaselines {
		values[k] = v
	}
	return &BaselineSource{values: values}
}

// LoadBaselineFile reads a YAML file of the form
//
//	baselines:
//	  co2: 950
//	  seismic: 1.8
//
// and applies it over the defaults.
func LoadBaselineFile(path string) (*BaselineSource, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("baseline: failed to read %s: %w", path, err)
	}
	return ParseBaselines(raw)
}

// ParseBaselines applies YAML baseline overrides over the defaults
func ParseBaselines(raw []byte) (*BaselineSource, error) {
	var f baselineFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("baseline: failed to parse: %w", err)
	}

	src := NewBaselineSource()
	updates := make(map[domain.Metric]float64, len(f.Baselines))
	for k, v := range f.Baselines {
		updates[domain.Metric(k)] = v
	}
	if err := src.Set(updates); err != nil {
		return nil, err
	}
	return src, nil
}

// Set replaces baselines for the given metrics. Values must be positive
// and metrics must feed the risk index; nothing is applied on error.
func (b *BaselineSource) Set(updates map[domain.Metric]float64) error {
	for metric, v := range updates {
		if !metric.IsRiskMetric() {
			return fmt.Errorf("baseline: unknown metric %q: %w", metric, domain.ErrInvalidInput)
		}
		if v <= 0 {
			return fmt.Errorf("baseline: %s must be positive, got %v: %w", metric, v, domain.ErrInvalidInput)
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for metric, v := range updates {
		b.values[metric] = v
	}
	return nil
}

// Snapshot returns a copy of the current baselines
func (b *BaselineSource) Snapshot() map[domain.Metric]float64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make(map[domain.Metric]float64, len(b.values))
	for k, v := range b.values {
		out[k] = v
	}
	return out
}
