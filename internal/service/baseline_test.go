package service

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/volcanowatch/backend/internal/domain"
)

func TestBaselineDefaults(t *testing.T) {
	src := NewBaselineSource()
	assert.Equal(t, DefaultBaselines, src.Snapshot())

	// snapshots are copies
	snap := src.Snapshot()
	snap[domain.MetricCO2] = 1
	assert.Equal(t, 1000.0, src.Snapshot()[domain.MetricCO2])
}

func TestParseBaselines(t *testing.T) {
	src, err := ParseBaselines([]byte("baselines:\n  co2: 950\n  seismic: 1.8\n"))
	require.NoError(t, err)

	b := src.Snapshot()
	assert.Equal(t, 950.0, b[domain.MetricCO2])
	assert.Equal(t, 1.8, b[domain.MetricSeismic])
	assert.Equal(t, 200.0, b[domain.MetricSO2])
	assert.Equal(t, 50.0, b[domain.MetricTemperature])

	_, err = ParseBaselines([]byte("baselines:\n  lava: 3\n"))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = ParseBaselines([]byte("baselines: [unclosed"))
	assert.Error(t, err)
}

func TestLoadBaselineFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "baselines.yaml")
	require.NoError(t, os.WriteFile(path, []byte("baselines:\n  so2: 250\n"), 0o600))

	src, err := LoadBaselineFile(path)
	require.NoError(t, err)
	assert.Equal(t, 250.0, src.Snapshot()[domain.MetricSO2])

	_, err = LoadBaselineFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestBaselineSetIsAtomic(t *testing.T) {
	src := NewBaselineSource()

	err := src.Set(map[domain.Metric]float64{
		domain.MetricCO2: 1200,
		domain.MetricSO2: 0,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Equal(t, 1000.0, src.Snapshot()[domain.MetricCO2])

	err = src.Set(map[domain.Metric]float64{domain.MetricGas: 10})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	require.NoError(t, src.Set(map[domain.Metric]float64{domain.MetricCO2: 1200}))
	assert.Equal(t, 1200.0, src.Snapshot()[domain.MetricCO2])
}
