package service

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/volcanowatch/backend/internal/domain"
	"github.com/volcanowatch/backend/pkg/utils"
)

// CenterDeviceID is the device sitting closest to the vent
const CenterDeviceID = "5"

// DeviceLocations are the fixed positions of the field devices
var DeviceLocations = map[string]domain.GeoPosition{
	"1": {Latitude: 45.4847, Longitude: 9.2320, Altitude: 150}, // North
	"2": {Latitude: 45.4713, Longitude: 9.2320, Altitude: 150}, // South
	"3": {Latitude: 45.4780, Longitude: 9.2420, Altitude: 150}, // East
	"4": {Latitude: 45.4780, Longitude: 9.2220, Altitude: 150}, // West
	"5": {Latitude: 45.4780, Longitude: 9.2320, Altitude: 150}, // Center
}

// sensorRanges bound the mock values per sensor type
var sensorRanges = map[domain.SensorType][2]float64{
	domain.SensorBattery:       {60, 100},
	domain.SensorAccelerationX: {-1000, 1000},
	domain.SensorAccelerationY: {-1000, 1000},
	domain.SensorAccelerationZ: {-1000, 1000},
	domain.SensorVibration:     {0, 5},
	domain.SensorTemperature:   {15, 35},
	domain.SensorPressure:      {980, 1020},
	domain.SensorCO2:           {400, 2000},
	domain.SensorSO2:           {0, 500},
	domain.SensorTagClass:      {0, 2},
}

const (
	locationJitterDeg = 0.0002
	altitudeJitterM   = 1.0
	heatmapJitterDeg  = 0.001
)

// SensorService generates mock readings for the field devices
type SensorService struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewSensorService creates a new sensor service. A nil rng seeds from the clock.
func NewSensorService(rng *rand.Rand) *SensorService {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &SensorService{rng: rng}
}

// DeviceIDs returns the known device IDs in ascending order
func (s *SensorService) DeviceIDs() []string {
	ids := make([]string, 0, len(DeviceLocations))
	for id := range DeviceLocations {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (s *SensorService) randFloat() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Float64()
}

func (s *SensorService) randIntn(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Intn(n)
}

func (s *SensorService) inRange(min, max float64) float64 {
	return utils.Lerp(min, max, s.randFloat())
}

// Value returns one numeric reading of sensorType from a device
func (s *SensorService) Value(deviceID string, sensorType domain.SensorType) (float64, error) {
	if _, ok := DeviceLocations[deviceID]; !ok {
		return 0, fmt.Errorf("sensor: device %q: %w", deviceID, domain.ErrUnknownDevice)
	}
	r, ok := sensorRanges[sensorType]
	if !ok {
		return 0, fmt.Errorf("sensor: %q is not a numeric sensor: %w", sensorType, domain.ErrInvalidInput)
	}
	return s.inRange(r[0], r[1]), nil
}

// Location returns the device position with a small jitter so overlapping markers stay visible
func (s *SensorService) Location(deviceID string) (domain.GeoPosition, error) {
	pos, ok := DeviceLocations[deviceID]
	if !ok {
		return domain.GeoPosition{}, fmt.Errorf("sensor: device %q: %w", deviceID, domain.ErrUnknownDevice)
	}
	return domain.GeoPosition{
		Latitude:  pos.Latitude + s.inRange(-locationJitterDeg, locationJitterDeg),
		Longitude: pos.Longitude + s.inRange(-locationJitterDeg, locationJitterDeg),
		Altitude:  pos.Altitude + s.inRange(-altitudeJitterM, altitudeJitterM),
	}, nil
}

// DeviceReadings returns the latest value for each requested type on one device.
// Location readings are returned as domain.GeoPosition, everything else as float64.
func (s *SensorService) DeviceReadings(ctx context.Context, deviceID string, types []domain.SensorType) (map[domain.SensorType]interface{}, error) {
	if _, ok := DeviceLocations[deviceID]; !ok {
		return nil, fmt.Errorf("sensor: device %q: %w", deviceID, domain.ErrUnknownDevice)
	}

	out := make(map[domain.SensorType]interface{}, len(types))
	for _, t := range types {
		if t == domain.SensorLocation {
			pos, err := s.Location(deviceID)
			if err != nil {
				return nil, err
			}
			out[t] = pos
			continue
		}
		v, err := s.Value(deviceID, t)
		if err != nil {
			return nil, err
		}
		out[t] = v
	}
	return out, nil
}

// CalculateCollectiveStats reduces per-device values to average, peak and rms
func CalculateCollectiveStats(values []float64) domain.AggregateMetrics {
	if len(values) == 0 {
		return domain.AggregateMetrics{}
	}
	avg := utils.Mean(values)
	peak := utils.Max(values)
	rms := utils.RMS(values)
	return domain.AggregateMetrics{Average: &avg, Peak: &peak, RMS: &rms}
}

// CollectiveStats samples every device for each type and aggregates the readings.
// Only the requested aggregation is populated unless aggregation is "all".
func (s *SensorService) CollectiveStats(
	ctx context.Context,
	types []domain.SensorType,
	aggregation domain.AggregationType,
) (map[domain.SensorType]domain.CollectiveStats, error) {
	if !aggregation.Valid() {
		return nil, fmt.Errorf("sensor: aggregation %q: %w", aggregation, domain.ErrInvalidInput)
	}

	devices := s.DeviceIDs()
	out := make(map[domain.SensorType]domain.CollectiveStats, len(types))

	for _, t := range types {
		values := make([]float64, 0, len(devices))
		if _, numeric := sensorRanges[t]; numeric {
			for _, id := range devices {
				v, err := s.Value(id, t)
				if err != nil {
					return nil, err
				}
				values = append(values, v)
			}
		}

		out[t] = domain.CollectiveStats{
			Timestamp:    time.Now(),
			Metrics:      selectAggregation(CalculateCollectiveStats(values), aggregation),
			DeviceCount:  len(devices),
			ReadingCount: len(values),
		}
	}

	return out, nil
}

func selectAggregation(m domain.AggregateMetrics, aggregation domain.AggregationType) domain.AggregateMetrics {
	switch aggregation {
	case domain.AggregationAverage:
		return domain.AggregateMetrics{Average: m.Average}
	case domain.AggregationPeak:
		return domain.AggregateMetrics{Peak: m.Peak}
	case domain.AggregationRMS:
		return domain.AggregateMetrics{RMS: m.RMS}
	default:
		return m
	}
}

// Averages returns the cross-device average of each type, skipping types without readings
func (s *SensorService) Averages(ctx context.Context, types ...domain.SensorType) (map[domain.SensorType]float64, error) {
	stats, err := s.CollectiveStats(ctx, types, domain.AggregationAverage)
	if err != nil {
		return nil, err
	}
	out := make(map[domain.SensorType]float64, len(stats))
	for t, st := range stats {
		if st.Metrics.Average != nil {
			out[t] = *st.Metrics.Average
		}
	}
	return out, nil
}

// Heatmap generates weighted points clustered around each device
func (s *SensorService) Heatmap(ctx context.Context, metric domain.HeatmapMetric) ([]domain.HeatmapPoint, error) {
	if !metric.Valid() {
		return nil, fmt.Errorf("sensor: heatmap metric %q: %w", metric, domain.ErrInvalidInput)
	}
	r := sensorRanges[domain.SensorType(metric)]
	span := r[1] - r[0]

	points := make([]domain.HeatmapPoint, 0, 50)
	for _, id := range s.DeviceIDs() {
		pos := DeviceLocations[id]
		v, err := s.Value(id, domain.SensorType(metric))
		if err != nil {
			return nil, err
		}
		weight := (v - r[0]) / span

		numPoints := 5 + s.randIntn(8)
		for i := 0; i < numPoints; i++ {
			intensity := utils.Clamp(weight*(0.5+s.randFloat()*0.5), 0, 1)
			points = append(points, domain.HeatmapPoint{
				Position: domain.GeoPosition{
					Latitude:  pos.Latitude + s.inRange(-heatmapJitterDeg, heatmapJitterDeg),
					Longitude: pos.Longitude + s.inRange(-heatmapJitterDeg, heatmapJitterDeg),
					Altitude:  pos.Altitude,
				},
				Intensity: utils.RoundTo(intensity, 2),
				Metric:    metric,
			})
		}
	}

	return points, nil
}
