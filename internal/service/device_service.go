package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/volcanowatch/backend/internal/domain"
	"github.com/volcanowatch/backend/pkg/utils"
)

// DeviceSort selects the device list ordering
type DeviceSort string

const (
	SortByID          DeviceSort = "id"
	SortByBattery     DeviceSort = "battery"
	SortByTemperature DeviceSort = "temperature"
)

// DeviceService builds the device list shown on the devices page and map
type DeviceService struct {
	sensors *SensorService
}

// NewDeviceService creates a new device service
func NewDeviceService(sensors *SensorService) *DeviceService {
	return &DeviceService{sensors: sensors}
}

// ListDevices returns the status of every device. desc reverses the order.
func (s *DeviceService) ListDevices(ctx context.Context, by DeviceSort, desc bool) ([]domain.DeviceStatus, error) {
	switch by {
	case "", SortByID, SortByBattery, SortByTemperature:
	default:
		return nil, fmt.Errorf("devices: sort %q: %w", by, domain.ErrInvalidInput)
	}

	center := DeviceLocations[CenterDeviceID]
	devices := make([]domain.DeviceStatus, 0, len(DeviceLocations))

	for _, id := range s.sensors.DeviceIDs() {
		readings, err := s.sensors.DeviceReadings(ctx, id, []domain.SensorType{
			domain.SensorLocation,
			domain.SensorBattery,
			domain.SensorTemperature,
		})
		if err != nil {
			return nil, fmt.Errorf("devices: failed to read device %s: %w", id, err)
		}

		pos := readings[domain.SensorLocation].(domain.GeoPosition)
		devices = append(devices, domain.DeviceStatus{
			DeviceID:         id,
			Position:         pos,
			BatteryLevel:     utils.RoundTo(readings[domain.SensorBattery].(float64), 1),
			Temperature:      utils.RoundTo(readings[domain.SensorTemperature].(float64), 1),
			DistanceFromVent: utils.RoundTo(utils.Haversine(center.Latitude, center.Longitude, pos.Latitude, pos.Longitude), 3),
		})
	}

	sort.SliceStable(devices, func(i, j int) bool {
		a, b := devices[i], devices[j]
		if desc {
			a, b = b, a
		}
		switch by {
		case SortByBattery:
			return a.BatteryLevel < b.BatteryLevel
		case SortByTemperature:
			return a.Temperature < b.Temperature
		default:
			return a.DeviceID < b.DeviceID
		}
	})

	return devices, nil
}
