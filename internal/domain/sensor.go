package domain

import "time"

// SensorType identifies a raw sensor channel on a field device
type SensorType string

const (
	SensorTemperature   SensorType = "temperature"
	SensorPressure      SensorType = "pressure"
	SensorBattery       SensorType = "battery"
	SensorVibration     SensorType = "vibration"
	SensorAccelerationX SensorType = "acceleration_x"
	SensorAccelerationY SensorType = "acceleration_y"
	SensorAccelerationZ SensorType = "acceleration_z"
	SensorCO2           SensorType = "co2"
	SensorSO2           SensorType = "so2"
	SensorLocation      SensorType = "location"
	SensorTagClass      SensorType = "tagClass"
)

// QueryableSensorTypes are the types accepted by the collective sensor endpoint
var QueryableSensorTypes = []SensorType{
	SensorBattery,
	SensorAccelerationX,
	SensorAccelerationY,
	SensorAccelerationZ,
	SensorVibration,
	SensorTemperature,
	SensorPressure,
	SensorLocation,
	SensorCO2,
	SensorSO2,
}

// IsQueryable reports whether t can be requested by clients
func (t SensorType) IsQueryable() bool {
	for _, q := range QueryableSensorTypes {
		if q == t {
			return true
		}
	}
	return false
}

// AggregationType selects how per-device values are reduced
type AggregationType string

const (
	AggregationAverage AggregationType = "average"
	AggregationPeak    AggregationType = "peak"
	AggregationRMS     AggregationType = "rms"
	AggregationAll     AggregationType = "all"
)

// Valid reports whether a is a known aggregation
func (a AggregationType) Valid() bool {
	switch a {
	case AggregationAverage, AggregationPeak, AggregationRMS, AggregationAll:
		return true
	}
	return false
}

// GeoPosition is a WGS84 position with altitude in meters
type GeoPosition struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Altitude  float64 `json:"altitude"`
}

// AggregateMetrics holds the reduced values for one sensor type.
// Nil means no numeric readings were available.
type AggregateMetrics struct {
	Average *float64 `json:"average"`
	Peak    *float64 `json:"peak"`
	RMS     *float64 `json:"rms"`
}

// CollectiveStats summarises one sensor type across all devices
type CollectiveStats struct {
	Timestamp    time.Time        `json:"timestamp"`
	Metrics      AggregateMetrics `json:"metrics"`
	DeviceCount  int              `json:"deviceCount"`
	ReadingCount int              `json:"readingCount"`
}

// DeviceStatus is the device list entry shown on the map and devices page
type DeviceStatus struct {
	DeviceID         string      `json:"deviceId"`
	Position         GeoPosition `json:"position"`
	BatteryLevel     float64     `json:"batteryLevel"`
	Temperature      float64     `json:"temperature"`
	DistanceFromVent float64     `json:"distanceFromCenterKm"`
}

// HeatmapMetric is a sensor type that can be rendered as a heatmap layer
type HeatmapMetric string

const (
	HeatmapTemperature HeatmapMetric = "temperature"
	HeatmapCO2         HeatmapMetric = "co2"
	HeatmapSO2         HeatmapMetric = "so2"
	HeatmapVibration   HeatmapMetric = "vibration"
	HeatmapPressure    HeatmapMetric = "pressure"
)

// Valid reports whether m is a known heatmap layer
func (m HeatmapMetric) Valid() bool {
	switch m {
	case HeatmapTemperature, HeatmapCO2, HeatmapSO2, HeatmapVibration, HeatmapPressure:
		return true
	}
	return false
}

// HeatmapPoint represents a single weighted point for map visualization
type HeatmapPoint struct {
	Position  GeoPosition   `json:"position"`
	Intensity float64       `json:"intensity"`
	Metric    HeatmapMetric `json:"metric"`
}
