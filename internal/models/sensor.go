package models

import (
	"time"

	"github.com/paulmach/orb"
)

// Sensor is a physical bike counting device
type Sensor struct {
	ID       string     `json:"id"`
	Name     string     `json:"name"`
	Location *orb.Point `json:"location,omitempty"` // lon, lat; nil when the provider has no position
	FlowIDs  []string   `json:"flows,omitempty"`
	Total    int64      `json:"total"`
	LastDay  int64      `json:"last_day"`
}

// SensorMatch associates a sensor with its nearest edge for one pipeline run
type SensorMatch struct {
	SensorID   string  `json:"sensor_id"`
	SensorName string  `json:"sensor_name"`
	EdgeID     int64   `json:"edge_id"`
	DistanceM  float64 `json:"distance_m"` // rounded to 0.1m
}

// ExcludedSensor records why a sensor did not enter the training universe
type ExcludedSensor struct {
	SensorID  string  `json:"sensor_id"`
	Reason    string  `json:"reason"`
	DistanceM float64 `json:"distance_m,omitempty"`
}

// Exclusion reasons
const (
	ExclusionNoLocation      = "no_location"
	ExclusionInvalidLocation = "invalid_location"
	ExclusionTooFar          = "too_far"
	ExclusionNoEdges         = "no_edges"
)

// CountRecord is one hourly bike count of one sensor
type CountRecord struct {
	CounterID string    `json:"counter_id"`
	Timestamp time.Time `json:"timestamp"`
	Count     int64     `json:"count"`
}
