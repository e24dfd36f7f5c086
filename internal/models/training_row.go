package models

import (
	"time"

	"github.com/guregu/null"
)

// TrainingRow is one (edge, timestamp) cell of the dense training grid
type TrainingRow struct {
	EdgeID    int64     `json:"edge_id" db:"edge_id"`
	Timestamp time.Time `json:"timestamp" db:"timestamp"`

	// Calendar
	Hour              int  `json:"hour" db:"hour"`
	DayOfWeek         int  `json:"day_of_week" db:"day_of_week"` // 0=Monday
	IsWeekend         bool `json:"is_weekend" db:"is_weekend"`
	IsRushHourMorning bool `json:"is_rush_hour_morning" db:"is_rush_hour_morning"`
	IsRushHourEvening bool `json:"is_rush_hour_evening" db:"is_rush_hour_evening"`

	// Weather, null when no record exists at or before the timestamp
	TemperatureC    null.Float `json:"temperature_c" db:"temperature_c"`
	PrecipitationMM null.Float `json:"precipitation_mm" db:"precipitation_mm"`
	WindSpeedKmh    null.Float `json:"wind_speed_kmh" db:"wind_speed_kmh"`
	IsRaining       null.Bool  `json:"is_raining" db:"is_raining"`
	IsCold          null.Bool  `json:"is_cold" db:"is_cold"`
	IsHot           null.Bool  `json:"is_hot" db:"is_hot"`
	IsWindy         null.Bool  `json:"is_windy" db:"is_windy"`

	// Static edge features
	HighwayType          string      `json:"highway_type" db:"highway_type"`
	RoadCategory         string      `json:"road_category" db:"road_category"`
	Lanes                int         `json:"lanes" db:"lanes"`
	MaxSpeedKmh          int         `json:"maxspeed_kmh" db:"maxspeed_kmh"`
	HasCycleway          bool        `json:"has_cycleway" db:"has_cycleway"`
	HasDedicatedBikeLane bool        `json:"has_dedicated_bike_lane" db:"has_dedicated_bike_lane"`
	BikeLaneDistanceM    float64     `json:"bike_lane_distance_m" db:"bike_lane_distance_m"`
	SurfaceQuality       string      `json:"surface_quality" db:"surface_quality"`
	IsLit                bool        `json:"is_lit" db:"is_lit"`
	EdgeLengthM          float64     `json:"edge_length_m" db:"edge_length_m"`
	DistanceToCenterKm   float64     `json:"distance_to_center_km" db:"distance_to_center_km"`
	Orientation          Orientation `json:"orientation" db:"orientation"`

	// Target, null when no count was observed for this exact key
	BikeCount null.Int `json:"bike_count" db:"bike_count"`

	// Positional lag features over the per-edge ordered sequence
	BikeCountLag1h     null.Int   `json:"bike_count_lag_1h" db:"bike_count_lag_1h"`
	BikeCountLag24h    null.Int   `json:"bike_count_lag_24h" db:"bike_count_lag_24h"`
	BikeCountRolling7d null.Float `json:"bike_count_rolling_7d" db:"bike_count_rolling_7d"`
}

// TrainingColumns is the column order of the persisted training table
var TrainingColumns = []string{
	"edge_id", "timestamp",
	"hour", "day_of_week", "is_weekend", "is_rush_hour_morning", "is_rush_hour_evening",
	"temperature_c", "precipitation_mm", "wind_speed_kmh",
	"is_raining", "is_cold", "is_hot", "is_windy",
	"highway_type", "road_category", "lanes", "maxspeed_kmh", "has_cycleway",
	"has_dedicated_bike_lane", "bike_lane_distance_m", "surface_quality", "is_lit",
	"edge_length_m", "distance_to_center_km", "orientation",
	"bike_count",
	"bike_count_lag_1h", "bike_count_lag_24h", "bike_count_rolling_7d",
}

// Columns that identify a row or hold the target and never enter the feature set
var NonFeatureColumns = []string{"edge_id", "timestamp", "bike_count"}

// CategoricalColumns are label-encoded with the persisted category schema
var CategoricalColumns = []string{
	"highway_type", "road_category", "cycleway_type",
	"surface_quality", "bicycle_access", "orientation",
}
