package models

import (
	"time"

	"github.com/guregu/null"
)

// WeatherRecord is one hourly observation at the reference location
type WeatherRecord struct {
	Timestamp       time.Time  `json:"timestamp"`
	TemperatureC    null.Float `json:"temperature_c"`
	PrecipitationMM null.Float `json:"precipitation_mm"`
	RainMM          null.Float `json:"rain_mm"`
	WindSpeedKmh    null.Float `json:"wind_speed_kmh"`
	IsRaining       bool       `json:"is_raining"`
}

// WeatherFlags are the derived threshold indicators of a weather record
type WeatherFlags struct {
	IsRaining bool `json:"is_raining"`
	IsCold    bool `json:"is_cold"`
	IsHot     bool `json:"is_hot"`
	IsWindy   bool `json:"is_windy"`
}
