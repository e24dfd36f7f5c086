package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the application configuration
type Config struct {
	Server   ServerConfig   `yaml:"server" validate:"required"`
	Database DatabaseConfig `yaml:"database" validate:"required"`
	Data     DataConfig     `yaml:"data" validate:"required"`
	Log      LogConfig      `yaml:"log"`
	Pipeline PipelineConfig `yaml:"pipeline" validate:"required"`
}

// ServerConfig holds the HTTP server settings
type ServerConfig struct {
	Port       string `yaml:"port" validate:"required"`
	JWTSecret  string `yaml:"jwt_secret" validate:"required"`
	RateLimit  int    `yaml:"rate_limit" validate:"gt=0"`         // requests per minute on the features endpoint
	MaxMemory  int64  `yaml:"max_memory" validate:"gte=0"`        // bytes
	FeatureTTL int    `yaml:"feature_cache_ttl" validate:"gte=0"` // seconds
}

// DatabaseConfig holds the sqlite settings
type DatabaseConfig struct {
	Path string `yaml:"path" validate:"required"`
}

// DataConfig locates the raw feeds and the processed outputs
type DataConfig struct {
	Dir      string `yaml:"dir" validate:"required"`
	Timezone string `yaml:"timezone" validate:"required"`
}

// LogConfig holds the logger settings
type LogConfig struct {
	Level       string `yaml:"level" validate:"omitempty,oneof=debug info warn error"`
	Development bool   `yaml:"development"`
}

// HourWindow is an inclusive range of hours of the day
type HourWindow struct {
	Start int `yaml:"start" validate:"gte=0,lte=23"`
	End   int `yaml:"end" validate:"gte=0,lte=23,gtefield=Start"`
}

// Contains reports whether hour lies in [Start, End]
func (w HourWindow) Contains(hour int) bool {
	return hour >= w.Start && hour <= w.End
}

// Hours lists the window as a discrete set of hours
func (w HourWindow) Hours() []int {
	hours := make([]int, 0, w.End-w.Start+1)
	for h := w.Start; h <= w.End; h++ {
		hours = append(hours, h)
	}
	return hours
}

// WeatherThresholds derive the boolean weather indicators
type WeatherThresholds struct {
	ColdBelowC    float64 `yaml:"cold_below_c"`
	HotAboveC     float64 `yaml:"hot_above_c"`
	WindyAboveKmh float64 `yaml:"windy_above_kmh" validate:"gte=0"`
	RainAboveMM   float64 `yaml:"rain_above_mm" validate:"gte=0"`
}

// DefaultWeather stands in for the weather feed at prediction time when none exists
type DefaultWeather struct {
	TemperatureC    float64 `yaml:"temperature_c"`
	PrecipitationMM float64 `yaml:"precipitation_mm" validate:"gte=0"`
	WindSpeedKmh    float64 `yaml:"wind_speed_kmh" validate:"gte=0"`
	IsRaining       bool    `yaml:"is_raining"`
}

// ReferencePoint is the city centre used for distance_to_center_km
type ReferencePoint struct {
	Lat float64 `yaml:"lat" validate:"gte=-90,lte=90"`
	Lon float64 `yaml:"lon" validate:"gte=-180,lte=180"`
}

// PipelineConfig carries every threshold of the dataset build. It is passed
// explicitly to each stage so tests can vary it freely.
type PipelineConfig struct {
	MaxMatchDistanceM float64 `yaml:"max_match_distance_m" validate:"gt=0"`
	BikeLaneBufferM   float64 `yaml:"bike_lane_buffer_m" validate:"gt=0"`
	BikeLaneSentinelM float64 `yaml:"bike_lane_sentinel_m" validate:"gt=0"`
	IndexCellSizeM    float64 `yaml:"index_cell_size_m" validate:"gt=0"`

	NetworkCRS        string `yaml:"network_crs" validate:"required"`
	InfrastructureCRS string `yaml:"infrastructure_crs" validate:"required"`

	DefaultMaxSpeedKmh int `yaml:"default_maxspeed_kmh" validate:"gt=0"`
	DefaultLanes       int `yaml:"default_lanes" validate:"gt=0"`

	RushMorning HourWindow `yaml:"rush_morning"`
	RushEvening HourWindow `yaml:"rush_evening"`

	TrainingWeather   WeatherThresholds `yaml:"training_weather"`
	PredictionWeather WeatherThresholds `yaml:"prediction_weather"`
	DefaultWeather    DefaultWeather    `yaml:"default_weather"`

	Reference ReferencePoint `yaml:"reference"`

	LagShort          int `yaml:"lag_short" validate:"gt=0"`
	LagLong           int `yaml:"lag_long" validate:"gt=0"`
	RollingWindow     int `yaml:"rolling_window" validate:"gt=0"`
	RollingMinPeriods int `yaml:"rolling_min_periods" validate:"gt=0,ltefield=RollingWindow"`

	SampleSeed int64 `yaml:"sample_seed"`
}

// Default returns a complete configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:       ":8080",
			JWTSecret:  "your-secret-key-change-in-production",
			RateLimit:  60,
			MaxMemory:  1024 * 1024 * 800, // 800MB
			FeatureTTL: 300,
		},
		Database: DatabaseConfig{Path: "./data/processed/dataset.db"},
		Data:     DataConfig{Dir: "./data", Timezone: "Europe/Paris"},
		Log:      LogConfig{Level: "info"},
		Pipeline: DefaultPipeline(),
	}
}

// DefaultPipeline returns the pipeline thresholds used for the Lyon dataset
func DefaultPipeline() PipelineConfig {
	return PipelineConfig{
		MaxMatchDistanceM:  50,
		BikeLaneBufferM:    20,
		BikeLaneSentinelM:  999999.0,
		IndexCellSizeM:     250,
		NetworkCRS:         "EPSG:4326",
		InfrastructureCRS:  "EPSG:4171",
		DefaultMaxSpeedKmh: 50,
		DefaultLanes:       2,
		RushMorning:        HourWindow{Start: 7, End: 9},
		RushEvening:        HourWindow{Start: 17, End: 19},
		TrainingWeather: WeatherThresholds{
			ColdBelowC: 10, HotAboveC: 25, WindyAboveKmh: 20, RainAboveMM: 0.1,
		},
		PredictionWeather: WeatherThresholds{
			ColdBelowC: 5, HotAboveC: 30, WindyAboveKmh: 30, RainAboveMM: 0.1,
		},
		DefaultWeather: DefaultWeather{
			TemperatureC: 15, PrecipitationMM: 0, WindSpeedKmh: 10,
		},
		Reference:         ReferencePoint{Lat: 45.7578, Lon: 4.8320}, // Place Bellecour
		LagShort:          1,
		LagLong:           24,
		RollingWindow:     168,
		RollingMinPeriods: 1,
		SampleSeed:        42,
	}
}

// Load reads .env, then the optional YAML file at path, then applies the
// environment overrides and validates the result
func Load(path string) (*Config, error) {
	// A missing .env is normal outside development
	_ = godotenv.Load()

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field constraints
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func applyEnv(cfg *Config) {
	if port := os.Getenv("PORT"); port != "" {
		if !strings.Contains(port, ":") {
			port = ":" + port
		}
		cfg.Server.Port = port
	}
	if dbPath := os.Getenv("DB_PATH"); dbPath != "" {
		cfg.Database.Path = dbPath
	}
	if dataDir := os.Getenv("DATA_DIR"); dataDir != "" {
		cfg.Data.Dir = dataDir
	}
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		cfg.Server.JWTSecret = secret
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		cfg.Log.Level = strings.ToLower(level)
	}
}
