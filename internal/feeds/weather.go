package feeds

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/guregu/null"
	"github.com/paulmach/orb"
	"go.uber.org/zap"

	"github.com/cityzn/cityzn-backend-go/internal/models"
)

// Weather file names written by the weather collector
const (
	WeatherFileName    = "weather_data.json"
	WeatherFilePattern = "weather_data_*.json"
)

// WeatherFeed is the decoded hourly weather series
type WeatherFeed struct {
	Records []models.WeatherRecord
	Sources []string
	Station *orb.Point // lon, lat of the observation point when declared
	Invalid int
}

// Source names the files the series was read from
func (w *WeatherFeed) Source() string {
	switch len(w.Sources) {
	case 0:
		return ""
	case 1:
		return w.Sources[0]
	}
	return fmt.Sprintf("%s (+%d files)", w.Sources[len(w.Sources)-1], len(w.Sources)-1)
}

type weatherDocument struct {
	WeatherData []json.RawMessage `json:"weather_data"`
	Data        []json.RawMessage `json:"data"`
	Metadata    struct {
		Location struct {
			Latitude  *float64 `json:"latitude"`
			Longitude *float64 `json:"longitude"`
		} `json:"location"`
	} `json:"metadata"`
}

type weatherEntry struct {
	Timestamp       string     `json:"timestamp"`
	TemperatureC    null.Float `json:"temperature_c"`
	PrecipitationMM null.Float `json:"precipitation_mm"`
	RainMM          null.Float `json:"rain_mm"`
	WindSpeedKmh    null.Float `json:"wind_speed_kmh"`
	IsRaining       *bool      `json:"is_raining"`
}

// LatestWeatherFile picks the most recent timestamped file, else the single
// consolidated file. The returned error is fatal when neither exists.
func LatestWeatherFile(dir string) (string, error) {
	files, err := filepath.Glob(filepath.Join(dir, WeatherFilePattern))
	if err != nil {
		return "", fatal("weather", dir, "invalid glob", err)
	}
	if len(files) > 0 {
		sort.Strings(files)
		return files[len(files)-1], nil
	}
	single := filepath.Join(dir, WeatherFileName)
	if _, err := os.Stat(single); err != nil {
		return "", fatal("weather", dir, "no weather file", err)
	}
	return single, nil
}

// LoadWeather reads the weather series used for training-set assembly.
// rainAboveMM derives is_raining for records that do not carry it.
func LoadWeather(dir string, loc *time.Location, rainAboveMM float64, log *zap.Logger) (*WeatherFeed, error) {
	path, err := LatestWeatherFile(dir)
	if err != nil {
		return nil, err
	}
	feed := &WeatherFeed{}
	if err := feed.readFile(path, loc, rainAboveMM); err != nil {
		return nil, err
	}
	feed.logLoaded(log)
	return feed, nil
}

// LoadWeatherAll merges every weather file of dir, as done at prediction
// time. A missing directory or no file yields an empty feed, not an error.
func LoadWeatherAll(dir string, loc *time.Location, rainAboveMM float64, log *zap.Logger) (*WeatherFeed, error) {
	files, err := filepath.Glob(filepath.Join(dir, "weather_data*.json"))
	if err != nil {
		return nil, fatal("weather", dir, "invalid glob", err)
	}
	sort.Strings(files)

	feed := &WeatherFeed{}
	for _, path := range files {
		if err := feed.readFile(path, loc, rainAboveMM); err != nil {
			return nil, err
		}
	}
	if len(files) == 0 {
		log.Warn("no weather feed, default weather will be used", zap.String("dir", dir))
		return feed, nil
	}
	feed.logLoaded(log)
	return feed, nil
}

func (w *WeatherFeed) readFile(path string, loc *time.Location, rainAboveMM float64) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fatal("weather", path, "file not found", err)
		}
		return fatal("weather", path, "unreadable file", err)
	}

	var entries []json.RawMessage
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &entries); err != nil {
			return fatal("weather", path, "invalid weather array", err)
		}
	} else {
		var doc weatherDocument
		if err := json.Unmarshal(trimmed, &doc); err != nil {
			return fatal("weather", path, "invalid weather document", err)
		}
		switch {
		case doc.WeatherData != nil:
			entries = doc.WeatherData
		case doc.Data != nil:
			entries = doc.Data
		default:
			return fatal("weather", path, "expected a \"weather_data\" or \"data\" series", nil)
		}
		if lat, lon := doc.Metadata.Location.Latitude, doc.Metadata.Location.Longitude; lat != nil && lon != nil {
			w.Station = &orb.Point{*lon, *lat}
		}
	}

	for _, raw := range entries {
		rec, err := parseWeatherEntry(raw, loc, rainAboveMM)
		if err != nil {
			w.Invalid++
			continue
		}
		w.Records = append(w.Records, rec)
	}
	w.Sources = append(w.Sources, filepath.Base(path))
	return nil
}

func (w *WeatherFeed) logLoaded(log *zap.Logger) {
	if w.Invalid > 0 {
		log.Warn("invalid weather records skipped", zap.Int("records", w.Invalid))
	}
	log.Info("weather loaded", zap.String("source", w.Source()), zap.Int("records", len(w.Records)))
}

func parseWeatherEntry(raw json.RawMessage, loc *time.Location, rainAboveMM float64) (models.WeatherRecord, error) {
	var e weatherEntry
	if err := json.Unmarshal(raw, &e); err != nil {
		return models.WeatherRecord{}, err
	}
	ts, err := ParseTimestamp(e.Timestamp, loc)
	if err != nil {
		return models.WeatherRecord{}, err
	}

	rec := models.WeatherRecord{
		Timestamp:       ts,
		TemperatureC:    e.TemperatureC,
		PrecipitationMM: e.PrecipitationMM,
		RainMM:          e.RainMM,
		WindSpeedKmh:    e.WindSpeedKmh,
	}
	if e.IsRaining != nil {
		rec.IsRaining = *e.IsRaining
	} else {
		rec.IsRaining = e.RainMM.Valid && e.RainMM.Float64 > rainAboveMM
	}
	return rec, nil
}
