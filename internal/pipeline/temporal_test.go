package pipeline

import (
	"errors"
	"testing"
	"time"

	"github.com/guregu/null"

	"github.com/cityzn/cityzn-backend-go/internal/config"
	"github.com/cityzn/cityzn-backend-go/internal/models"
)

var day0 = time.Date(2025, 11, 10, 0, 0, 0, 0, time.UTC) // a Monday

func at(hour int) time.Time { return day0.Add(time.Duration(hour) * time.Hour) }

func weatherAt(ts time.Time, temp float64) models.WeatherRecord {
	return models.WeatherRecord{
		Timestamp:       ts,
		TemperatureC:    null.FloatFrom(temp),
		PrecipitationMM: null.FloatFrom(0),
		WindSpeedKmh:    null.FloatFrom(5),
	}
}

func TestBuildCountLookupSumsSharedEdge(t *testing.T) {
	matches := &MatchResult{Matches: map[string]models.SensorMatch{
		"a": {SensorID: "a", EdgeID: 10},
		"b": {SensorID: "b", EdgeID: 10},
		"c": {SensorID: "c", EdgeID: 20},
	}}
	records := []models.CountRecord{
		{CounterID: "a", Timestamp: at(8), Count: 3},
		{CounterID: "b", Timestamp: at(8), Count: 5},
		{CounterID: "c", Timestamp: at(9), Count: 7},
		{CounterID: "ghost", Timestamp: at(10), Count: 100},
	}

	cl := BuildCountLookup(records, matches)

	if got, ok := cl.Get(10, at(8)); !ok || got != 8 {
		t.Errorf("edge 10 at 08:00 = %d, %v; want 8", got, ok)
	}
	if got, ok := cl.Get(20, at(9)); !ok || got != 7 {
		t.Errorf("edge 20 at 09:00 = %d, %v; want 7", got, ok)
	}
	if _, ok := cl.Get(10, at(9)); ok {
		t.Error("no count was observed for edge 10 at 09:00")
	}
	if cl.Used != 3 || cl.Unmatched != 1 {
		t.Errorf("used = %d, unmatched = %d; want 3, 1", cl.Used, cl.Unmatched)
	}

	ts := cl.Timestamps()
	if len(ts) != 2 || !ts[0].Equal(at(8)) || !ts[1].Equal(at(9)) {
		t.Errorf("timestamps = %v; the unmatched record must not contribute", ts)
	}
	if vals := cl.SensorValues()["a"]; len(vals) != 1 || vals[0] != 3 {
		t.Errorf("sensor values of a = %v", vals)
	}
}

func TestNearestPrior(t *testing.T) {
	ws := NewWeatherSeries([]models.WeatherRecord{
		weatherAt(at(13), 13),
		weatherAt(at(10), 10),
		weatherAt(at(10), 99), // duplicate, first read wins
	})
	if ws.Len() != 2 {
		t.Fatalf("Len = %d, want 2", ws.Len())
	}

	tests := []struct {
		name     string
		ts       time.Time
		wantTemp float64
		wantErr  error
	}{
		{"exact", at(10), 10, nil},
		{"gap uses the earlier record", at(12), 10, nil},
		{"exact later", at(13), 13, nil},
		{"after the last record", at(20), 13, nil},
		{"before the first record", at(9), 0, ErrMissingWeatherData},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := ws.NearestPrior(tt.ts)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if err == nil && rec.TemperatureC.Float64 != tt.wantTemp {
				t.Errorf("temperature = %v, want %v", rec.TemperatureC.Float64, tt.wantTemp)
			}
		})
	}
}

func TestNearestAbsolute(t *testing.T) {
	ws := NewWeatherSeries([]models.WeatherRecord{weatherAt(at(10), 10), weatherAt(at(14), 14)})

	tests := []struct {
		name     string
		ts       time.Time
		wantTemp float64
	}{
		{"before the series", at(2), 10},
		{"closer to the future record", at(13), 14},
		{"tie goes to the earlier record", at(12), 10},
		{"after the series", at(23), 14},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, ok := ws.NearestAbsolute(tt.ts)
			if !ok || rec.TemperatureC.Float64 != tt.wantTemp {
				t.Errorf("got %v (ok=%v), want %v", rec.TemperatureC.Float64, ok, tt.wantTemp)
			}
		})
	}

	if _, ok := NewWeatherSeries(nil).NearestAbsolute(at(0)); ok {
		t.Error("an empty series has no nearest record")
	}
}

func TestWeatherFlags(t *testing.T) {
	th := config.DefaultPipeline().TrainingWeather

	tests := []struct {
		name string
		rec  models.WeatherRecord
		want models.WeatherFlags
	}{
		{"mild", models.WeatherRecord{TemperatureC: null.FloatFrom(15), WindSpeedKmh: null.FloatFrom(10)}, models.WeatherFlags{}},
		{"cold boundary is not cold", models.WeatherRecord{TemperatureC: null.FloatFrom(10)}, models.WeatherFlags{}},
		{"cold", models.WeatherRecord{TemperatureC: null.FloatFrom(9.9)}, models.WeatherFlags{IsCold: true}},
		{"hot", models.WeatherRecord{TemperatureC: null.FloatFrom(25.1)}, models.WeatherFlags{IsHot: true}},
		{"windy and raining", models.WeatherRecord{WindSpeedKmh: null.FloatFrom(21), IsRaining: true}, models.WeatherFlags{IsWindy: true, IsRaining: true}},
		{"null measurements", models.WeatherRecord{}, models.WeatherFlags{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := WeatherFlags(tt.rec, th); got != tt.want {
				t.Errorf("flags = %+v, want %+v", got, tt.want)
			}
		})
	}
}
