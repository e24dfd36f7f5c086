package pipeline

import (
	"errors"
	"testing"
	"time"

	"github.com/guregu/null"

	"github.com/cityzn/cityzn-backend-go/internal/config"
	"github.com/cityzn/cityzn-backend-go/internal/models"
)

func predictionConfig() PredictionConfig {
	p := config.DefaultPipeline()
	return PredictionConfig{
		RushMorning:    p.RushMorning,
		RushEvening:    p.RushEvening,
		Weather:        p.PredictionWeather,
		DefaultWeather: p.DefaultWeather,
	}
}

func trainedSchema() *models.CategorySchema {
	rows := []models.TrainingRow{
		{HighwayType: "residential", RoadCategory: "local", SurfaceQuality: "good", Orientation: models.OrientationNorth},
		{HighwayType: "cycleway", RoadCategory: "bike_path", SurfaceQuality: "medium", Orientation: models.OrientationEast},
	}
	s := BuildSchema(rows, "run", 1)
	return &s
}

func predictionEdges() []models.EdgeFeatures {
	return []models.EdgeFeatures{
		{OSMID: 1, HighwayType: "residential", RoadCategory: "local", SurfaceQuality: "good", Orientation: models.OrientationNorth, Lanes: 2, MaxSpeedKmh: 30, EdgeLengthM: 120.5, BikeLaneDistanceM: 999999},
		{OSMID: 2, HighwayType: "motorway", RoadCategory: "major", SurfaceQuality: "good", Orientation: models.OrientationEast, Lanes: 3, HasDedicatedBikeLane: true},
	}
}

func column(t *testing.T, m *models.FeatureMatrix, row int, name string) float64 {
	t.Helper()
	for i, c := range m.Columns {
		if c == name {
			return m.Rows[row].Values[i]
		}
	}
	t.Fatalf("no column %q", name)
	return 0
}

func TestPredictionFeatures(t *testing.T) {
	target := time.Date(2025, 11, 12, 8, 0, 0, 0, time.UTC) // Wednesday
	weather := NewWeatherSeries([]models.WeatherRecord{
		{Timestamp: target.Add(-time.Hour), TemperatureC: null.FloatFrom(4), WindSpeedKmh: null.FloatFrom(35), PrecipitationMM: null.FloatFrom(0.4), IsRaining: true},
		{Timestamp: target.Add(3 * time.Hour), TemperatureC: null.FloatFrom(9)},
	})

	m, err := PredictionFeatures(predictionEdges(), target, weather, trainedSchema(), predictionConfig())
	if err != nil {
		t.Fatalf("PredictionFeatures: %v", err)
	}
	if len(m.Rows) != 2 || len(m.Columns) != len(FeatureColumns()) || m.SchemaVersion != 1 {
		t.Fatalf("matrix shape = %d rows, %d columns, v%d", len(m.Rows), len(m.Columns), m.SchemaVersion)
	}
	if m.WeatherAt == nil || !m.WeatherAt.Equal(target.Add(-time.Hour)) {
		t.Errorf("weather at = %v, want the nearest record one hour before", m.WeatherAt)
	}

	checks := []struct {
		row  int
		col  string
		want float64
	}{
		{0, "hour", 8},
		{0, "day_of_week", 2},
		{0, "is_weekend", 0},
		{0, "is_rush_hour_morning", 1},
		{0, "is_rush_hour_evening", 0},
		{0, "temperature_c", 4},
		{0, "is_cold", 1},
		{0, "is_windy", 1},
		{0, "is_raining", 1},
		{0, "lanes", 2},
		{0, "maxspeed_kmh", 30},
		{0, "edge_length_m", 120.5},
		{0, "highway_type", 1}, // cycleway, residential
		{0, "orientation", 1},  // E, N
		{0, "bike_count_lag_1h", 0},
		{0, "bike_count_lag_24h", 0},
		{0, "bike_count_rolling_7d", 0},
		{1, "highway_type", -1},
		{1, "road_category", -1},
		{1, "has_dedicated_bike_lane", 1},
		{1, "orientation", 0},
	}
	for _, c := range checks {
		if got := column(t, m, c.row, c.col); got != c.want {
			t.Errorf("row %d %s = %v, want %v", c.row, c.col, got, c.want)
		}
	}
	if m.UnseenValues["highway_type"] != 1 || m.UnseenValues["road_category"] != 1 {
		t.Errorf("unseen = %v", m.UnseenValues)
	}
}

func TestPredictionFeaturesDefaultWeather(t *testing.T) {
	target := time.Date(2025, 11, 15, 18, 0, 0, 0, time.UTC) // Saturday

	m, err := PredictionFeatures(predictionEdges()[:1], target, NewWeatherSeries(nil), trainedSchema(), predictionConfig())
	if err != nil {
		t.Fatalf("PredictionFeatures: %v", err)
	}
	if m.WeatherAt != nil {
		t.Errorf("weather at = %v, want nil with the default record", m.WeatherAt)
	}
	for col, want := range map[string]float64{
		"temperature_c":        15,
		"precipitation_mm":     0,
		"wind_speed_kmh":       10,
		"is_cold":              0,
		"is_weekend":           1,
		"is_rush_hour_evening": 1,
	} {
		if got := column(t, m, 0, col); got != want {
			t.Errorf("%s = %v, want %v", col, got, want)
		}
	}
}

func TestPredictionFeaturesSchemaMismatch(t *testing.T) {
	s := trainedSchema()
	s.FeatureColumns = append(append([]string{}, s.FeatureColumns...), "pedestrian_count")

	_, err := PredictionFeatures(predictionEdges(), time.Now(), nil, s, predictionConfig())
	if !errors.Is(err, ErrSchemaMismatch) {
		t.Errorf("err = %v, want ErrSchemaMismatch", err)
	}

	_, err = PredictionFeatures(predictionEdges(), time.Now(), nil, &models.CategorySchema{}, predictionConfig())
	if !errors.Is(err, ErrSchemaMismatch) {
		t.Errorf("empty schema: err = %v, want ErrSchemaMismatch", err)
	}
}

func TestSampleEdges(t *testing.T) {
	edges := make([]models.EdgeFeatures, 10)
	for i := range edges {
		edges[i].OSMID = int64(100 - i)
	}

	a := SampleEdges(edges, 3, 42)
	b := SampleEdges(edges, 3, 42)
	if len(a) != 3 {
		t.Fatalf("len = %d, want 3", len(a))
	}
	for i := range a {
		if a[i].OSMID != b[i].OSMID {
			t.Fatal("same seed must give the same sample")
		}
		if i > 0 && a[i-1].OSMID >= a[i].OSMID {
			t.Errorf("sample not sorted by id: %d, %d", a[i-1].OSMID, a[i].OSMID)
		}
	}
	if got := SampleEdges(edges, 0, 42); len(got) != 10 {
		t.Errorf("n=0 returned %d edges", len(got))
	}
	if got := SampleEdges(edges, 50, 42); len(got) != 10 {
		t.Errorf("n>len returned %d edges", len(got))
	}
}
