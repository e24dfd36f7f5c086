package pipeline

import (
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"time"

	"github.com/guregu/null"

	"github.com/cityzn/cityzn-backend-go/internal/config"
	"github.com/cityzn/cityzn-backend-go/internal/models"
)

// PredictionConfig holds the prediction-time calendar and weather settings
type PredictionConfig struct {
	RushMorning    config.HourWindow
	RushEvening    config.HourWindow
	Weather        config.WeatherThresholds
	DefaultWeather config.DefaultWeather
}

type columnFunc func(f *models.EdgeFeatures) float64

// PredictionFeatures builds the feature matrix of every edge at target,
// ordered by the schema's feature columns. Weather is the record nearest to
// target in absolute time, or the configured default when the series is
// empty. Lag and rolling columns have no history at prediction time and are
// 0. Categorical values unseen at training time encode as -1.
func PredictionFeatures(edges []models.EdgeFeatures, target time.Time, weather *WeatherSeries, schema *models.CategorySchema, cfg PredictionConfig) (*models.FeatureMatrix, error) {
	if err := ValidateSchema(schema); err != nil {
		return nil, err
	}

	cal := CalendarFeaturesFromSets(target, cfg.RushMorning.Hours(), cfg.RushEvening.Hours())
	matrix := &models.FeatureMatrix{
		Target:        target,
		SchemaVersion: schema.Version,
		Columns:       schema.FeatureColumns,
		Rows:          make([]models.FeatureVector, 0, len(edges)),
		UnseenValues:  make(map[string]int),
	}

	rec, ok := models.WeatherRecord{}, false
	if weather != nil {
		rec, ok = weather.NearestAbsolute(target)
	}
	if ok {
		at := rec.Timestamp
		matrix.WeatherAt = &at
	} else {
		rec = DefaultWeatherRecord(target, cfg.DefaultWeather)
	}
	flags := WeatherFlags(rec, cfg.Weather)

	funcs := make([]columnFunc, len(schema.FeatureColumns))
	for i, col := range schema.FeatureColumns {
		fn, err := predictionColumn(col, cal, rec, flags, schema, matrix.UnseenValues)
		if err != nil {
			return nil, err
		}
		funcs[i] = fn
	}

	for i := range edges {
		values := make([]float64, len(funcs))
		for j, fn := range funcs {
			values[j] = fn(&edges[i])
		}
		matrix.Rows = append(matrix.Rows, models.FeatureVector{EdgeID: edges[i].OSMID, Values: values})
	}
	return matrix, nil
}

func predictionColumn(col string, cal Calendar, w models.WeatherRecord, flags models.WeatherFlags, schema *models.CategorySchema, unseen map[string]int) (columnFunc, error) {
	constant := func(v float64) columnFunc { return func(*models.EdgeFeatures) float64 { return v } }

	if isCategorical(col) {
		if _, ok := schema.Categories[col]; !ok {
			return nil, fmt.Errorf("%w: no classes for column %q", ErrSchemaMismatch, col)
		}
		return func(f *models.EdgeFeatures) float64 {
			code, _ := Encode(schema, col, edgeCategory(f, col))
			if code == models.UnseenCategory {
				unseen[col]++
			}
			return float64(code)
		}, nil
	}

	switch col {
	case "hour":
		return constant(float64(cal.Hour)), nil
	case "day_of_week":
		return constant(float64(cal.DayOfWeek)), nil
	case "is_weekend":
		return constant(boolValue(cal.IsWeekend)), nil
	case "is_rush_hour_morning":
		return constant(boolValue(cal.IsRushHourMorning)), nil
	case "is_rush_hour_evening":
		return constant(boolValue(cal.IsRushHourEvening)), nil
	case "temperature_c":
		return constant(floatOrZero(w.TemperatureC)), nil
	case "precipitation_mm":
		return constant(floatOrZero(w.PrecipitationMM)), nil
	case "wind_speed_kmh":
		return constant(floatOrZero(w.WindSpeedKmh)), nil
	case "is_raining":
		return constant(boolValue(flags.IsRaining)), nil
	case "is_cold":
		return constant(boolValue(flags.IsCold)), nil
	case "is_hot":
		return constant(boolValue(flags.IsHot)), nil
	case "is_windy":
		return constant(boolValue(flags.IsWindy)), nil
	case "lanes":
		return func(f *models.EdgeFeatures) float64 { return float64(f.Lanes) }, nil
	case "maxspeed_kmh":
		return func(f *models.EdgeFeatures) float64 { return float64(f.MaxSpeedKmh) }, nil
	case "is_oneway":
		return func(f *models.EdgeFeatures) float64 { return boolValue(f.IsOneWay) }, nil
	case "has_cycleway":
		return func(f *models.EdgeFeatures) float64 { return boolValue(f.HasCycleway) }, nil
	case "has_dedicated_bike_lane":
		return func(f *models.EdgeFeatures) float64 { return boolValue(f.HasDedicatedBikeLane) }, nil
	case "bike_lane_distance_m":
		return func(f *models.EdgeFeatures) float64 { return f.BikeLaneDistanceM }, nil
	case "is_lit":
		return func(f *models.EdgeFeatures) float64 { return boolValue(f.IsLit) }, nil
	case "edge_length_m":
		return func(f *models.EdgeFeatures) float64 { return f.EdgeLengthM }, nil
	case "distance_to_center_km":
		return func(f *models.EdgeFeatures) float64 { return f.DistanceToCenterKm }, nil
	case "has_real_sensor":
		return func(f *models.EdgeFeatures) float64 { return boolValue(f.HasRealSensor) }, nil
	}

	// No history exists for a future timestamp
	if strings.Contains(col, "lag") || strings.Contains(col, "rolling") {
		return constant(0), nil
	}
	return nil, fmt.Errorf("%w: unknown feature column %q", ErrSchemaMismatch, col)
}

func edgeCategory(f *models.EdgeFeatures, col string) string {
	var v string
	switch col {
	case "highway_type":
		v = f.HighwayType
	case "road_category":
		v = f.RoadCategory
	case "cycleway_type":
		v = f.CyclewayType
	case "surface_quality":
		v = f.SurfaceQuality
	case "bicycle_access":
		v = f.BicycleAccess
	case "orientation":
		v = string(f.Orientation)
	}
	if v == "" {
		return models.Unknown
	}
	return v
}

// SampleEdges picks n edges with a seeded shuffle, returned in id order.
// n <= 0 or n >= len(edges) returns every edge.
func SampleEdges(edges []models.EdgeFeatures, n int, seed int64) []models.EdgeFeatures {
	if n <= 0 || n >= len(edges) {
		return edges
	}
	perm := rand.New(rand.NewSource(seed)).Perm(len(edges))
	out := make([]models.EdgeFeatures, 0, n)
	for _, i := range perm[:n] {
		out = append(out, edges[i])
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OSMID < out[j].OSMID })
	return out
}

func boolValue(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func floatOrZero(f null.Float) float64 {
	if !f.Valid {
		return 0
	}
	return f.Float64
}
