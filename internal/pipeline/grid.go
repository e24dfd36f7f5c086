package pipeline

import (
	"errors"
	"fmt"
	"time"

	"github.com/guregu/null"

	"github.com/cityzn/cityzn-backend-go/internal/config"
	"github.com/cityzn/cityzn-backend-go/internal/models"
)

// GridKey identifies one training row
type GridKey struct {
	EdgeID    int64
	Timestamp time.Time
}

// CrossJoin returns every (edge, timestamp) pair, edge-major
func CrossJoin(edgeIDs []int64, timestamps []time.Time) []GridKey {
	keys := make([]GridKey, 0, len(edgeIDs)*len(timestamps))
	for _, id := range edgeIDs {
		for _, ts := range timestamps {
			keys = append(keys, GridKey{EdgeID: id, Timestamp: ts})
		}
	}
	return keys
}

// GridConfig holds the calendar and weather settings of the assembler
type GridConfig struct {
	RushMorning config.HourWindow
	RushEvening config.HourWindow
	Weather     config.WeatherThresholds
}

// GridStats reports what the left joins could not resolve
type GridStats struct {
	MissingWeather int
	WithTarget     int
}

// AssembleGrid left-joins the static features, the nearest prior weather
// and the exact-key target onto the cross join of edges and timestamps.
// A row without prior weather keeps null weather fields and is counted.
// The result is checked against the |edges| × |timestamps| invariant.
func AssembleGrid(edgeIDs []int64, timestamps []time.Time, static map[int64]models.EdgeFeatures, counts *CountLookup, weather *WeatherSeries, cfg GridConfig) ([]models.TrainingRow, GridStats, error) {
	var st GridStats
	for _, id := range edgeIDs {
		if _, ok := static[id]; !ok {
			return nil, st, fmt.Errorf("%w: edge %d has no static features", ErrGridInvariant, id)
		}
	}

	// Calendar and weather depend on the timestamp only
	type tsFeatures struct {
		cal     Calendar
		weather *models.WeatherRecord
		flags   models.WeatherFlags
	}
	byTS := make(map[int64]tsFeatures, len(timestamps))
	for _, ts := range timestamps {
		f := tsFeatures{cal: CalendarFeatures(ts, cfg.RushMorning, cfg.RushEvening)}
		rec, err := weather.NearestPrior(ts)
		switch {
		case err == nil:
			f.weather = &rec
			f.flags = WeatherFlags(rec, cfg.Weather)
		case !errors.Is(err, ErrMissingWeatherData):
			return nil, st, err
		}
		byTS[ts.Unix()] = f
	}

	keys := CrossJoin(edgeIDs, timestamps)
	rows := make([]models.TrainingRow, 0, len(keys))
	for _, k := range keys {
		sf := static[k.EdgeID]
		tf := byTS[k.Timestamp.Unix()]

		row := models.TrainingRow{
			EdgeID:    k.EdgeID,
			Timestamp: k.Timestamp,

			Hour:              tf.cal.Hour,
			DayOfWeek:         tf.cal.DayOfWeek,
			IsWeekend:         tf.cal.IsWeekend,
			IsRushHourMorning: tf.cal.IsRushHourMorning,
			IsRushHourEvening: tf.cal.IsRushHourEvening,

			HighwayType:          sf.HighwayType,
			RoadCategory:         sf.RoadCategory,
			Lanes:                sf.Lanes,
			MaxSpeedKmh:          sf.MaxSpeedKmh,
			HasCycleway:          sf.HasCycleway,
			HasDedicatedBikeLane: sf.HasDedicatedBikeLane,
			BikeLaneDistanceM:    sf.BikeLaneDistanceM,
			SurfaceQuality:       sf.SurfaceQuality,
			IsLit:                sf.IsLit,
			EdgeLengthM:          sf.EdgeLengthM,
			DistanceToCenterKm:   sf.DistanceToCenterKm,
			Orientation:          sf.Orientation,
		}

		if w := tf.weather; w != nil {
			row.TemperatureC = w.TemperatureC
			row.PrecipitationMM = w.PrecipitationMM
			row.WindSpeedKmh = w.WindSpeedKmh
			row.IsRaining = null.BoolFrom(tf.flags.IsRaining)
			row.IsCold = null.BoolFrom(tf.flags.IsCold)
			row.IsHot = null.BoolFrom(tf.flags.IsHot)
			row.IsWindy = null.BoolFrom(tf.flags.IsWindy)
		} else {
			st.MissingWeather++
		}

		if c, ok := counts.Get(k.EdgeID, k.Timestamp); ok {
			row.BikeCount = null.IntFrom(c)
			st.WithTarget++
		}
		rows = append(rows, row)
	}

	if err := CheckGridInvariant(rows, len(edgeIDs), len(timestamps)); err != nil {
		return nil, st, err
	}
	return rows, st, nil
}

// CheckGridInvariant verifies the row count and key uniqueness of a grid.
// The count check runs first; the key set is sized to the row count, one
// entry per row.
func CheckGridInvariant(rows []models.TrainingRow, edges, timestamps int) error {
	if want := edges * timestamps; len(rows) != want {
		return fmt.Errorf("%w: %d rows, want %d edges × %d timestamps = %d",
			ErrGridInvariant, len(rows), edges, timestamps, want)
	}
	seen := make(map[countKey]struct{}, len(rows))
	for _, r := range rows {
		k := countKey{r.EdgeID, r.Timestamp.Unix()}
		if _, dup := seen[k]; dup {
			return fmt.Errorf("%w: duplicate key (edge %d, %s)", ErrGridInvariant, r.EdgeID, r.Timestamp.Format(time.RFC3339))
		}
		seen[k] = struct{}{}
	}
	return nil
}
