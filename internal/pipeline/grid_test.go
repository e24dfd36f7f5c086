package pipeline

import (
	"errors"
	"testing"
	"time"

	"github.com/cityzn/cityzn-backend-go/internal/config"
	"github.com/cityzn/cityzn-backend-go/internal/models"
)

func gridConfig() GridConfig {
	p := config.DefaultPipeline()
	return GridConfig{RushMorning: p.RushMorning, RushEvening: p.RushEvening, Weather: p.TrainingWeather}
}

func staticFor(ids ...int64) map[int64]models.EdgeFeatures {
	out := make(map[int64]models.EdgeFeatures, len(ids))
	for _, id := range ids {
		out[id] = models.EdgeFeatures{OSMID: id, HighwayType: "cycleway", RoadCategory: models.RoadCategoryBikePath, Lanes: 1, Orientation: models.OrientationNorth}
	}
	return out
}

func TestCrossJoin(t *testing.T) {
	keys := CrossJoin([]int64{1, 2, 3}, []time.Time{at(0), at(1)})
	if len(keys) != 6 {
		t.Fatalf("len = %d, want 6", len(keys))
	}
	if keys[0].EdgeID != 1 || !keys[1].Timestamp.Equal(at(1)) || keys[2].EdgeID != 2 {
		t.Errorf("keys are not edge-major: %+v", keys)
	}
	if got := CrossJoin(nil, []time.Time{at(0)}); len(got) != 0 {
		t.Errorf("empty edges gave %d keys", len(got))
	}
}

func TestAssembleGrid(t *testing.T) {
	matches := &MatchResult{Matches: map[string]models.SensorMatch{"s1": {SensorID: "s1", EdgeID: 1}}}
	counts := BuildCountLookup([]models.CountRecord{
		{CounterID: "s1", Timestamp: at(8), Count: 12},
		{CounterID: "s1", Timestamp: at(10), Count: 4},
	}, matches)
	timestamps := []time.Time{at(8), at(9), at(10)}
	// weather starts at 09:00, so 08:00 has no prior record
	weather := NewWeatherSeries([]models.WeatherRecord{weatherAt(at(9), 8), weatherAt(at(10), 12)})

	rows, st, err := AssembleGrid([]int64{1, 2}, timestamps, staticFor(1, 2), counts, weather, gridConfig())
	if err != nil {
		t.Fatalf("AssembleGrid: %v", err)
	}
	if len(rows) != 6 {
		t.Fatalf("rows = %d, want 6", len(rows))
	}
	if st.MissingWeather != 2 || st.WithTarget != 2 {
		t.Errorf("stats = %+v, want 2 missing weather and 2 targets", st)
	}

	seen := make(map[GridKey]bool)
	for _, r := range rows {
		k := GridKey{r.EdgeID, r.Timestamp}
		if seen[k] {
			t.Errorf("duplicate key %+v", k)
		}
		seen[k] = true
	}

	byKey := func(edge int64, ts time.Time) models.TrainingRow {
		for _, r := range rows {
			if r.EdgeID == edge && r.Timestamp.Equal(ts) {
				return r
			}
		}
		t.Fatalf("no row for edge %d at %s", edge, ts)
		return models.TrainingRow{}
	}

	r := byKey(1, at(8))
	if r.TemperatureC.Valid || r.IsCold.Valid || r.BikeCount.Int64 != 12 || !r.IsRushHourMorning {
		t.Errorf("edge 1 at 08:00 = %+v", r)
	}
	r = byKey(1, at(9))
	if r.BikeCount.Valid {
		t.Error("edge 1 at 09:00 has no observation and must stay null")
	}
	if r.TemperatureC.Float64 != 8 || !r.IsCold.Bool {
		t.Errorf("edge 1 at 09:00 weather = %v cold=%v", r.TemperatureC, r.IsCold)
	}
	r = byKey(2, at(10))
	if r.BikeCount.Valid || r.TemperatureC.Float64 != 12 || r.HighwayType != "cycleway" {
		t.Errorf("edge 2 at 10:00 = %+v", r)
	}
}

func TestAssembleGridMissingStatic(t *testing.T) {
	counts := BuildCountLookup(nil, &MatchResult{})
	_, _, err := AssembleGrid([]int64{1, 2}, []time.Time{at(0)}, staticFor(1), counts, NewWeatherSeries(nil), gridConfig())
	if !errors.Is(err, ErrGridInvariant) {
		t.Errorf("err = %v, want ErrGridInvariant", err)
	}
}

func TestCheckGridInvariant(t *testing.T) {
	rows := []models.TrainingRow{{EdgeID: 1, Timestamp: at(0)}, {EdgeID: 1, Timestamp: at(0)}}
	if err := CheckGridInvariant(rows, 1, 2); !errors.Is(err, ErrGridInvariant) {
		t.Errorf("duplicate keys: err = %v", err)
	}
	if err := CheckGridInvariant(rows[:1], 1, 2); !errors.Is(err, ErrGridInvariant) {
		t.Errorf("short grid: err = %v", err)
	}
	if err := CheckGridInvariant(rows[:1], 1, 1); err != nil {
		t.Errorf("valid grid: err = %v", err)
	}
}

func TestCheckGridInvariantFullGrid(t *testing.T) {
	const edges, hours = 50, 24
	rows := make([]models.TrainingRow, 0, edges*hours)
	for e := int64(1); e <= edges; e++ {
		for h := 0; h < hours; h++ {
			rows = append(rows, models.TrainingRow{EdgeID: e, Timestamp: at(h)})
		}
	}

	tests := []struct {
		name    string
		mutate  func([]models.TrainingRow)
		wantErr bool
	}{
		{"complete", func([]models.TrainingRow) {}, false},
		{"last row repeats its neighbour", func(r []models.TrainingRow) { r[len(r)-1] = r[len(r)-2] }, true},
		{"edge id collision", func(r []models.TrainingRow) { r[0].EdgeID = 2 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			grid := append([]models.TrainingRow(nil), rows...)
			tt.mutate(grid)
			err := CheckGridInvariant(grid, edges, hours)
			if (err != nil) != tt.wantErr {
				t.Errorf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrGridInvariant) {
				t.Errorf("err = %v, want ErrGridInvariant", err)
			}
		})
	}
}
