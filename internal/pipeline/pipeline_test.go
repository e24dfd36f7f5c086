package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/guregu/null"
	"github.com/paulmach/orb"
	"go.uber.org/zap"

	"github.com/cityzn/cityzn-backend-go/internal/config"
	"github.com/cityzn/cityzn-backend-go/internal/feeds"
	"github.com/cityzn/cityzn-backend-go/internal/metrics"
	"github.com/cityzn/cityzn-backend-go/internal/models"
	"github.com/cityzn/cityzn-backend-go/internal/spatial"
)

// testBundle is a small Lyon network: edge 1 carries sensor s1 about 30 m
// away, edge 2 carries s3, edge 3 has no sensor and s2 has no location
func testBundle() *feeds.Bundle {
	hour := func(h int) time.Time { return time.Date(2025, 11, 10, h, 0, 0, 0, time.UTC) }

	var weather []models.WeatherRecord
	for h := 0; h <= 3; h++ {
		weather = append(weather, models.WeatherRecord{
			Timestamp:       hour(h),
			TemperatureC:    null.FloatFrom(float64(6 + h)),
			PrecipitationMM: null.FloatFrom(0),
			WindSpeedKmh:    null.FloatFrom(12),
		})
	}

	return &feeds.Bundle{
		Network: &feeds.Network{
			CRS: spatial.CRSWGS84,
			Edges: []models.Edge{
				{OSMID: 1, Geometry: orb.LineString{{4.8300, 45.7600}, {4.8400, 45.7600}}, Attrs: models.RawAttributes{Highway: strPtr("secondary"), Surface: strPtr("asphalt")}},
				{OSMID: 2, Geometry: orb.LineString{{4.8300, 45.7700}, {4.8400, 45.7700}}, Attrs: models.RawAttributes{Highway: strPtr("cycleway")}},
				{OSMID: 3, Geometry: orb.LineString{{4.9000, 45.8000}, {4.9100, 45.8000}}},
			},
		},
		Sensors: []models.Sensor{
			{ID: "s1", Name: "Pont Lafayette", Location: &orb.Point{4.8350, 45.76027}},
			{ID: "s2", Name: "Unplaced"},
			{ID: "s3", Name: "Quai Saint-Antoine", Location: &orb.Point{4.8350, 45.7701}},
		},
		Counts: &feeds.CountFeed{
			FilesRead: 1,
			Records: []models.CountRecord{
				{CounterID: "s1", Timestamp: hour(1), Count: 5},
				{CounterID: "s1", Timestamp: hour(3), Count: 9},
				{CounterID: "s3", Timestamp: hour(2), Count: 40},
				{CounterID: "s2", Timestamp: hour(2), Count: 1},
			},
		},
		Infrastructure: &feeds.Infrastructure{
			CRS:        spatial.CRSRGF93,
			Geometries: []orb.Geometry{orb.LineString{{4.8300, 45.7601}, {4.8400, 45.7601}}},
		},
		Weather: &feeds.WeatherFeed{Records: weather, Sources: []string{"weather_data.json"}},
	}
}

func TestBuild(t *testing.T) {
	p := New(config.DefaultPipeline(), zap.NewNop(), metrics.New())

	res, err := p.Build(context.Background(), testBundle())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	m, ok := res.Matches.Matches["s1"]
	if !ok || m.EdgeID != 1 {
		t.Fatalf("s1 match = %+v, %v", m, ok)
	}
	if m.DistanceM < 29 || m.DistanceM > 31 {
		t.Errorf("s1 distance = %v, want about 30 m", m.DistanceM)
	}
	if res.Matches.Matches["s3"].EdgeID != 2 {
		t.Errorf("s3 match = %+v", res.Matches.Matches["s3"])
	}

	if len(res.Edges) != 3 {
		t.Errorf("static edges = %d, want every network edge", len(res.Edges))
	}
	if !res.Edges[0].HasDedicatedBikeLane || res.Edges[0].BikeLaneDistanceM > 12 {
		t.Errorf("edge 1 facility = %v at %v m", res.Edges[0].HasDedicatedBikeLane, res.Edges[0].BikeLaneDistanceM)
	}
	if res.Edges[2].HasRealSensor || res.Edges[2].BikeLaneDistanceM != 999999.0 {
		t.Errorf("edge 3 = %+v", res.Edges[2])
	}

	// 2 edges with sensors × 3 distinct timestamps
	if len(res.Rows) != 6 {
		t.Fatalf("rows = %d, want 6", len(res.Rows))
	}
	edge1 := res.Rows[:3]
	wantCounts := []null.Int{null.IntFrom(5), {}, null.IntFrom(9)}
	for i, r := range edge1 {
		if r.EdgeID != 1 || r.BikeCount != wantCounts[i] {
			t.Errorf("edge 1 row %d = edge %d count %v, want %v", i, r.EdgeID, r.BikeCount, wantCounts[i])
		}
		if !r.TemperatureC.Valid {
			t.Errorf("edge 1 row %d has no weather", i)
		}
	}
	if edge1[2].BikeCountLag1h.Valid {
		t.Error("lag 1 of hour 3 is the null hour 2 row")
	}
	if edge1[2].BikeCountRolling7d.Float64 != 7 {
		t.Errorf("rolling at hour 3 = %v, want 7", edge1[2].BikeCountRolling7d)
	}

	sum := res.Summary
	if sum.Rows.Total != 6 || sum.Rows.WithTarget != 3 {
		t.Errorf("rows summary = %+v", sum.Rows)
	}
	if sum.Sensors.Matched != 2 || sum.Sensors.Excluded[models.ExclusionNoLocation] != 1 {
		t.Errorf("sensors summary = %+v", sum.Sensors)
	}
	if sum.Counts.RecordsUnmatched != 1 || sum.Counts.RecordsUsed != 3 || sum.Counts.DistinctTimestamp != 3 {
		t.Errorf("counts summary = %+v", sum.Counts)
	}
	if sum.Edges.Total != 3 || sum.Edges.WithSensor != 2 || !sum.Edges.FacilityLayer {
		t.Errorf("edges summary = %+v", sum.Edges)
	}
	if len(res.Schema.Categories["highway_type"]) != 2 {
		t.Errorf("highway classes = %v", res.Schema.Categories["highway_type"])
	}
}

func TestBuildDeterministic(t *testing.T) {
	p := New(config.DefaultPipeline(), nil, nil)

	a, err := p.Build(context.Background(), testBundle())
	if err != nil {
		t.Fatal(err)
	}
	b, err := p.Build(context.Background(), testBundle())
	if err != nil {
		t.Fatal(err)
	}
	for i := range a.Rows {
		if a.Rows[i] != b.Rows[i] {
			t.Fatalf("row %d differs between runs", i)
		}
	}
}

func TestBuildWithoutFacilityLayer(t *testing.T) {
	b := testBundle()
	b.Infrastructure = nil

	res, err := New(config.DefaultPipeline(), nil, nil).Build(context.Background(), b)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	for _, f := range res.Edges {
		if f.HasDedicatedBikeLane || f.BikeLaneDistanceM != 999999.0 {
			t.Errorf("edge %d = %v at %v m", f.OSMID, f.HasDedicatedBikeLane, f.BikeLaneDistanceM)
		}
	}
}

func TestBuildErrors(t *testing.T) {
	p := New(config.DefaultPipeline(), nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := p.Build(ctx, testBundle()); !errors.Is(err, context.Canceled) {
		t.Errorf("cancelled: err = %v", err)
	}

	b := testBundle()
	b.Sensors = []models.Sensor{{ID: "s2"}}
	if _, err := p.Build(context.Background(), b); !errors.Is(err, ErrNoTrainingEdges) {
		t.Errorf("no matched sensor: err = %v", err)
	}

	b = testBundle()
	b.Counts.Records = nil
	if _, err := p.Build(context.Background(), b); !errors.Is(err, ErrNoTimestamps) {
		t.Errorf("no counts: err = %v", err)
	}

	if _, err := p.Build(context.Background(), &feeds.Bundle{}); err == nil {
		t.Error("incomplete bundle must fail")
	}
}
