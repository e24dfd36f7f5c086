package pipeline

import (
	"testing"

	"github.com/paulmach/orb"
	"go.uber.org/zap"

	"github.com/cityzn/cityzn-backend-go/internal/models"
)

func proximityConfig() ProximityConfig {
	return ProximityConfig{BufferM: 20, SentinelM: 999999.0, CellSizeM: 100}
}

func planarEdges() []models.Edge {
	return []models.Edge{
		{OSMID: 1, Projected: orb.LineString{{0, 0}, {100, 0}}},
		{OSMID: 2, Projected: orb.LineString{{0, 100}, {100, 100}}},
		{OSMID: 3, Projected: orb.LineString{{0, 300}, {100, 300}}},
		{OSMID: 4},
	}
}

func TestAnnotateInfrastructure(t *testing.T) {
	facilities := []orb.Geometry{
		orb.LineString{{0, 20}, {100, 20}},   // exactly on the buffer of edge 1
		orb.LineString{{0, 121}, {100, 121}}, // just outside the buffer of edge 2
	}
	sensorEdges := &MatchResult{EdgeIDs: []int64{1, 2}}

	got := AnnotateInfrastructure(planarEdges(), facilities, sensorEdges, proximityConfig(), zap.NewNop())

	want := map[int64]Proximity{
		1: {HasDedicatedBikeLane: true, BikeLaneDistanceM: 20},
		2: {HasDedicatedBikeLane: false, BikeLaneDistanceM: 21},
		3: {HasDedicatedBikeLane: false, BikeLaneDistanceM: 999999.0},
		4: {HasDedicatedBikeLane: false, BikeLaneDistanceM: 999999.0},
	}
	for id, w := range want {
		if got[id] != w {
			t.Errorf("edge %d = %+v, want %+v", id, got[id], w)
		}
	}
}

func TestAnnotateInfrastructureNearEdgeWithoutSensor(t *testing.T) {
	facilities := []orb.Geometry{orb.LineString{{50, 290}, {50, 310}}} // crosses edge 3

	got := AnnotateInfrastructure(planarEdges(), facilities, &MatchResult{EdgeIDs: []int64{1}}, proximityConfig(), zap.NewNop())

	if p := got[3]; !p.HasDedicatedBikeLane || p.BikeLaneDistanceM != 999999.0 {
		t.Errorf("edge 3 = %+v; flagged, but exact distance only for sensor edges", p)
	}
	if p := got[1]; p.HasDedicatedBikeLane || p.BikeLaneDistanceM != 290 {
		t.Errorf("edge 1 = %+v, want distance 290", p)
	}
}

func TestAnnotateInfrastructureAbsentLayer(t *testing.T) {
	got := AnnotateInfrastructure(planarEdges(), nil, &MatchResult{EdgeIDs: []int64{1, 2}}, proximityConfig(), zap.NewNop())
	if len(got) != 4 {
		t.Fatalf("annotated %d edges, want 4", len(got))
	}
	for id, p := range got {
		if p.HasDedicatedBikeLane || p.BikeLaneDistanceM != 999999.0 {
			t.Errorf("edge %d = %+v, want sentinel", id, p)
		}
	}
}

func TestAnnotateInfrastructurePolygonFacility(t *testing.T) {
	edges := []models.Edge{
		{OSMID: 1, Projected: orb.LineString{{400, 500}, {600, 500}}},
		{OSMID: 2, Projected: orb.LineString{{1030, 500}, {1100, 500}}},
	}
	facilities := []orb.Geometry{
		orb.Polygon{{{0, 0}, {1000, 0}, {1000, 1000}, {0, 1000}, {0, 0}}},
	}

	got := AnnotateInfrastructure(edges, facilities, &MatchResult{EdgeIDs: []int64{1, 2}}, proximityConfig(), zap.NewNop())

	want := map[int64]Proximity{
		1: {HasDedicatedBikeLane: true, BikeLaneDistanceM: 0},
		2: {HasDedicatedBikeLane: false, BikeLaneDistanceM: 30},
	}
	for id, w := range want {
		if got[id] != w {
			t.Errorf("edge %d = %+v, want %+v", id, got[id], w)
		}
	}
}
