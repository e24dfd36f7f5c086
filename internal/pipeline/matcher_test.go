package pipeline

import (
	"testing"

	"github.com/paulmach/orb"
	"go.uber.org/zap"

	"github.com/cityzn/cityzn-backend-go/internal/models"
	"github.com/cityzn/cityzn-backend-go/internal/spatial"
)

// tableProjector maps known geographic points to chosen planar positions
type tableProjector map[orb.Point]orb.Point

func (t tableProjector) Project(p orb.Point) orb.Point { return t[p] }

func sensorAt(id string, lon, lat float64) models.Sensor {
	return models.Sensor{ID: id, Name: "sensor " + id, Location: &orb.Point{lon, lat}}
}

func TestMatchSensorsBoundary(t *testing.T) {
	ix := spatial.NewIndex(100)
	ix.Insert(10, orb.LineString{{0, 0}, {1000, 0}})
	ix.Insert(20, orb.LineString{{0, 500}, {1000, 500}})

	pr := tableProjector{
		{4.80, 45.70}: {500, 49.9},
		{4.81, 45.70}: {500, 50},
		{4.82, 45.70}: {500, 51},
		{4.83, 45.70}: {200, 470},
	}
	sensors := []models.Sensor{
		sensorAt("inside", 4.80, 45.70),
		sensorAt("boundary", 4.81, 45.70),
		sensorAt("outside", 4.82, 45.70),
		sensorAt("north", 4.83, 45.70),
		{ID: "nopoint", Name: "no point"},
		sensorAt("invalid", 4.8, 95),
	}

	res := MatchSensors(sensors, ix, pr, 50, zap.NewNop())

	tests := []struct {
		id       string
		wantEdge int64
		matched  bool
	}{
		{"inside", 10, true},
		{"boundary", 10, true},
		{"outside", 0, false},
		{"north", 20, true},
		{"nopoint", 0, false},
		{"invalid", 0, false},
	}
	for _, tt := range tests {
		m, ok := res.Matches[tt.id]
		if ok != tt.matched {
			t.Errorf("sensor %s matched = %v, want %v", tt.id, ok, tt.matched)
			continue
		}
		if ok && m.EdgeID != tt.wantEdge {
			t.Errorf("sensor %s edge = %d, want %d", tt.id, m.EdgeID, tt.wantEdge)
		}
	}

	if m := res.Matches["inside"]; m.DistanceM != 49.9 || m.SensorName != "sensor inside" {
		t.Errorf("inside match = %+v", m)
	}
	if got := res.EdgeIDs; len(got) != 2 || got[0] != 10 || got[1] != 20 {
		t.Errorf("EdgeIDs = %v, want [10 20]", got)
	}

	reasons := res.ExcludedByReason()
	if reasons[models.ExclusionTooFar] != 1 || reasons[models.ExclusionNoLocation] != 1 || reasons[models.ExclusionInvalidLocation] != 1 {
		t.Errorf("exclusions = %v", reasons)
	}
	if !res.HasEdge(20) || res.HasEdge(30) {
		t.Error("HasEdge mismatch")
	}
}

func TestMatchSensorsEmptyNetwork(t *testing.T) {
	pr := tableProjector{{4.8, 45.7}: {0, 0}}
	res := MatchSensors([]models.Sensor{sensorAt("a", 4.8, 45.7)}, spatial.NewIndex(100), pr, 50, zap.NewNop())
	if len(res.Matches) != 0 || res.Excluded[0].Reason != models.ExclusionNoEdges {
		t.Errorf("result = %+v", res)
	}
}

func TestMatchSensorsManyToOne(t *testing.T) {
	ix := spatial.NewIndex(100)
	ix.Insert(10, orb.LineString{{0, 0}, {1000, 0}})
	pr := tableProjector{{4.80, 45.70}: {100, 5}, {4.81, 45.70}: {900, -5}}

	res := MatchSensors([]models.Sensor{sensorAt("a", 4.80, 45.70), sensorAt("b", 4.81, 45.70)}, ix, pr, 50, zap.NewNop())
	if len(res.Matches) != 2 || len(res.EdgeIDs) != 1 {
		t.Errorf("matches = %d, edges = %v; want 2 sensors on one edge", len(res.Matches), res.EdgeIDs)
	}
}
