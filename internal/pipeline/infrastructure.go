package pipeline

import (
	"github.com/paulmach/orb"
	"go.uber.org/zap"

	"github.com/cityzn/cityzn-backend-go/internal/models"
	"github.com/cityzn/cityzn-backend-go/internal/spatial"
)

// Proximity is the facility annotation of one edge
type Proximity struct {
	HasDedicatedBikeLane bool
	BikeLaneDistanceM    float64
}

// ProximityConfig holds the annotator thresholds
type ProximityConfig struct {
	BufferM   float64
	SentinelM float64
	CellSizeM float64
}

// AnnotateInfrastructure flags every edge lying within BufferM of a facility
// and computes the exact facility distance for the edges of sensorEdges only.
// Every other edge keeps SentinelM. Facility polygons count as areas, so an
// edge with a vertex inside one is at distance 0. Geometries must be projected; a nil or
// empty facility layer leaves every edge unflagged at the sentinel distance.
func AnnotateInfrastructure(edges []models.Edge, facilities []orb.Geometry, sensorEdges *MatchResult, cfg ProximityConfig, log *zap.Logger) map[int64]Proximity {
	out := make(map[int64]Proximity, len(edges))
	for _, e := range edges {
		out[e.OSMID] = Proximity{BikeLaneDistanceM: cfg.SentinelM}
	}
	if len(facilities) == 0 {
		return out
	}

	fix := spatial.NewIndex(cfg.CellSizeM)
	for i, f := range facilities {
		fix.InsertGeometry(int64(i), f)
	}

	flagged, exact := 0, 0
	for _, e := range edges {
		p := out[e.OSMID]
		// Tier 1: cheap boolean over every edge through the facility grid
		if fix.AnyWithinDistance(e.Projected, cfg.BufferM) {
			p.HasDedicatedBikeLane = true
			flagged++
		}
		// Tier 2: exact distance only where training needs it
		if sensorEdges != nil && sensorEdges.HasEdge(e.OSMID) {
			if d, ok := fix.MinDistance(e.Projected); ok {
				p.BikeLaneDistanceM = d
				exact++
			}
		}
		out[e.OSMID] = p
	}

	log.Info("infrastructure annotated",
		zap.Int("facilities", len(facilities)),
		zap.Int("edges_with_lane", flagged),
		zap.Int("exact_distances", exact))
	return out
}
