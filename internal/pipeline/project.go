package pipeline

import (
	"fmt"

	"github.com/paulmach/orb"

	"github.com/cityzn/cityzn-backend-go/internal/models"
	"github.com/cityzn/cityzn-backend-go/internal/spatial"
)

// ProjectEdges fills the planar geometry of every edge from its geographic
// geometry in crs. The input slice is not modified.
func ProjectEdges(edges []models.Edge, crs spatial.CRS, lambert *spatial.Lambert93) ([]models.Edge, error) {
	pr, err := spatial.ProjectorFor(crs, lambert)
	if err != nil {
		return nil, fmt.Errorf("failed to project network: %w", err)
	}
	out := make([]models.Edge, len(edges))
	for i, e := range edges {
		e.Projected = spatial.ProjectLineString(pr, e.Geometry)
		out[i] = e
	}
	return out, nil
}

// ProjectFacilities reprojects the facility layer, keeping polygons as areas
func ProjectFacilities(geoms []orb.Geometry, crs spatial.CRS, lambert *spatial.Lambert93) ([]orb.Geometry, error) {
	pr, err := spatial.ProjectorFor(crs, lambert)
	if err != nil {
		return nil, fmt.Errorf("failed to project infrastructure: %w", err)
	}
	out := make([]orb.Geometry, 0, len(geoms))
	for _, g := range geoms {
		if g == nil {
			continue
		}
		out = append(out, spatial.ProjectGeometry(pr, g))
	}
	return out, nil
}

// BuildEdgeIndex indexes the projected edges by OSM id
func BuildEdgeIndex(edges []models.Edge, cellSize float64) *spatial.Index {
	ix := spatial.NewIndex(cellSize)
	for _, e := range edges {
		ix.Insert(e.OSMID, e.Projected)
	}
	return ix
}
