package pipeline

import (
	"strconv"
	"strings"

	"github.com/paulmach/orb"

	"github.com/cityzn/cityzn-backend-go/internal/models"
	"github.com/cityzn/cityzn-backend-go/internal/spatial"
)

// StaticConfig holds the defaults of the static feature calculator
type StaticConfig struct {
	DefaultMaxSpeedKmh int
	DefaultLanes       int
	Reference          orb.Point // projected
}

// ComputeStaticFeatures derives the static feature record of every edge.
// It is a pure function of the projected edges, the facility annotation and
// the sensor association, and returns records in input order.
func ComputeStaticFeatures(edges []models.Edge, proximity map[int64]Proximity, matches *MatchResult, cfg StaticConfig) []models.EdgeFeatures {
	out := make([]models.EdgeFeatures, 0, len(edges))
	for _, e := range edges {
		f := EdgeStaticFeatures(e, cfg)
		if p, ok := proximity[e.OSMID]; ok {
			f.HasDedicatedBikeLane = p.HasDedicatedBikeLane
			f.BikeLaneDistanceM = p.BikeLaneDistanceM
		}
		f.HasRealSensor = matches != nil && matches.HasEdge(e.OSMID)
		out = append(out, f)
	}
	return out
}

// EdgeStaticFeatures computes the features that depend on the edge alone
func EdgeStaticFeatures(e models.Edge, cfg StaticConfig) models.EdgeFeatures {
	highway := tagOr(e.Attrs.Highway, models.Unknown)
	f := models.EdgeFeatures{
		OSMID:          e.OSMID,
		Name:           tagOr(e.Attrs.Name, ""),
		HighwayType:    highway,
		RoadCategory:   CategorizeRoad(highway),
		Lanes:          ParseIntOr(e.Attrs.Lanes, cfg.DefaultLanes),
		MaxSpeedKmh:    ParseIntOr(e.Attrs.MaxSpeed, cfg.DefaultMaxSpeedKmh),
		IsOneWay:       tagIs(e.Attrs.OneWay, "yes"),
		IsLit:          tagIs(e.Attrs.Lit, "yes"),
		SurfaceQuality: CategorizeSurface(e.Attrs.Surface),
		BicycleAccess:  tagOr(e.Attrs.Bicycle, "yes"),
		HasCycleway:    e.Attrs.Cycleway != nil,
		CyclewayType:   tagOr(e.Attrs.Cycleway, "none"),
		EdgeLengthM:    spatial.Length(e.Projected),
		Orientation:    EdgeOrientation(e.Projected),
		Geometry:       e.Geometry,
	}
	if len(e.Projected) > 0 {
		f.DistanceToCenterKm = spatial.DistanceToPoint(e.Projected, cfg.Reference) / 1000
	}
	return f
}

// EdgeOrientation buckets the first to last bearing of a planar polyline.
// Polylines with fewer than two coordinates have an undefined orientation;
// a closed polyline has a zero chord and faces east.
func EdgeOrientation(ls orb.LineString) models.Orientation {
	angle, ok := spatial.Angle(ls)
	if !ok {
		return models.OrientationUndefined
	}
	return OrientationBucket(angle)
}

// OrientationBucket maps a mathematical angle in degrees (0 = east,
// counter-clockwise) to one of 8 half-open 45° octants centred on the
// compass directions, so [22.5, 67.5) is NE
func OrientationBucket(angle float64) models.Orientation {
	switch {
	case angle < 22.5 || angle >= 337.5:
		return models.OrientationEast
	case angle < 67.5:
		return models.OrientationNorthEast
	case angle < 112.5:
		return models.OrientationNorth
	case angle < 157.5:
		return models.OrientationNorthWest
	case angle < 202.5:
		return models.OrientationWest
	case angle < 247.5:
		return models.OrientationSouthWest
	case angle < 292.5:
		return models.OrientationSouth
	default:
		return models.OrientationSouthEast
	}
}

// CategorizeRoad maps an OSM highway tag to the closed road category taxonomy
func CategorizeRoad(highway string) string {
	switch highway {
	case "motorway", "trunk":
		return models.RoadCategoryMajor
	case "primary", "secondary":
		return models.RoadCategoryArterial
	case "tertiary", "residential":
		return models.RoadCategoryLocal
	case "cycleway", "path":
		return models.RoadCategoryBikePath
	default:
		return models.RoadCategoryOther
	}
}

// CategorizeSurface buckets an OSM surface tag, case-insensitively
func CategorizeSurface(surface *string) string {
	if surface == nil {
		return models.SurfaceUnknown
	}
	switch strings.ToLower(*surface) {
	case "asphalt", "paved":
		return models.SurfaceGood
	case "concrete", "paving_stones":
		return models.SurfaceMedium
	default:
		return models.SurfacePoor
	}
}

// ParseIntOr parses a tag made of decimal digits only, else returns def.
// "50 mph", "2;3" and "-1" all fall back to def.
func ParseIntOr(tag *string, def int) int {
	if tag == nil || *tag == "" {
		return def
	}
	for _, r := range *tag {
		if r < '0' || r > '9' {
			return def
		}
	}
	n, err := strconv.Atoi(*tag)
	if err != nil {
		return def
	}
	return n
}

func tagOr(tag *string, def string) string {
	if tag == nil {
		return def
	}
	return *tag
}

func tagIs(tag *string, want string) bool {
	return tag != nil && *tag == want
}
