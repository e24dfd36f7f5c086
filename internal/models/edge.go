package models

import "github.com/paulmach/orb"

// Edge is a road or path segment of the OSM network
type Edge struct {
	OSMID int64 `json:"osm_id"`

	// Geometry in geographic coordinates (lon, lat) as read from the feed
	Geometry orb.LineString `json:"geometry"`
	// Geometry reprojected to the planar metric CRS (Lambert-93)
	Projected orb.LineString `json:"-"`

	Attrs RawAttributes `json:"attributes"`
}

// RawAttributes holds the OSM tags of an edge, every one of them optional
type RawAttributes struct {
	Highway  *string `json:"highway,omitempty"`
	Name     *string `json:"name,omitempty"`
	Lanes    *string `json:"lanes,omitempty"`
	MaxSpeed *string `json:"maxspeed,omitempty"`
	OneWay   *string `json:"oneway,omitempty"`
	Surface  *string `json:"surface,omitempty"`
	Lit      *string `json:"lit,omitempty"`
	Cycleway *string `json:"cycleway,omitempty"`
	Bicycle  *string `json:"bicycle,omitempty"`
	Access   *string `json:"access,omitempty"`
}

// EdgeFeatures is the static feature record of one edge (edges_static table)
type EdgeFeatures struct {
	OSMID int64  `json:"osm_id" db:"osm_id"`
	Name  string `json:"name" db:"name"`

	// Road classification
	HighwayType    string `json:"highway_type" db:"highway_type"`
	RoadCategory   string `json:"road_category" db:"road_category"` // major, arterial, local, bike_path, other
	Lanes          int    `json:"lanes" db:"lanes"`
	MaxSpeedKmh    int    `json:"maxspeed_kmh" db:"maxspeed_kmh"`
	IsOneWay       bool   `json:"is_oneway" db:"is_oneway"`
	IsLit          bool   `json:"is_lit" db:"is_lit"`
	SurfaceQuality string `json:"surface_quality" db:"surface_quality"` // good, medium, poor, unknown
	BicycleAccess  string `json:"bicycle_access" db:"bicycle_access"`

	// Cycling infrastructure
	HasCycleway          bool    `json:"has_cycleway" db:"has_cycleway"`
	CyclewayType         string  `json:"cycleway_type" db:"cycleway_type"`
	HasDedicatedBikeLane bool    `json:"has_dedicated_bike_lane" db:"has_dedicated_bike_lane"`
	BikeLaneDistanceM    float64 `json:"bike_lane_distance_m" db:"bike_lane_distance_m"`

	// Geometry derived
	EdgeLengthM        float64     `json:"edge_length_m" db:"edge_length_m"`
	DistanceToCenterKm float64     `json:"distance_to_center_km" db:"distance_to_center_km"`
	Orientation        Orientation `json:"orientation" db:"orientation"` // empty when undefined

	HasRealSensor bool `json:"has_real_sensor" db:"has_real_sensor"`

	Geometry orb.LineString `json:"geometry" db:"geometry"`
}

// Orientation is one of the 8 compass octants of an edge
type Orientation string

// Orientation constants
const (
	OrientationEast      Orientation = "E"
	OrientationNorthEast Orientation = "NE"
	OrientationNorth     Orientation = "N"
	OrientationNorthWest Orientation = "NW"
	OrientationWest      Orientation = "W"
	OrientationSouthWest Orientation = "SW"
	OrientationSouth     Orientation = "S"
	OrientationSouthEast Orientation = "SE"
	OrientationUndefined Orientation = ""
)

// Road category constants
const (
	RoadCategoryMajor    = "major"
	RoadCategoryArterial = "arterial"
	RoadCategoryLocal    = "local"
	RoadCategoryBikePath = "bike_path"
	RoadCategoryOther    = "other"
)

// Surface quality constants
const (
	SurfaceGood    = "good"
	SurfaceMedium  = "medium"
	SurfacePoor    = "poor"
	SurfaceUnknown = "unknown"
)

// Unknown is used for absent categorical values
const Unknown = "unknown"
