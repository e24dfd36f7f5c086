package spatial

import (
	"fmt"
	"math"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/project"
)

// CRS identifies a coordinate reference system accepted by the feeds
type CRS string

// Supported coordinate reference systems
const (
	CRSWGS84     CRS = "EPSG:4326" // geographic, lon/lat
	CRSRGF93     CRS = "EPSG:4171" // geographic, lon/lat on GRS80
	CRSLambert93 CRS = "EPSG:2154" // planar metres
)

// ParseCRS normalises the CRS notations found in GeoJSON feeds
// ("EPSG:4326", "urn:ogc:def:crs:EPSG::4171", "urn:ogc:def:crs:OGC:1.3:CRS84", ...)
func ParseCRS(name string) (CRS, error) {
	n := strings.ToUpper(strings.TrimSpace(name))
	if n == "" {
		return "", fmt.Errorf("empty CRS")
	}
	if strings.HasSuffix(n, "CRS84") {
		return CRSWGS84, nil
	}

	// Keep the trailing EPSG code, whatever the prefix notation
	code := n
	if i := strings.LastIndex(n, ":"); i >= 0 {
		code = n[i+1:]
	}
	if j := strings.IndexAny(code, " ("); j >= 0 {
		code = code[:j]
	}

	switch code {
	case "4326":
		return CRSWGS84, nil
	case "4171":
		return CRSRGF93, nil
	case "2154":
		return CRSLambert93, nil
	}
	return "", fmt.Errorf("unsupported CRS %q", name)
}

// Geographic reports whether coordinates in this CRS are degrees
func (c CRS) Geographic() bool {
	return c == CRSWGS84 || c == CRSRGF93
}

// Projector converts geographic coordinates to a planar, distance-preserving CRS.
// Distances must never be computed on raw degrees.
type Projector interface {
	Project(p orb.Point) orb.Point
}

// Lambert93 implements the EPSG:2154 Lambert conformal conic projection (GRS80)
type Lambert93 struct {
	n, f, rho0 float64
}

// Lambert-93 parameters
const (
	grs80A      = 6378137.0
	grs80InvF   = 298.257222101
	lambertLon0 = 3.0
	lambertLat0 = 46.5
	lambertLat1 = 44.0
	lambertLat2 = 49.0
	lambertX0   = 700000.0
	lambertY0   = 6600000.0
)

var grs80E = func() float64 {
	f := 1 / grs80InvF
	return math.Sqrt(2*f - f*f)
}()

// NewLambert93 precomputes the projection constants
func NewLambert93() *Lambert93 {
	phi1 := lambertLat1 * math.Pi / 180
	phi2 := lambertLat2 * math.Pi / 180
	phi0 := lambertLat0 * math.Pi / 180

	m1, m2 := lccM(phi1), lccM(phi2)
	t0, t1, t2 := lccT(phi0), lccT(phi1), lccT(phi2)

	n := (math.Log(m1) - math.Log(m2)) / (math.Log(t1) - math.Log(t2))
	f := m1 / (n * math.Pow(t1, n))

	return &Lambert93{
		n:    n,
		f:    f,
		rho0: grs80A * f * math.Pow(t0, n),
	}
}

// Project maps a lon/lat point (degrees) to Lambert-93 easting/northing (metres)
func (l *Lambert93) Project(p orb.Point) orb.Point {
	lon, lat := p[0], p[1]
	phi := lat * math.Pi / 180

	rho := grs80A * l.f * math.Pow(lccT(phi), l.n)
	theta := l.n * (lon - lambertLon0) * math.Pi / 180

	return orb.Point{
		lambertX0 + rho*math.Sin(theta),
		lambertY0 + l.rho0 - rho*math.Cos(theta),
	}
}

func lccM(phi float64) float64 {
	s := math.Sin(phi)
	return math.Cos(phi) / math.Sqrt(1-grs80E*grs80E*s*s)
}

func lccT(phi float64) float64 {
	s := math.Sin(phi)
	return math.Tan(math.Pi/4-phi/2) / math.Pow((1-grs80E*s)/(1+grs80E*s), grs80E/2)
}

// identity is used for feeds already in the planar CRS
type identity struct{}

func (identity) Project(p orb.Point) orb.Point { return p }

// ProjectorFor returns the projector taking coordinates of crs to Lambert-93.
// RGF93 and WGS84 differ by less than a metre and share the same projector.
func ProjectorFor(crs CRS, lambert *Lambert93) (Projector, error) {
	switch {
	case crs.Geographic():
		return lambert, nil
	case crs == CRSLambert93:
		return identity{}, nil
	}
	return nil, fmt.Errorf("no projection from %s", crs)
}

// ProjectLineString reprojects every coordinate of a line string
func ProjectLineString(pr Projector, ls orb.LineString) orb.LineString {
	if ls == nil {
		return nil
	}
	out := make(orb.LineString, len(ls))
	for i, p := range ls {
		out[i] = pr.Project(p)
	}
	return out
}

// ProjectGeometry reprojects a copy of any geometry, keeping its type
func ProjectGeometry(pr Projector, g orb.Geometry) orb.Geometry {
	if g == nil {
		return nil
	}
	return project.Geometry(orb.Clone(g), pr.Project)
}
