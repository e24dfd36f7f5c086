package feeds

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"go.uber.org/zap"

	"github.com/cityzn/cityzn-backend-go/internal/models"
	"github.com/cityzn/cityzn-backend-go/internal/spatial"
)

// Network is the decoded road network feed
type Network struct {
	Edges   []models.Edge
	CRS     spatial.CRS
	Skipped []SkippableRecordError
}

// collectionEnvelope accepts both the collector wrapper and a bare FeatureCollection
type collectionEnvelope struct {
	Type     string          `json:"type"`
	GeoJSON  json.RawMessage `json:"geojson"`
	Metadata struct {
		CRS string `json:"crs"`
	} `json:"metadata"`
}

type namedCRS struct {
	Properties struct {
		Name string `json:"name"`
	} `json:"properties"`
}

type rawCollection struct {
	Type     string            `json:"type"`
	Features []json.RawMessage `json:"features"`
	CRS      *namedCRS         `json:"crs"`
}

// readCollection decodes a GeoJSON feed and reports the CRS it declares, if any
func readCollection(feed, path string) (*rawCollection, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, "", fatal(feed, path, "file not found", err)
		}
		return nil, "", fatal(feed, path, "unreadable file", err)
	}

	var env collectionEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, "", fatal(feed, path, "invalid JSON", err)
	}

	body := data
	declared := env.Metadata.CRS
	if len(env.GeoJSON) > 0 && string(env.GeoJSON) != "null" {
		body = env.GeoJSON
	} else if env.Type != "FeatureCollection" {
		return nil, "", fatal(feed, path, "expected a FeatureCollection or a {\"geojson\": FeatureCollection} wrapper", nil)
	}

	var fc rawCollection
	if err := json.Unmarshal(body, &fc); err != nil {
		return nil, "", fatal(feed, path, "invalid FeatureCollection", err)
	}
	if fc.Type != "FeatureCollection" {
		return nil, "", fatal(feed, path, fmt.Sprintf("geojson type is %q, want FeatureCollection", fc.Type), nil)
	}
	if declared == "" && fc.CRS != nil {
		declared = fc.CRS.Properties.Name
	}
	return &fc, declared, nil
}

// LoadNetwork reads the OSM road network. Features without a usable osm_id
// or with a non linear geometry are skipped; edges with an empty or single
// point geometry are kept as degenerate edges.
func LoadNetwork(path string, defaultCRS string, log *zap.Logger) (*Network, error) {
	fc, declared, err := readCollection("network", path)
	if err != nil {
		return nil, err
	}

	crsName := declared
	if crsName == "" {
		crsName = defaultCRS
	}
	crs, err := spatial.ParseCRS(crsName)
	if err != nil {
		return nil, fatal("network", path, "unsupported CRS", err)
	}

	nw := &Network{CRS: crs, Edges: make([]models.Edge, 0, len(fc.Features))}
	seen := make(map[int64]struct{}, len(fc.Features))
	for i, raw := range fc.Features {
		source := fmt.Sprintf("%s feature %d", path, i)
		f, err := geojson.UnmarshalFeature(raw)
		if err != nil {
			nw.Skipped = append(nw.Skipped, SkippableRecordError{Source: source, Reason: err.Error()})
			continue
		}

		id, ok := propertyInt64(f.Properties, "osm_id")
		if !ok {
			nw.Skipped = append(nw.Skipped, SkippableRecordError{Source: source, Reason: "missing or invalid osm_id"})
			continue
		}
		if _, dup := seen[id]; dup {
			nw.Skipped = append(nw.Skipped, SkippableRecordError{Source: source, Reason: fmt.Sprintf("duplicate osm_id %d", id)})
			continue
		}

		geom, ok := edgeGeometry(f.Geometry)
		if !ok {
			nw.Skipped = append(nw.Skipped, SkippableRecordError{
				Source: source,
				Reason: fmt.Sprintf("unsupported geometry %s", f.Geometry.GeoJSONType()),
			})
			continue
		}
		seen[id] = struct{}{}

		nw.Edges = append(nw.Edges, models.Edge{
			OSMID:    id,
			Geometry: geom,
			Attrs: models.RawAttributes{
				Highway:  propertyString(f.Properties, "highway"),
				Name:     propertyString(f.Properties, "name"),
				Lanes:    propertyString(f.Properties, "lanes"),
				MaxSpeed: propertyString(f.Properties, "maxspeed"),
				OneWay:   propertyString(f.Properties, "oneway"),
				Surface:  propertyString(f.Properties, "surface"),
				Lit:      propertyString(f.Properties, "lit"),
				Cycleway: propertyString(f.Properties, "cycleway"),
				Bicycle:  propertyString(f.Properties, "bicycle"),
				Access:   propertyString(f.Properties, "access"),
			},
		})
	}

	if len(nw.Edges) == 0 {
		return nil, fatal("network", path, "no usable edges", nil)
	}
	for _, s := range nw.Skipped {
		log.Warn("network feature skipped", zap.String("source", s.Source), zap.String("reason", s.Reason))
	}
	log.Info("network loaded",
		zap.Int("edges", len(nw.Edges)),
		zap.Int("skipped", len(nw.Skipped)),
		zap.String("crs", string(crs)))
	return nw, nil
}

func edgeGeometry(g orb.Geometry) (orb.LineString, bool) {
	switch v := g.(type) {
	case nil:
		return nil, true
	case orb.LineString:
		return v, true
	case orb.Point:
		return orb.LineString{v}, true
	}
	return nil, false
}
