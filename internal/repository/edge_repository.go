package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/cityzn/cityzn-backend-go/internal/models"
)

// EdgeRepository handles the edges_static table
type EdgeRepository struct {
	db DBTX
}

// NewEdgeRepository creates a new edge repository
func NewEdgeRepository(db DBTX) *EdgeRepository {
	return &EdgeRepository{db: db}
}

// ReplaceAll swaps the static feature table for the edges of runID. Bind
// the repository to a transaction so readers never see a partial table.
func (r *EdgeRepository) ReplaceAll(ctx context.Context, runID string, edges []models.EdgeFeatures) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM edges_static`); err != nil {
		return fmt.Errorf("failed to clear edges_static: %w", err)
	}

	stmt, err := r.db.PrepareContext(ctx, `
		INSERT INTO edges_static (
			osm_id, run_id, name, highway_type, road_category, lanes, maxspeed_kmh,
			is_oneway, is_lit, surface_quality, bicycle_access, has_cycleway,
			cycleway_type, has_dedicated_bike_lane, bike_lane_distance_m,
			edge_length_m, distance_to_center_km, orientation, has_real_sensor, geometry
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for i := range edges {
		e := &edges[i]
		geom, err := encodeGeometry(e.Geometry)
		if err != nil {
			return fmt.Errorf("edge %d: %w", e.OSMID, err)
		}
		_, err = stmt.ExecContext(ctx,
			e.OSMID, runID, e.Name, e.HighwayType, e.RoadCategory, e.Lanes, e.MaxSpeedKmh,
			e.IsOneWay, e.IsLit, e.SurfaceQuality, e.BicycleAccess, e.HasCycleway,
			e.CyclewayType, e.HasDedicatedBikeLane, e.BikeLaneDistanceM,
			e.EdgeLengthM, e.DistanceToCenterKm, string(e.Orientation), e.HasRealSensor, geom,
		)
		if err != nil {
			return fmt.Errorf("failed to insert edge %d: %w", e.OSMID, err)
		}
	}
	return nil
}

const edgeColumns = `osm_id, name, highway_type, road_category, lanes, maxspeed_kmh,
	is_oneway, is_lit, surface_quality, bicycle_access, has_cycleway,
	cycleway_type, has_dedicated_bike_lane, bike_lane_distance_m,
	edge_length_m, distance_to_center_km, orientation, has_real_sensor, geometry`

// GetByID retrieves the static features of one edge
func (r *EdgeRepository) GetByID(ctx context.Context, osmID int64) (*models.EdgeFeatures, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+edgeColumns+` FROM edges_static WHERE osm_id = ?`, osmID)
	e, err := scanEdge(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("edge %d: %w", osmID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get edge: %w", err)
	}
	return e, nil
}

// List returns every edge ordered by id
func (r *EdgeRepository) List(ctx context.Context) ([]models.EdgeFeatures, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+edgeColumns+` FROM edges_static ORDER BY osm_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list edges: %w", err)
	}
	defer rows.Close()

	var edges []models.EdgeFeatures
	for rows.Next() {
		e, err := scanEdge(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan edge: %w", err)
		}
		edges = append(edges, *e)
	}
	return edges, rows.Err()
}

// Count returns the number of edges and how many carry a sensor
func (r *EdgeRepository) Count(ctx context.Context) (total, withSensor int, err error) {
	err = r.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(has_real_sensor), 0) FROM edges_static`).Scan(&total, &withSensor)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to count edges: %w", err)
	}
	return total, withSensor, nil
}

func scanEdge(s rowScanner) (*models.EdgeFeatures, error) {
	var (
		e           models.EdgeFeatures
		orientation string
		geom        sql.NullString
	)
	err := s.Scan(
		&e.OSMID, &e.Name, &e.HighwayType, &e.RoadCategory, &e.Lanes, &e.MaxSpeedKmh,
		&e.IsOneWay, &e.IsLit, &e.SurfaceQuality, &e.BicycleAccess, &e.HasCycleway,
		&e.CyclewayType, &e.HasDedicatedBikeLane, &e.BikeLaneDistanceM,
		&e.EdgeLengthM, &e.DistanceToCenterKm, &orientation, &e.HasRealSensor, &geom,
	)
	if err != nil {
		return nil, err
	}
	e.Orientation = models.Orientation(orientation)
	if geom.Valid {
		if e.Geometry, err = decodeGeometry(geom.String); err != nil {
			return nil, fmt.Errorf("edge %d: %w", e.OSMID, err)
		}
	}
	return &e, nil
}

// Geometries are stored as GeoJSON geometry objects
func encodeGeometry(ls orb.LineString) (any, error) {
	if ls == nil {
		return nil, nil
	}
	data, err := geojson.NewGeometry(ls).MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("failed to encode geometry: %w", err)
	}
	return string(data), nil
}

func decodeGeometry(s string) (orb.LineString, error) {
	g, err := geojson.UnmarshalGeometry([]byte(s))
	if err != nil {
		return nil, fmt.Errorf("failed to decode geometry: %w", err)
	}
	switch v := g.Geometry().(type) {
	case orb.LineString:
		return v, nil
	case orb.Point:
		return orb.LineString{v}, nil
	}
	return nil, fmt.Errorf("unexpected geometry type %s", g.Type)
}
