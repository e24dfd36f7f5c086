package export

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/guregu/null"
	"github.com/paulmach/orb/geojson"
	"go.uber.org/zap"

	"github.com/cityzn/cityzn-backend-go/internal/models"
)

// Artifact file names in the processed directory
const (
	DatasetCSVFile   = "final_dataset.csv"
	EdgesGeoJSONFile = "edges_static.geojson"
	SummaryFile      = "run_summary.json"
	SchemaFile       = "category_schema.json"
)

// TimestampLayout is the wall-clock format of exported timestamps
const TimestampLayout = "2006-01-02 15:04:05"

// Artifacts is the output of one successful build
type Artifacts struct {
	Edges   []models.EdgeFeatures
	Rows    []models.TrainingRow
	Summary *models.RunSummary
	Schema  *models.CategorySchema
}

// WriteArtifacts writes every artifact into dir. Each file is written to a
// temporary name first and renamed, so a failed build leaves the previous
// artifacts in place.
func WriteArtifacts(dir string, a Artifacts, log *zap.Logger) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	writers := []struct {
		name  string
		write func(io.Writer) error
	}{
		{DatasetCSVFile, func(w io.Writer) error { return WriteTrainingCSV(w, a.Rows) }},
		{EdgesGeoJSONFile, func(w io.Writer) error { return WriteEdgesGeoJSON(w, a.Edges) }},
		{SummaryFile, func(w io.Writer) error { return WriteJSON(w, a.Summary) }},
		{SchemaFile, func(w io.Writer) error { return WriteJSON(w, a.Schema) }},
	}
	for _, wr := range writers {
		path := filepath.Join(dir, wr.name)
		if err := writeFileAtomic(path, wr.write); err != nil {
			return fmt.Errorf("failed to write %s: %w", wr.name, err)
		}
		if log != nil {
			log.Info("artifact written", zap.String("path", path))
		}
	}
	return nil
}

func writeFileAtomic(path string, write func(io.Writer) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	bw := bufio.NewWriter(tmp)
	if err := write(bw); err != nil {
		tmp.Close()
		return err
	}
	if err := bw.Flush(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// WriteTrainingCSV writes rows in the fixed training column order. Null
// values are empty cells and booleans are 0/1.
func WriteTrainingCSV(w io.Writer, rows []models.TrainingRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(models.TrainingColumns); err != nil {
		return err
	}

	record := make([]string, len(models.TrainingColumns))
	for i := range rows {
		r := &rows[i]
		record = record[:0]
		record = append(record,
			strconv.FormatInt(r.EdgeID, 10),
			r.Timestamp.Format(TimestampLayout),
			strconv.Itoa(r.Hour),
			strconv.Itoa(r.DayOfWeek),
			formatBool(r.IsWeekend),
			formatBool(r.IsRushHourMorning),
			formatBool(r.IsRushHourEvening),
			formatNullFloat(r.TemperatureC),
			formatNullFloat(r.PrecipitationMM),
			formatNullFloat(r.WindSpeedKmh),
			formatNullBool(r.IsRaining),
			formatNullBool(r.IsCold),
			formatNullBool(r.IsHot),
			formatNullBool(r.IsWindy),
			r.HighwayType,
			r.RoadCategory,
			strconv.Itoa(r.Lanes),
			strconv.Itoa(r.MaxSpeedKmh),
			formatBool(r.HasCycleway),
			formatBool(r.HasDedicatedBikeLane),
			formatFloat(r.BikeLaneDistanceM),
			r.SurfaceQuality,
			formatBool(r.IsLit),
			formatFloat(r.EdgeLengthM),
			formatFloat(r.DistanceToCenterKm),
			string(r.Orientation),
			formatNullInt(r.BikeCount),
			formatNullInt(r.BikeCountLag1h),
			formatNullInt(r.BikeCountLag24h),
			formatNullFloat(r.BikeCountRolling7d),
		)
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteFeaturesCSV writes a prediction feature matrix, one row per edge
func WriteFeaturesCSV(w io.Writer, m *models.FeatureMatrix) error {
	cw := csv.NewWriter(w)
	header := append([]string{"edge_id"}, m.Columns...)
	if err := cw.Write(header); err != nil {
		return err
	}
	record := make([]string, 0, len(header))
	for _, row := range m.Rows {
		record = append(record[:0], strconv.FormatInt(row.EdgeID, 10))
		for _, v := range row.Values {
			record = append(record, formatFloat(v))
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteEdgesGeoJSON writes the static feature table as a FeatureCollection
// of line strings in geographic coordinates
func WriteEdgesGeoJSON(w io.Writer, edges []models.EdgeFeatures) error {
	fc := geojson.NewFeatureCollection()
	for i := range edges {
		e := &edges[i]
		f := geojson.NewFeature(e.Geometry)
		f.ID = e.OSMID
		f.Properties = geojson.Properties{
			"osm_id":                  e.OSMID,
			"name":                    e.Name,
			"highway_type":            e.HighwayType,
			"road_category":           e.RoadCategory,
			"lanes":                   e.Lanes,
			"maxspeed_kmh":            e.MaxSpeedKmh,
			"is_oneway":               e.IsOneWay,
			"is_lit":                  e.IsLit,
			"surface_quality":         e.SurfaceQuality,
			"bicycle_access":          e.BicycleAccess,
			"has_cycleway":            e.HasCycleway,
			"cycleway_type":           e.CyclewayType,
			"has_dedicated_bike_lane": e.HasDedicatedBikeLane,
			"bike_lane_distance_m":    e.BikeLaneDistanceM,
			"edge_length_m":           e.EdgeLengthM,
			"distance_to_center_km":   e.DistanceToCenterKm,
			"orientation":             string(e.Orientation),
			"has_real_sensor":         e.HasRealSensor,
		}
		fc.Append(f)
	}

	data, err := fc.MarshalJSON()
	if err != nil {
		return fmt.Errorf("failed to encode edges: %w", err)
	}
	_, err = w.Write(data)
	return err
}

// WriteJSON writes v as indented JSON
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func formatBool(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func formatNullFloat(f null.Float) string {
	if !f.Valid {
		return ""
	}
	return formatFloat(f.Float64)
}

func formatNullInt(i null.Int) string {
	if !i.Valid {
		return ""
	}
	return strconv.FormatInt(i.Int64, 10)
}

func formatNullBool(b null.Bool) string {
	if !b.Valid {
		return ""
	}
	return formatBool(b.Bool)
}
