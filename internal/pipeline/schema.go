package pipeline

import (
	"fmt"
	"sort"
	"time"

	"github.com/cityzn/cityzn-backend-go/internal/models"
)

// FeatureColumns is the fixed, ordered feature set of the training table
func FeatureColumns() []string {
	excluded := make(map[string]struct{}, len(models.NonFeatureColumns))
	for _, c := range models.NonFeatureColumns {
		excluded[c] = struct{}{}
	}
	cols := make([]string, 0, len(models.TrainingColumns))
	for _, c := range models.TrainingColumns {
		if _, skip := excluded[c]; !skip {
			cols = append(cols, c)
		}
	}
	return cols
}

// BuildSchema fits the category classes of every categorical feature column
// on the training rows. Classes are sorted so codes are stable; absent
// values are recorded as "unknown".
func BuildSchema(rows []models.TrainingRow, runID string, version int) models.CategorySchema {
	cols := FeatureColumns()
	schema := models.CategorySchema{
		Version:        version,
		RunID:          runID,
		FeatureColumns: cols,
		Categories:     make(map[string][]string),
		CreatedAt:      time.Now().UTC(),
	}

	for _, col := range categoricalFeatureColumns(cols) {
		set := make(map[string]struct{})
		for i := range rows {
			set[rowCategory(&rows[i], col)] = struct{}{}
		}
		classes := make([]string, 0, len(set))
		for c := range set {
			classes = append(classes, c)
		}
		sort.Strings(classes)
		schema.Categories[col] = classes
	}
	return schema
}

// Encode returns the code of value in column col, or UnseenCategory when
// the value was not present at training time
func Encode(schema *models.CategorySchema, col, value string) (int, error) {
	classes, ok := schema.Categories[col]
	if !ok {
		return 0, fmt.Errorf("%w: no classes for column %q", ErrSchemaMismatch, col)
	}
	if value == "" {
		value = models.Unknown
	}
	i := sort.SearchStrings(classes, value)
	if i < len(classes) && classes[i] == value {
		return i, nil
	}
	return models.UnseenCategory, nil
}

// ValidateSchema checks that a persisted schema can drive prediction
func ValidateSchema(schema *models.CategorySchema) error {
	if schema == nil {
		return fmt.Errorf("%w: no schema", ErrSchemaMismatch)
	}
	if schema.Version <= 0 {
		return fmt.Errorf("%w: invalid version %d", ErrSchemaMismatch, schema.Version)
	}
	if len(schema.FeatureColumns) == 0 {
		return fmt.Errorf("%w: empty feature column list", ErrSchemaMismatch)
	}
	for _, col := range categoricalFeatureColumns(schema.FeatureColumns) {
		classes, ok := schema.Categories[col]
		if !ok {
			return fmt.Errorf("%w: categorical column %q has no classes", ErrSchemaMismatch, col)
		}
		if !sort.StringsAreSorted(classes) {
			return fmt.Errorf("%w: classes of %q are not sorted", ErrSchemaMismatch, col)
		}
	}
	return nil
}

func categoricalFeatureColumns(cols []string) []string {
	present := make(map[string]struct{}, len(cols))
	for _, c := range cols {
		present[c] = struct{}{}
	}
	var out []string
	for _, c := range models.CategoricalColumns {
		if _, ok := present[c]; ok {
			out = append(out, c)
		}
	}
	return out
}

func isCategorical(col string) bool {
	for _, c := range models.CategoricalColumns {
		if c == col {
			return true
		}
	}
	return false
}

func rowCategory(r *models.TrainingRow, col string) string {
	var v string
	switch col {
	case "highway_type":
		v = r.HighwayType
	case "road_category":
		v = r.RoadCategory
	case "surface_quality":
		v = r.SurfaceQuality
	case "orientation":
		v = string(r.Orientation)
	}
	if v == "" {
		return models.Unknown
	}
	return v
}
