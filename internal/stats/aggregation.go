package stats

import (
	"math"
	"sort"

	"github.com/guregu/null"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/cityzn/cityzn-backend-go/internal/models"
)

// Summarize computes count, sum, mean, median, min and max of values.
// NaN values are ignored; an empty input gives a zero summary.
func Summarize(values []float64) models.ValueStats {
	clean := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			clean = append(clean, v)
		}
	}
	if len(clean) == 0 {
		return models.ValueStats{}
	}
	sort.Float64s(clean)

	return models.ValueStats{
		Count:  len(clean),
		Sum:    floats.Sum(clean),
		Mean:   stat.Mean(clean, nil),
		Median: quantileSorted(clean, 0.5),
		Min:    clean[0],
		Max:    clean[len(clean)-1],
	}
}

// SummarizeInts summarises the valid entries of a nullable integer column
func SummarizeInts(values []null.Int) models.ValueStats {
	fs := make([]float64, 0, len(values))
	for _, v := range values {
		if v.Valid {
			fs = append(fs, float64(v.Int64))
		}
	}
	return Summarize(fs)
}

// SummarizeFloats summarises the valid entries of a nullable float column
func SummarizeFloats(values []null.Float) models.ValueStats {
	fs := make([]float64, 0, len(values))
	for _, v := range values {
		if v.Valid {
			fs = append(fs, v.Float64)
		}
	}
	return Summarize(fs)
}

// Share is the fraction of true values among the valid ones, 0 when none is valid
func Share(values []null.Bool) float64 {
	valid, hits := 0, 0
	for _, v := range values {
		if !v.Valid {
			continue
		}
		valid++
		if v.Bool {
			hits++
		}
	}
	if valid == 0 {
		return 0
	}
	return float64(hits) / float64(valid)
}
