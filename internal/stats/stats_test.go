package stats

import (
	"math"
	"testing"

	"github.com/guregu/null"
)

func TestQuantile(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		q      float64
		want   float64
	}{
		{"median odd", []float64{3, 1, 2}, 0.5, 2},
		{"median even", []float64{4, 1, 3, 2}, 0.5, 2.5},
		{"quartile interpolated", []float64{1, 2, 3, 4, 5}, 0.25, 2},
		{"clamped high", []float64{1, 9}, 2, 9},
		{"empty", nil, 0.5, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Quantile(tt.values, tt.q); math.Abs(got-tt.want) > 1e-12 {
				t.Errorf("Quantile = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestQuantileKeepsInputOrder(t *testing.T) {
	in := []float64{3, 1, 2}
	Median(in)
	if in[0] != 3 || in[1] != 1 || in[2] != 2 {
		t.Errorf("input reordered: %v", in)
	}
}

func TestSummarize(t *testing.T) {
	got := Summarize([]float64{10, math.NaN(), 30, 20, 40})
	if got.Count != 4 || got.Sum != 100 || got.Mean != 25 || got.Median != 25 || got.Min != 10 || got.Max != 40 {
		t.Errorf("Summarize = %+v", got)
	}

	if empty := Summarize(nil); empty.Count != 0 || empty.Mean != 0 {
		t.Errorf("Summarize(nil) = %+v", empty)
	}
}

func TestSummarizeNullable(t *testing.T) {
	ints := []null.Int{null.IntFrom(3), {}, null.IntFrom(5)}
	if got := SummarizeInts(ints); got.Count != 2 || got.Sum != 8 || got.Mean != 4 {
		t.Errorf("SummarizeInts = %+v", got)
	}

	floats := []null.Float{null.FloatFrom(1.5), null.FloatFrom(2.5), {}}
	if got := SummarizeFloats(floats); got.Count != 2 || got.Mean != 2 {
		t.Errorf("SummarizeFloats = %+v", got)
	}
}

func TestShare(t *testing.T) {
	values := []null.Bool{null.BoolFrom(true), null.BoolFrom(false), {}, null.BoolFrom(true), null.BoolFrom(false)}
	if got := Share(values); got != 0.5 {
		t.Errorf("Share = %v, want 0.5", got)
	}
	if got := Share(nil); got != 0 {
		t.Errorf("Share(nil) = %v, want 0", got)
	}
}
