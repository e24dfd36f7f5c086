package spatial

import (
	"math"
	"testing"

	"github.com/paulmach/orb"
)

func TestAngle(t *testing.T) {
	tests := []struct {
		name   string
		ls     orb.LineString
		want   float64
		wantOK bool
	}{
		{"due east", orb.LineString{{0, 0}, {10, 0}}, 0, true},
		{"due north", orb.LineString{{0, 0}, {0, 10}}, 90, true},
		{"due west", orb.LineString{{0, 0}, {-10, 0}}, 180, true},
		{"due south", orb.LineString{{0, 0}, {0, -10}}, 270, true},
		{"uses first and last only", orb.LineString{{0, 0}, {0, 50}, {10, 10}}, 45, true},
		{"single point", orb.LineString{{1, 1}}, 0, false},
		{"empty", nil, 0, false},
		{"closed loop", orb.LineString{{0, 0}, {5, 5}, {0, 0}}, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Angle(tt.ls)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Angle = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLength(t *testing.T) {
	ls := orb.LineString{{0, 0}, {3, 4}, {3, 10}}
	if got := Length(ls); math.Abs(got-11) > 1e-9 {
		t.Errorf("Length = %v, want 11", got)
	}
	if got := Length(orb.LineString{{1, 1}}); got != 0 {
		t.Errorf("Length(single point) = %v, want 0", got)
	}
}

func TestDistanceToPoint(t *testing.T) {
	ls := orb.LineString{{0, 0}, {100, 0}}
	tests := []struct {
		name string
		p    orb.Point
		want float64
	}{
		{"perpendicular", orb.Point{50, 30}, 30},
		{"beyond end", orb.Point{103, 4}, 5},
		{"on line", orb.Point{20, 0}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DistanceToPoint(ls, tt.p); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("DistanceToPoint = %v, want %v", got, tt.want)
			}
		})
	}

	if got := DistanceToPoint(orb.LineString{{0, 0}}, orb.Point{3, 4}); math.Abs(got-5) > 1e-9 {
		t.Errorf("single-point line distance = %v, want 5", got)
	}
	if got := DistanceToPoint(nil, orb.Point{3, 4}); !math.IsInf(got, 1) {
		t.Errorf("empty line distance = %v, want +Inf", got)
	}
}

func TestDistanceBetween(t *testing.T) {
	tests := []struct {
		name string
		a, b orb.LineString
		want float64
	}{
		{"crossing", orb.LineString{{0, 0}, {10, 10}}, orb.LineString{{0, 10}, {10, 0}}, 0},
		{"parallel", orb.LineString{{0, 0}, {10, 0}}, orb.LineString{{0, 15}, {10, 15}}, 15},
		{"touching endpoint", orb.LineString{{0, 0}, {10, 0}}, orb.LineString{{10, 0}, {20, 5}}, 0},
		{"collinear apart", orb.LineString{{0, 0}, {10, 0}}, orb.LineString{{13, 0}, {20, 0}}, 3},
		{"point vs line", orb.LineString{{5, 8}}, orb.LineString{{0, 0}, {10, 0}}, 8},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DistanceBetween(tt.a, tt.b); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("DistanceBetween = %v, want %v", got, tt.want)
			}
			if got := DistanceBetween(tt.b, tt.a); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("DistanceBetween (swapped) = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLines(t *testing.T) {
	poly := orb.Polygon{orb.Ring{{0, 0}, {1, 0}, {1, 1}, {0, 0}}}
	if got := Lines(poly); len(got) != 1 || len(got[0]) != 4 {
		t.Errorf("Lines(polygon) = %v", got)
	}
	mls := orb.MultiLineString{{{0, 0}, {1, 1}}, {{2, 2}, {3, 3}}}
	if got := Lines(mls); len(got) != 2 {
		t.Errorf("Lines(multilinestring) len = %d, want 2", len(got))
	}
	if got := Lines(orb.Point{1, 2}); len(got) != 1 || len(got[0]) != 1 {
		t.Errorf("Lines(point) = %v", got)
	}
}
