package spatial

import (
	"math"
	"math/rand"
	"testing"

	"github.com/paulmach/orb"
)

func TestIndexNearest(t *testing.T) {
	ix := NewIndex(50)
	ix.Insert(1, orb.LineString{{0, 0}, {100, 0}})
	ix.Insert(2, orb.LineString{{0, 200}, {100, 200}})
	ix.Insert(3, orb.LineString{{5000, 5000}, {5100, 5000}})

	tests := []struct {
		name     string
		p        orb.Point
		wantID   int64
		wantDist float64
	}{
		{"close to first", orb.Point{50, 30}, 1, 30},
		{"close to second", orb.Point{50, 160}, 2, 40},
		{"far away", orb.Point{5050, 4900}, 3, 100},
		{"outside grid", orb.Point{-1000, 0}, 1, 1000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, d, ok := ix.Nearest(tt.p)
			if !ok {
				t.Fatal("expected a result")
			}
			if id != tt.wantID || math.Abs(d-tt.wantDist) > 1e-9 {
				t.Errorf("Nearest = (%d, %v), want (%d, %v)", id, d, tt.wantID, tt.wantDist)
			}
		})
	}
}

func TestIndexNearestMatchesScan(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	ix := NewIndex(100)
	var geoms []orb.LineString
	for i := 0; i < 300; i++ {
		x, y := rng.Float64()*5000, rng.Float64()*5000
		ls := orb.LineString{{x, y}, {x + rng.Float64()*200 - 100, y + rng.Float64()*200 - 100}}
		geoms = append(geoms, ls)
		ix.Insert(int64(i), ls)
	}

	for q := 0; q < 200; q++ {
		p := orb.Point{rng.Float64()*6000 - 500, rng.Float64()*6000 - 500}
		want := math.Inf(1)
		for _, g := range geoms {
			want = math.Min(want, DistanceToPoint(g, p))
		}
		_, got, ok := ix.Nearest(p)
		if !ok || math.Abs(got-want) > 1e-9 {
			t.Fatalf("query %v: Nearest dist = %v, scan = %v", p, got, want)
		}
	}
}

func TestIndexEmptyAndDegenerate(t *testing.T) {
	ix := NewIndex(0)
	if _, _, ok := ix.Nearest(orb.Point{0, 0}); ok {
		t.Error("empty index must not return a result")
	}

	ix.Insert(9, nil)
	if ix.Len() != 0 {
		t.Errorf("empty geometry must not be indexed, Len = %d", ix.Len())
	}

	ix.Insert(10, orb.LineString{{10, 10}})
	id, d, ok := ix.Nearest(orb.Point{13, 14})
	if !ok || id != 10 || math.Abs(d-5) > 1e-9 {
		t.Errorf("Nearest single point = (%d, %v, %v)", id, d, ok)
	}
}

func TestIndexWithinDistance(t *testing.T) {
	ix := NewIndex(25)
	ix.Insert(1, orb.LineString{{0, 0}, {100, 0}})
	ix.Insert(2, orb.LineString{{0, 20}, {100, 20}})
	ix.Insert(3, orb.LineString{{0, 21}, {100, 21}})
	ix.Insert(4, orb.LineString{{0, 300}, {100, 300}})

	got := ix.WithinDistance(orb.LineString{{0, 0}, {50, 0}}, 20)
	want := []int64{1, 2}
	if len(got) != len(want) {
		t.Fatalf("WithinDistance = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("WithinDistance = %v, want %v", got, want)
		}
	}

	if !ix.AnyWithinDistance(orb.LineString{{50, 280}}, 20) {
		t.Error("expected a geometry within 20m of (50,280)")
	}
	if ix.AnyWithinDistance(orb.LineString{{50, 150}}, 20) {
		t.Error("no geometry lies within 20m of (50,150)")
	}
}

func TestIndexMinDistance(t *testing.T) {
	ix := NewIndex(10)
	ix.Insert(1, orb.LineString{{0, 0}, {10, 0}})
	ix.Insert(2, orb.LineString{{0, 100}, {10, 100}})

	d, ok := ix.MinDistance(orb.LineString{{0, 60}, {10, 60}})
	if !ok || math.Abs(d-40) > 1e-9 {
		t.Errorf("MinDistance = (%v, %v), want (40, true)", d, ok)
	}

	if _, ok := NewIndex(10).MinDistance(orb.LineString{{0, 0}, {1, 1}}); ok {
		t.Error("MinDistance on empty index must report !ok")
	}
}

func TestIndexPolygonArea(t *testing.T) {
	ix := NewIndex(100)
	ix.InsertGeometry(1, orb.Polygon{{{0, 0}, {1000, 0}, {1000, 1000}, {0, 1000}, {0, 0}}})

	tests := []struct {
		name string
		geom orb.LineString
		want float64
	}{
		{"inside", orb.LineString{{400, 500}, {600, 500}}, 0},
		{"crossing the ring", orb.LineString{{900, 500}, {1100, 500}}, 0},
		{"outside", orb.LineString{{1030, 500}, {1100, 500}}, 30},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ix.MinDistance(tt.geom)
			if !ok || math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("MinDistance = (%v, %v), want %v", got, ok, tt.want)
			}
			if within := ix.AnyWithinDistance(tt.geom, 20); within != (tt.want <= 20) {
				t.Errorf("AnyWithinDistance = %v, want %v", within, tt.want <= 20)
			}
		})
	}

	if _, d, ok := ix.Nearest(orb.Point{500, 500}); !ok || d != 0 {
		t.Errorf("Nearest inside area = (%v, %v), want 0", d, ok)
	}
}
