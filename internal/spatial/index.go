package spatial

import (
	"math"
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// DefaultCellSize is the grid cell edge of an Index in metres
const DefaultCellSize = 250.0

// Index is a uniform-grid spatial index over projected geometries.
// It supports nearest-neighbour and within-distance queries without
// scanning every geometry. Polygons are areas: a point inside one is at
// distance 0.
type Index struct {
	cellSize float64
	items    []indexItem
	cells    map[cellKey][]int
	minCell  cellKey
	maxCell  cellKey
}

type indexItem struct {
	id    int64
	lines []orb.LineString
	areas []orb.Polygon
	bound orb.Bound
}

func (it indexItem) covers(p orb.Point) bool {
	for _, a := range it.areas {
		if planar.PolygonContains(a, p) {
			return true
		}
	}
	return false
}

func (it indexItem) distanceToPoint(p orb.Point) float64 {
	if it.covers(p) {
		return 0
	}
	best := math.Inf(1)
	for _, ls := range it.lines {
		if d := DistanceToPoint(ls, p); d < best {
			best = d
		}
	}
	return best
}

// distanceTo is 0 when a vertex of geom lies inside an area of the item;
// otherwise a line that enters an area crosses its boundary ring.
func (it indexItem) distanceTo(geom orb.LineString) float64 {
	if len(it.areas) > 0 {
		for _, p := range geom {
			if it.covers(p) {
				return 0
			}
		}
	}
	best := math.Inf(1)
	for _, ls := range it.lines {
		if d := DistanceBetween(ls, geom); d < best {
			best = d
		}
	}
	return best
}

type cellKey struct {
	x, y int
}

// NewIndex creates an empty index with the given cell size (metres)
func NewIndex(cellSize float64) *Index {
	if cellSize <= 0 {
		cellSize = DefaultCellSize
	}
	return &Index{
		cellSize: cellSize,
		cells:    make(map[cellKey][]int),
	}
}

// Insert adds a projected line string. Empty geometries are ignored, they
// can never be the nearest of anything.
func (ix *Index) Insert(id int64, geom orb.LineString) {
	if len(geom) == 0 {
		return
	}
	ix.insert(indexItem{id: id, lines: []orb.LineString{geom}, bound: geom.Bound()})
}

// InsertGeometry adds any projected geometry. Polygon rings are indexed as
// lines and the polygons themselves as areas.
func (ix *Index) InsertGeometry(id int64, g orb.Geometry) {
	it := indexItem{id: id, areas: Areas(g)}
	for _, ls := range Lines(g) {
		if len(ls) == 0 {
			continue
		}
		if len(it.lines) == 0 {
			it.bound = ls.Bound()
		} else {
			it.bound = it.bound.Union(ls.Bound())
		}
		it.lines = append(it.lines, ls)
	}
	if len(it.lines) == 0 {
		return
	}
	ix.insert(it)
}

func (ix *Index) insert(it indexItem) {
	b := it.bound
	pos := len(ix.items)
	ix.items = append(ix.items, it)

	lo, hi := ix.cellOf(b.Min), ix.cellOf(b.Max)
	if pos == 0 {
		ix.minCell, ix.maxCell = lo, hi
	} else {
		ix.minCell = cellKey{minInt(ix.minCell.x, lo.x), minInt(ix.minCell.y, lo.y)}
		ix.maxCell = cellKey{maxInt(ix.maxCell.x, hi.x), maxInt(ix.maxCell.y, hi.y)}
	}

	for x := lo.x; x <= hi.x; x++ {
		for y := lo.y; y <= hi.y; y++ {
			k := cellKey{x, y}
			ix.cells[k] = append(ix.cells[k], pos)
		}
	}
}

// Len returns the number of indexed geometries
func (ix *Index) Len() int {
	return len(ix.items)
}

// Nearest returns the geometry closest to p and its planar distance.
// Ties go to the geometry inserted first. ok is false on an empty index.
func (ix *Index) Nearest(p orb.Point) (id int64, dist float64, ok bool) {
	if len(ix.items) == 0 {
		return 0, 0, false
	}

	center := ix.cellOf(p)
	maxRing := ix.ringsToCover(center)
	// Far-away queries would walk mostly empty rings, a scan is cheaper
	if limit := int(math.Sqrt(float64(len(ix.items)))) + 2; maxRing > limit {
		return ix.nearestScan(p)
	}

	best, bestPos := math.Inf(1), -1
	for r := 0; r <= maxRing; r++ {
		for _, k := range ring(center, r) {
			for _, pos := range ix.cells[k] {
				d := ix.items[pos].distanceToPoint(p)
				if d < best || (d == best && pos < bestPos) {
					best, bestPos = d, pos
				}
			}
		}
		// Every geometry outside ring r is at least r cells away
		if bestPos >= 0 && best < float64(r)*ix.cellSize {
			break
		}
	}

	if bestPos < 0 {
		return 0, 0, false
	}
	return ix.items[bestPos].id, best, true
}

func (ix *Index) nearestScan(p orb.Point) (int64, float64, bool) {
	best, bestPos := math.Inf(1), -1
	for pos, it := range ix.items {
		if d := it.distanceToPoint(p); d < best {
			best, bestPos = d, pos
		}
	}
	if bestPos < 0 {
		return 0, 0, false
	}
	return ix.items[bestPos].id, best, true
}

// WithinDistance returns the ids of geometries whose planar distance to geom
// is at most buffer, sorted ascending
func (ix *Index) WithinDistance(geom orb.LineString, buffer float64) []int64 {
	var ids []int64
	ix.visitCandidates(geom, buffer, func(it indexItem) bool {
		if it.distanceTo(geom) <= buffer {
			ids = append(ids, it.id)
		}
		return true
	})
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return dedupe(ids)
}

// AnyWithinDistance reports whether at least one geometry lies within buffer of geom
func (ix *Index) AnyWithinDistance(geom orb.LineString, buffer float64) bool {
	found := false
	ix.visitCandidates(geom, buffer, func(it indexItem) bool {
		if it.distanceTo(geom) <= buffer {
			found = true
			return false
		}
		return true
	})
	return found
}

// MinDistance is the exact minimum distance from geom to every indexed
// geometry. It scans the whole index and is meant for small query sets.
func (ix *Index) MinDistance(geom orb.LineString) (float64, bool) {
	if len(ix.items) == 0 || len(geom) == 0 {
		return 0, false
	}
	best := math.Inf(1)
	for _, it := range ix.items {
		if d := it.distanceTo(geom); d < best {
			best = d
		}
	}
	return best, true
}

// visitCandidates calls fn once for every geometry whose bound intersects
// the bound of geom padded by buffer; fn returns false to stop
func (ix *Index) visitCandidates(geom orb.LineString, buffer float64, fn func(indexItem) bool) {
	if len(geom) == 0 || len(ix.items) == 0 {
		return
	}
	query := geom.Bound().Pad(buffer)
	lo, hi := ix.cellOf(query.Min), ix.cellOf(query.Max)
	lo = cellKey{maxInt(lo.x, ix.minCell.x), maxInt(lo.y, ix.minCell.y)}
	hi = cellKey{minInt(hi.x, ix.maxCell.x), minInt(hi.y, ix.maxCell.y)}

	seen := make(map[int]struct{})
	for x := lo.x; x <= hi.x; x++ {
		for y := lo.y; y <= hi.y; y++ {
			for _, pos := range ix.cells[cellKey{x, y}] {
				if _, dup := seen[pos]; dup {
					continue
				}
				seen[pos] = struct{}{}
				it := ix.items[pos]
				if !it.bound.Intersects(query) {
					continue
				}
				if !fn(it) {
					return
				}
			}
		}
	}
}

func (ix *Index) cellOf(p orb.Point) cellKey {
	return cellKey{
		x: int(math.Floor(p[0] / ix.cellSize)),
		y: int(math.Floor(p[1] / ix.cellSize)),
	}
}

// ringsToCover is the ring radius from c that reaches every occupied cell
func (ix *Index) ringsToCover(c cellKey) int {
	dx := maxInt(absInt(c.x-ix.minCell.x), absInt(ix.maxCell.x-c.x))
	dy := maxInt(absInt(c.y-ix.minCell.y), absInt(ix.maxCell.y-c.y))
	return maxInt(dx, dy)
}

// ring lists the cells at Chebyshev distance r from c
func ring(c cellKey, r int) []cellKey {
	if r == 0 {
		return []cellKey{c}
	}
	out := make([]cellKey, 0, 8*r)
	for x := c.x - r; x <= c.x+r; x++ {
		out = append(out, cellKey{x, c.y - r}, cellKey{x, c.y + r})
	}
	for y := c.y - r + 1; y <= c.y+r-1; y++ {
		out = append(out, cellKey{c.x - r, y}, cellKey{c.x + r, y})
	}
	return out
}

func dedupe(ids []int64) []int64 {
	if len(ids) < 2 {
		return ids
	}
	out := ids[:1]
	for _, id := range ids[1:] {
		if id != out[len(out)-1] {
			out = append(out, id)
		}
	}
	return out
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func absInt(a int) int {
	if a < 0 {
		return -a
	}
	return a
}
