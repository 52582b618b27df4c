package geo

import (
	"math"
	"sort"

	"github.com/tidwall/rtree"
)

// Index is a point index of identified locations backed by an R-tree.
// Keys are stored as [lat, lon] boxes of zero extent.
//
// Index is read-only after construction and safe for concurrent readers.
type Index struct {
	proj   Projection
	tree   rtree.RTreeG[string]
	points map[string]Point
}

// NewIndex builds an Index over points using proj for distance filtering.
// Complexity: O(n log n).
func NewIndex(proj Projection, points map[string]Point) *Index {
	idx := &Index{
		proj:   proj,
		points: make(map[string]Point, len(points)),
	}
	for id, p := range points {
		idx.points[id] = p
		key := [2]float64{p.Lat, p.Lon}
		idx.tree.Insert(key, key, id)
	}

	return idx
}

// Projection returns the projection the index measures with.
func (idx *Index) Projection() Projection { return idx.proj }

// Len reports the number of indexed points.
func (idx *Index) Len() int { return len(idx.points) }

// Point returns the location of id.
func (idx *Index) Point(id string) (Point, bool) {
	p, ok := idx.points[id]

	return p, ok
}

// Within returns the ids whose straight-line distance to center is at most
// meters, sorted ascending. The center itself is included when indexed.
func (idx *Index) Within(center Point, meters float64) []string {
	dLat, dLon := idx.proj.DegreeBox(meters)
	lo := [2]float64{center.Lat - dLat, center.Lon - dLon}
	hi := [2]float64{center.Lat + dLat, center.Lon + dLon}

	var out []string
	idx.tree.Search(lo, hi, func(_, _ [2]float64, id string) bool {
		if idx.proj.Distance(center, idx.points[id]) <= meters {
			out = append(out, id)
		}
		return true
	})
	sort.Strings(out)

	return out
}

// Nearest returns the id closest to p and its distance in metres.
// Ties resolve to the smallest id. ok is false for an empty index.
//
// The tree is walked in distance order; a node's distance is that of its
// box's closest point, which never exceeds the distance of any point inside.
func (idx *Index) Nearest(p Point) (id string, meters float64, ok bool) {
	idx.tree.Nearby(
		func(lo, hi [2]float64, _ string, _ bool) float64 {
			return idx.proj.Distance(p, Point{
				Lat: math.Max(lo[0], math.Min(p.Lat, hi[0])),
				Lon: math.Max(lo[1], math.Min(p.Lon, hi[1])),
			})
		},
		func(_, _ [2]float64, cand string, d float64) bool {
			if ok && d > meters {
				return false
			}
			if !ok || cand < id {
				id, meters, ok = cand, d, true
			}
			return true
		},
	)

	return id, meters, ok
}
