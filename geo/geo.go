// Package geo provides the local flattening approximations used to measure
// distances between stops at city scale.
//
// Coordinates are projected onto a plane where one degree of latitude is
// MetersPerDegree metres and one degree of longitude is MetersPerDegree scaled
// by a per-dataset cosine factor (see CosineFactor). This is deliberately not a
// geodesic formula: travel costs downstream are calibrated against it.
//
// Errors:
//
//	ErrNoPoints - an aggregate was requested over an empty coordinate set.
package geo

import (
	"errors"
	"math"
	"sort"
)

// MetersPerDegree is the length of one degree of latitude in metres.
const MetersPerDegree = 111111.0

// ErrNoPoints indicates an aggregate was requested over no coordinates.
var ErrNoPoints = errors.New("geo: no points")

// Point is a WGS84 coordinate pair in decimal degrees.
type Point struct {
	Lat float64
	Lon float64
}

// Projection carries the longitude scaling factor of a dataset.
// The zero value is not usable; build it with NewProjection or FromPoints.
type Projection struct {
	// Cos is the cosine of the dataset's median latitude.
	Cos float64
}

// NewProjection returns a Projection for an explicit cosine factor.
func NewProjection(cos float64) Projection {
	return Projection{Cos: cos}
}

// FromPoints derives the Projection from the median latitude of pts.
func FromPoints(pts []Point) (Projection, error) {
	c, err := CosineFactor(pts)
	if err != nil {
		return Projection{}, err
	}

	return Projection{Cos: c}, nil
}

// CosineFactor returns cos(median latitude) for pts.
// Complexity: O(n log n).
func CosineFactor(pts []Point) (float64, error) {
	if len(pts) == 0 {
		return 0, ErrNoPoints
	}
	lats := make([]float64, len(pts))
	for i, p := range pts {
		lats[i] = p.Lat
	}
	sort.Float64s(lats)

	var median float64
	n := len(lats)
	if n%2 == 1 {
		median = lats[n/2]
	} else {
		median = (lats[n/2-1] + lats[n/2]) / 2
	}

	return math.Cos(median * math.Pi / 180), nil
}

// deltas returns the projected east-west and north-south separations in metres.
func (pr Projection) deltas(a, b Point) (dx, dy float64) {
	dx = pr.Cos * MetersPerDegree * math.Abs(a.Lon-b.Lon)
	dy = MetersPerDegree * math.Abs(a.Lat-b.Lat)

	return dx, dy
}

// Distance returns the straight-line distance between a and b in metres.
func (pr Projection) Distance(a, b Point) float64 {
	dx, dy := pr.deltas(a, b)

	return math.Sqrt(dx*dx + dy*dy)
}

// Manhattan returns the grid (L1) distance between a and b in metres.
// Driving costs use this metric.
func (pr Projection) Manhattan(a, b Point) float64 {
	dx, dy := pr.deltas(a, b)

	return dx + dy
}

// DegreeBox returns the half-extents in degrees of a square that contains every
// point within meters of a position under this projection.
func (pr Projection) DegreeBox(meters float64) (dLat, dLon float64) {
	dLat = meters / MetersPerDegree
	if pr.Cos <= 0 {
		return dLat, 180
	}
	dLon = meters / (MetersPerDegree * pr.Cos)

	return dLat, dLon
}
