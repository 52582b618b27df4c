// Package stops holds the static per-stop attribute table consumed by the
// planner: coordinates, demographic shares and point-of-interest flags.
//
// The table is produced upstream (GTFS stop collapsing joined with census and
// OSM data) and is read-only once built.
package stops

import (
	"errors"
	"fmt"
	"sort"

	"github.com/katalvlaran/transitplan/geo"
)

// Sentinel errors for table construction and loading.
var (
	// ErrEmptyStopID indicates a row without an identifier.
	ErrEmptyStopID = errors.New("stops: stop ID is empty")

	// ErrDuplicateStop indicates the same identifier appeared twice.
	ErrDuplicateStop = errors.New("stops: duplicate stop ID")

	// ErrMissingColumn indicates a required CSV column is absent.
	ErrMissingColumn = errors.New("stops: missing required column")

	// ErrBadValue indicates a cell could not be parsed.
	ErrBadValue = errors.New("stops: bad value")
)

// Stop is one row of the attribute table.
type Stop struct {
	ID   string
	Name string
	geo.Point

	// RenterShare is the share of renter-occupied housing units.
	RenterShare float64
	// VehicleShare is the share of households with a vehicle.
	VehicleShare float64
	// PovertyShare is the share of residents under 200% of the poverty line.
	PovertyShare float64

	// Near holds POI proximity flags keyed by column name, e.g. "near_hospital".
	Near map[string]bool
}

// IsNear reports whether the stop carries the given POI flag.
func (s *Stop) IsNear(flag string) bool { return s.Near[flag] }

// Table is an immutable set of stops keyed by ID.
type Table struct {
	byID map[string]*Stop
	ids  []string // sorted
}

// NewTable builds a Table, rejecting empty and duplicate identifiers.
func NewTable(rows []Stop) (*Table, error) {
	t := &Table{byID: make(map[string]*Stop, len(rows))}
	for i := range rows {
		s := rows[i]
		if s.ID == "" {
			return nil, ErrEmptyStopID
		}
		if _, dup := t.byID[s.ID]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateStop, s.ID)
		}
		t.byID[s.ID] = &s
		t.ids = append(t.ids, s.ID)
	}
	sort.Strings(t.ids)

	return t, nil
}

// Len returns the number of stops.
func (t *Table) Len() int { return len(t.ids) }

// IDs returns all identifiers in ascending order.
func (t *Table) IDs() []string {
	out := make([]string, len(t.ids))
	copy(out, t.ids)

	return out
}

// Get returns the stop with the given id.
func (t *Table) Get(id string) (*Stop, bool) {
	s, ok := t.byID[id]

	return s, ok
}

// Name returns the display name of id, or id itself when unnamed or unknown.
func (t *Table) Name(id string) string {
	if s, ok := t.byID[id]; ok && s.Name != "" {
		return s.Name
	}

	return id
}

// Point implements the locator used by path search.
func (t *Table) Point(id string) (geo.Point, bool) {
	s, ok := t.byID[id]
	if !ok {
		return geo.Point{}, false
	}

	return s.Point, true
}

// Filter returns the ids, ascending, of stops matching pred.
func (t *Table) Filter(pred Predicate) []string {
	var out []string
	for _, id := range t.ids {
		if pred(t.byID[id]) {
			out = append(out, id)
		}
	}

	return out
}

// Projection derives the dataset's longitude factor from its stops.
func (t *Table) Projection() (geo.Projection, error) {
	pts := make([]geo.Point, 0, len(t.ids))
	for _, id := range t.ids {
		pts = append(pts, t.byID[id].Point)
	}

	return geo.FromPoints(pts)
}

// Index builds a spatial index of every stop under proj.
func (t *Table) Index(proj geo.Projection) *geo.Index {
	pts := make(map[string]geo.Point, len(t.ids))
	for _, id := range t.ids {
		pts[id] = t.byID[id].Point
	}

	return geo.NewIndex(proj, pts)
}
