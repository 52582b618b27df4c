// Package feed adapts a GTFS static feed into plan input.
//
// Stops are collapsed into plan nodes before anything else: every stop that
// belongs to a station becomes the station, and free-standing stops are
// grouped by S2 cell. Trips are then rewritten onto the collapsed ids and
// handed to plan.FromSchedule.
package feed

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/golang/geo/s2"
	"github.com/jamespfennell/gtfs"

	"github.com/katalvlaran/transitplan/geo"
	"github.com/katalvlaran/transitplan/plan"
	"github.com/katalvlaran/transitplan/stops"
)

// DefaultLevel is the S2 cell level used to group free-standing stops
// (about 70 m across).
const DefaultLevel = 17

// Mapping maps a GTFS stop id to its collapsed node id.
type Mapping map[string]string

// Node is one collapsed plan node.
type Node struct {
	ID      string
	Lat     float64
	Lon     float64
	Located bool     // false when no member has coordinates
	Members []string // GTFS stop ids, sorted
}

// Point returns the node's mean location.
func (n Node) Point() geo.Point { return geo.Point{Lat: n.Lat, Lon: n.Lon} }

// Load reads and parses the GTFS static zip at path.
func Load(path string) (*gtfs.Static, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("feed: read %s: %w", path, err)
	}

	return Parse(content)
}

// Parse parses the bytes of a GTFS static zip.
func Parse(content []byte) (*gtfs.Static, error) {
	static, err := gtfs.ParseStatic(content, gtfs.ParseStaticOptions{})
	if err != nil {
		return nil, fmt.Errorf("feed: parse static: %w", err)
	}

	return static, nil
}

// cellID names the S2 cell at level that contains (lat, lon).
func cellID(lat, lon float64, level int) string {
	id := s2.CellIDFromLatLng(s2.LatLngFromDegrees(lat, lon)).Parent(level)
	return fmt.Sprintf("s2_%d", uint64(id))
}

// NodeID returns the collapsed id of stop: its root station when it has one,
// the stop itself when it is a station, and otherwise the S2 cell of its
// coordinates. ok is false for a free-standing stop without coordinates.
func NodeID(stop *gtfs.Stop, level int) (id string, ok bool) {
	if stop.Type == gtfs.StopType_Station {
		return stop.Id, true
	}
	if stop.Parent != nil {
		if root := stop.Root(); root.Type == gtfs.StopType_Station {
			return root.Id, true
		}
	}
	if stop.Latitude != nil && stop.Longitude != nil {
		return cellID(*stop.Latitude, *stop.Longitude, level), true
	}

	return "", false
}

// Collapse maps every placeable stop of static to its node id. level <= 0
// selects DefaultLevel.
func Collapse(static *gtfs.Static, level int) Mapping {
	if level <= 0 {
		level = DefaultLevel
	}
	m := make(Mapping, len(static.Stops))
	for i := range static.Stops {
		if id, ok := NodeID(&static.Stops[i], level); ok {
			m[static.Stops[i].Id] = id
		}
	}

	return m
}

// Nodes lists the collapsed nodes in id order, each located at the mean of
// its members' coordinates.
func Nodes(static *gtfs.Static, mapping Mapping) []Node {
	type acc struct {
		lat, lon float64
		n        int
		members  []string
	}
	byID := make(map[string]*acc)
	for i := range static.Stops {
		stop := &static.Stops[i]
		id, ok := mapping[stop.Id]
		if !ok {
			continue
		}
		a := byID[id]
		if a == nil {
			a = &acc{}
			byID[id] = a
		}
		a.members = append(a.members, stop.Id)
		if stop.Latitude != nil && stop.Longitude != nil {
			a.lat += *stop.Latitude
			a.lon += *stop.Longitude
			a.n++
		}
	}

	out := make([]Node, 0, len(byID))
	for id, a := range byID {
		n := Node{ID: id, Members: a.members}
		if a.n > 0 {
			n.Lat, n.Lon = a.lat/float64(a.n), a.lon/float64(a.n)
			n.Located = true
		}
		sort.Strings(n.Members)
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })

	return out
}

// Trips rewrites the feed's trips onto collapsed node ids. Calls at
// unmapped stops are dropped, as are trips left without calls.
func Trips(static *gtfs.Static, mapping Mapping) []plan.ScheduledTrip {
	out := make([]plan.ScheduledTrip, 0, len(static.Trips))
	for i := range static.Trips {
		trip := &static.Trips[i]
		if trip.Route == nil {
			continue
		}
		st := plan.ScheduledTrip{RouteID: trip.Route.Id, TripID: trip.ID}
		for _, call := range trip.StopTimes {
			if call.Stop == nil {
				continue
			}
			node, ok := mapping[call.Stop.Id]
			if !ok {
				continue
			}
			st.StopTimes = append(st.StopTimes, plan.StopTime{
				StopID:    node,
				Sequence:  call.StopSequence,
				Departure: call.DepartureTime,
			})
		}
		if len(st.StopTimes) > 0 {
			out = append(out, st)
		}
	}

	return out
}

// Derive builds the plan of a feed: it collapses the stops at level and
// derives routes and headways from the schedule. The plan's stop universe is
// the collapsed node set.
func Derive(name string, static *gtfs.Static, level int, opts ...plan.Option) (*plan.Plan, []Node, error) {
	mapping := Collapse(static, level)
	nodes := Nodes(static, mapping)
	ids := make([]string, len(nodes))
	for i, n := range nodes {
		ids[i] = n.ID
	}

	p, err := plan.FromSchedule(name, ids, Trips(static, mapping), opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("feed: derive %s: %w", name, err)
	}

	return p, nodes, nil
}

// Stops turns the located nodes into stop table rows at their mean
// coordinates, named after their member stops. Demographic shares and POI
// flags are left empty for the caller to join.
func Stops(nodes []Node) []stops.Stop {
	rows := make([]stops.Stop, 0, len(nodes))
	for _, n := range nodes {
		if !n.Located {
			continue
		}
		rows = append(rows, stops.Stop{
			ID:    n.ID,
			Name:  strings.Join(n.Members, " "),
			Point: n.Point(),
		})
	}

	return rows
}
