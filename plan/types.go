// Package plan implements the mutable bus plan: routes as ordered stop
// sequences with headways, a per-stop route index and the route-supported stop
// graph (core.Graph).
//
// The per-stop index and the graph's edge set are materialized views over the
// per-route stop sequences. Every edit updates them incrementally around the
// edited position; nothing on the mutation path rebuilds them. Check recomputes
// both views from scratch and reports drift.
//
// Errors:
//
//	ErrUnknownStop          - stop is not in the plan's node set.
//	ErrRouteNotCreated      - route has not been created yet.
//	ErrRouteNotFound        - route does not exist.
//	ErrBadHeadway           - headway is not a positive finite number.
//	ErrIndexOutOfRange      - edit index outside the route.
//	ErrConsecutiveDuplicate - edit would put the same stop twice in a row.
//	ErrIndexDrift           - materialized views disagree with the routes.
//	ErrInconsistentDocument - a loaded document contradicts itself.
package plan

import (
	"errors"
	"sync"

	"github.com/katalvlaran/transitplan/core"
)

// Sentinel errors for plan construction, edits and loading.
var (
	ErrUnknownStop          = errors.New("plan: unknown stop")
	ErrRouteNotCreated      = errors.New("plan: route not created yet")
	ErrRouteNotFound        = errors.New("plan: route not found")
	ErrBadHeadway           = errors.New("plan: headway must be positive")
	ErrIndexOutOfRange      = errors.New("plan: index out of range")
	ErrConsecutiveDuplicate = errors.New("plan: consecutive duplicate stop")
	ErrIndexDrift           = errors.New("plan: index drift")
	ErrInconsistentDocument = errors.New("plan: inconsistent document")
)

// DefaultHeadway is the headway, in minutes, seeded for every new route.
const DefaultHeadway = 15.0

// firstRouteID is the cursor of an empty plan.
const firstRouteID = "0"

// TravelTimeFunc returns the in-vehicle minutes between two consecutive stops.
// It feeds TotalScheduledMinutes.
type TravelTimeFunc func(from, to string) float64

// hopTravelTime counts every hop as one minute.
func hopTravelTime(string, string) float64 { return 1 }

// RouteInfo is service metadata recorded when a route is derived from a schedule.
type RouteInfo struct {
	// FirstTripMinute is the earliest departure in minutes, plus 300, mod 1440.
	FirstTripMinute int `json:"first_trip_minute"`
	// LastTripMinute is the latest departure in minutes, plus 300, mod 1440.
	LastTripMinute int `json:"last_trip_minute"`
}

// Option configures a Plan at construction.
type Option func(p *Plan)

// WithTravelTime installs the travel-time function used for scheduled minutes.
// A nil fn keeps the default of one minute per hop.
func WithTravelTime(fn TravelTimeFunc) Option {
	return func(p *Plan) {
		if fn != nil {
			p.travel = fn
		}
	}
}

// WithDefaultHeadway overrides DefaultHeadway for routes created by this plan.
// Non-positive values are ignored.
func WithDefaultHeadway(minutes float64) Option {
	return func(p *Plan) {
		if minutes > 0 {
			p.defaultHeadway = minutes
		}
	}
}

// Plan is a set of routes over a fixed universe of stops.
//
// The zero value is not usable; build plans with New, FromSchedule or
// FromDocument. A Plan is safe for concurrent readers; edits take the write
// lock and must not overlap with searches over the same plan.
type Plan struct {
	mu sync.RWMutex

	name  string
	graph *core.Graph

	routes     map[string][]string       // route → ordered stops
	headways   map[string]float64        // route → minutes; includes the cursor
	info       map[string]RouteInfo      // route → service span, when derived
	stopRoutes map[string]map[string]int // stop → route → visits

	current string // route being built by AddStopToCurrentRoute
	seq     int    // next numeric route id candidate

	defaultHeadway float64
	travel         TravelTimeFunc
}

// New returns an empty plan over nodes with the cursor on route "0".
func New(name string, nodes []string, opts ...Option) *Plan {
	p := newPlan(name, nodes, opts...)
	p.current = firstRouteID
	p.seq = 1
	p.headways[p.current] = p.defaultHeadway

	return p
}

func newPlan(name string, nodes []string, opts ...Option) *Plan {
	p := &Plan{
		name:           name,
		graph:          core.NewGraph(core.WithVertices(nodes...)),
		routes:         make(map[string][]string),
		headways:       make(map[string]float64),
		info:           make(map[string]RouteInfo),
		stopRoutes:     make(map[string]map[string]int),
		defaultHeadway: DefaultHeadway,
		travel:         hopTravelTime,
	}
	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Name returns the plan's name.
func (p *Plan) Name() string { return p.name }

// SetName renames the plan; snapshots are written under this name.
func (p *Plan) SetName(name string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.name = name
}
