package plan

import (
	"math"
	"sort"

	"github.com/katalvlaran/transitplan/core"
)

// Routes returns the ids of all routes that have been given stops, sorted.
func (p *Plan) Routes() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return sortedKeys(p.routes)
}

// Stops returns a copy of the ordered stops of route, or nil if it has none.
func (p *Plan) Stops(route string) []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	seq := p.routes[route]
	if len(seq) == 0 {
		return nil
	}

	return append([]string(nil), seq...)
}

// RouteLen returns the number of stops on route.
func (p *Plan) RouteLen(route string) int {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return len(p.routes[route])
}

// Headway returns the headway of route in minutes and whether it exists.
func (p *Plan) Headway(route string) (float64, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	h, ok := p.headways[route]

	return h, ok
}

// Headways returns a copy of every route's headway, including the cursor's.
func (p *Plan) Headways() map[string]float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make(map[string]float64, len(p.headways))
	for r, h := range p.headways {
		out[r] = h
	}

	return out
}

// Info returns the service span of a route derived from a schedule.
func (p *Plan) Info(route string) (RouteInfo, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	ri, ok := p.info[route]

	return ri, ok
}

// Nodes returns the plan's stop universe, sorted.
func (p *Plan) Nodes() []string { return p.graph.Vertices() }

// HasStop reports whether stop belongs to the plan's stop universe.
func (p *Plan) HasStop(stop string) bool { return p.graph.HasVertex(stop) }

// Served reports whether at least one route visits stop.
func (p *Plan) Served(stop string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return len(p.stopRoutes[stop]) > 0
}

// ServedStops returns every stop visited by some route, sorted.
func (p *Plan) ServedStops() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return sortedKeys(p.stopRoutes)
}

// StopRoutes returns the routes visiting stop, sorted.
func (p *Plan) StopRoutes(stop string) []string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return sortedKeys(p.stopRoutes[stop])
}

// Edges returns every stop pair traversed by some route, sorted.
func (p *Plan) Edges() []core.Arc { return p.graph.Edges() }

// HasEdge reports whether some route runs from → to directly.
func (p *Plan) HasEdge(from, to string) bool { return p.graph.HasEdge(from, to) }

// VisitOut walks the outgoing edges of stop in ascending target order.
// fn receives the target and the multiset of routes on the edge; it must not
// retain or modify routes, and must not edit the plan.
func (p *Plan) VisitOut(stop string, fn func(to string, routes map[string]int) bool) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.graph.VisitOut(stop, func(e *core.Edge) bool {
		return fn(e.To, e.Routes)
	})
}

// RoutesOnEdge returns the routes that traverse arc, sorted. A missing edge
// yields nil.
func (p *Plan) RoutesOnEdge(arc core.Arc) []string {
	return p.graph.Routes(arc.From, arc.To)
}

// RoutesInCommon returns the routes traversing both prev and next, sorted.
// A nil prev means "no previous edge" and yields nil.
func (p *Plan) RoutesInCommon(prev *core.Arc, next core.Arc) []string {
	if prev == nil {
		return nil
	}
	a := p.graph.Routes(prev.From, prev.To)
	b := p.graph.Routes(next.From, next.To)

	return intersectSorted(a, b)
}

// RequiresTransfer reports whether moving from prev onto next forces a change
// of vehicle. A nil prev always requires one: the rider has to board.
func (p *Plan) RequiresTransfer(prev *core.Arc, next core.Arc) bool {
	return len(p.RoutesInCommon(prev, next)) == 0
}

// ShortestInterval returns the smallest headway among routes. Unknown route
// ids are skipped; an empty or all-unknown set yields 0.
func (p *Plan) ShortestInterval(routes []string) float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()

	best := math.Inf(1)
	for _, r := range routes {
		if h, ok := p.headways[r]; ok && h < best {
			best = h
		}
	}
	if math.IsInf(best, 1) {
		return 0
	}

	return best
}

// MinWaitAtStop returns the smallest headway among routes visiting stop, or 0
// if no route serves it.
func (p *Plan) MinWaitAtStop(stop string) float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.minWait(stop)
}

func (p *Plan) minWait(stop string) float64 {
	best := math.Inf(1)
	for r := range p.stopRoutes[stop] {
		if h := p.headways[r]; h < best {
			best = h
		}
	}
	if math.IsInf(best, 1) {
		return 0
	}

	return best
}

// TotalScheduledMinutes is the fleet-time proxy Σ routeMinutes(r) / headway(r)
// over all routes with stops, where routeMinutes sums the plan's travel-time
// function over consecutive stop pairs.
func (p *Plan) TotalScheduledMinutes() float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()

	var total float64
	for _, r := range sortedKeys(p.routes) {
		seq := p.routes[r]
		h := p.headways[r]
		if len(seq) < 2 || h <= 0 {
			continue
		}
		var minutes float64
		for i := 1; i < len(seq); i++ {
			minutes += p.travel(seq[i-1], seq[i])
		}
		total += minutes / h
	}

	return total
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	return keys
}

// intersectSorted merges two ascending slices into their intersection.
func intersectSorted(a, b []string) []string {
	var out []string
	for i, j := 0, 0; i < len(a) && j < len(b); {
		switch {
		case a[i] == b[j]:
			out = append(out, a[i])
			i++
			j++
		case a[i] < b[j]:
			i++
		default:
			j++
		}
	}

	return out
}
