package plan

import (
	"fmt"
	"math"
	"strconv"
)

// AddStopToCurrentRoute appends stop to the route under the cursor.
//
// Errors:
//   - ErrUnknownStop: stop is not a node of the plan.
//   - ErrConsecutiveDuplicate: stop equals the route's current last stop.
func (p *Plan) AddStopToCurrentRoute(stop string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.appendStop(p.current, stop)
}

// appendStop appends stop to route. Caller holds the write lock.
func (p *Plan) appendStop(route, stop string) error {
	if !p.graph.HasVertex(stop) {
		return fmt.Errorf("%w: %q", ErrUnknownStop, stop)
	}
	seq := p.routes[route]
	if n := len(seq); n > 0 {
		last := seq[n-1]
		if last == stop {
			return fmt.Errorf("%w: %q on route %q", ErrConsecutiveDuplicate, stop, route)
		}
		if err := p.graph.AddSupport(last, stop, route); err != nil {
			return err
		}
	}
	p.routes[route] = append(seq, stop)
	p.visit(stop, route)

	return nil
}

// EndCurrentRoute closes the route under the cursor, moves the cursor to a
// fresh route id seeded with the default headway, and returns that id.
func (p *Plan) EndCurrentRoute() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.advanceCursor()

	return p.current
}

// advanceCursor picks the next unused decimal route id. Caller holds the write lock.
func (p *Plan) advanceCursor() {
	for {
		id := strconv.Itoa(p.seq)
		p.seq++
		_, taken := p.headways[id]
		_, used := p.routes[id]
		if !taken && !used {
			p.current = id
			p.headways[id] = p.defaultHeadway
			return
		}
	}
}

// CurrentRoute returns the id of the route under construction.
func (p *Plan) CurrentRoute() string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.current
}

// ChangeFrequency sets the headway of route to minutes.
//
// Errors:
//   - ErrRouteNotCreated: route has no headway yet (beyond the cursor).
//   - ErrBadHeadway: minutes is not a positive finite number.
func (p *Plan) ChangeFrequency(route string, minutes float64) error {
	if !(minutes > 0) || math.IsInf(minutes, 1) {
		return fmt.Errorf("%w: %v", ErrBadHeadway, minutes)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.headways[route]; !ok {
		return fmt.Errorf("%w: %q", ErrRouteNotCreated, route)
	}
	p.headways[route] = minutes

	return nil
}

// visit records one more visit of route at stop. Caller holds the write lock.
func (p *Plan) visit(stop, route string) {
	m := p.stopRoutes[stop]
	if m == nil {
		m = make(map[string]int, 1)
		p.stopRoutes[stop] = m
	}
	m[route]++
}

// leave withdraws one visit of route at stop. Caller holds the write lock.
func (p *Plan) leave(stop, route string) {
	m := p.stopRoutes[stop]
	if m[route] > 1 {
		m[route]--
		return
	}
	delete(m, route)
	if len(m) == 0 {
		delete(p.stopRoutes, stop)
	}
}
