package plan

import "fmt"

// InsertStop inserts stop at position i of route, shifting later stops right.
// Valid positions are 0 ≤ i ≤ len(route).
//
// The edge between the old neighbours loses this route's support and the two
// new hops gain it.
//
// Errors:
//   - ErrRouteNotFound, ErrUnknownStop, ErrIndexOutOfRange.
//   - ErrConsecutiveDuplicate: stop equals its new predecessor or successor.
func (p *Plan) InsertStop(i int, route, stop string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	seq, err := p.routeForEdit(route)
	if err != nil {
		return err
	}
	if !p.graph.HasVertex(stop) {
		return fmt.Errorf("%w: %q", ErrUnknownStop, stop)
	}
	if i < 0 || i > len(seq) {
		return fmt.Errorf("%w: insert at %d on route %q (len %d)", ErrIndexOutOfRange, i, route, len(seq))
	}
	prev, hasPrev := at(seq, i-1)
	next, hasNext := at(seq, i)
	if (hasPrev && prev == stop) || (hasNext && next == stop) {
		return fmt.Errorf("%w: %q at %d on route %q", ErrConsecutiveDuplicate, stop, i, route)
	}

	if hasPrev && hasNext {
		if err := p.graph.RemoveSupport(prev, next, route); err != nil {
			return p.drift(err)
		}
	}
	if hasPrev {
		if err := p.graph.AddSupport(prev, stop, route); err != nil {
			return p.drift(err)
		}
	}
	if hasNext {
		if err := p.graph.AddSupport(stop, next, route); err != nil {
			return p.drift(err)
		}
	}

	seq = append(seq, "")
	copy(seq[i+1:], seq[i:])
	seq[i] = stop
	p.routes[route] = seq
	p.visit(stop, route)

	return nil
}

// RemoveStop removes the stop at position i of route and returns it.
// Valid positions are 0 ≤ i < len(route).
//
// Errors:
//   - ErrRouteNotFound, ErrIndexOutOfRange.
//   - ErrConsecutiveDuplicate: the neighbours of i are the same stop.
func (p *Plan) RemoveStop(i int, route string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	seq, err := p.routeForEdit(route)
	if err != nil {
		return "", err
	}
	if i < 0 || i >= len(seq) {
		return "", fmt.Errorf("%w: remove at %d on route %q (len %d)", ErrIndexOutOfRange, i, route, len(seq))
	}
	stop := seq[i]
	prev, hasPrev := at(seq, i-1)
	next, hasNext := at(seq, i+1)
	if hasPrev && hasNext && prev == next {
		return "", fmt.Errorf("%w: removing %q joins %q to itself on route %q", ErrConsecutiveDuplicate, stop, prev, route)
	}

	if hasPrev {
		if err := p.graph.RemoveSupport(prev, stop, route); err != nil {
			return "", p.drift(err)
		}
	}
	if hasNext {
		if err := p.graph.RemoveSupport(stop, next, route); err != nil {
			return "", p.drift(err)
		}
	}
	if hasPrev && hasNext {
		if err := p.graph.AddSupport(prev, next, route); err != nil {
			return "", p.drift(err)
		}
	}

	p.routes[route] = append(seq[:i], seq[i+1:]...)
	p.leave(stop, route)

	return stop, nil
}

// ReplaceStop swaps the stop at position i of route for stop and returns the
// stop it displaced. Replacing a stop with itself changes nothing.
//
// Errors:
//   - ErrRouteNotFound, ErrUnknownStop, ErrIndexOutOfRange.
//   - ErrConsecutiveDuplicate: stop equals a neighbour of i.
func (p *Plan) ReplaceStop(i int, route, stop string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	seq, err := p.routeForEdit(route)
	if err != nil {
		return "", err
	}
	if !p.graph.HasVertex(stop) {
		return "", fmt.Errorf("%w: %q", ErrUnknownStop, stop)
	}
	if i < 0 || i >= len(seq) {
		return "", fmt.Errorf("%w: replace at %d on route %q (len %d)", ErrIndexOutOfRange, i, route, len(seq))
	}
	old := seq[i]
	if old == stop {
		return old, nil
	}
	prev, hasPrev := at(seq, i-1)
	next, hasNext := at(seq, i+1)
	if (hasPrev && prev == stop) || (hasNext && next == stop) {
		return "", fmt.Errorf("%w: %q at %d on route %q", ErrConsecutiveDuplicate, stop, i, route)
	}

	if hasPrev {
		if err := p.graph.RemoveSupport(prev, old, route); err != nil {
			return "", p.drift(err)
		}
		if err := p.graph.AddSupport(prev, stop, route); err != nil {
			return "", p.drift(err)
		}
	}
	if hasNext {
		if err := p.graph.RemoveSupport(old, next, route); err != nil {
			return "", p.drift(err)
		}
		if err := p.graph.AddSupport(stop, next, route); err != nil {
			return "", p.drift(err)
		}
	}

	seq[i] = stop
	p.leave(old, route)
	p.visit(stop, route)

	return old, nil
}

// routeForEdit returns the stop slice of an existing route. The cursor route
// counts as existing even before its first stop. Caller holds the write lock.
func (p *Plan) routeForEdit(route string) ([]string, error) {
	seq, ok := p.routes[route]
	if !ok {
		if _, created := p.headways[route]; !created {
			return nil, fmt.Errorf("%w: %q", ErrRouteNotFound, route)
		}
	}

	return seq, nil
}

// drift wraps a graph error that validated input should never produce.
func (p *Plan) drift(err error) error {
	return fmt.Errorf("%w: %v", ErrIndexDrift, err)
}

func at(seq []string, i int) (string, bool) {
	if i < 0 || i >= len(seq) {
		return "", false
	}

	return seq[i], true
}
