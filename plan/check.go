package plan

import (
	"fmt"
	"strings"
)

// Check rebuilds the stop index and the edge set from the route sequences and
// compares them with the incrementally maintained ones. It also verifies that
// no route has consecutive duplicates and that every route has a headway.
// A mismatch is reported as ErrIndexDrift.
func (p *Plan) Check() error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	want := make(map[string]map[string]int)
	rebuilt := p.graph.CloneEmpty()
	for _, r := range sortedKeys(p.routes) {
		if _, ok := p.headways[r]; !ok {
			return fmt.Errorf("%w: route %q has no headway", ErrIndexDrift, r)
		}
		seq := p.routes[r]
		for i, s := range seq {
			if want[s] == nil {
				want[s] = make(map[string]int)
			}
			want[s][r]++
			if i == 0 {
				continue
			}
			if seq[i-1] == s {
				return fmt.Errorf("%w: route %q repeats %q at %d", ErrIndexDrift, r, s, i)
			}
			if err := rebuilt.AddSupport(seq[i-1], s, r); err != nil {
				return fmt.Errorf("%w: route %q: %v", ErrIndexDrift, r, err)
			}
		}
	}

	if len(want) != len(p.stopRoutes) {
		return fmt.Errorf("%w: %d stops indexed, %d served", ErrIndexDrift, len(p.stopRoutes), len(want))
	}
	for s, routes := range want {
		got := p.stopRoutes[s]
		if len(got) != len(routes) {
			return fmt.Errorf("%w: stop %q indexes %d routes, want %d", ErrIndexDrift, s, len(got), len(routes))
		}
		for r, n := range routes {
			if got[r] != n {
				return fmt.Errorf("%w: stop %q route %q visits %d, want %d", ErrIndexDrift, s, r, got[r], n)
			}
		}
	}
	if !rebuilt.SameEdges(p.graph) {
		return fmt.Errorf("%w: edge set differs from route hops", ErrIndexDrift)
	}
	if !rebuilt.SameSupport(p.graph) {
		return fmt.Errorf("%w: edge route support differs from route hops", ErrIndexDrift)
	}

	return nil
}

// Clone returns a deep copy of the plan under the same name. Edits to either
// copy are invisible to the other.
func (p *Plan) Clone() *Plan {
	p.mu.RLock()
	defer p.mu.RUnlock()

	c := &Plan{
		name:           p.name,
		graph:          p.graph.Clone(),
		routes:         make(map[string][]string, len(p.routes)),
		headways:       make(map[string]float64, len(p.headways)),
		info:           make(map[string]RouteInfo, len(p.info)),
		stopRoutes:     make(map[string]map[string]int, len(p.stopRoutes)),
		current:        p.current,
		seq:            p.seq,
		defaultHeadway: p.defaultHeadway,
		travel:         p.travel,
	}
	for r, seq := range p.routes {
		c.routes[r] = append([]string(nil), seq...)
	}
	for r, h := range p.headways {
		c.headways[r] = h
	}
	for r, ri := range p.info {
		c.info[r] = ri
	}
	for s, routes := range p.stopRoutes {
		m := make(map[string]int, len(routes))
		for r, n := range routes {
			m[r] = n
		}
		c.stopRoutes[s] = m
	}

	return c
}

// Equal reports whether two plans have the same headways, the same stop
// sequence per route, the same routes at every stop and the same edges.
// Names, cursors and route metadata are not compared.
func (p *Plan) Equal(other *Plan) bool {
	if p == other {
		return true
	}
	if other == nil {
		return false
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	other.mu.RLock()
	defer other.mu.RUnlock()

	if len(p.headways) != len(other.headways) || len(p.routes) != len(other.routes) {
		return false
	}
	for r, h := range p.headways {
		if oh, ok := other.headways[r]; !ok || oh != h {
			return false
		}
	}
	for r, seq := range p.routes {
		oseq, ok := other.routes[r]
		if !ok || len(oseq) != len(seq) {
			return false
		}
		for i := range seq {
			if seq[i] != oseq[i] {
				return false
			}
		}
	}
	if len(p.stopRoutes) != len(other.stopRoutes) {
		return false
	}
	for s, routes := range p.stopRoutes {
		orts := other.stopRoutes[s]
		if len(orts) != len(routes) {
			return false
		}
		for r := range routes {
			if _, ok := orts[r]; !ok {
				return false
			}
		}
	}

	return p.graph.SameEdges(other.graph)
}

// String renders one line per route: "id (every h min): a -> b -> c".
func (p *Plan) String() string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	var b strings.Builder
	fmt.Fprintf(&b, "plan %q: %d routes, %d edges\n", p.name, len(p.routes), p.graph.EdgeCount())
	for _, r := range sortedKeys(p.routes) {
		fmt.Fprintf(&b, "  %s (every %g min): %s\n", r, p.headways[r], strings.Join(p.routes[r], " -> "))
	}

	return b.String()
}
