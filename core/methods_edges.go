// File: methods_edges.go
// Role: Edge lifecycle & queries: AddSupport/RemoveSupport/HasEdge/Routes/Edges/EdgeCount.
// Determinism:
//   - Edges() returns arcs sorted by (From, To) asc.
//   - Routes() returns route IDs sorted asc.
// Concurrency:
//   - Mutations under the write lock.
//   - Read queries under the read lock.
// AI-HINT (file):
//   - Edges are never created directly; they appear with the first supporting
//     route and disappear with the last one.
//   - Both endpoints must already be vertices (ErrVertexNotFound otherwise).

package core

import (
	"fmt"
	"sort"
)

// AddSupport records one traversal of from→to by route, creating the edge if
// it does not exist yet.
//
// Steps:
//  1. Validate IDs and the loop constraint.
//  2. Lock, verify both endpoints exist.
//  3. Fetch or create the edge in the out index.
//  4. Increment Routes[route].
//
// Complexity: O(1) amortized.
func (g *Graph) AddSupport(from, to, route string) error {
	if from == "" || to == "" {
		return ErrEmptyVertexID
	}
	if route == "" {
		return ErrEmptyRouteID
	}
	if from == to {
		return fmt.Errorf("%w: %s", ErrLoopNotAllowed, from)
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.vertices[from]; !ok {
		return fmt.Errorf("%w: %s", ErrVertexNotFound, from)
	}
	if _, ok := g.vertices[to]; !ok {
		return fmt.Errorf("%w: %s", ErrVertexNotFound, to)
	}

	e := g.out[from][to]
	if e == nil {
		e = &Edge{From: from, To: to, Routes: make(map[string]int, 1)}
		linkEdge(g, e)
		g.edges++
	}
	e.Routes[route]++

	return nil
}

// RemoveSupport withdraws one traversal of from→to by route. When the route's
// count drops to zero it stops supporting the edge; when no route is left the
// edge is deleted.
//
// Errors:
//   - ErrEdgeNotFound: no edge from→to.
//   - ErrRouteNotOnEdge: the edge exists but route does not support it.
//
// Complexity: O(1).
func (g *Graph) RemoveSupport(from, to, route string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	e := g.out[from][to]
	if e == nil {
		return fmt.Errorf("%w: %s->%s", ErrEdgeNotFound, from, to)
	}
	n, ok := e.Routes[route]
	if !ok {
		return fmt.Errorf("%w: %s on %s->%s", ErrRouteNotOnEdge, route, from, to)
	}
	if n > 1 {
		e.Routes[route] = n - 1
		return nil
	}
	delete(e.Routes, route)
	if len(e.Routes) == 0 {
		unlinkEdge(g, e)
		g.edges--
	}

	return nil
}

// HasEdge reports whether at least one route supports from→to.
// Complexity: O(1).
func (g *Graph) HasEdge(from, to string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()

	return g.out[from][to] != nil
}

// Routes returns the IDs of routes supporting from→to, sorted ascending.
// A missing edge yields an empty (nil) slice.
//
// Complexity: O(r log r) for r supporting routes.
func (g *Graph) Routes(from, to string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	e := g.out[from][to]
	if e == nil {
		return nil
	}
	ids := make([]string, 0, len(e.Routes))
	for r := range e.Routes {
		ids = append(ids, r)
	}
	sort.Strings(ids)

	return ids
}

// Edges returns every live edge as an Arc, sorted by (From, To).
//
// Complexity: O(E log E).
func (g *Graph) Edges() []Arc {
	g.mu.RLock()
	defer g.mu.RUnlock()

	arcs := make([]Arc, 0, g.edges)
	for _, inner := range g.out {
		for _, e := range inner {
			arcs = append(arcs, e.Arc())
		}
	}
	sortArcs(arcs)

	return arcs
}

// EdgeCount returns the number of live edges.
// Complexity: O(1).
func (g *Graph) EdgeCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()

	return g.edges
}

// sortArcs orders arcs by From then To.
func sortArcs(arcs []Arc) {
	sort.Slice(arcs, func(i, j int) bool {
		if arcs[i].From != arcs[j].From {
			return arcs[i].From < arcs[j].From
		}
		return arcs[i].To < arcs[j].To
	})
}
