// File: methods_adjacent.go
// Role: forward neighborhood walk and the out-index helpers used by mutations.
// Concurrency:
//   - VisitOut holds the read lock for the whole walk.
//   - Helpers are called only under the write lock by mutating code.

package core

import "sort"

// VisitOut calls fn for each outgoing edge of id in ascending To order, holding
// the read lock for the whole walk. fn must treat e as read-only and must not
// call mutating Graph methods. Returning false stops the walk.
//
// Errors:
//   - ErrEmptyVertexID, ErrVertexNotFound.
//
// Complexity:
//   - Time O(d log d), Space O(d).
func (g *Graph) VisitOut(id string, fn func(e *Edge) bool) error {
	if id == "" {
		return ErrEmptyVertexID
	}
	g.mu.RLock()
	defer g.mu.RUnlock()
	if _, ok := g.vertices[id]; !ok {
		return ErrVertexNotFound
	}

	bucket := g.out[id]
	tos := make([]string, 0, len(bucket))
	for to := range bucket {
		tos = append(tos, to)
	}
	sort.Strings(tos)
	for _, to := range tos {
		if !fn(bucket[to]) {
			break
		}
	}

	return nil
}

// linkEdge stores e under its tail. Caller holds the write lock.
func linkEdge(g *Graph, e *Edge) {
	if g.out[e.From] == nil {
		g.out[e.From] = make(map[string]*Edge)
	}
	g.out[e.From][e.To] = e
}

// unlinkEdge drops e and an emptied bucket. Caller holds the write lock.
func unlinkEdge(g *Graph, e *Edge) {
	delete(g.out[e.From], e.To)
	if len(g.out[e.From]) == 0 {
		delete(g.out, e.From)
	}
}

func copyEdge(e *Edge) Edge {
	routes := make(map[string]int, len(e.Routes))
	for r, n := range e.Routes {
		routes[r] = n
	}

	return Edge{From: e.From, To: e.To, Routes: routes}
}
