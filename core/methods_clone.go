// File: methods_clone.go
// Role: Cloning and comparing graph instances.
// Concurrency:
//   - Read locks for snapshotting; no mutation of the source graph.
// AI-HINT (file):
//   - Clone() deep-copies route counts; the clone shares nothing with g.

package core

// CloneEmpty returns a new Graph with the same vertices and no edges.
// Complexity: O(V).
func (g *Graph) CloneEmpty() *Graph {
	g.mu.RLock()
	defer g.mu.RUnlock()

	clone := NewGraph()
	for id := range g.vertices {
		clone.vertices[id] = struct{}{}
	}

	return clone
}

// Clone returns a deep copy of the Graph: vertices, edges and
// per-route support counts.
// Complexity: O(V + E + Σ routes).
func (g *Graph) Clone() *Graph {
	clone := g.CloneEmpty()

	g.mu.RLock()
	defer g.mu.RUnlock()
	for _, inner := range g.out {
		for _, e := range inner {
			c := copyEdge(e)
			linkEdge(clone, &c)
		}
	}
	clone.edges = g.edges

	return clone
}

// SameEdges reports whether g and other have exactly the same edge set.
// Route support is not compared.
// Complexity: O(E).
func (g *Graph) SameEdges(other *Graph) bool {
	if g == other {
		return true
	}
	if g == nil || other == nil {
		return false
	}
	a, b := g.Edges(), other.Edges()
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}

	return true
}

// SameSupport reports whether g and other have the same edges and every edge
// carries the same per-route traversal counts.
// Complexity: O(E + Σ routes).
func (g *Graph) SameSupport(other *Graph) bool {
	if g == other {
		return true
	}
	if g == nil || other == nil {
		return false
	}
	g.mu.RLock()
	defer g.mu.RUnlock()
	other.mu.RLock()
	defer other.mu.RUnlock()

	if g.edges != other.edges {
		return false
	}
	for from, inner := range g.out {
		for to, e := range inner {
			oe := other.out[from][to]
			if oe == nil || len(oe.Routes) != len(e.Routes) {
				return false
			}
			for r, n := range e.Routes {
				if oe.Routes[r] != n {
					return false
				}
			}
		}
	}

	return true
}
