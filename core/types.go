// File: types.go
// Role: the stop graph that backs a transit plan. Vertices are stop
// identifiers and every directed edge carries the multiset of routes that
// traverse it.
//
// An edge exists exactly while at least one route supports it. Support is
// counted per route, so a route that passes u→v twice keeps the edge alive until
// both traversals are withdrawn.
//
// All Graph APIs guard state with a single sync.RWMutex, so concurrent readers
// (path searches) never block each other.
//
// This file declares Arc, Edge, Graph, GraphOption, sentinel errors, and the
// NewGraph constructor.
//
// Errors:
//
//	ErrEmptyVertexID   - vertex ID is the empty string.
//	ErrVertexNotFound  - requested vertex does not exist.
//	ErrEdgeNotFound    - requested edge does not exist.
//	ErrEmptyRouteID    - route ID is the empty string.
//	ErrRouteNotOnEdge  - route does not support the requested edge.
//	ErrLoopNotAllowed  - self-loop (a route never calls twice in a row).

package core

import (
	"errors"
	"sync"
)

// Sentinel errors for core graph operations.
var (
	// ErrEmptyVertexID indicates that the provided vertex ID is empty.
	ErrEmptyVertexID = errors.New("core: vertex ID is empty")

	// ErrVertexNotFound indicates an operation referenced a non-existent vertex.
	ErrVertexNotFound = errors.New("core: vertex not found")

	// ErrEdgeNotFound indicates an operation referenced a non-existent edge.
	ErrEdgeNotFound = errors.New("core: edge not found")

	// ErrEmptyRouteID indicates that the provided route ID is empty.
	ErrEmptyRouteID = errors.New("core: route ID is empty")

	// ErrRouteNotOnEdge indicates a route was withdrawn from an edge it does not support.
	ErrRouteNotOnEdge = errors.New("core: route does not support edge")

	// ErrLoopNotAllowed indicates a self-loop was attempted.
	ErrLoopNotAllowed = errors.New("core: self-loop not allowed")
)

// Arc is a directed stop pair (From → To) without route information.
// It is the value type used to name an edge in queries and paths.
type Arc struct {
	From string
	To   string
}

// String renders the arc as "from->to".
func (a Arc) String() string { return a.From + "->" + a.To }

// Edge is a directed edge together with its supporting routes.
//
// Routes maps route ID → number of times that route traverses the edge.
// Every count is ≥ 1; an edge with no routes is removed from the graph.
type Edge struct {
	// From is the source vertex ID.
	From string

	// To is the destination vertex ID.
	To string

	// Routes counts traversals per supporting route.
	Routes map[string]int
}

// Arc returns the route-free identity of e.
func (e *Edge) Arc() Arc { return Arc{From: e.From, To: e.To} }

// GraphOption configures behavior of a Graph before creation.
type GraphOption func(g *Graph)

// WithVertices pre-registers the given vertex IDs. Empty IDs are ignored.
func WithVertices(ids ...string) GraphOption {
	return func(g *Graph) {
		for _, id := range ids {
			if id != "" {
				g.vertices[id] = struct{}{}
			}
		}
	}
}

// Graph is the route-supported directed stop graph. Edges are indexed by
// their tail only; the search walks forward.
type Graph struct {
	mu sync.RWMutex // guards everything below

	vertices map[string]struct{}         // vertex ID set
	out      map[string]map[string]*Edge // out[from][to]
	edges    int                         // number of live edges
}

// NewGraph creates an empty Graph with the given options.
// Complexity: O(len(vertices)) for WithVertices, otherwise O(1).
func NewGraph(opts ...GraphOption) *Graph {
	g := &Graph{
		vertices: make(map[string]struct{}),
		out:      make(map[string]map[string]*Edge),
	}
	for _, opt := range opts {
		opt(g)
	}

	return g
}
