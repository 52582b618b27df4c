// Package core provides the thread-safe stop graph underlying a transit plan.
//
// The Graph G = (V,E) is directed. Vertices are stop identifiers registered up
// front; edges are never added on their own but appear when a route first
// traverses a stop pair and disappear when the last route stops doing so:
//
//	out[from][to] = &Edge{Routes: {routeID: traversals}}
//
// Why a route-supported graph?
//
//   - The edge set is always the union of consecutive stop pairs over all
//     routes, with no separate bookkeeping.
//   - Routes(u, v) answers "which routes run u→v" in O(1) map lookups.
//   - Deterministic iteration: Vertices(), Edges() and VisitOut() are sorted.
//
// Configuration Options (GraphOption):
//
//	– WithVertices(ids ...string)
//	    Registers the stop universe at construction.
//
// Core Methods:
//
//	// Vertices
//	HasVertex(id string) bool               // O(1)
//	Vertices() []string                     // O(V log V)
//
//	// Edge lifecycle (through route support)
//	AddSupport(from, to, route string) error     // O(1)
//	RemoveSupport(from, to, route string) error  // O(1)
//	HasEdge(from, to string) bool                // O(1)
//	Routes(from, to string) []string             // O(r log r)
//	Edges() []Arc                                // O(E log E)
//	EdgeCount() int                              // O(1)
//
//	// Neighborhood
//	VisitOut(id, fn)
//
//	// Whole-graph
//	Clone(), CloneEmpty(), SameEdges(other), SameSupport(other)
//
// Self-loops are always rejected with ErrLoopNotAllowed: a plan route never
// calls at the same stop twice in a row.
//
// Concurrency:
//
//	Every method takes the graph's RWMutex. Readers run in parallel; a writer
//	excludes everyone. VisitOut holds the read lock across the callback.
package core
