// Package pathsearch implements the transfer-aware shortest path from one
// origin stop to the nearest-in-cost member of a destination set.
//
// The cost of traversing an edge depends on the edge traversed before it: a
// rider staying on a common route pays driving time plus a stop penalty, while
// a rider changing vehicle also waits for the next bus and pays a transfer
// penalty. The search therefore runs over states (stop, route set of the last
// edge) instead of bare stops.
//
// CostModel.Delays optionally adds a mean observed delay per edge, clamped to
// [0, MaxDelay]. Without it every edge is charged a delay of 0.
//
// Options:
//
//	– WithMaxCost:            stop exploring once the cheapest open state costs more.
//	– WithoutInitialBoarding: the first edge carries no wait or transfer penalty.
//	– WithLogger:             zerolog logger for search diagnostics.
//
// Errors (sentinel):
//
//	– ErrNilPlan          if the plan pointer is nil.
//	– ErrOriginNotFound   if the origin is not a stop of the plan.
//	– ErrNoDestinations   if no destination is a stop of the plan.
//	– ErrNoLocation       if a traversed stop has no coordinates.
//	– ErrBadMaxCost       if MaxCost is negative (panics in WithMaxCost).
//
// Complexity:
//
//   - Time:  O((S + T) log S), S = visited (stop, route set) states, T = relaxed edges.
//   - Space: O(S) for costs and predecessors, O(T) for the lazy heap.
//
// Notes on implementation choices:
//
//   - States are (stop, canonical key of the last edge's route set). The origin
//     state has the empty key; real edges always carry at least one route.
//   - Lazy decrease-key: duplicates are pushed and stale pops skipped.
//   - The search stops at the first finalized destination state.
//   - Outgoing edges are copied once per stop, so no plan lock is held while
//     costs are computed.
package pathsearch
