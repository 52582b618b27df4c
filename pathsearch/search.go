package pathsearch

import (
	"container/heap"
	"fmt"
	"sort"
	"strings"

	"github.com/katalvlaran/transitplan/core"
	"github.com/katalvlaran/transitplan/plan"
)

// Search returns the cheapest path on p from origin to any stop in
// destinations under the cost model m.
//
// Destinations that are not stops of p are ignored.
//
// Preconditions and validation (in order):
//  1. p must be non-nil (ErrNilPlan).
//  2. origin must be a stop of p (ErrOriginNotFound).
//  3. at least one destination must be a stop of p (ErrNoDestinations).
//
// An unreachable destination set is not an error: Result.Found is false.
func Search(p *plan.Plan, m CostModel, origin string, destinations []string, opts ...Option) (Result, error) {
	cfg := DefaultOptions()
	for _, opt := range opts {
		opt(&cfg)
	}

	if p == nil {
		return Result{}, ErrNilPlan
	}
	if !p.HasStop(origin) {
		return Result{}, fmt.Errorf("%w: %q", ErrOriginNotFound, origin)
	}
	dests := make(map[string]struct{}, len(destinations))
	for _, d := range destinations {
		if p.HasStop(d) {
			dests[d] = struct{}{}
		}
	}
	if len(dests) == 0 {
		return Result{}, ErrNoDestinations
	}

	r := &runner{
		p:       p,
		model:   m,
		options: cfg,
		dests:   dests,
		cost:    make(map[state]float64),
		prev:    make(map[state]state),
		routes:  make(map[state][]string),
		done:    make(map[state]bool),
		adj:     make(map[string][]outEdge),
		waits:   make(map[string]float64),
	}
	r.init(origin)
	res, err := r.process()
	if err != nil {
		return Result{}, err
	}

	cfg.Logger.Debug().
		Str("origin", origin).
		Int("destinations", len(dests)).
		Bool("found", res.Found).
		Float64("cost", res.Cost).
		Int("states", len(r.done)).
		Msg("path search")

	return res, nil
}

// state is a search node: the stop reached and the route set it was reached on.
type state struct {
	stop string
	key  string
}

// outEdge is a copied outgoing edge with its routes sorted.
type outEdge struct {
	to     string
	routes []string
}

// runner holds the mutable state for a single search.
type runner struct {
	p       *plan.Plan
	model   CostModel
	options Options
	dests   map[string]struct{}

	cost   map[state]float64  // best known cost per state
	prev   map[state]state    // predecessor state on the best path
	routes map[state][]string // route set of the edge that entered the state
	done   map[state]bool     // finalized states
	pq     statePQ
	seq    int

	adj   map[string][]outEdge // stop → outgoing edges, filled on first use
	waits map[string]float64   // stop → min wait, filled on first use
}

// init seeds the heap with the origin state at cost 0.
func (r *runner) init(origin string) {
	start := state{stop: origin}
	r.cost[start] = 0
	heap.Init(&r.pq)
	r.push(start, 0)
}

func (r *runner) push(s state, c float64) {
	heap.Push(&r.pq, &stateItem{st: s, cost: c, seq: r.seq})
	r.seq++
}

// process pops states in cost order until a destination is finalized, the
// heap is exhausted, or the cheapest open state exceeds MaxCost.
func (r *runner) process() (Result, error) {
	for r.pq.Len() > 0 {
		item := heap.Pop(&r.pq).(*stateItem)
		s := item.st

		if r.done[s] || item.cost > r.cost[s] {
			continue
		}
		if item.cost > r.options.MaxCost {
			break
		}
		r.done[s] = true

		if _, ok := r.dests[s.stop]; ok {
			return Result{
				Cost:        item.cost,
				Edges:       r.path(s),
				Destination: s.stop,
				Found:       true,
			}, nil
		}
		if err := r.relax(s, item.cost); err != nil {
			return Result{}, err
		}
	}

	return notFound(), nil
}

// relax prices every outgoing edge of s.stop given the route set s arrived on.
func (r *runner) relax(s state, base float64) error {
	edges, err := r.outEdges(s.stop)
	if err != nil {
		return err
	}
	wait := r.minWait(s.stop)
	arrived := r.routes[s]
	first := s.key == ""

	for _, e := range edges {
		var common []string
		if !first {
			common = intersect(arrived, e.routes)
		}
		shortest := 0.0
		if len(common) > 0 {
			shortest = r.p.ShortestInterval(common)
		}
		arc := core.Arc{From: s.stop, To: e.to}
		l, err := r.model.leg(arc, common, wait, shortest, !first || r.options.InitialBoarding)
		if err != nil {
			return err
		}

		next := state{stop: e.to, key: routeKey(e.routes)}
		c := base + l.Cost()
		if r.done[next] {
			continue
		}
		if old, seen := r.cost[next]; seen && c >= old {
			continue
		}
		r.cost[next] = c
		r.prev[next] = s
		r.routes[next] = e.routes
		r.push(next, c)
	}

	return nil
}

func (r *runner) outEdges(stop string) ([]outEdge, error) {
	if edges, ok := r.adj[stop]; ok {
		return edges, nil
	}
	var edges []outEdge
	err := r.p.VisitOut(stop, func(to string, routes map[string]int) bool {
		ids := make([]string, 0, len(routes))
		for id := range routes {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		edges = append(edges, outEdge{to: to, routes: ids})
		return true
	})
	if err != nil {
		return nil, fmt.Errorf("pathsearch: out edges of %q: %w", stop, err)
	}
	r.adj[stop] = edges

	return edges, nil
}

func (r *runner) minWait(stop string) float64 {
	if w, ok := r.waits[stop]; ok {
		return w
	}
	w := r.p.MinWaitAtStop(stop)
	r.waits[stop] = w

	return w
}

// path walks predecessors back from s and returns the edges in travel order.
func (r *runner) path(s state) []core.Arc {
	var rev []core.Arc
	for s.key != "" {
		p := r.prev[s]
		rev = append(rev, core.Arc{From: p.stop, To: s.stop})
		s = p
	}
	edges := make([]core.Arc, len(rev))
	for i, a := range rev {
		edges[len(rev)-1-i] = a
	}

	return edges
}

// routeKey is the canonical key of a sorted route set.
func routeKey(sorted []string) string {
	return strings.Join(sorted, "\x1f")
}

// intersect returns the common elements of two ascending slices.
func intersect(a, b []string) []string {
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

// stateItem is a heap entry. seq breaks cost ties in push order.
type stateItem struct {
	st   state
	cost float64
	seq  int
}

// statePQ is a min-heap of *stateItem ordered by (cost, seq).
type statePQ []*stateItem

func (pq statePQ) Len() int { return len(pq) }

func (pq statePQ) Less(i, j int) bool {
	if pq[i].cost != pq[j].cost {
		return pq[i].cost < pq[j].cost
	}

	return pq[i].seq < pq[j].seq
}

func (pq statePQ) Swap(i, j int) { pq[i], pq[j] = pq[j], pq[i] }

func (pq *statePQ) Push(x interface{}) { *pq = append(*pq, x.(*stateItem)) }

func (pq *statePQ) Pop() interface{} {
	old := *pq
	n := len(old)
	item := old[n-1]
	*pq = old[:n-1]

	return item
}
