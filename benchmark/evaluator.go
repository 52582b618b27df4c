package benchmark

import (
	"context"
	"errors"
	"fmt"
	"math/rand"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/katalvlaran/transitplan/pathsearch"
	"github.com/katalvlaran/transitplan/plan"
	"github.com/katalvlaran/transitplan/stops"
)

// ErrNilPlan indicates Evaluate was called without a plan.
var ErrNilPlan = errors.New("benchmark: plan is nil")

// Trip is one evaluated origin/destination draw.
type Trip struct {
	Category     string
	Origin       string // empty when no origin candidate is in the plan
	Destinations int    // destination candidates present in the plan
	Result       pathsearch.Result
	Cost         float64 // Result.Cost, or the penalty when not found
}

// Score is the outcome of one evaluation.
type Score struct {
	Mean  float64
	Trips []Trip
}

// Evaluator draws benchmark trips and scores plans with them.
//
// The RNG is consumed sequentially by Evaluate, so an Evaluator must not be
// shared between goroutines. Path searches inside one evaluation run
// concurrently.
type Evaluator struct {
	table *stops.Table
	model pathsearch.CostModel
	rng   *rand.Rand
	opts  Options
	cands []candidates
	log   zerolog.Logger
}

// NewEvaluator builds an Evaluator over table. rng drives origin sampling.
func NewEvaluator(table *stops.Table, model pathsearch.CostModel, rng *rand.Rand, opts ...Option) *Evaluator {
	cfg := DefaultOptions()
	for _, opt := range opts {
		opt(&cfg)
	}

	return &Evaluator{
		table: table,
		model: model,
		rng:   rng,
		opts:  cfg,
		cands: selectCandidates(table, cfg.Suite),
		log:   cfg.Logger.With().Str("component", "benchmark").Logger(),
	}
}

// Penalty is the cost charged for an unreachable trip.
func (e *Evaluator) Penalty() float64 { return e.opts.Penalty }

// draw is a sampled trip awaiting its search.
type draw struct {
	category string
	origin   string
	dests    []string
}

// Evaluate scores p: Repeats passes over the suite, each trip sampled in
// order from the evaluator's RNG, searched concurrently, and averaged.
func (e *Evaluator) Evaluate(ctx context.Context, p *plan.Plan) (Score, error) {
	if p == nil {
		return Score{}, ErrNilPlan
	}

	draws := e.sample(p)
	trips := make([]Trip, len(draws))

	g, gctx := errgroup.WithContext(ctx)
	if e.opts.Workers > 0 {
		g.SetLimit(e.opts.Workers)
	}
	for i, d := range draws {
		trips[i] = Trip{Category: d.category, Origin: d.origin, Destinations: len(d.dests), Cost: e.opts.Penalty}
		if d.origin == "" || len(d.dests) == 0 {
			continue
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := pathsearch.Search(p, e.model, d.origin, d.dests, e.opts.Search...)
			if err != nil {
				return fmt.Errorf("benchmark: %s from %q: %w", d.category, d.origin, err)
			}
			trips[i].Result = res
			if res.Found {
				trips[i].Cost = res.Cost
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Score{}, err
	}

	var sum float64
	for _, t := range trips {
		sum += t.Cost
		e.logTrip(p, t)
	}
	score := Score{Trips: trips}
	if len(trips) > 0 {
		score.Mean = sum / float64(len(trips))
	}

	return score, nil
}

// sample draws every trip of one evaluation, in suite order.
func (e *Evaluator) sample(p *plan.Plan) []draw {
	draws := make([]draw, 0, e.opts.Repeats*len(e.opts.Suite))
	for rep := 0; rep < e.opts.Repeats; rep++ {
		for i, c := range e.opts.Suite {
			d := draw{category: c.Name}
			origins := present(p, e.cands[i].origins)
			if len(origins) > 0 {
				d.origin = origins[e.rng.Intn(len(origins))]
			}
			d.dests = present(p, e.cands[i].destinations)
			draws = append(draws, d)
		}
	}

	return draws
}

func (e *Evaluator) logTrip(p *plan.Plan, t Trip) {
	ev := e.log.Debug()
	if !ev.Enabled() {
		return
	}
	ev.Str("category", t.Category).
		Str("origin", e.table.Name(t.Origin)).
		Bool("found", t.Result.Found).
		Float64("cost", t.Cost)
	if t.Result.Found {
		ev.Str("destination", e.table.Name(t.Result.Destination)).Int("edges", len(t.Result.Edges))
	}
	ev.Msg("benchmark trip")

	if !t.Result.Found {
		return
	}
	legs, err := pathsearch.Explain(p, e.model, t.Result.Edges, e.opts.Search...)
	if err != nil {
		e.log.Debug().Err(err).Msg("explain trip")
		return
	}
	for _, l := range legs {
		e.log.Debug().Str("category", t.Category).Msg(l.String())
	}
}

// present keeps the ids that are stops of p.
func present(p *plan.Plan, ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if p.HasStop(id) {
			out = append(out, id)
		}
	}

	return out
}
