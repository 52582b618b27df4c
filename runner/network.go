package runner

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/katalvlaran/transitplan/benchmark"
	"github.com/katalvlaran/transitplan/config"
	"github.com/katalvlaran/transitplan/feed"
	"github.com/katalvlaran/transitplan/geo"
	"github.com/katalvlaran/transitplan/optimize"
	"github.com/katalvlaran/transitplan/pathsearch"
	"github.com/katalvlaran/transitplan/plan"
	"github.com/katalvlaran/transitplan/stops"
	"github.com/katalvlaran/transitplan/store"
)

// Snapshot names written per network.
const (
	OriginalName = "original"
	WorkingName  = "working"
	BestName     = "best"
	CircleName   = "circle"

	// NodesFile is the stop table skeleton written next to a derived plan.
	NodesFile = "nodes.csv"
)

// Network is a loaded network: its stop table, spatial index, cost model
// and original plan.
type Network struct {
	Config   config.Network
	Table    *stops.Table
	Index    *geo.Index
	Model    pathsearch.CostModel
	Original *plan.Plan
	Nodes    []feed.Node // collapsed feed nodes, when derived from GTFS
}

// Prepare loads the stop table of nc and its original plan: the saved plan
// document when PlanJSON is set, otherwise the plan derived from GTFSZip.
// Every stop of the plan must be placed by the stop table
// (ErrUnplacedStops).
func (r *Runner) Prepare(ctx context.Context, nc config.Network) (*Network, error) {
	n, err := r.load(ctx, nc)
	if err != nil {
		return nil, err
	}

	if nc.PlanJSON != "" {
		doc, err := store.LoadSnapshotFile(nc.PlanJSON)
		if err != nil {
			return nil, err
		}
		if n.Original, err = plan.FromDocument(OriginalName, nil, doc, n.planOptions()...); err != nil {
			return nil, fmt.Errorf("runner: %s: %w", nc.Name, err)
		}
	} else if err := r.derive(n); err != nil {
		return nil, err
	}

	if missing := n.Unplaced(); len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s: %d of %d, first %q", ErrUnplacedStops,
			nc.Name, len(missing), len(n.Original.Nodes()), missing[0])
	}

	return n, nil
}

// Unplaced returns, ascending, the stops of the original plan that the stop
// table cannot place.
func (n *Network) Unplaced() []string {
	var missing []string
	for _, id := range n.Original.Nodes() {
		if _, ok := n.Table.Point(id); !ok {
			missing = append(missing, id)
		}
	}

	return missing
}

// load reads the stop table and sets up the geometry of nc.
func (r *Runner) load(ctx context.Context, nc config.Network) (*Network, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	table, err := stops.LoadCSVFile(nc.StopsCSV)
	if err != nil {
		return nil, fmt.Errorf("runner: %s: %w", nc.Name, err)
	}

	return r.network(nc, table)
}

// network sets up the geometry and cost model of nc over table.
func (r *Runner) network(nc config.Network, table *stops.Table) (*Network, error) {
	proj, err := table.Projection()
	if err != nil {
		return nil, fmt.Errorf("runner: %s: %w", nc.Name, err)
	}

	model := pathsearch.NewCostModel(table, proj)
	model.AvgBusSpeed = r.cfg.Cost.AvgBusSpeed
	model.StopPenalty = r.cfg.Cost.StopPenalty
	model.TransferPenalty = r.cfg.Cost.TransferPenalty
	model.Logger = r.log.With().Str("network", nc.Name).Logger()
	// No delay feed is ingested; model.Delays stays nil and edges carry 0.

	return &Network{
		Config: nc,
		Table:  table,
		Index:  table.Index(proj),
		Model:  model,
	}, nil
}

// derive builds n.Original from the network's GTFS feed.
func (r *Runner) derive(n *Network) error {
	var err error
	n.Original, n.Nodes, err = deriveFeed(n.Config, n.planOptions()...)

	return err
}

// deriveFeed parses the GTFS zip of nc and derives its plan and nodes.
func deriveFeed(nc config.Network, opts ...plan.Option) (*plan.Plan, []feed.Node, error) {
	if nc.GTFSZip == "" {
		return nil, nil, fmt.Errorf("%w: %s", ErrNoFeed, nc.Name)
	}
	static, err := feed.Load(nc.GTFSZip)
	if err != nil {
		return nil, nil, fmt.Errorf("runner: %s: %w", nc.Name, err)
	}
	p, nodes, err := feed.Derive(OriginalName, static, nc.CollapseLevel, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("runner: %s: %w", nc.Name, err)
	}

	return p, nodes, nil
}

func (n *Network) planOptions() []plan.Option {
	return []plan.Option{plan.WithTravelTime(n.Model.TravelTime)}
}

// evaluator returns a fresh evaluator whose sampling stream is derived from
// the network seed.
func (r *Runner) evaluator(n *Network, log zerolog.Logger) *benchmark.Evaluator {
	opts := []benchmark.Option{
		benchmark.WithRepeats(r.cfg.Benchmark.Repeats),
		benchmark.WithPenalty(r.cfg.Benchmark.PenaltyMinutes),
		benchmark.WithWorkers(r.cfg.Benchmark.Workers),
		benchmark.WithLogger(log),
	}
	if !r.cfg.Cost.InitialBoarding {
		opts = append(opts, benchmark.WithSearchOptions(pathsearch.WithoutInitialBoarding()))
	}
	rng := optimize.DeriveRNG(n.Config.Seed, optimize.StreamEvaluator)

	return benchmark.NewEvaluator(n.Table, n.Model, rng, opts...)
}

// optimizerOptions maps the optimizer section onto optimize.Options.
func (r *Runner) optimizerOptions() optimize.Options {
	c := r.cfg.Optimizer
	o := optimize.DefaultOptions()
	o.Iterations = c.Iterations
	o.InitialExplore = c.InitialExplore
	o.ExploreDecay = c.ExploreDecay
	o.ExploreFloor = c.ExploreFloor
	o.ToleranceProbability = c.ToleranceProbability
	o.ToleranceFraction = c.ToleranceFraction
	o.BudgetFactor = c.BudgetFactor

	return o
}

// SnapshotDir is the directory holding the snapshots of network.
func (r *Runner) SnapshotDir(network string) string {
	return filepath.Join(r.cfg.Store.SnapshotDir, network)
}

// saveSnapshot writes p as a file and, with a store, as a row.
func (r *Runner) saveSnapshot(ctx context.Context, network, runID string, p *plan.Plan) (string, error) {
	path, err := store.WriteSnapshotFile(r.SnapshotDir(network), p)
	if err != nil {
		return "", err
	}
	if r.store == nil {
		return path, nil
	}
	err = r.store.SaveSnapshot(ctx, store.Snapshot{
		Network:  network,
		Name:     p.Name(),
		RunID:    runID,
		Document: p.Document(),
	})

	return path, err
}
