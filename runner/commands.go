package runner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/katalvlaran/transitplan/benchmark"
	"github.com/katalvlaran/transitplan/feed"
	"github.com/katalvlaran/transitplan/optimize"
	"github.com/katalvlaran/transitplan/stops"
)

// Score evaluates the original plan of network once.
func (r *Runner) Score(ctx context.Context, network string) (benchmark.Score, error) {
	n, err := r.prepareNamed(ctx, network)
	if err != nil {
		return benchmark.Score{}, err
	}

	return r.evaluator(n, r.log).Evaluate(ctx, n.Original)
}

// CircleReport compares the random-circle plan with the original.
type CircleReport struct {
	Original float64
	Circle   float64
	Routes   int
	Path     string // circle snapshot file
}

// Circle builds the random-circle plan of network, scores it next to the
// original with identically seeded evaluators, and saves its snapshot.
func (r *Runner) Circle(ctx context.Context, network string) (CircleReport, error) {
	n, err := r.prepareNamed(ctx, network)
	if err != nil {
		return CircleReport{}, err
	}

	circle, err := optimize.CirclePlan(CircleName, n.Table, n.Index,
		optimize.DeriveRNG(n.Config.Seed, optimize.StreamCircle),
		r.cfg.Optimizer.CircleRoutes, r.cfg.Optimizer.CircleRadius, n.planOptions()...)
	if err != nil {
		return CircleReport{}, err
	}

	original, err := r.evaluator(n, r.log).Evaluate(ctx, n.Original)
	if err != nil {
		return CircleReport{}, err
	}
	scored, err := r.evaluator(n, r.log).Evaluate(ctx, circle)
	if err != nil {
		return CircleReport{}, err
	}

	path, err := r.saveSnapshot(ctx, network, "", circle)
	if err != nil {
		return CircleReport{}, err
	}
	r.log.Info().
		Str("network", network).
		Float64("original", original.Mean).
		Float64("circle", scored.Mean).
		Msg("circle plan scored")

	return CircleReport{
		Original: original.Mean,
		Circle:   scored.Mean,
		Routes:   len(circle.Routes()),
		Path:     path,
	}, nil
}

// DeriveReport lists what Derive wrote.
type DeriveReport struct {
	Plan      string // original plan snapshot
	Nodes     string // stop table skeleton over the plan's stops
	Routes    int
	Stops     int
	Unlocated int // plan stops without coordinates, absent from Nodes
}

// Derive rebuilds the original plan of network from its GTFS feed and writes
// it as the original snapshot, together with a stop table of the collapsed
// nodes at their mean coordinates. The configured PlanJSON and StopsCSV are
// not read: the written table is the starting point for a StopsCSV whose ids
// match the plan once demographic and POI columns are joined in.
func (r *Runner) Derive(ctx context.Context, network string) (DeriveReport, error) {
	nc, err := r.cfg.Network(network)
	if err != nil {
		return DeriveReport{}, err
	}
	if err := ctx.Err(); err != nil {
		return DeriveReport{}, err
	}
	p, nodes, err := deriveFeed(nc)
	if err != nil {
		return DeriveReport{}, err
	}
	table, err := stops.NewTable(feed.Stops(nodes))
	if err != nil {
		return DeriveReport{}, fmt.Errorf("runner: %s: %w", network, err)
	}

	dir := r.SnapshotDir(network)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return DeriveReport{}, fmt.Errorf("runner: %s: %w", network, err)
	}
	rep := DeriveReport{
		Nodes:     filepath.Join(dir, NodesFile),
		Routes:    len(p.Routes()),
		Stops:     table.Len(),
		Unlocated: len(nodes) - table.Len(),
	}
	if err := stops.WriteCSVFile(rep.Nodes, table); err != nil {
		return DeriveReport{}, fmt.Errorf("runner: %s: %w", network, err)
	}
	if rep.Plan, err = r.saveSnapshot(ctx, network, "", p); err != nil {
		return DeriveReport{}, err
	}

	ev := r.log.Info()
	if rep.Unlocated > 0 {
		ev = r.log.Warn()
	}
	ev.Str("network", network).
		Int("routes", rep.Routes).
		Int("stops", rep.Stops).
		Int("unlocated", rep.Unlocated).
		Str("snapshot", rep.Plan).
		Str("nodes", rep.Nodes).
		Msg("plan derived")

	return rep, nil
}

func (r *Runner) prepareNamed(ctx context.Context, network string) (*Network, error) {
	nc, err := r.cfg.Network(network)
	if err != nil {
		return nil, err
	}
	n, err := r.Prepare(ctx, nc)
	if err != nil {
		return nil, fmt.Errorf("runner: prepare %s: %w", network, err)
	}

	return n, nil
}
