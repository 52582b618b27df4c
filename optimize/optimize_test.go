package optimize_test

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/transitplan/benchmark"
	"github.com/katalvlaran/transitplan/geo"
	"github.com/katalvlaran/transitplan/optimize"
	"github.com/katalvlaran/transitplan/plan"
	"github.com/katalvlaran/transitplan/stops"
)

const gridSize = 5

func cell(r, c int) string { return fmt.Sprintf("s%d_%d", r, c) }

// gridTable lays out stops about 555 m apart; even rows are transit-dependent.
func gridTable(t *testing.T) (*stops.Table, *geo.Index) {
	t.Helper()
	var rows []stops.Stop
	for r := 0; r < gridSize; r++ {
		for c := 0; c < gridSize; c++ {
			s := stops.Stop{ID: cell(r, c), Point: geo.Point{Lat: float64(r) * 0.005, Lon: float64(c) * 0.005}}
			if r%2 == 0 {
				s.RenterShare, s.VehicleShare, s.PovertyShare = 0.5, 0.2, 0.3
			}
			rows = append(rows, s)
		}
	}
	tbl, err := stops.NewTable(rows)
	require.NoError(t, err)
	proj, err := tbl.Projection()
	require.NoError(t, err)
	return tbl, tbl.Index(proj)
}

// gridPlan has one route per row and one per column.
func gridPlan(t *testing.T, tbl *stops.Table) *plan.Plan {
	t.Helper()
	p := plan.New("grid", tbl.IDs())
	for r := 0; r < gridSize; r++ {
		for c := 0; c < gridSize; c++ {
			require.NoError(t, p.AddStopToCurrentRoute(cell(r, c)))
		}
		p.EndCurrentRoute()
	}
	for c := 0; c < gridSize; c++ {
		for r := 0; r < gridSize; r++ {
			require.NoError(t, p.AddStopToCurrentRoute(cell(r, c)))
		}
		p.EndCurrentRoute()
	}
	require.NoError(t, p.Check())
	return p
}

func TestCommands_UndoLaw(t *testing.T) {
	tbl, _ := gridTable(t)

	cases := []optimize.Command{
		&optimize.IncreaseFrequency{Route: "0", By: 5},
		&optimize.IncreaseFrequency{Route: "0", By: 20},
		&optimize.DecreaseFrequency{Route: "1", By: 10},
		&optimize.AddStop{Route: "2", Index: 0, Stop: cell(4, 4)},
		&optimize.AddStop{Route: "2", Index: 5, Stop: cell(0, 0)},
		&optimize.AddStop{Route: "2", Index: 3, Stop: cell(0, 0)},
		&optimize.RemoveStop{Route: "3", Index: 0},
		&optimize.RemoveStop{Route: "3", Index: 2},
		&optimize.RemoveStop{Route: "3", Index: 4},
		&optimize.ReplaceStop{Route: "5", Index: 1, Stop: cell(4, 4)},
		&optimize.SetFrequency{Route: "6", Headway: 7.25},
	}
	for _, cmd := range cases {
		t.Run(cmd.Kind().String()+"/"+cmd.String(), func(t *testing.T) {
			p := gridPlan(t, tbl)
			before := p.Clone()

			require.NoError(t, cmd.Apply(p))
			require.NoError(t, p.Check())
			require.NoError(t, cmd.Inverse().Apply(p))
			require.NoError(t, p.Check())
			assert.True(t, p.Equal(before), "inverse restores the plan: %s", cmd)
		})
	}
}

func TestIncreaseFrequency_NoopWhenHeadwayTooShort(t *testing.T) {
	tbl, _ := gridTable(t)
	p := gridPlan(t, tbl)

	cmd := &optimize.IncreaseFrequency{Route: "0", By: 15}
	require.NoError(t, cmd.Apply(p))
	assert.False(t, cmd.Changed())
	h, _ := p.Headway("0")
	assert.Equal(t, 15.0, h)

	cmd = &optimize.IncreaseFrequency{Route: "0", By: 5}
	require.NoError(t, cmd.Apply(p))
	assert.True(t, cmd.Changed())
	h, _ = p.Headway("0")
	assert.Equal(t, 10.0, h)
	assert.Equal(t, optimize.KindDecreaseFrequency, cmd.Inverse().Kind())
}

func TestProposer_ValidAndReversible(t *testing.T) {
	tbl, idx := gridTable(t)
	p := gridPlan(t, tbl)
	prop := optimize.NewProposer(idx, rand.New(rand.NewSource(11)))
	rng := rand.New(rand.NewSource(12))
	kinds := optimize.Kinds()

	applied := 0
	for i := 0; i < 400; i++ {
		kind := kinds[rng.Intn(len(kinds))]
		grid := kind.Grid()
		param := grid[rng.Intn(len(grid))]

		cmd, err := prop.Propose(p, kind, param)
		if errors.Is(err, optimize.ErrNoProposal) {
			continue
		}
		require.NoError(t, err)
		require.Equal(t, kind, cmd.Kind())

		before := p.Clone()
		require.NoError(t, cmd.Apply(p), cmd.String())
		require.NoError(t, p.Check())
		applied++

		if rng.Intn(2) == 0 {
			require.NoError(t, cmd.Inverse().Apply(p))
			require.True(t, p.Equal(before), "undo of %s", cmd)
		}
	}
	assert.Greater(t, applied, 100)
}

func TestQTable(t *testing.T) {
	q := optimize.NewQTable()
	v, n := q.Value(optimize.KindAddStop, 800)
	assert.Zero(t, v)
	assert.Equal(t, 1, n)

	q.Update(optimize.KindAddStop, 1600, -10)
	v, n = q.Value(optimize.KindAddStop, 1600)
	assert.InDelta(t, -5, v, 1e-12)
	assert.Equal(t, 2, n)
	q.Update(optimize.KindAddStop, 1600, -10)
	v, _ = q.Value(optimize.KindAddStop, 1600)
	assert.InDelta(t, -5-5.0/3, v, 1e-12)

	kind, param := q.Best(optimize.Kinds())
	assert.Equal(t, optimize.KindAddStop, kind)
	assert.Equal(t, 1600.0, param)

	kind, param = q.Best(optimize.EligibleKinds(true))
	assert.Equal(t, optimize.KindDecreaseFrequency, kind, "ties go to the first eligible kind")
	assert.Equal(t, 5.0, param)

	q.Update(optimize.KindRemoveStop, 0, -100)
	kind, _ = q.Best(optimize.EligibleKinds(true))
	assert.Equal(t, optimize.KindRemoveStop, kind)
}

func TestKind(t *testing.T) {
	for _, k := range optimize.Kinds() {
		back, err := optimize.ParseKind(k.String())
		require.NoError(t, err)
		assert.Equal(t, k, back)
	}
	_, err := optimize.ParseKind("teleport")
	assert.Error(t, err)
	assert.Equal(t, []float64{0}, optimize.KindRemoveStop.Grid())
}

// randomScorer returns pseudo-random scores; it ignores the plan.
type randomScorer struct{ rng *rand.Rand }

func (s *randomScorer) Evaluate(ctx context.Context, _ *plan.Plan) (benchmark.Score, error) {
	if err := ctx.Err(); err != nil {
		return benchmark.Score{}, err
	}
	return benchmark.Score{Mean: 100 + 40*s.rng.Float64()}, nil
}

type sliceSink struct{ events []optimize.Event }

func (s *sliceSink) Record(_ context.Context, e optimize.Event) error {
	s.events = append(s.events, e)
	return nil
}

type countPersister struct{ n int }

func (c *countPersister) Persist(context.Context, *plan.Plan) error {
	c.n++
	return nil
}

func TestOptimizer_Invariants(t *testing.T) {
	tbl, idx := gridTable(t)
	original := gridPlan(t, tbl)
	snapshot := original.Clone()

	sink := &sliceSink{}
	persist := &countPersister{}
	opts := optimize.DefaultOptions()
	opts.Iterations = 150
	// Start over budget so the rule is exercised from the first iteration.
	opts.BudgetFactor = 0.9

	opt := optimize.New(original,
		&randomScorer{rng: rand.New(rand.NewSource(5))},
		optimize.NewProposer(idx, rand.New(rand.NewSource(6))),
		rand.New(rand.NewSource(7)),
		optimize.WithOptions(opts),
		optimize.WithSink(sink),
		optimize.WithPersister(persist),
	)
	res, err := opt.Run(context.Background())
	require.NoError(t, err)

	assert.True(t, original.Equal(snapshot), "the original plan is never modified")
	require.Len(t, sink.events, opts.Iterations)
	require.Len(t, res.Bests, opts.Iterations)
	require.Len(t, res.Minutes, opts.Iterations)
	assert.Equal(t, res.Accepted, persist.n)
	assert.Equal(t, opts.Iterations, len(res.Scores)+res.Skipped)

	budget := opts.BudgetFactor * original.TotalScheduledMinutes()
	prevBest := res.OriginalScore
	accepted := 0
	for i, ev := range sink.events {
		assert.LessOrEqual(t, res.Bests[i], prevBest, "best is non-increasing")
		prevBest = res.Bests[i]
		assert.Equal(t, res.Bests[i], ev.Best)

		if ev.ScheduledMinutes > budget {
			assert.Contains(t, optimize.EligibleKinds(true), ev.Kind, "over budget at iteration %d", i)
		}
		if ev.Accepted {
			accepted++
			assert.Equal(t, ev.Score, ev.Incumbent)
		}
	}
	assert.Equal(t, res.Accepted, accepted)
	assert.LessOrEqual(t, res.Best, res.OriginalScore)
	require.NoError(t, res.Working.Check())
	require.NoError(t, res.BestPlan.Check())
}

func TestOptimizer_ContextCancel(t *testing.T) {
	tbl, idx := gridTable(t)
	original := gridPlan(t, tbl)

	ctx, cancel := context.WithCancel(context.Background())
	sink := &cancelAfter{n: 3, cancel: cancel}
	opt := optimize.New(original,
		&randomScorer{rng: rand.New(rand.NewSource(1))},
		optimize.NewProposer(idx, rand.New(rand.NewSource(2))),
		rand.New(rand.NewSource(3)),
		optimize.WithSink(sink),
	)
	res, err := opt.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, res.Bests, 3)
}

type cancelAfter struct {
	n      int
	seen   int
	cancel context.CancelFunc
}

func (c *cancelAfter) Record(context.Context, optimize.Event) error {
	c.seen++
	if c.seen == c.n {
		c.cancel()
	}
	return nil
}

func TestCirclePlan(t *testing.T) {
	tbl, idx := gridTable(t)
	p, err := optimize.CirclePlan("circle", tbl, idx, rand.New(rand.NewSource(4)), 2, 600)
	require.NoError(t, err)
	require.NoError(t, p.Check())
	require.Len(t, p.Routes(), 4)
	for _, r := range p.Routes() {
		seq := p.Stops(r)
		// The centre and its direct grid neighbours lie within 600 m.
		assert.GreaterOrEqual(t, len(seq), 3)
		assert.LessOrEqual(t, len(seq), 5)
		assert.IsIncreasing(t, seq)
	}
}

func TestDeriveRNG(t *testing.T) {
	a := optimize.DeriveRNG(42, optimize.StreamProposer).Int63()
	b := optimize.DeriveRNG(42, optimize.StreamProposer).Int63()
	c := optimize.DeriveRNG(42, optimize.StreamEvaluator).Int63()
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Equal(t, optimize.NewRNG(0).Int63(), optimize.NewRNG(1).Int63())
}
