package optimize

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"

	"github.com/rs/zerolog"

	"github.com/katalvlaran/transitplan/benchmark"
	"github.com/katalvlaran/transitplan/plan"
)

// ErrUndoFailed indicates that a rejected command could not be reverted. The
// working plan is then in an unknown state and the run stops.
var ErrUndoFailed = errors.New("optimize: undo failed")

// Scorer evaluates a plan. *benchmark.Evaluator satisfies it.
type Scorer interface {
	Evaluate(ctx context.Context, p *plan.Plan) (benchmark.Score, error)
}

// Event is the record of one optimizer iteration.
type Event struct {
	Iteration        int
	Kind             Kind
	Param            float64
	Description      string
	Score            float64
	Incumbent        float64
	Best             float64
	Accepted         bool
	Skipped          bool
	Explored         bool
	ScheduledMinutes float64
}

// EventSink receives every iteration's Event.
type EventSink interface {
	Record(ctx context.Context, e Event) error
}

// Persister stores a plan each time a mutation is accepted.
type Persister interface {
	Persist(ctx context.Context, p *plan.Plan) error
}

// Options configures an Optimizer.
type Options struct {
	Iterations           int
	InitialExplore       float64
	ExploreDecay         float64
	ExploreFloor         float64
	ToleranceProbability float64
	ToleranceFraction    float64
	BudgetFactor         float64

	Sink      EventSink
	Persister Persister
	Logger    zerolog.Logger
}

// DefaultOptions returns the optimizer defaults.
func DefaultOptions() Options {
	return Options{
		Iterations:           200,
		InitialExplore:       0.7,
		ExploreDecay:         0.99,
		ExploreFloor:         0.05,
		ToleranceProbability: 0.2,
		ToleranceFraction:    0.1,
		BudgetFactor:         1.1,
		Logger:               zerolog.Nop(),
	}
}

// Option represents a functional option for configuring an Optimizer.
type Option func(*Options)

// WithOptions replaces the tuning parameters, keeping sink, persister and logger.
func WithOptions(o Options) Option {
	return func(dst *Options) {
		sink, persister, log := dst.Sink, dst.Persister, dst.Logger
		*dst = o
		if dst.Sink == nil {
			dst.Sink = sink
		}
		if dst.Persister == nil {
			dst.Persister = persister
		}
		dst.Logger = log
	}
}

// WithIterations sets the number of iterations.
func WithIterations(n int) Option {
	return func(o *Options) { o.Iterations = n }
}

// WithSink records every iteration to s.
func WithSink(s EventSink) Option {
	return func(o *Options) { o.Sink = s }
}

// WithPersister stores accepted plans with p.
func WithPersister(p Persister) Option {
	return func(o *Options) { o.Persister = p }
}

// WithLogger routes optimizer logs to l.
func WithLogger(l zerolog.Logger) Option {
	return func(o *Options) { o.Logger = l }
}

// Result summarizes a run.
type Result struct {
	OriginalScore float64
	Best          float64
	BestPlan      *plan.Plan
	Working       *plan.Plan

	Scores  []float64 // score of every evaluated iteration
	Bests   []float64 // best score after every iteration
	Minutes []float64 // scheduled minutes at the start of every iteration

	Accepted int
	Skipped  int
}

// Optimizer runs the local search over a working copy of a plan.
type Optimizer struct {
	original *plan.Plan
	scorer   Scorer
	proposer *Proposer
	rng      *rand.Rand
	q        *QTable
	opts     Options
	log      zerolog.Logger
}

// New returns an Optimizer that improves a copy of original. original itself
// is never modified.
func New(original *plan.Plan, scorer Scorer, proposer *Proposer, rng *rand.Rand, opts ...Option) *Optimizer {
	cfg := DefaultOptions()
	for _, opt := range opts {
		opt(&cfg)
	}

	return &Optimizer{
		original: original,
		scorer:   scorer,
		proposer: proposer,
		rng:      rng,
		q:        NewQTable(),
		opts:     cfg,
		log:      cfg.Logger.With().Str("component", "optimize").Str("plan", original.Name()).Logger(),
	}
}

// QTable exposes the learned action values.
func (o *Optimizer) QTable() *QTable { return o.q }

// Run performs the configured iterations: propose, apply, evaluate, then
// accept or undo. ctx is checked between iterations; on cancellation the
// partial Result is returned with ctx's error.
func (o *Optimizer) Run(ctx context.Context) (Result, error) {
	working := o.original.Clone()
	base, err := o.scorer.Evaluate(ctx, o.original)
	if err != nil {
		return Result{}, fmt.Errorf("optimize: score original: %w", err)
	}
	budget := o.opts.BudgetFactor * o.original.TotalScheduledMinutes()

	res := Result{
		OriginalScore: base.Mean,
		Best:          base.Mean,
		BestPlan:      working.Clone(),
		Working:       working,
	}
	incumbent := base.Mean
	o.log.Info().Float64("score", base.Mean).Float64("budget", budget).Msg("optimizer start")

	for i := 0; i < o.opts.Iterations; i++ {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		minutes := working.TotalScheduledMinutes()
		res.Minutes = append(res.Minutes, minutes)
		kinds := EligibleKinds(minutes > budget)
		kind, param, explored := o.choose(i, kinds)

		ev := Event{
			Iteration:        i,
			Kind:             kind,
			Param:            param,
			Incumbent:        incumbent,
			Explored:         explored,
			ScheduledMinutes: minutes,
		}

		cmd, err := o.proposer.Propose(working, kind, param)
		if err == nil {
			err = cmd.Apply(working)
		}
		if err != nil {
			if !skippable(err) {
				return res, fmt.Errorf("optimize: iteration %d: %w", i, err)
			}
			res.Skipped++
			ev.Skipped = true
			ev.Description = err.Error()
			ev.Score, ev.Best = incumbent, res.Best
			res.Bests = append(res.Bests, res.Best)
			o.log.Debug().Int("iteration", i).Stringer("kind", kind).Err(err).Msg("iteration skipped")
			if err := o.record(ctx, ev); err != nil {
				return res, err
			}
			continue
		}
		ev.Description = cmd.String()

		score, err := o.scorer.Evaluate(ctx, working)
		if err != nil {
			if uerr := cmd.Inverse().Apply(working); uerr != nil {
				return res, fmt.Errorf("%w: %v (after %v)", ErrUndoFailed, uerr, err)
			}
			return res, fmt.Errorf("optimize: iteration %d: %w", i, err)
		}
		ev.Score = score.Mean
		res.Scores = append(res.Scores, score.Mean)

		o.q.Update(kind, param, score.Mean-incumbent)

		tolerance := 0.0
		if o.rng.Float64() < o.opts.ToleranceProbability {
			tolerance = o.opts.ToleranceFraction * incumbent
		}

		if score.Mean < incumbent+tolerance {
			incumbent = score.Mean
			ev.Accepted = true
			res.Accepted++
			if score.Mean < res.Best {
				res.Best = score.Mean
				res.BestPlan = working.Clone()
			}
			if o.opts.Persister != nil {
				if err := o.opts.Persister.Persist(ctx, working); err != nil {
					return res, fmt.Errorf("optimize: persist: %w", err)
				}
			}
			o.log.Info().
				Int("iteration", i).
				Str("action", ev.Description).
				Float64("score", score.Mean).
				Float64("best", res.Best).
				Float64("minutes", working.TotalScheduledMinutes()).
				Msg("accepted")
		} else {
			if err := cmd.Inverse().Apply(working); err != nil {
				return res, fmt.Errorf("%w: %s: %v", ErrUndoFailed, ev.Description, err)
			}
			o.log.Debug().
				Int("iteration", i).
				Str("action", ev.Description).
				Float64("score", score.Mean).
				Float64("incumbent", incumbent).
				Msg("rejected")
		}

		ev.Incumbent = incumbent
		ev.Best = res.Best
		res.Bests = append(res.Bests, res.Best)
		if err := o.record(ctx, ev); err != nil {
			return res, err
		}
	}

	o.log.Info().
		Float64("original", res.OriginalScore).
		Float64("best", res.Best).
		Int("accepted", res.Accepted).
		Int("skipped", res.Skipped).
		Msg("optimizer done")

	return res, nil
}

// choose returns the (kind, param) of iteration i and whether it explored.
func (o *Optimizer) choose(i int, kinds []Kind) (Kind, float64, bool) {
	explore := math.Max(o.opts.ExploreFloor, o.opts.InitialExplore*math.Pow(o.opts.ExploreDecay, float64(i)))
	if o.rng.Float64() < explore {
		k := kinds[o.rng.Intn(len(kinds))]
		grid := k.Grid()
		return k, grid[o.rng.Intn(len(grid))], true
	}
	k, param := o.q.Best(kinds)

	return k, param, false
}

func (o *Optimizer) record(ctx context.Context, ev Event) error {
	if o.opts.Sink == nil {
		return nil
	}
	if err := o.opts.Sink.Record(ctx, ev); err != nil {
		return fmt.Errorf("optimize: record event: %w", err)
	}

	return nil
}

// skippable reports proposal and edit failures that leave the plan untouched.
func skippable(err error) bool {
	return errors.Is(err, ErrNoProposal) ||
		errors.Is(err, plan.ErrConsecutiveDuplicate) ||
		errors.Is(err, plan.ErrIndexOutOfRange) ||
		errors.Is(err, plan.ErrUnknownStop)
}
