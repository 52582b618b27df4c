// Package runner optimizes every configured network concurrently.
//
// Each network runs in its own goroutine with its own plans, RNG streams and
// score log rows. A network that fails (or panics) is logged and restarted
// from scratch up to Runner.MaxRetries times; it never aborts the others.
package runner

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/katalvlaran/transitplan/config"
	"github.com/katalvlaran/transitplan/optimize"
	"github.com/katalvlaran/transitplan/store"
)

var (
	// ErrPanic wraps a recovered panic of a network run.
	ErrPanic = errors.New("runner: network panicked")

	// ErrNoFeed indicates that a network has no GTFS zip to derive a plan from.
	ErrNoFeed = errors.New("runner: network has no GTFS feed")

	// ErrUnplacedStops indicates plan stops missing from the stop table.
	ErrUnplacedStops = errors.New("runner: plan stops missing from stop table")
)

// Outcome is the final state of one network.
type Outcome struct {
	Network  string
	RunID    string
	Attempts int
	Result   optimize.Result
	Err      error // last error; nil when an attempt succeeded
}

// Runner drives the configured networks.
type Runner struct {
	cfg   config.Config
	store *store.Store
	log   zerolog.Logger
	newID func() string
}

// Option configures a Runner.
type Option func(*Runner)

// WithStore records runs, events and snapshots in s.
func WithStore(s *store.Store) Option {
	return func(r *Runner) { r.store = s }
}

// WithLogger routes runner and component logs to l.
func WithLogger(l zerolog.Logger) Option {
	return func(r *Runner) { r.log = l }
}

// WithRunID fixes the id shared by the networks of the next runs.
func WithRunID(id string) Option {
	return func(r *Runner) { r.newID = func() string { return id } }
}

// New returns a Runner over cfg.
func New(cfg config.Config, opts ...Option) *Runner {
	r := &Runner{cfg: cfg, log: zerolog.Nop(), newID: store.NewRunID}
	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Run optimizes every network under one run id and returns their outcomes in
// configuration order. The error joins the networks that failed every attempt.
func (r *Runner) Run(ctx context.Context) ([]Outcome, error) {
	runID := r.newID()
	outcomes := make([]Outcome, len(r.cfg.Networks))
	r.log.Info().Str("run_id", runID).Int("networks", len(outcomes)).Msg("run start")

	var g errgroup.Group
	if r.cfg.Runner.Parallel > 0 {
		g.SetLimit(r.cfg.Runner.Parallel)
	}
	for i, nc := range r.cfg.Networks {
		g.Go(func() error {
			outcomes[i] = r.runWithRetries(ctx, nc, runID)
			return nil
		})
	}
	_ = g.Wait()

	var errs []error
	for _, o := range outcomes {
		if o.Err != nil {
			errs = append(errs, fmt.Errorf("network %s: %w", o.Network, o.Err))
		}
	}

	return outcomes, errors.Join(errs...)
}

func (r *Runner) runWithRetries(ctx context.Context, nc config.Network, runID string) Outcome {
	log := r.log.With().Str("network", nc.Name).Str("run_id", runID).Logger()
	out := Outcome{Network: nc.Name, RunID: runID}

	for attempt := 0; attempt <= r.cfg.Runner.MaxRetries; attempt++ {
		out.Attempts++
		res, err := safely(func() (optimize.Result, error) {
			return r.optimizeNetwork(ctx, nc, runID, log)
		})
		if err == nil {
			out.Result, out.Err = res, nil
			return out
		}
		out.Err = err
		log.Error().Err(err).Int("attempt", out.Attempts).Msg("network failed")
		if ctx.Err() != nil {
			break
		}
	}

	return out
}

// safely converts a panic of fn into an ErrPanic error.
func safely(fn func() (optimize.Result, error)) (res optimize.Result, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("%w: %v", ErrPanic, rec)
		}
	}()

	return fn()
}

// optimizeNetwork performs one complete attempt on nc.
func (r *Runner) optimizeNetwork(ctx context.Context, nc config.Network, runID string, log zerolog.Logger) (res optimize.Result, err error) {
	if r.store != nil {
		if err := r.store.StartRun(ctx, runID, nc.Name, nc.Seed); err != nil {
			return optimize.Result{}, err
		}
		defer func() {
			status := store.StatusDone
			switch {
			case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
				status = store.StatusCanceled
			case err != nil:
				status = store.StatusFailed
			}
			// The run context may be gone; the closing row is still written.
			ferr := r.store.FinishRun(context.WithoutCancel(ctx), runID, nc.Name, status, res.OriginalScore, res.Best)
			if ferr != nil {
				log.Warn().Err(ferr).Msg("finish run")
			}
		}()
	}

	n, err := r.Prepare(ctx, nc)
	if err != nil {
		return optimize.Result{}, err
	}
	if _, err := r.saveSnapshot(ctx, nc.Name, runID, n.Original); err != nil {
		return optimize.Result{}, err
	}

	opts := []optimize.Option{
		optimize.WithOptions(r.optimizerOptions()),
		optimize.WithLogger(log),
		optimize.WithPersister(&store.Snapshotter{
			Store:   r.store,
			Dir:     r.SnapshotDir(nc.Name),
			Name:    WorkingName,
			RunID:   runID,
			Network: nc.Name,
			Log:     log,
		}),
	}
	if r.store != nil {
		opts = append(opts, optimize.WithSink(r.store.Recorder(runID, nc.Name)))
	}

	opt := optimize.New(n.Original,
		r.evaluator(n, log),
		optimize.NewProposer(n.Index, optimize.DeriveRNG(nc.Seed, optimize.StreamProposer)),
		optimize.DeriveRNG(nc.Seed, optimize.StreamOptimizer),
		opts...,
	)
	res, err = opt.Run(ctx)
	if err != nil {
		return res, err
	}

	res.BestPlan.SetName(BestName)
	path, err := r.saveSnapshot(ctx, nc.Name, runID, res.BestPlan)
	if err != nil {
		return res, err
	}
	log.Info().
		Float64("original", res.OriginalScore).
		Float64("best", res.Best).
		Str("snapshot", path).
		Msg("network done")

	return res, nil
}
