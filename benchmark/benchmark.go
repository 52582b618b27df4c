// Package benchmark scores a plan by the cost of representative trips.
//
// A trip starts at a sampled transit-dependent stop and ends at the cheapest
// reachable stop near a point of interest (a hospital, a park, a specific
// coffee shop). Unreachable trips cost a fixed penalty. The score is the mean
// trip cost over the suite, repeated a few times.
package benchmark

import (
	"math/rand"

	"github.com/rs/zerolog"

	"github.com/katalvlaran/transitplan/pathsearch"
	"github.com/katalvlaran/transitplan/stops"
)

// Defaults of the evaluator.
const (
	DefaultNoRoutePenalty = 180.0
	DefaultRepeats        = 2

	// specificSeed fixes which place a Specific category targets.
	specificSeed = 2
)

// Category is one kind of representative trip.
type Category struct {
	Name        string
	Origin      stops.Predicate
	Destination stops.Predicate
	// Specific restricts the destination set to a single stop drawn once from
	// the candidates with a fixed seed, so every evaluation targets the same
	// place.
	Specific bool
}

// DefaultSuite is the essentials (each listed twice) followed by the specific
// destinations.
func DefaultSuite() []Category {
	essential := func(name, flag string) Category {
		return Category{Name: name, Origin: stops.TransitDependent, Destination: stops.Near(flag)}
	}
	specific := func(name, flag string) Category {
		return Category{Name: name, Origin: stops.TransitDependent, Destination: stops.Near(flag), Specific: true}
	}

	var suite []Category
	for i := 0; i < 2; i++ {
		suite = append(suite,
			essential("hospital", stops.NearHospital),
			essential("park", stops.NearPark),
			essential("grocery", stops.NearGrocery),
			essential("worship", stops.NearWorship),
			essential("bar", stops.NearBar),
		)
	}

	return append(suite,
		specific("specific bar", stops.NearBar),
		specific("starbucks", stops.NearStarbucks),
		specific("mcdonalds", stops.NearMcDonalds),
	)
}

// Options configures an Evaluator.
type Options struct {
	Repeats int
	Penalty float64
	Workers int
	Suite   []Category
	Search  []pathsearch.Option
	Logger  zerolog.Logger
}

// Option represents a functional option for configuring an Evaluator.
type Option func(*Options)

// WithRepeats sets how many passes over the suite make one score.
func WithRepeats(n int) Option {
	return func(o *Options) {
		if n > 0 {
			o.Repeats = n
		}
	}
}

// WithPenalty sets the cost of an unreachable trip.
func WithPenalty(minutes float64) Option {
	return func(o *Options) { o.Penalty = minutes }
}

// WithWorkers bounds the number of concurrent path searches. n ≤ 0 means no limit.
func WithWorkers(n int) Option {
	return func(o *Options) { o.Workers = n }
}

// WithSuite replaces the default suite.
func WithSuite(suite []Category) Option {
	return func(o *Options) { o.Suite = suite }
}

// WithSearchOptions forwards options to every path search.
func WithSearchOptions(opts ...pathsearch.Option) Option {
	return func(o *Options) { o.Search = append(o.Search, opts...) }
}

// WithLogger routes per-trip diagnostics to l.
func WithLogger(l zerolog.Logger) Option {
	return func(o *Options) { o.Logger = l }
}

// DefaultOptions returns the evaluator defaults.
func DefaultOptions() Options {
	return Options{
		Repeats: DefaultRepeats,
		Penalty: DefaultNoRoutePenalty,
		Workers: 4,
		Suite:   DefaultSuite(),
		Logger:  zerolog.Nop(),
	}
}

// candidates caches the table-level selections of a category.
type candidates struct {
	origins      []string
	destinations []string
}

func selectCandidates(table *stops.Table, suite []Category) []candidates {
	specificRNG := rand.New(rand.NewSource(specificSeed))
	out := make([]candidates, len(suite))
	for i, c := range suite {
		out[i].origins = table.Filter(c.Origin)
		dests := table.Filter(c.Destination)
		if c.Specific && len(dests) > 0 {
			dests = []string{dests[specificRNG.Intn(len(dests))]}
		}
		out[i].destinations = dests
	}

	return out
}
