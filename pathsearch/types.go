package pathsearch

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/rs/zerolog"

	"github.com/katalvlaran/transitplan/core"
	"github.com/katalvlaran/transitplan/geo"
)

// Sentinel errors returned by the search.
var (
	// ErrNilPlan indicates that a nil *plan.Plan was passed to Search.
	ErrNilPlan = errors.New("pathsearch: plan is nil")

	// ErrOriginNotFound indicates that the origin is not a node of the plan.
	ErrOriginNotFound = errors.New("pathsearch: origin not found in plan")

	// ErrNoDestinations indicates an empty (or entirely unknown) destination set.
	ErrNoDestinations = errors.New("pathsearch: no destinations")

	// ErrNoLocation indicates that the cost model cannot place a stop.
	ErrNoLocation = errors.New("pathsearch: stop has no location")

	// ErrBadMaxCost indicates that MaxCost was set to a negative value.
	ErrBadMaxCost = errors.New("pathsearch: MaxCost must be non-negative")
)

// Cost model defaults, in metres per minute and minutes.
const (
	DefaultAvgBusSpeed     = 833.0
	DefaultStopPenalty     = 0.5
	DefaultTransferPenalty = 5.0

	// MaxDelay caps the observed delay charged on one edge.
	MaxDelay = 30.0

	// WalkingDistanceMeters bounds the destination stops around a point query.
	WalkingDistanceMeters = 400.0
)

// Locator places a stop id on the map. *stops.Table and *geo.Index satisfy it.
type Locator interface {
	Point(id string) (geo.Point, bool)
}

// CostModel holds the constants and geometry of the edge cost.
type CostModel struct {
	Locator         Locator
	Projection      geo.Projection
	AvgBusSpeed     float64 // metres per minute
	StopPenalty     float64 // minutes per traversed edge
	TransferPenalty float64 // minutes per change of vehicle

	// Delays holds the mean observed delay of an edge in minutes, clamped to
	// [0, MaxDelay] when charged. Edges absent from the map, or a nil map,
	// are charged no delay.
	Delays map[core.Arc]float64

	// Logger receives a warning for every pair TravelTime cannot place.
	Logger zerolog.Logger
}

// NewCostModel returns a CostModel with the default constants.
func NewCostModel(loc Locator, proj geo.Projection) CostModel {
	return CostModel{
		Locator:         loc,
		Projection:      proj,
		AvgBusSpeed:     DefaultAvgBusSpeed,
		StopPenalty:     DefaultStopPenalty,
		TransferPenalty: DefaultTransferPenalty,
		Logger:          zerolog.Nop(),
	}
}

// Leg is the cost breakdown of one traversed edge.
type Leg struct {
	Arc             core.Arc
	DrivingTime     float64
	Delay           float64
	StopPenalty     float64
	Wait            float64
	TransferPenalty float64
	SlowerRoute     float64 // min(0, shortest common headway − min wait at the tail)
	CommonRoutes    []string
	Transfer        bool
}

// Cost is the total minutes charged for the leg.
func (l Leg) Cost() float64 {
	return l.DrivingTime + l.Delay + l.StopPenalty + l.Wait + l.TransferPenalty + l.SlowerRoute
}

// String renders the leg as a short multi-line report.
func (l Leg) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %.2f min\n", l.Arc, l.Cost())
	fmt.Fprintf(&b, "  driving %.2f, stop %.2f\n", l.DrivingTime, l.StopPenalty)
	if l.Delay > 0 {
		fmt.Fprintf(&b, "  delay %.2f\n", l.Delay)
	}
	if l.Transfer {
		fmt.Fprintf(&b, "  transfer: wait %.2f, penalty %.2f\n", l.Wait, l.TransferPenalty)
	} else {
		fmt.Fprintf(&b, "  stay on %s, adjustment %.2f\n", strings.Join(l.CommonRoutes, ","), l.SlowerRoute)
	}

	return b.String()
}

// Result is the outcome of a search.
//
// Found is false when no destination is reachable (or within MaxCost); Cost is
// then +Inf and Edges is empty. An origin that is itself a destination is
// found at cost 0 with no edges.
type Result struct {
	Cost        float64
	Edges       []core.Arc
	Destination string
	Found       bool
}

// notFound is the Result of an unreachable query.
func notFound() Result {
	return Result{Cost: math.Inf(1)}
}

// Options configures a search.
//
// MaxCost         – states costing more are not expanded. Default +Inf.
// InitialBoarding – charge wait and transfer penalty on the first edge. Default true.
// Logger          – diagnostics sink. Default zerolog.Nop().
type Options struct {
	MaxCost         float64
	InitialBoarding bool
	Logger          zerolog.Logger
}

// Option represents a functional option for configuring a search.
type Option func(*Options)

// WithMaxCost caps the explored cost. Panics on a negative value when the
// option is built.
func WithMaxCost(c float64) Option {
	if c < 0 {
		panic(ErrBadMaxCost.Error())
	}

	return func(o *Options) {
		o.MaxCost = c
	}
}

// WithoutInitialBoarding drops the boarding wait and penalty from the first edge.
func WithoutInitialBoarding() Option {
	return func(o *Options) {
		o.InitialBoarding = false
	}
}

// WithLogger routes search diagnostics to l.
func WithLogger(l zerolog.Logger) Option {
	return func(o *Options) {
		o.Logger = l
	}
}

// DefaultOptions returns the options used when none are given.
func DefaultOptions() Options {
	return Options{
		MaxCost:         math.Inf(1),
		InitialBoarding: true,
		Logger:          zerolog.Nop(),
	}
}
