package pathsearch

import (
	"fmt"
	"math"

	"github.com/katalvlaran/transitplan/core"
	"github.com/katalvlaran/transitplan/plan"
)

// DrivingTime returns the minutes a bus needs from u to v: the grid distance
// between the two stops divided by the average bus speed.
func (m CostModel) DrivingTime(u, v string) (float64, error) {
	pu, ok := m.Locator.Point(u)
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrNoLocation, u)
	}
	pv, ok := m.Locator.Point(v)
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrNoLocation, v)
	}

	return m.Projection.Manhattan(pu, pv) / m.AvgBusSpeed, nil
}

// TravelTime is DrivingTime with unplaceable stops counted as 0 minutes and
// logged at warn level. It has the shape of plan.TravelTimeFunc.
func (m CostModel) TravelTime(u, v string) float64 {
	d, err := m.DrivingTime(u, v)
	if err != nil {
		m.Logger.Warn().Err(err).Str("from", u).Str("to", v).Msg("travel time counted as 0")
		return 0
	}

	return d
}

// Edge returns the cost breakdown of traversing next after prev on p. A nil
// prev means next is the first edge, which always counts as boarding.
func (m CostModel) Edge(p *plan.Plan, prev *core.Arc, next core.Arc) (Leg, error) {
	common := p.RoutesInCommon(prev, next)

	return m.leg(next, common, p.MinWaitAtStop(next.From), p.ShortestInterval(common), true)
}

// delay returns the observed delay charged on arc.
func (m CostModel) delay(arc core.Arc) float64 {
	d, ok := m.Delays[arc]
	if !ok {
		return 0
	}

	return math.Min(math.Max(d, 0), MaxDelay)
}

// leg prices arc given the routes it shares with the previous edge. board
// controls whether an empty common set is charged as a change of vehicle.
//
//	cost = driving + delay + stop
//	     + transfer·(wait(u) + transferPenalty)
//	     + (1 − transfer)·min(0, shortest(common) − wait(u))
func (m CostModel) leg(arc core.Arc, common []string, minWait, shortest float64, board bool) (Leg, error) {
	drive, err := m.DrivingTime(arc.From, arc.To)
	if err != nil {
		return Leg{}, err
	}
	l := Leg{
		Arc:          arc,
		DrivingTime:  drive,
		Delay:        m.delay(arc),
		StopPenalty:  m.StopPenalty,
		CommonRoutes: common,
	}
	if len(common) == 0 {
		if board {
			l.Transfer = true
			l.Wait = minWait
			l.TransferPenalty = m.TransferPenalty
		}
	} else {
		// Every common route serves arc.From, so shortest ≥ minWait and this
		// is 0 for a consistent plan.
		l.SlowerRoute = math.Min(0, shortest-minWait)
	}

	return l, nil
}

// Explain prices each edge of a found path in order. The first edge follows
// the InitialBoarding option the same way Search does.
func Explain(p *plan.Plan, m CostModel, edges []core.Arc, opts ...Option) ([]Leg, error) {
	if p == nil {
		return nil, ErrNilPlan
	}
	cfg := DefaultOptions()
	for _, opt := range opts {
		opt(&cfg)
	}

	legs := make([]Leg, 0, len(edges))
	var prev *core.Arc
	for i := range edges {
		next := edges[i]
		common := p.RoutesInCommon(prev, next)
		l, err := m.leg(next, common, p.MinWaitAtStop(next.From), p.ShortestInterval(common), prev != nil || cfg.InitialBoarding)
		if err != nil {
			return nil, err
		}
		legs = append(legs, l)
		prev = &edges[i]
	}

	return legs, nil
}
