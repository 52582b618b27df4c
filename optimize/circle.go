package optimize

import (
	"errors"
	"fmt"
	"math/rand"

	"github.com/katalvlaran/transitplan/geo"
	"github.com/katalvlaran/transitplan/plan"
	"github.com/katalvlaran/transitplan/stops"
)

// DefaultCircleRadius is the catchment of a circle route, in metres.
const DefaultCircleRadius = 3200.0

// CirclePlan builds a baseline plan without any schedule: n routes centred on
// sampled transit-dependent stops and n on arbitrary stops, each visiting every
// stop within radius of its centre in id order.
func CirclePlan(name string, table *stops.Table, idx *geo.Index, rng *rand.Rand, n int, radius float64, opts ...plan.Option) (*plan.Plan, error) {
	if radius <= 0 {
		radius = DefaultCircleRadius
	}
	p := plan.New(name, table.IDs(), opts...)

	centres := sampleIDs(table.Filter(stops.TransitDependent), n, rng)
	centres = append(centres, sampleIDs(table.IDs(), n, rng)...)

	for _, c := range centres {
		at, ok := idx.Point(c)
		if !ok {
			continue
		}
		added := 0
		for _, id := range idx.Within(at, radius) {
			err := p.AddStopToCurrentRoute(id)
			switch {
			case err == nil:
				added++
			case errors.Is(err, plan.ErrConsecutiveDuplicate), errors.Is(err, plan.ErrUnknownStop):
			default:
				return nil, fmt.Errorf("optimize: circle around %q: %w", c, err)
			}
		}
		if added > 0 {
			p.EndCurrentRoute()
		}
	}

	return p, nil
}
