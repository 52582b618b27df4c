package pathsearch

import (
	"fmt"

	"github.com/katalvlaran/transitplan/geo"
	"github.com/katalvlaran/transitplan/plan"
)

// SearchFromPoints answers a coordinate query: the rider boards at the plan
// stop nearest to origin and may alight at any plan stop within
// WalkingDistanceMeters of destination.
func SearchFromPoints(p *plan.Plan, m CostModel, idx *geo.Index, origin, destination geo.Point, opts ...Option) (Result, error) {
	if p == nil {
		return Result{}, ErrNilPlan
	}
	from, _, ok := idx.Nearest(origin)
	if !ok || !p.HasStop(from) {
		return Result{}, fmt.Errorf("%w: no stop near %v", ErrOriginNotFound, origin)
	}

	var dests []string
	for _, id := range idx.Within(destination, WalkingDistanceMeters) {
		if p.HasStop(id) {
			dests = append(dests, id)
		}
	}
	if len(dests) == 0 {
		return Result{}, fmt.Errorf("%w: no stop within %.0f m of %v", ErrNoDestinations, WalkingDistanceMeters, destination)
	}

	return Search(p, m, from, dests, opts...)
}
